// Package store persists telemetry samples and mirrors them to optional
// secondary writers.
package store

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/telemetry"
)

const (
	// DefaultRecentLimit is used when a recent query names no limit.
	DefaultRecentLimit = 50
	// MaxRecentLimit bounds recent queries so no caller can drain the table.
	MaxRecentLimit = 1000
)

// timeLayout is RFC3339 with fixed-width microseconds so that lexicographic
// order on the stored text equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS telemetry (
	time TEXT,
	lat REAL,
	lon REAL,
	alt REAL,
	batt REAL,
	meta TEXT
);
CREATE INDEX IF NOT EXISTS telemetry_time ON telemetry (time DESC);
`

// Store is an append-only telemetry record store backed by SQLite.
type Store struct {
	pool *sqlitex.Pool
}

// Open opens (or creates) the database at path and prepares the telemetry
// table.
func Open(ctx context.Context, path string) (*Store, error) {
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: 4,
		PrepareConn: func(conn *sqlite.Conn) error {
			pragmas := []string{
				"PRAGMA journal_mode=WAL",
				"PRAGMA synchronous=NORMAL",
				"PRAGMA busy_timeout=5000",
			}
			for _, pragma := range pragmas {
				if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
					return fmt.Errorf("%s: %w", pragma, err)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	conn, err := pool.Take(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: take conn: %w", err)
	}
	defer pool.Put(conn)
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Insert appends one sample. The sample's Time must already be set; rows are
// immutable once written.
func (s *Store) Insert(ctx context.Context, sample telemetry.Sample) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: take conn: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO telemetry (time, lat, lon, alt, batt, meta) VALUES (?, ?, ?, ?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{
			sample.Time.UTC().Format(timeLayout),
			floatArg(sample.Lat),
			floatArg(sample.Lon),
			floatArg(sample.Alt),
			floatArg(sample.Batt),
			stringArg(sample.Meta),
		}})
	if err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit samples, newest first. Non-positive limits fall
// back to DefaultRecentLimit; limits above MaxRecentLimit are clamped.
func (s *Store) Recent(ctx context.Context, limit int) ([]telemetry.Sample, error) {
	limit = ClampLimit(limit)

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: take conn: %w", err)
	}
	defer s.pool.Put(conn)

	rows := make([]telemetry.Sample, 0, limit)
	err = sqlitex.Execute(conn,
		"SELECT time, lat, lon, alt, batt, meta FROM telemetry ORDER BY time DESC LIMIT ?",
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rows = append(rows, scanSample(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	return rows, nil
}

// Latest returns the newest sample. ok is false when nothing is stored yet.
func (s *Store) Latest(ctx context.Context) (telemetry.Sample, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return telemetry.Sample{}, false, fmt.Errorf("store: take conn: %w", err)
	}
	defer s.pool.Put(conn)

	var sample telemetry.Sample
	found := false
	err = sqlitex.Execute(conn,
		"SELECT time, lat, lon, alt, batt, meta FROM telemetry ORDER BY time DESC LIMIT 1",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				sample = scanSample(stmt)
				found = true
				return nil
			},
		})
	if err != nil {
		return telemetry.Sample{}, false, fmt.Errorf("store: latest: %w", err)
	}
	return sample, found, nil
}

// ClampLimit normalizes a recent-query limit into [1, MaxRecentLimit].
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}

func scanSample(stmt *sqlite.Stmt) telemetry.Sample {
	var s telemetry.Sample
	if t, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(0)); err == nil {
		s.Time = t
	}
	s.Lat = columnFloat(stmt, 1)
	s.Lon = columnFloat(stmt, 2)
	s.Alt = columnFloat(stmt, 3)
	s.Batt = columnFloat(stmt, 4)
	if !stmt.ColumnIsNull(5) {
		v := stmt.ColumnText(5)
		s.Meta = &v
	}
	return s
}

func columnFloat(stmt *sqlite.Stmt, col int) *float64 {
	if stmt.ColumnIsNull(col) {
		return nil
	}
	v := stmt.ColumnFloat(col)
	return &v
}

func floatArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func stringArg(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
