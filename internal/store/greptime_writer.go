package store

import (
	"context"
	"fmt"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/telemetry"
)

// defaultGreptimePort is the ingester's gRPC port.
const defaultGreptimePort = 4001

// greptimeClient is the slice of the ingester client the writer uses, kept
// narrow so tests can substitute a mock.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeWriter mirrors samples into a GreptimeDB time-series table.
type GreptimeWriter struct {
	client greptimeClient
	table  string
}

// NewGreptimeWriter connects to a GreptimeDB endpoint ("host" or
// "host:port") and mirrors samples into tableName.
func NewGreptimeWriter(endpoint, database, tableName string) (*GreptimeWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("greptime: endpoint %q: %w", endpoint, err)
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	cli, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime: connect: %w", err)
	}
	if tableName == "" {
		tableName = telemetry.Sample{}.TableName()
	}
	return &GreptimeWriter{client: cli, table: tableName}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

// WriteSample mirrors one sample. Absent payload fields are written as zero
// values; the SQLite store keeps the authoritative nulls.
func (w *GreptimeWriter) WriteSample(ctx context.Context, s telemetry.Sample) error {
	tbl, err := table.New(w.table)
	if err != nil {
		return fmt.Errorf("greptime: new table: %w", err)
	}

	if err := tbl.AddFieldColumn("lat", types.FLOAT64); err != nil {
		return fmt.Errorf("greptime: schema: %w", err)
	}
	if err := tbl.AddFieldColumn("lon", types.FLOAT64); err != nil {
		return fmt.Errorf("greptime: schema: %w", err)
	}
	if err := tbl.AddFieldColumn("alt", types.FLOAT64); err != nil {
		return fmt.Errorf("greptime: schema: %w", err)
	}
	if err := tbl.AddFieldColumn("batt", types.FLOAT64); err != nil {
		return fmt.Errorf("greptime: schema: %w", err)
	}
	if err := tbl.AddFieldColumn("meta", types.STRING); err != nil {
		return fmt.Errorf("greptime: schema: %w", err)
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return fmt.Errorf("greptime: schema: %w", err)
	}

	err = tbl.AddRow(
		deref(s.Lat),
		deref(s.Lon),
		deref(s.Alt),
		deref(s.Batt),
		derefString(s.Meta),
		s.Time,
	)
	if err != nil {
		return fmt.Errorf("greptime: add row: %w", err)
	}

	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime: write: %w", err)
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
