package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/telemetry"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "telemetry.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecentNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		sample := telemetry.Sample{
			Time: base.Add(time.Duration(i) * time.Minute),
			Lat:  telemetry.Float(float64(i)),
		}
		if err := s.Insert(ctx, sample); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	rows, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if *rows[0].Lat != 2 || *rows[1].Lat != 1 {
		t.Fatalf("rows out of order: lat[0]=%v lat[1]=%v", *rows[0].Lat, *rows[1].Lat)
	}
	if !rows[0].Time.After(rows[1].Time) {
		t.Fatalf("expected newest first: %v then %v", rows[0].Time, rows[1].Time)
	}
}

func TestRecentOrderWithSubsecondTimes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// A whole-second timestamp must still sort below a fractional one from
	// the same second.
	base := time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(500 * time.Millisecond),
	}
	for i, ts := range times {
		if err := s.Insert(ctx, telemetry.Sample{Time: ts, Alt: telemetry.Float(float64(i))}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	rows, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	for i, wantAlt := range []float64{2, 1, 0} {
		if *rows[i].Alt != wantAlt {
			t.Fatalf("row %d alt = %v, want %v", i, *rows[i].Alt, wantAlt)
		}
	}
}

func TestLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Latest(ctx); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	want := telemetry.Sample{
		Time: time.Date(2025, 8, 25, 11, 30, 0, 0, time.UTC),
		Lat:  telemetry.Float(11.11),
		Lon:  telemetry.Float(75.75),
		Alt:  telemetry.Float(10),
		Batt: telemetry.Float(88),
		Meta: telemetry.String("x"),
	}
	if err := s.Insert(ctx, want); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, ok, err := s.Latest(ctx)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if *got.Lat != 11.11 || *got.Lon != 75.75 || *got.Alt != 10 || *got.Batt != 88 || *got.Meta != "x" {
		t.Fatalf("unexpected sample: %#v", got)
	}
	if !got.Time.Equal(want.Time) {
		t.Fatalf("time = %v, want %v", got.Time, want.Time)
	}
}

func TestNullFieldsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, telemetry.Sample{Time: time.Now().UTC()}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, ok, err := s.Latest(ctx)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if got.Lat != nil || got.Lon != nil || got.Alt != nil || got.Batt != nil || got.Meta != nil {
		t.Fatalf("absent fields should come back nil: %#v", got)
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero uses default", 0, DefaultRecentLimit},
		{"negative uses default", -5, DefaultRecentLimit},
		{"in range passes through", 7, 7},
		{"above max clamps", 5000, MaxRecentLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampLimit(tc.limit); got != tc.want {
				t.Fatalf("ClampLimit(%d) = %d, want %d", tc.limit, got, tc.want)
			}
		})
	}
}
