package store

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/telemetry"
)

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	fw, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}

	ts := time.Unix(0, 0).UTC()
	samples := []telemetry.Sample{
		{Time: ts, Lat: telemetry.Float(1), Lon: telemetry.Float(2)},
		{Time: ts.Add(time.Second), Meta: telemetry.String("second")},
	}
	for i, s := range samples {
		if err := fw.WriteSample(context.Background(), s); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var got []telemetry.Sample
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var s telemetry.Sample
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		got = append(got, s)
	}
	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2", len(got))
	}
	if got[0].Lat == nil || *got[0].Lat != 1 {
		t.Fatalf("unexpected first line: %#v", got[0])
	}
	if got[1].Meta == nil || *got[1].Meta != "second" {
		t.Fatalf("unexpected second line: %#v", got[1])
	}
}

func TestFileWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")

	for i := 0; i < 2; i++ {
		fw, err := NewFileWriter(path)
		if err != nil {
			t.Fatalf("NewFileWriter: %v", err)
		}
		if err := fw.WriteSample(context.Background(), telemetry.Sample{Time: time.Unix(int64(i), 0).UTC()}); err != nil {
			t.Fatalf("write: %v", err)
		}
		fw.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	// Reopening must not truncate earlier samples.
	if lines != 2 {
		t.Fatalf("got %d lines, want 2", lines)
	}
}
