package store

import (
	"context"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/telemetry"
)

// SampleWriter mirrors stored samples to a secondary destination. The SQLite
// store stays authoritative; mirrors are best-effort.
type SampleWriter interface {
	WriteSample(ctx context.Context, s telemetry.Sample) error
}

// MultiWriter fans a sample out to multiple writers.
type MultiWriter struct {
	writers []SampleWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...SampleWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// WriteSample sends the sample to every writer and returns the first error.
// A failing writer does not stop delivery to the rest.
func (mw *MultiWriter) WriteSample(ctx context.Context, s telemetry.Sample) error {
	var firstErr error
	for _, w := range mw.writers {
		if err := w.WriteSample(ctx, s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
