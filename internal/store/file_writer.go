package store

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/telemetry"
)

// FileWriter appends samples to a JSONL file, one object per line.
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter opens (or creates) the JSONL file at path for appending.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// WriteSample logs a single sample. Safe for concurrent use.
func (f *FileWriter) WriteSample(_ context.Context, s telemetry.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(s)
}

// Close closes the underlying file.
func (f *FileWriter) Close() error {
	return f.file.Close()
}
