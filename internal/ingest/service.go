// Package ingest implements the write paths feeding the relay: telemetry
// records and photo uploads.
package ingest

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/hub"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/media"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/store"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/telemetry"
)

var (
	// ErrForbidden marks an upload presenting the wrong shared secret.
	ErrForbidden = errors.New("ingest: forbidden")

	// ErrPersistence marks a rejected store write or read.
	ErrPersistence = errors.New("ingest: persistence failed")
)

// Store is the persistence surface ingestion needs.
type Store interface {
	Insert(ctx context.Context, s telemetry.Sample) error
	Recent(ctx context.Context, limit int) ([]telemetry.Sample, error)
	Latest(ctx context.Context) (telemetry.Sample, bool, error)
}

// Broadcaster fans a message out to connected members.
type Broadcaster interface {
	Broadcast(data []byte, exclude *hub.Member)
}

// Service wires the ingestion paths together: primary store, optional
// mirrors, media sink, and the relay hub.
type Service struct {
	token   string
	store   Store
	mirrors store.SampleWriter
	sink    media.Sink
	relay   Broadcaster
	log     *slog.Logger
	now     func() time.Time
}

// New creates the ingestion service. mirrors may be nil when no secondary
// telemetry destinations are configured.
func New(token string, st Store, mirrors store.SampleWriter, sink media.Sink, relay Broadcaster, log *slog.Logger) *Service {
	return &Service{
		token:   token,
		store:   st,
		mirrors: mirrors,
		sink:    sink,
		relay:   relay,
		log:     log.With("component", "ingest"),
		now:     time.Now,
	}
}

// RecordTelemetry stamps the sample with server time, persists it, and
// broadcasts the stored record to all members. A persistence failure aborts
// before any fan-out; mirror and broadcast outcomes never affect the result.
func (s *Service) RecordTelemetry(ctx context.Context, sample telemetry.Sample) (telemetry.Sample, error) {
	sample.Time = s.now().UTC()
	if err := s.store.Insert(ctx, sample); err != nil {
		return telemetry.Sample{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if s.mirrors != nil {
		if err := s.mirrors.WriteSample(ctx, sample); err != nil {
			s.log.Warn("mirror write failed", "error", err)
		}
	}
	data, err := telemetry.EncodeSample(sample)
	if err != nil {
		s.log.Error("encode sample for relay failed", "error", err)
		return sample, nil
	}
	s.relay.Broadcast(data, nil)
	return sample, nil
}

// RecordPhoto validates the shared secret, stores the photo through the
// configured sink, and announces the resulting URL on the relay. A wrong
// token has zero side effects.
func (s *Service) RecordPhoto(ctx context.Context, token string, up media.Upload) (media.Ref, error) {
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return media.Ref{}, ErrForbidden
	}
	ref, err := s.sink.Store(ctx, up)
	if err != nil {
		return media.Ref{}, err
	}
	s.log.Info("photo stored", "url", ref.URL)
	s.relay.Broadcast([]byte(telemetry.PhotoMessage(ref.URL)), nil)
	return ref, nil
}

// Recent returns up to limit stored samples, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]telemetry.Sample, error) {
	rows, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return rows, nil
}

// Latest returns the most recent stored sample, if any.
func (s *Service) Latest(ctx context.Context) (telemetry.Sample, bool, error) {
	sample, ok, err := s.store.Latest(ctx)
	if err != nil {
		return telemetry.Sample{}, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return sample, ok, nil
}
