package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/hub"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/media"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/telemetry"
)

type fakeStore struct {
	samples   []telemetry.Sample
	insertErr error
	readErr   error
}

func (f *fakeStore) Insert(_ context.Context, s telemetry.Sample) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.samples = append(f.samples, s)
	return nil
}

func (f *fakeStore) Recent(_ context.Context, limit int) ([]telemetry.Sample, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var rows []telemetry.Sample
	for i := len(f.samples) - 1; i >= 0 && len(rows) < limit; i-- {
		rows = append(rows, f.samples[i])
	}
	return rows, nil
}

func (f *fakeStore) Latest(_ context.Context) (telemetry.Sample, bool, error) {
	if f.readErr != nil {
		return telemetry.Sample{}, false, f.readErr
	}
	if len(f.samples) == 0 {
		return telemetry.Sample{}, false, nil
	}
	return f.samples[len(f.samples)-1], true, nil
}

type fakeBroadcaster struct {
	msgs []string
}

func (f *fakeBroadcaster) Broadcast(data []byte, _ *hub.Member) {
	f.msgs = append(f.msgs, string(data))
}

type fakeSink struct {
	uploads []media.Upload
	ref     media.Ref
	err     error
}

func (f *fakeSink) Store(_ context.Context, up media.Upload) (media.Ref, error) {
	if f.err != nil {
		return media.Ref{}, f.err
	}
	f.uploads = append(f.uploads, up)
	return f.ref, nil
}

type stubMirror struct {
	samples []telemetry.Sample
	err     error
}

func (s *stubMirror) WriteSample(_ context.Context, sample telemetry.Sample) error {
	if s.err != nil {
		return s.err
	}
	s.samples = append(s.samples, sample)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(st *fakeStore, mirror *stubMirror, sink *fakeSink, relay *fakeBroadcaster) *Service {
	svc := New("secret", st, nil, sink, relay, testLogger())
	if mirror != nil {
		svc.mirrors = mirror
	}
	return svc
}

func TestRecordTelemetryPersistsAndBroadcasts(t *testing.T) {
	st := &fakeStore{}
	relay := &fakeBroadcaster{}
	svc := newTestService(st, nil, &fakeSink{}, relay)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	stored, err := svc.RecordTelemetry(context.Background(), telemetry.Sample{
		Lat:  telemetry.Float(11.11),
		Lon:  telemetry.Float(75.75),
		Alt:  telemetry.Float(10),
		Batt: telemetry.Float(88),
		Meta: telemetry.String("x"),
	})
	if err != nil {
		t.Fatalf("record telemetry: %v", err)
	}
	if !stored.Time.Equal(fixed) {
		t.Errorf("stored time = %v, want %v", stored.Time, fixed)
	}
	if len(st.samples) != 1 {
		t.Fatalf("store has %d samples, want 1", len(st.samples))
	}
	if len(relay.msgs) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(relay.msgs))
	}
	var env telemetry.Envelope
	if err := json.Unmarshal([]byte(relay.msgs[0]), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Kind != telemetry.KindTelemetry {
		t.Errorf("envelope kind = %q, want %q", env.Kind, telemetry.KindTelemetry)
	}
	if env.Data.Lat == nil || *env.Data.Lat != 11.11 {
		t.Errorf("broadcast lat = %v, want 11.11", env.Data.Lat)
	}
	if !env.Data.Time.Equal(fixed) {
		t.Errorf("broadcast time = %v, want %v", env.Data.Time, fixed)
	}
}

func TestRecordTelemetryStoreFailureSkipsBroadcast(t *testing.T) {
	st := &fakeStore{insertErr: errors.New("disk full")}
	relay := &fakeBroadcaster{}
	svc := newTestService(st, nil, &fakeSink{}, relay)

	_, err := svc.RecordTelemetry(context.Background(), telemetry.Sample{Lat: telemetry.Float(1)})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(relay.msgs) != 0 {
		t.Errorf("broadcast sent despite persistence failure: %v", relay.msgs)
	}
}

func TestRecordTelemetryMirrorFailureTolerated(t *testing.T) {
	st := &fakeStore{}
	relay := &fakeBroadcaster{}
	mirror := &stubMirror{err: errors.New("mirror down")}
	svc := newTestService(st, mirror, &fakeSink{}, relay)

	_, err := svc.RecordTelemetry(context.Background(), telemetry.Sample{Lat: telemetry.Float(1)})
	if err != nil {
		t.Fatalf("mirror failure surfaced: %v", err)
	}
	if len(st.samples) != 1 {
		t.Errorf("store has %d samples, want 1", len(st.samples))
	}
	if len(relay.msgs) != 1 {
		t.Errorf("broadcasts = %d, want 1", len(relay.msgs))
	}
}

func TestRecordTelemetryMirrorReceivesStoredSample(t *testing.T) {
	st := &fakeStore{}
	mirror := &stubMirror{}
	svc := newTestService(st, mirror, &fakeSink{}, &fakeBroadcaster{})

	if _, err := svc.RecordTelemetry(context.Background(), telemetry.Sample{Batt: telemetry.Float(42)}); err != nil {
		t.Fatalf("record telemetry: %v", err)
	}
	if len(mirror.samples) != 1 {
		t.Fatalf("mirror has %d samples, want 1", len(mirror.samples))
	}
	if mirror.samples[0].Time.IsZero() {
		t.Error("mirror received sample without server time")
	}
}

func TestRecordPhotoWrongToken(t *testing.T) {
	st := &fakeStore{}
	relay := &fakeBroadcaster{}
	sink := &fakeSink{ref: media.Ref{URL: "http://x/photos/p.jpg"}}
	svc := newTestService(st, nil, sink, relay)

	_, err := svc.RecordPhoto(context.Background(), "wrong", media.Upload{Filename: "a.jpg", Data: []byte("x")})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(sink.uploads) != 0 {
		t.Errorf("sink called despite bad token: %d uploads", len(sink.uploads))
	}
	if len(relay.msgs) != 0 {
		t.Errorf("broadcast sent despite bad token: %v", relay.msgs)
	}
}

func TestRecordPhotoBroadcastsURL(t *testing.T) {
	relay := &fakeBroadcaster{}
	sink := &fakeSink{ref: media.Ref{URL: "https://cdn.example/p.jpg"}}
	svc := newTestService(&fakeStore{}, nil, sink, relay)

	ref, err := svc.RecordPhoto(context.Background(), "secret", media.Upload{Filename: "a.jpg", Data: []byte("x")})
	if err != nil {
		t.Fatalf("record photo: %v", err)
	}
	if ref.URL != "https://cdn.example/p.jpg" {
		t.Errorf("ref url = %q", ref.URL)
	}
	if len(sink.uploads) != 1 {
		t.Fatalf("sink uploads = %d, want 1", len(sink.uploads))
	}
	if len(relay.msgs) != 1 || relay.msgs[0] != "PHOTO:https://cdn.example/p.jpg" {
		t.Errorf("broadcasts = %v, want [PHOTO:https://cdn.example/p.jpg]", relay.msgs)
	}
}

func TestRecordPhotoSinkFailure(t *testing.T) {
	relay := &fakeBroadcaster{}
	sink := &fakeSink{err: media.ErrUploadTransport}
	svc := newTestService(&fakeStore{}, nil, sink, relay)

	_, err := svc.RecordPhoto(context.Background(), "secret", media.Upload{Filename: "a.jpg", Data: []byte("x")})
	if !errors.Is(err, media.ErrUploadTransport) {
		t.Fatalf("expected ErrUploadTransport, got %v", err)
	}
	if len(relay.msgs) != 0 {
		t.Errorf("broadcast sent despite sink failure: %v", relay.msgs)
	}
}

func TestLatestEmpty(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil, &fakeSink{}, &fakeBroadcaster{})
	_, ok, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if ok {
		t.Error("expected no sample from empty store")
	}
}

func TestRecentWrapsStoreError(t *testing.T) {
	svc := newTestService(&fakeStore{readErr: errors.New("locked")}, nil, &fakeSink{}, &fakeBroadcaster{})
	_, err := svc.Recent(context.Background(), 10)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}
