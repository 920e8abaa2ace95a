package main

import (
	"log/slog"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/config"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/media"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/store"
)

// newMirrors assembles the optional telemetry mirror writers from config.
// The returned writer is nil when no mirror is configured; the cleanup
// function is always safe to call.
func newMirrors(cfg *config.Config, log *slog.Logger) (store.SampleWriter, func(), error) {
	cleanup := func() {}
	var writers []store.SampleWriter

	if cfg.LogFile != "" {
		fw, err := store.NewFileWriter(cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, fw)
		cleanup = func() { fw.Close() }
		log.Info("mirroring telemetry to file", "path", cfg.LogFile)
	}
	if cfg.GreptimeEndpoint != "" {
		gw, err := store.NewGreptimeWriter(cfg.GreptimeEndpoint, "public", cfg.GreptimeTable)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		writers = append(writers, gw)
		log.Info("mirroring telemetry to greptimedb", "endpoint", cfg.GreptimeEndpoint, "table", cfg.GreptimeTable)
	}

	switch len(writers) {
	case 0:
		return nil, cleanup, nil
	case 1:
		return writers[0], cleanup, nil
	default:
		return store.NewMultiWriter(writers...), cleanup, nil
	}
}

// newSink selects the photo sink. The remote service wins when fully
// configured; anything less stores photos on local disk.
func newSink(cfg *config.Config) media.Sink {
	if cfg.RemoteUploadConfigured() {
		return media.NewRemote(cfg.CloudinaryUploadURL, cfg.CloudinaryUploadPreset)
	}
	return media.NewLocal(cfg.PhotosDir, cfg.PublicURL)
}
