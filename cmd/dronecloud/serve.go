package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/config"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/hub"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/ingest"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/logging"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/server"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/store"
)

var (
	serveConfigPath string
	serveSchemaPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay hub and HTTP API",
	Long:  "serve starts the telemetry relay: the websocket hub, the ingestion API, photo uploads, and the static dashboard.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveConfigPath, serveSchemaPath)
		if err != nil {
			return err
		}

		// JSON logs for hosted deployments, text when run from a terminal.
		log := logging.NewJSON()
		if term.IsTerminal(int(os.Stdout.Fd())) {
			log = logging.New()
		}
		slog.SetDefault(log)

		for _, dir := range []string{filepath.Dir(cfg.SQLitePath), cfg.PhotosDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		st, err := store.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer st.Close()

		mirrors, cleanup, err := newMirrors(cfg, log)
		if err != nil {
			return err
		}
		defer cleanup()

		h := hub.New(cfg.AuthToken, log)
		svc := ingest.New(cfg.AuthToken, st, mirrors, newSink(cfg), h, log)
		srv := server.New(cfg, svc, h, log)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigs
			log.Info("signal received, shutting down")
			cancel()
		}()

		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "config/dronecloud.yaml", "Path to relay configuration YAML")
	serveCmd.Flags().StringVar(&serveSchemaPath, "schema", "schemas/dronecloud.cue", "Path to CUE schema file")
}
