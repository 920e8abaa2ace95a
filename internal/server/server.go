// Package server exposes the relay over HTTP: the websocket endpoint,
// telemetry and photo ingestion, stored reads, and static assets.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/config"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/hub"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/ingest"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Server routes HTTP traffic to the ingestion service and the hub.
type Server struct {
	cfg    *config.Config
	svc    *ingest.Service
	hub    *hub.Hub
	log    *slog.Logger
	router chi.Router
}

// New builds the server with its routes wired.
func New(cfg *config.Config, svc *ingest.Service, h *hub.Hub, log *slog.Logger) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		hub: h,
		log: log.With("component", "http"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWS)
	r.Route("/api", func(r chi.Router) {
		r.Post("/telemetry", s.handleTelemetry)
		r.Get("/telemetry/recent", s.handleRecent)
		r.Get("/telemetry/latest", s.handleLatest)
		r.Post("/photo", s.handlePhoto)
	})
	fileServer(r, "/static", http.Dir(s.cfg.StaticDir))
	fileServer(r, "/photos", http.Dir(s.cfg.PhotosDir))
	return r
}

// ServeHTTP lets the server be driven directly by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	// No global read/write timeouts: /ws connections are long-lived.
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request and stores a request-scoped
// logger in the context for handlers to pick up.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log.With("request_id", middleware.GetReqID(r.Context()))
			r = r.WithContext(logging.NewContext(r.Context(), reqLog))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			reqLog.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

func fileServer(r chi.Router, prefix string, root http.FileSystem) {
	fs := http.StripPrefix(prefix, http.FileServer(root))
	r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}
