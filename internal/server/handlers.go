package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/ingest"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/logging"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/media"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/store"
	"github.com/shivamb241195ee/drone-cloud-railway/internal/telemetry"
)

// maxPhotoMemory bounds the in-memory part of multipart parsing; larger
// uploads spill to temp files.
const maxPhotoMemory = 32 << 20

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"note":   "Drone Cloud running. Visit /static/index.html for UI.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	var sample telemetry.Sample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := s.svc.RecordTelemetry(r.Context(), sample); err != nil {
		logging.FromContext(r.Context()).Error("record telemetry", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	rows, err := s.svc.Recent(r.Context(), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("query recent", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	sample, ok, err := s.svc.Latest(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("query latest", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read file: "+err.Error())
		return
	}

	ref, err := s.svc.RecordPhoto(r.Context(), r.FormValue("token"), media.Upload{
		Filename:    header.Filename,
		Data:        data,
		Meta:        r.FormValue("meta"),
		RequestBase: requestBase(r),
	})
	if err != nil {
		if errors.Is(err, ingest.ErrForbidden) {
			writeJSON(w, http.StatusForbidden, map[string]string{"status": "forbidden"})
			return
		}
		logging.FromContext(r.Context()).Error("store photo", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{"status": "ok", "url": ref.URL}
	if len(ref.Raw) > 0 {
		resp["raw"] = json.RawMessage(ref.Raw)
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestBase reconstructs the request's external base URL. The relay runs
// behind a TLS-terminating proxy in hosted deployments, so the forwarded
// proto header wins over the transport scheme.
func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"status": "error", "detail": detail})
}
