package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/yieldprophet-runner/internal/archive"
	"github.com/couchcryptid/yieldprophet-runner/internal/archive/core"
)

// ArtifactLister lists archived objects under a key prefix.
type ArtifactLister interface {
	List(ctx context.Context, prefix string) ([]core.Info, error)
}

// Server exposes health, readiness, metrics and job artifact endpoints.
type Server struct {
	httpServer *http.Server
	artifacts  ArtifactLister
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz and /metrics routes.
// When artifacts is non-nil it also serves GET /jobs/{id}/artifacts.
func NewServer(addr string, ready sharedobs.ReadinessChecker, artifacts ArtifactLister, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		artifacts: artifacts,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if artifacts != nil {
		mux.HandleFunc("GET /jobs/{id}/artifacts", s.handleArtifacts)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	infos, err := s.artifacts.List(r.Context(), archive.JobPrefix(jobID)+"/")
	if err != nil {
		s.logger.Error("list artifacts failed", "job_id", jobID, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "list artifacts failed"})
		return
	}
	if len(infos) == 0 {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no artifacts for job"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "artifacts": infos})
}
