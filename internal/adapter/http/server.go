// Package http exposes the service's HTTP surface: health, readiness,
// Prometheus metrics, and a small read API over the latest feature build.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"avalanche-feature-etl/internal/domain"
	"avalanche-feature-etl/internal/risk"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// MatrixProvider hands out the most recently built feature matrix.
type MatrixProvider interface {
	Latest() (domain.FeatureMatrix, bool)
}

// Server exposes health, readiness, metrics, and the zone risk API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	provider   MatrixProvider
	classifier risk.Classifier
	zones      []domain.Zone
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(addr string, ready ReadinessChecker, provider MatrixProvider, classifier risk.Classifier, zones []domain.Zone, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:     logger,
		provider:   provider,
		classifier: classifier,
		zones:      zones,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/zones", s.handleZones)
	mux.HandleFunc("GET /api/v1/risk-assessment", s.handleRiskAssessment)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleZones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"zones": s.zones})
}

func (s *Server) handleRiskAssessment(w http.ResponseWriter, r *http.Request) {
	m, ok := s.provider.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "no feature matrix built yet",
		})
		return
	}

	assessments, err := risk.Assess(r.Context(), m, s.zones, s.classifier)
	if err != nil {
		s.logger.Error("risk assessment failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "risk assessment failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":      m.RunID,
		"built_at":    m.BuiltAt.UTC().Format(time.RFC3339),
		"assessments": assessments,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
