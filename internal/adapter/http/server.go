// Package http exposes the service's HTTP surface: health and metrics
// endpoints plus the event and safety API.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/crisis-intel-service/internal/domain"
	"github.com/couchcryptid/crisis-intel-service/internal/geo"
	"github.com/couchcryptid/crisis-intel-service/internal/ingest"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// EventReader is the slice of the store gateway the API needs.
type EventReader interface {
	Get(ctx context.Context, identity string) (domain.Event, error)
	QueryByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Event, error)
	QueryAssessedWithMinScore(ctx context.Context, minScore, limit int) ([]domain.Event, error)
}

// Ingestor triggers on-demand ingestion batches.
type Ingestor interface {
	Ingest(ctx context.Context, source, locationFilter string) (ingest.Summary, error)
	Sources() []string
}

// Lifecycle exposes the operator-facing event transitions.
type Lifecycle interface {
	Requeue(ctx context.Context, identity string) error
	Reclaim(ctx context.Context) (int, error)
}

// SafetyEngine evaluates threat exposure and route safety.
type SafetyEngine interface {
	MapThreatRadius(ctx context.Context, user geo.Point, radiusKM float64, minScore int) (geo.ThreatMap, error)
	FindSafeLocations(ctx context.Context, user geo.Point, category string, radiusKM float64, maxResults int) (geo.SafeLocations, error)
	ComputeRoutes(ctx context.Context, origin, destination geo.Point, mode string, avoidThreats bool) (geo.RoutePlan, error)
	CheckLocationSafety(ctx context.Context, user geo.Point, radiusKM float64) (geo.SafetyReport, error)
}

// Server exposes health, metrics, and API HTTP endpoints.
type Server struct {
	httpServer *http.Server
	ready      ReadinessChecker
	events     EventReader
	ingestor   Ingestor
	lifecycle  Lifecycle
	engine     SafetyEngine
	logger     *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, ready ReadinessChecker, events EventReader, ingestor Ingestor, lifecycle Lifecycle, engine SafetyEngine, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ready:     ready,
		events:    events,
		ingestor:  ingestor,
		lifecycle: lifecycle,
		engine:    engine,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/events/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("GET /api/events/high_risk", s.handleHighRisk)
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.HandleFunc("POST /api/events/{id}/requeue", s.handleRequeue)
	mux.HandleFunc("POST /api/events/reclaim", s.handleReclaim)

	mux.HandleFunc("POST /api/safety/threats", s.handleThreats)
	mux.HandleFunc("POST /api/safety/locations", s.handleSafeLocations)
	mux.HandleFunc("POST /api/safety/check", s.handleSafetyCheck)
	mux.HandleFunc("POST /api/routes/compute", s.handleComputeRoutes)

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

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.ready.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
