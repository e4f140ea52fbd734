// Package httpapi exposes the dashboard engine over HTTP: health and metrics
// endpoints plus the versioned JSON API the front ends poll.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/chaos-meter/internal/anim"
	"github.com/couchcryptid/chaos-meter/internal/controller"
	"github.com/couchcryptid/chaos-meter/internal/render"
)

const dashboardCacheKey = "dashboard"

// Engine is the controller surface the API serves. Frame is separate from
// Dashboard so animation polling stays cheap at high frequency.
type Engine interface {
	Dashboard() render.Dashboard
	Frame() anim.Frame
	InfoCard(key string) (render.InfoCardVM, bool)
	EnterSimulation() error
	SetOverlay(key string, value float64) error
	SimulationScore() (float64, error)
	CommitSimulation() error
	DiscardSimulation() error
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and dashboard API routes.
type Server struct {
	httpServer *http.Server
	engine     Engine
	cache      *gocache.Cache
	logger     *slog.Logger
}

// NewServer wires the route table. cacheTTL bounds how stale a cached
// dashboard response may be; the frame endpoint is never cached.
func NewServer(addr string, engine Engine, ready ReadinessChecker, cacheTTL time.Duration, logger *slog.Logger) *Server {
	s := &Server{
		engine: engine,
		cache:  gocache.New(cacheTTL, 10*cacheTTL),
		logger: logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", handleReady(ready)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/frame", s.handleFrame).Methods(http.MethodGet)
	api.HandleFunc("/factors/{key}", s.handleInfoCard).Methods(http.MethodGet)
	api.HandleFunc("/simulation", s.handleEnterSimulation).Methods(http.MethodPost)
	api.HandleFunc("/simulation", s.handleDiscardSimulation).Methods(http.MethodDelete)
	api.HandleFunc("/simulation/score", s.handleSimulationScore).Methods(http.MethodGet)
	api.HandleFunc("/simulation/factors/{key}", s.handleSetOverlay).Methods(http.MethodPut)
	api.HandleFunc("/simulation/commit", s.handleCommitSimulation).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handlers.RecoveryHandler()(handlers.CompressHandler(r)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
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

// handleDashboard serves the cached view model. Many front-end sessions poll
// this at once; the cache collapses them to one build per TTL window.
func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	if cached, ok := s.cache.Get(dashboardCacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}
	d := s.engine.Dashboard()
	s.cache.SetDefault(dashboardCacheKey, d)
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Frame())
}

func (s *Server) handleInfoCard(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	card, ok := s.engine.InfoCard(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("unknown factor %q", key)})
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleEnterSimulation(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.EnterSimulation(); err != nil {
		writeSimulationError(w, err)
		return
	}
	s.cache.Delete(dashboardCacheKey)
	writeJSON(w, http.StatusOK, map[string]string{"status": "simulation active"})
}

type overlayRequest struct {
	Value float64 `json:"value"`
}

func (s *Server) handleSetOverlay(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req overlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.engine.SetOverlay(key, req.Value); err != nil {
		writeSimulationError(w, err)
		return
	}

	score, err := s.engine.SimulationScore()
	if err != nil {
		writeSimulationError(w, err)
		return
	}
	s.cache.Delete(dashboardCacheKey)
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": req.Value, "previewScore": score})
}

func (s *Server) handleSimulationScore(w http.ResponseWriter, _ *http.Request) {
	score, err := s.engine.SimulationScore()
	if err != nil {
		writeSimulationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"previewScore": score})
}

func (s *Server) handleCommitSimulation(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.CommitSimulation(); err != nil {
		writeSimulationError(w, err)
		return
	}
	s.cache.Delete(dashboardCacheKey)
	writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

func (s *Server) handleDiscardSimulation(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.DiscardSimulation(); err != nil {
		writeSimulationError(w, err)
		return
	}
	s.cache.Delete(dashboardCacheKey)
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func writeSimulationError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, controller.ErrSimulationActive) || errors.Is(err, controller.ErrSimulationNotActive) {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort JSON response
}
