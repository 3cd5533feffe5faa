package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/aq-logger/internal/forwarder"
)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	forwarder.Status
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	MQTTConnected *bool  `json:"mqtt_connected,omitempty"`
}

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
	})

	return r
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Buffer string `json:"buffer,omitempty"`
}

// handleHealth reports that the process is alive and, when a buffer is
// configured, that it is usable. An unusable buffer answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.buffer == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := s.buffer.Health(ctx); err != nil {
		s.logger.Warn("buffer health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Buffer: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Buffer: "ok"})
}

// handleStatus returns the forwarder snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:        s.status.Status(),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if s.mqtt != nil {
		connected := s.mqtt.IsConnected()
		resp.MQTTConnected = &connected
	}
	writeJSON(w, http.StatusOK, resp)
}
