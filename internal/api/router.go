package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds the database ping made by /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/topics", func(r chi.Router) {
			r.Get("/", s.handleListTopics)
			r.Get("/lookup", s.handleLookupTopic)
			r.Get("/{id}", s.handleGetTopic)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", s.handleLatestStats)
			r.Get("/history", s.handleStatsHistory)
		})
	})

	return r
}

// healthResponse is the body of GET /api/v1/health.
type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Topics   int    `json:"topics"`
	Database string `json:"database"`
	MQTT     string `json:"mqtt"`
}

// handleHealth reports the node's health. A failing database makes the
// node degraded and the response 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Version:  s.version,
		Topics:   s.registry.Len(),
		Database: "disabled",
		MQTT:     "disabled",
	}
	status := http.StatusOK

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.db.HealthCheck(ctx); err != nil {
			s.logger.Warn("database health check failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	if s.mqtt != nil {
		resp.MQTT = "disconnected"
		if s.mqtt.IsConnected() {
			resp.MQTT = "connected"
		}
	}

	writeJSON(w, status, resp)
}
