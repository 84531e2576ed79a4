package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Prometheus scrape endpoint
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)
			r.Get("/stats", s.handleDeviceStats)
			r.Post("/probe", s.handleProbeAll)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Post("/probe", s.handleProbeDevice)
				r.Get("/probes", s.handleListProbes)
				r.Post("/user-nodes", s.handleAddUserNode)
				r.Delete("/user-nodes", s.handleRemoveUserNode)
			})
		})

		// Ad-hoc probe of an unregistered device
		r.Post("/probe", s.handleProbe)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleListSettings)
			r.Get("/{key}", s.handleGetSetting)
			r.Put("/{key}", s.handlePutSetting)
			r.Delete("/{key}", s.handleDeleteSetting)
		})

		r.Get("/audit", s.handleListAudit)
		r.Get("/interfaces", s.handleListInterfaces)
		r.Get("/relay", s.handleRelayStats)

		r.Route("/server", func(r chi.Router) {
			r.Get("/", s.handleServerStatus)
			r.Post("/restart", s.handleServerRestart)
		})

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

// wsPath is the WebSocket endpoint below /api/v1.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			resp["status"] = "degraded"
			resp["database"] = err.Error()
		}
	}
	if s.mqtt != nil {
		resp["mqtt_connected"] = s.mqtt.IsConnected()
	}
	writeJSON(w, http.StatusOK, resp)
}
