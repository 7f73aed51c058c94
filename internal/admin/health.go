package admin

import (
	"context"
	"net/http"
	"time"
)

// HandleHealth returns basic health status
// GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// HandleReady checks database connectivity and that a rule set is installed
// GET /ready
// Returns 200 if both hold, 503 otherwise
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":   "ok",
		"database": "connected",
		"rules":    "loaded",
	}
	status := http.StatusOK

	if h.storage == nil {
		resp["database"] = "not configured"
		status = http.StatusServiceUnavailable
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := h.storage.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			resp["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	if h.rules == nil || h.rules.Snapshot() == nil {
		resp["rules"] = "not loaded"
		status = http.StatusServiceUnavailable
	}

	if status != http.StatusOK {
		resp["status"] = "error"
	}
	writeJSON(w, status, resp)
}
