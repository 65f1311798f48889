// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// healthResponse mirrors the GET /health body.
type healthResponse struct {
	OK bool `json:"ok"`
}

// HealthHandler handles health check requests.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HandleHealth handles GET /health requests. It reports ok whenever the
// process is serving; deeper checks belong to /stats and /metrics.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{OK: true})
}
