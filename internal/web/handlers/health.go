package handlers

import (
	"net/http"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/gateway"
	"github.com/kozaktomas/facegate/internal/logging"
)

// HealthHandler reports gateway health
type HealthHandler struct {
	store database.IdentityReader
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store database.IdentityReader) *HealthHandler {
	return &HealthHandler{store: store}
}

// Get returns ok with the number of enrolled faces, or 503 when the store is unreachable.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.Count(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, gateway.HealthResponse{Status: "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, gateway.HealthResponse{Status: "ok", Identities: count})
}
