package handlers

import (
	"net/http"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/gateway"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// Get returns the capture tunables so clients gate faces the same way the gateway matches them
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	c := h.config.Capture
	respondJSON(w, http.StatusOK, gateway.ConfigResponse{
		EmbeddingDim:        c.EmbeddingDim,
		MatchThreshold:      c.MatchThreshold,
		MinConfidence:       c.MinConfidence,
		MinQuality:          c.MinQuality,
		DetectionIntervalMS: c.DetectionIntervalMS,
		CountdownTicks:      c.CountdownTicks,
		CountdownTickMS:     c.CountdownTickMS,
		GuideRadiusPercent:  c.GuideRadiusPercent,
		GuideTolerance:      c.GuideTolerance,
	})
}
