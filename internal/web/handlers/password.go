package handlers

import (
	"net/http"

	"github.com/kozaktomas/facegate/internal/gateway"
	"github.com/kozaktomas/facegate/internal/password"
)

// PasswordHandler scores passwords
type PasswordHandler struct {
	rules password.Rules
}

// NewPasswordHandler creates a new password handler
func NewPasswordHandler(rules password.Rules) *PasswordHandler {
	return &PasswordHandler{rules: rules}
}

// Strength returns the strength of the posted password. The password is never logged.
func (h *PasswordHandler) Strength(w http.ResponseWriter, r *http.Request) {
	var req gateway.PasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	respondJSON(w, http.StatusOK, h.rules.Strength(req.Password))
}
