package handlers

import (
	"net/http"
	"strings"

	"github.com/kozaktomas/facegate/internal/auth"
	"github.com/kozaktomas/facegate/internal/gateway"
	"github.com/kozaktomas/facegate/internal/web/middleware"
)

// AuthHandler handles session endpoints. Sessions are created by FacesHandler.Identify.
type AuthHandler struct {
	sessionManager *middleware.SessionManager
	signer         *auth.Signer
}

// NewAuthHandler creates a new auth handler. signer may be nil, in which
// case identity assertions are not accepted by Status.
func NewAuthHandler(sm *middleware.SessionManager, signer *auth.Signer) *AuthHandler {
	return &AuthHandler{
		sessionManager: sm,
		signer:         signer,
	}
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Status checks if the user is authenticated. A session cookie or session
// bearer wins; otherwise a bearer identity assertion issued by identify is
// verified, so backend services can check an assertion they were handed.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		respondJSON(w, http.StatusOK, gateway.StatusResponse{
			Authenticated: true,
			Via:           gateway.AuthViaSession,
			UserID:        session.UserID,
			Name:          session.Name,
			ExpiresAt:     session.ExpiresAt,
		})
		return
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if ok && h.signer != nil {
		if claims, err := h.signer.Verify(token); err == nil {
			resp := gateway.StatusResponse{
				Authenticated: true,
				Via:           gateway.AuthViaAssertion,
				UserID:        claims.UserID,
				Name:          claims.Name,
			}
			if claims.ExpiresAt != nil {
				resp.ExpiresAt = claims.ExpiresAt.Time
			}
			respondJSON(w, http.StatusOK, resp)
			return
		}
	}

	respondJSON(w, http.StatusOK, gateway.StatusResponse{Authenticated: false})
}
