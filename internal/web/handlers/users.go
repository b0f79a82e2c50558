package handlers

import (
	"net/http"

	"github.com/kozaktomas/facegate/internal/backend"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/gateway"
	"github.com/kozaktomas/facegate/internal/logging"
)

// UsersHandler lists backend users without their faces
type UsersHandler struct {
	backend *backend.Client
	store   database.IdentityReader
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(bc *backend.Client, store database.IdentityReader) *UsersHandler {
	return &UsersHandler{backend: bc, store: store}
}

// List returns every backend user with has_face instead of the embedding.
// A face counts when it is enrolled here or decodable in the backend.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.backend.ListUsers(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to list backend users", "error", err)
		status, msg := backendStatus(err)
		respondError(w, status, msg)
		return
	}

	identities, err := h.store.List(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load faces")
		return
	}
	enrolled := make(map[int64]bool, len(identities))
	for _, id := range identities {
		enrolled[id.UserID] = true
	}

	views := make([]gateway.UserView, 0, len(users))
	for _, u := range users {
		hasFace := enrolled[u.ID]
		if !hasFace {
			_, err := embedding.Decode(u.FaceEmbedding)
			hasFace = err == nil
		}
		views = append(views, gateway.NewUserView(u, hasFace))
	}
	respondJSON(w, http.StatusOK, views)
}
