package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/facegate/internal/auth"
	"github.com/kozaktomas/facegate/internal/backend"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/gateway"
	"github.com/kozaktomas/facegate/internal/logging"
	"github.com/kozaktomas/facegate/internal/password"
	"github.com/kozaktomas/facegate/internal/web/middleware"
	"github.com/kozaktomas/facegate/internal/workflow"
)

const errInvalidEmbedding = "invalid face embedding"

// FacesHandler handles registration, identification, enrollment and attendance
type FacesHandler struct {
	config         *config.Config
	sessionManager *middleware.SessionManager
	store          database.IdentityWriter
	backend        *backend.Client
	signer         *auth.Signer
	syncSource     workflow.Source
	rules          password.Rules
}

// NewFacesHandler creates a new faces handler. syncSource defaults to the backend client.
func NewFacesHandler(
	cfg *config.Config, sm *middleware.SessionManager, store database.IdentityWriter,
	bc *backend.Client, signer *auth.Signer, syncSource workflow.Source,
) *FacesHandler {
	if syncSource == nil {
		syncSource = bc
	}
	return &FacesHandler{
		config:         cfg,
		sessionManager: sm,
		store:          store,
		backend:        bc,
		signer:         signer,
		syncSource:     syncSource,
		rules:          password.RulesFromConfig(cfg.Password),
	}
}

// match is a successful server-side identification
type match struct {
	identity  *database.Identity
	distance  float64
	assertion string
	expiresAt time.Time
}

func distancePtr(d float64) *float64 {
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return nil
	}
	return &d
}

func identityView(id *database.Identity) *gateway.UserView {
	return &gateway.UserView{ID: id.UserID, Name: id.Name, Email: id.Email, HasFace: true}
}

// decodeProbe parses an encoded embedding with the configured dimension.
func (h *FacesHandler) decodeProbe(encoded string) (embedding.Vector, error) {
	return embedding.DecodeDim(encoded, h.config.Capture.EmbeddingDim)
}

// identify matches encoded against every enrolled face and issues an assertion.
// It writes the error response itself and returns false when there is no match.
func (h *FacesHandler) identify(w http.ResponseWriter, r *http.Request, encoded string) (*match, bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	probe, err := h.decodeProbe(encoded)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidEmbedding)
		return nil, false
	}

	identities, err := h.store.List(ctx)
	if err != nil {
		logger.Error("failed to list identities", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load faces")
		return nil, false
	}

	identity, res := facematch.MatchIdentities(probe, identities, h.config.Capture.MatchThreshold)
	if identity == nil {
		logger.Info("face not recognized", "compared", res.Compared, "best_distance", res.Distance)
		respondJSON(w, http.StatusUnauthorized, gateway.IdentifyResponse{
			Matched:  false,
			Distance: distancePtr(res.Distance),
			Error:    facematch.ErrNoMatch.Error(),
		})
		return nil, false
	}

	assertion, expiresAt, err := h.signer.Issue(identity.UserID, identity.Name, res.Distance)
	if err != nil {
		logger.Error("failed to sign assertion", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to issue assertion")
		return nil, false
	}

	logger.Info("face identified", "user_id", identity.UserID, "distance", res.Distance)
	return &match{identity: identity, distance: res.Distance, assertion: assertion, expiresAt: expiresAt}, true
}

// Identify matches a face and starts a session for the recognized user
func (h *FacesHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req gateway.FaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	m, ok := h.identify(w, r, req.FaceEmbedding)
	if !ok {
		return
	}

	session, err := h.sessionManager.CreateSession(m.identity.UserID, m.identity.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessionManager.SetSessionCookie(w, r, session)

	respondJSON(w, http.StatusOK, gateway.IdentifyResponse{
		Matched:   true,
		User:      identityView(m.identity),
		Distance:  distancePtr(m.distance),
		Assertion: m.assertion,
		ExpiresAt: m.expiresAt,
		SessionID: session.ID,
	})
}

// CheckIn identifies the face and records an arrival in the backend
func (h *FacesHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.attendance(w, r, (*backend.Client).CheckIn)
}

// CheckOut identifies the face and records a departure in the backend
func (h *FacesHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.attendance(w, r, (*backend.Client).CheckOut)
}

type attendanceCall func(*backend.Client, context.Context, backend.CheckInRequest) (*backend.AttendanceResponse, error)

func (h *FacesHandler) attendance(w http.ResponseWriter, r *http.Request, call attendanceCall) {
	var req gateway.AttendanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	location := password.Sanitize(req.Location)
	if location == "" {
		location = workflow.DefaultLocation
	}

	m, ok := h.identify(w, r, req.FaceEmbedding)
	if !ok {
		return
	}

	// The backend gets both the signed assertion and the face so it can re-verify.
	resp, err := call(h.backend.WithToken(m.assertion), r.Context(), backend.CheckInRequest{
		UserID:        m.identity.UserID,
		FaceEmbedding: req.FaceEmbedding,
		Location:      location,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("attendance call failed", "user_id", m.identity.UserID, "error", err)
		status, msg := backendStatus(err)
		respondJSON(w, status, gateway.AttendanceResponse{
			Matched:  true,
			User:     identityView(m.identity),
			Distance: distancePtr(m.distance),
			Error:    msg,
		})
		return
	}

	respondJSON(w, http.StatusOK, gateway.AttendanceResponse{
		Matched:    true,
		User:       identityView(m.identity),
		Distance:   distancePtr(m.distance),
		Attendance: resp,
	})
}

// Register creates the backend user and enrolls the face
func (h *FacesHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req gateway.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	details := workflow.Details{Name: req.Name, Email: req.Email, Password: req.Password, Gender: req.Gender}
	details.Normalize()
	if err := details.Validate(&h.rules); err != nil {
		respondError(w, http.StatusBadRequest, strings.ReplaceAll(err.Error(), "\n", "; "))
		return
	}

	probe, err := h.decodeProbe(req.FaceEmbedding)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidEmbedding)
		return
	}

	switch existing, err := h.store.FindByEmail(ctx, details.Email); {
	case err == nil:
		logger.Info("registration refused, email already enrolled", "user_id", existing.UserID)
		respondError(w, http.StatusConflict, "email is already registered")
		return
	case !errors.Is(err, database.ErrNotFound):
		logger.Error("failed to look up email", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load faces")
		return
	}

	identities, err := h.store.List(ctx)
	if err != nil {
		logger.Error("failed to list identities", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load faces")
		return
	}
	if existing, _ := facematch.MatchIdentities(probe, identities, h.config.Capture.MatchThreshold); existing != nil {
		logger.Info("registration refused, face already enrolled", "user_id", existing.UserID)
		respondError(w, http.StatusConflict, "face is already registered")
		return
	}

	user, err := h.backend.CreateUser(ctx, backend.CreateUserRequest{
		Name:          details.Name,
		Email:         details.Email,
		Password:      details.Password,
		Gender:        details.Gender,
		FaceEmbedding: req.FaceEmbedding,
	})
	if err != nil {
		logger.Warn("backend rejected registration", "email", sanitizeForLog(details.Email), "error", err)
		status, msg := backendStatus(err)
		respondError(w, status, msg)
		return
	}

	identity := database.Identity{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Embedding: probe,
		Source:    database.SourceRegistration,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.store.Save(ctx, identity); err != nil {
		// The backend already holds the embedding, so PUT /me/face or a face sync repairs this.
		logger.Error("user created but face not enrolled", "user_id", user.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, gateway.RegisterResponse{
			User:     gateway.NewUserView(*user, false),
			Enrolled: false,
			Error:    "user created but face enrollment failed",
		})
		return
	}

	logger.Info("user registered", "user_id", user.ID)
	respondJSON(w, http.StatusCreated, gateway.RegisterResponse{
		User:     gateway.NewUserView(*user, true),
		Enrolled: true,
	})
}

// Enroll overwrites the face of the signed-in user
func (h *FacesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := middleware.GetSessionFromContext(ctx)
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req gateway.FaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	probe, err := h.decodeProbe(req.FaceEmbedding)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidEmbedding)
		return
	}

	user, err := h.backend.UpdateUser(ctx, session.UserID, backend.UpdateUserRequest{FaceEmbedding: req.FaceEmbedding})
	if err != nil {
		status, msg := backendStatus(err)
		respondError(w, status, msg)
		return
	}

	name := user.Name
	if name == "" {
		name = session.Name
	}
	identity := database.Identity{
		UserID:    session.UserID,
		Name:      name,
		Email:     user.Email,
		Embedding: probe,
		Source:    database.SourceEnroll,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.store.Save(ctx, identity); err != nil {
		logging.FromContext(ctx).Error("failed to save identity", "user_id", session.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save face")
		return
	}

	respondJSON(w, http.StatusOK, gateway.EnrollResponse{Enrolled: true, UserID: session.UserID})
}

// Unenroll removes the face of the signed-in user
func (h *FacesHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.store.Delete(r.Context(), session.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no face enrolled")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete face")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync imports faces from the backend users
func (h *FacesHandler) Sync(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	importer := workflow.NewImporter(h.syncSource, h.store, h.config.Capture.EmbeddingDim, logger)

	res, err := importer.Sync(r.Context())
	if err != nil {
		logger.Error("face sync failed", "error", err)
		respondError(w, http.StatusBadGateway, "face sync failed")
		return
	}
	respondJSON(w, http.StatusOK, gateway.SyncResponse{Imported: res.Imported, Skipped: res.Skipped, Total: res.Total})
}

// List returns the enrolled faces without their embeddings. With ?name= only
// faces whose normalized name equals the query are returned.
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		identities []database.Identity
		err        error
	)
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		identities, err = h.store.FindByName(ctx, name)
	} else {
		identities, err = h.store.List(ctx)
	}
	if err != nil {
		logging.FromContext(ctx).Error("failed to list identities", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load faces")
		return
	}

	faces := make([]gateway.FaceView, len(identities))
	for i, identity := range identities {
		faces[i] = gateway.FaceView{
			UserID:    identity.UserID,
			Name:      identity.Name,
			Email:     identity.Email,
			Source:    identity.Source,
			UpdatedAt: identity.UpdatedAt,
		}
	}
	respondJSON(w, http.StatusOK, faces)
}
