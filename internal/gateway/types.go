package gateway

import (
	"time"

	"github.com/kozaktomas/facegate/internal/backend"
)

// UserView is a backend user as exposed by the gateway. Embeddings never leave the gateway.
type UserView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Gender     string `json:"gender,omitempty"`
	Position   string `json:"position,omitempty"`
	Department string `json:"department,omitempty"`
	HasFace    bool   `json:"has_face"`
}

// NewUserView strips the embedding from a backend user.
func NewUserView(u backend.User, hasFace bool) UserView {
	return UserView{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Gender:     u.Gender,
		Position:   u.Position,
		Department: u.Department,
		HasFace:    hasFace,
	}
}

// RegisterRequest is the body of POST /api/v1/register.
type RegisterRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Gender        string `json:"gender,omitempty"`
	FaceEmbedding string `json:"face_embedding"`
}

// RegisterResponse is returned after a registration. Error is set when the
// backend user was created but the face could not be stored locally.
type RegisterResponse struct {
	User     UserView `json:"user"`
	Enrolled bool     `json:"enrolled"`
	Error    string   `json:"error,omitempty"`
}

// FaceRequest carries an encoded embedding.
type FaceRequest struct {
	FaceEmbedding string `json:"face_embedding"`
}

// IdentifyResponse is the result of POST /api/v1/faces/identify. Distance is
// the best distance seen, also reported when nothing matched.
type IdentifyResponse struct {
	Matched   bool      `json:"matched"`
	User      *UserView `json:"user,omitempty"`
	Distance  *float64  `json:"distance,omitempty"`
	Assertion string    `json:"assertion,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	SessionID string    `json:"session_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// AttendanceRequest is the body of the gateway check-in and check-out calls.
type AttendanceRequest struct {
	FaceEmbedding string `json:"face_embedding"`
	Location      string `json:"location"`
}

// AttendanceResponse is the gateway answer to check-in and check-out.
type AttendanceResponse struct {
	Matched    bool                        `json:"matched"`
	User       *UserView                   `json:"user,omitempty"`
	Distance   *float64                    `json:"distance,omitempty"`
	Attendance *backend.AttendanceResponse `json:"attendance,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

// PasswordRequest is the body of POST /api/v1/password/strength.
type PasswordRequest struct {
	Password string `json:"password"`
}

// ConfigResponse publishes the capture tunables to clients.
type ConfigResponse struct {
	EmbeddingDim        int     `json:"embedding_dim"`
	MatchThreshold      float64 `json:"match_threshold"`
	MinConfidence       float64 `json:"min_confidence"`
	MinQuality          float64 `json:"min_quality"`
	DetectionIntervalMS int     `json:"detection_interval_ms"`
	CountdownTicks      int     `json:"countdown_ticks"`
	CountdownTickMS     int     `json:"countdown_tick_ms"`
	GuideRadiusPercent  float64 `json:"guide_radius_percent"`
	GuideTolerance      float64 `json:"guide_tolerance"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status     string `json:"status"`
	Identities int    `json:"identities"`
}

// How an authenticated status was established.
const (
	AuthViaSession   = "session"
	AuthViaAssertion = "assertion"
)

// StatusResponse is returned by GET /api/v1/auth/status.
type StatusResponse struct {
	Authenticated bool      `json:"authenticated"`
	Via           string    `json:"via,omitempty"`
	UserID        int64     `json:"user_id,omitempty"`
	Name          string    `json:"name,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
}

// SyncResponse reports an embedding import.
type SyncResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// FaceView is an enrolled face as listed by GET /api/v1/faces.
type FaceView struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// EnrollResponse is returned by PUT /api/v1/me/face.
type EnrollResponse struct {
	Enrolled bool  `json:"enrolled"`
	UserID   int64 `json:"user_id"`
}
