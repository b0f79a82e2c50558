package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

const (
	sessionCookieName = "facegate_session"
	sessionDuration   = 12 * time.Hour
	repoTimeout       = 5 * time.Second
)

// Session is a signed-in user, created after a successful face identification.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StoredSession is the persisted form of a session.
type StoredSession struct {
	ID        string
	UserID    int64
	Name      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionRepository persists sessions across gateway restarts.
type SessionRepository interface {
	Save(ctx context.Context, s StoredSession) error
	// Get returns nil, nil for unknown or expired sessions
	Get(ctx context.Context, id string) (*StoredSession, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager handles session creation and validation
type SessionManager struct {
	secret   []byte
	repo     SessionRepository
	logger   *slog.Logger
	sessions map[string]*Session
	mu       sync.RWMutex
	now      func() time.Time
}

// NewSessionManager creates a new session manager. repo may be nil for
// memory-only sessions. An empty secret generates a random one, so cookies
// and persisted sessions do not survive a restart.
func NewSessionManager(secret string, repo SessionRepository) *SessionManager {
	if secret == "" {
		secret = rand.Text()
	}
	return &SessionManager{
		secret:   []byte(secret),
		repo:     repo,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// SetLogger replaces the logger used for repository errors.
func (sm *SessionManager) SetLogger(l *slog.Logger) {
	if l != nil {
		sm.logger = l
	}
}

// CreateSession creates a new session for an identified user
func (sm *SessionManager) CreateSession(userID int64, name string) (*Session, error) {
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, err
	}
	now := sm.now()
	session := &Session{
		ID:        base64.URLEncoding.EncodeToString(idBytes),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionDuration),
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	if sm.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
		defer cancel()
		if err := sm.repo.Save(ctx, StoredSession(*session)); err != nil {
			sm.logger.Warn("failed to persist session", "error", err)
		}
	}

	return session, nil
}

// GetSession retrieves a session by ID, falling back to the repository
func (sm *SessionManager) GetSession(sessionID string) *Session {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if ok {
		if sm.now().After(session.ExpiresAt) {
			sm.DeleteSession(sessionID)
			return nil
		}
		return session
	}

	if sm.repo == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	stored, err := sm.repo.Get(ctx, sessionID)
	if err != nil {
		sm.logger.Warn("failed to load session", "error", err)
		return nil
	}
	if stored == nil || sm.now().After(stored.ExpiresAt) {
		return nil
	}

	session = &Session{
		ID:        stored.ID,
		UserID:    stored.UserID,
		Name:      stored.Name,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}
	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()
	return session
}

// DeleteSession removes a session
func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if sm.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
		defer cancel()
		if err := sm.repo.Delete(ctx, sessionID); err != nil {
			sm.logger.Warn("failed to delete session", "error", err)
		}
	}
}

// PurgeExpired drops expired sessions from memory and the repository.
// It returns the number of sessions removed.
func (sm *SessionManager) PurgeExpired(ctx context.Context) int64 {
	now := sm.now()

	var removed int64
	sm.mu.Lock()
	for id, s := range sm.sessions {
		if now.After(s.ExpiresAt) {
			delete(sm.sessions, id)
			removed++
		}
	}
	sm.mu.Unlock()

	if sm.repo != nil {
		n, err := sm.repo.DeleteExpired(ctx)
		if err != nil {
			sm.logger.Warn("failed to purge expired sessions", "error", err)
		} else if n > removed {
			removed = n
		}
	}
	return removed
}

// StartCleanup schedules PurgeExpired every interval. Stop the returned
// scheduler on shutdown.
func (sm *SessionManager) StartCleanup(interval time.Duration) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(interval).WaitForSchedule().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
		defer cancel()
		if n := sm.PurgeExpired(ctx); n > 0 {
			sm.logger.Info("purged expired sessions", "count", n)
		}
	})
	if err != nil {
		return nil, err
	}
	s.StartAsync()
	return s, nil
}

// SetSessionCookie sets the session cookie on the response
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, r *http.Request, session *Session) {
	cookieValue := session.ID + "." + sm.signData(session.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionDuration.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from a cookie or a bearer token
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if sessionID, signature, ok := strings.Cut(cookie.Value, "."); ok {
			if sm.verifySignature(sessionID, signature) {
				if session := sm.GetSession(sessionID); session != nil {
					return session
				}
			}
		}
	}

	if sessionID, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if session := sm.GetSession(sessionID); session != nil {
			return session
		}
	}

	return nil
}

func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// SessionData is the public view of a session
type SessionData struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	ExpiresAt string `json:"expires_at"`
}

// ToJSON returns the session data for JSON response
func (s *Session) ToJSON() SessionData {
	return SessionData{
		SessionID: s.ID,
		UserID:    s.UserID,
		Name:      s.Name,
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
	}
}

// MarshalJSON implements json.Marshaler
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}
