package web

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/facegate/internal/auth"
	"github.com/kozaktomas/facegate/internal/backend"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/database/mock"
	"github.com/kozaktomas/facegate/internal/embedding"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": 1, "name": "Ayu Lestari", "email": "ayu@example.com", "face_embedding": "[0,0,0,0]"}]`))
	})
	backendServer := httptest.NewServer(mux)
	t.Cleanup(backendServer.Close)

	bc, err := backend.NewClient(backendServer.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create backend client: %v", err)
	}
	signer, err := auth.NewSigner("test-jwt-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}

	store := mock.NewMockIdentityStore()
	store.AddIdentity(database.Identity{
		UserID: 1, Name: "Ayu Lestari", Email: "ayu@example.com", Embedding: embedding.Vector{0, 0, 0, 0},
	})

	cfg := config.Load()
	cfg.Capture.EmbeddingDim = 4

	s, err := NewServer(cfg, Deps{Store: store, Backend: bc, Signer: signer}, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestNewServer_RequiresDeps(t *testing.T) {
	if _, err := NewServer(config.Load(), Deps{}, nil); err == nil {
		t.Error("expected error without identity store")
	}
}

func TestServer_PublicRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{"GET", "/api/v1/health", "", http.StatusOK},
		{"GET", "/api/v1/config", "", http.StatusOK},
		{"POST", "/api/v1/password/strength", `{"password":"abc"}`, http.StatusOK},
		{"GET", "/api/v1/auth/status", "", http.StatusOK},
		{"POST", "/api/v1/auth/logout", "", http.StatusOK},
		{"GET", "/api/v1/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			recorder := serve(s, req)
			if recorder.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestServer_ProtectedRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{"GET", "/api/v1/users"},
		{"GET", "/api/v1/faces"},
		{"PUT", "/api/v1/me/face"},
		{"DELETE", "/api/v1/me/face"},
		{"POST", "/api/v1/faces/sync"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			recorder := serve(s, httptest.NewRequest(route.method, route.path, nil))
			if recorder.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", recorder.Code)
			}
		})
	}
}

func TestServer_IdentifyThenListUsers(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/v1/faces/identify", strings.NewReader(`{"face_embedding":"[0.1,0,0,0]"}`))
	recorder := serve(s, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("identify failed: %d %s", recorder.Code, recorder.Body.String())
	}
	cookies := recorder.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}

	req = httptest.NewRequest("GET", "/api/v1/users", nil)
	req.AddCookie(cookies[0])
	recorder = serve(s, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 with session, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if strings.Contains(recorder.Body.String(), "face_embedding") {
		t.Error("user list must not expose embeddings")
	}
	if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestServer_IdentifyLockout(t *testing.T) {
	s := newTestServer(t)

	identify := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/v1/faces/identify", strings.NewReader(`{"face_embedding":"[9,9,9,9]"}`))
		req.RemoteAddr = "203.0.113.7:5555"
		return serve(s, req)
	}

	for i := range 5 {
		if recorder := identify(); recorder.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, recorder.Code)
		}
	}

	recorder := identify()
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after repeated failures, got %d", recorder.Code)
	}
	if recorder.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// Other clients are not affected
	req := httptest.NewRequest("POST", "/api/v1/faces/identify", strings.NewReader(`{"face_embedding":"[0,0,0,0]"}`))
	req.RemoteAddr = "198.51.100.2:5555"
	if recorder := serve(s, req); recorder.Code != http.StatusOK {
		t.Errorf("expected other client to be served, got %d", recorder.Code)
	}
}

func TestServer_IdentifyLockoutIgnoresSpoofedForwardedFor(t *testing.T) {
	s := newTestServer(t)

	identify := func(i int) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/v1/faces/identify", strings.NewReader(`{"face_embedding":"[9,9,9,9]"}`))
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set("X-Forwarded-For", "198.51.100."+strconv.Itoa(i))
		return serve(s, req)
	}

	for i := range 5 {
		if recorder := identify(i); recorder.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, recorder.Code)
		}
	}
	if recorder := identify(42); recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 despite a new X-Forwarded-For, got %d", recorder.Code)
	}
}

func TestNewServer_RejectsInvalidTrustedProxies(t *testing.T) {
	cfg := config.Load()
	cfg.Web.TrustedProxies = "proxy.local"
	s := newTestServer(t)

	if _, err := NewServer(cfg, s.deps, nil); err == nil {
		t.Error("expected error for an invalid trusted proxy")
	}
}

func TestServer_HousekeepingStopsOnShutdown(t *testing.T) {
	s := newTestServer(t)

	if err := s.startHousekeeping(); err != nil {
		t.Fatalf("startHousekeeping() error: %v", err)
	}
	if !s.scheduler.IsRunning() {
		t.Error("expected scheduler to run")
	}
	if err := s.Shutdown(t.Context()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if s.scheduler.IsRunning() {
		t.Error("expected scheduler to stop")
	}
}
