package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facegate/internal/auth"
	"github.com/kozaktomas/facegate/internal/backend"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/database/mock"
	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/web/middleware"
)

const testDim = 4

// testConfig creates a config with a small embedding dimension for testing
func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Capture.EmbeddingDim = testDim
	cfg.Capture.MatchThreshold = 0.55
	return cfg
}

func posInf() float64 {
	return math.Inf(1)
}

// encodeFace returns the wire form of a test descriptor
func encodeFace(t *testing.T, v ...float64) string {
	t.Helper()
	s, err := embedding.Encode(embedding.Vector(v))
	if err != nil {
		t.Fatalf("failed to encode embedding: %v", err)
	}
	return s
}

// seededStore returns a store with two enrolled users far apart from each other
func seededStore() *mock.MockIdentityStore {
	store := mock.NewMockIdentityStore()
	store.AddIdentity(database.Identity{
		UserID: 1, Name: "Ayu Lestari", Email: "ayu@example.com",
		Embedding: embedding.Vector{0, 0, 0, 0}, Source: database.SourceSync,
	})
	store.AddIdentity(database.Identity{
		UserID: 2, Name: "Budi Santoso", Email: "budi@example.com",
		Embedding: embedding.Vector{1, 1, 1, 1}, Source: database.SourceSync,
	})
	return store
}

func loadTestData(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to load test data %s: %v", filename, err)
	}
	return data
}

// setupMockBackendServer creates a mock backend with custom handlers
func setupMockBackendServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// createBackendClient creates a backend client connected to a mock server
func createBackendClient(t *testing.T, server *httptest.Server) *backend.Client {
	t.Helper()
	bc, err := backend.NewClient(server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create backend client: %v", err)
	}
	return bc
}

func testSigner(t *testing.T) *auth.Signer {
	t.Helper()
	signer, err := auth.NewSigner("test-jwt-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	return signer
}

// newTestFacesHandler wires a faces handler to a mock backend and store
func newTestFacesHandler(t *testing.T, server *httptest.Server, store database.IdentityWriter) (*FacesHandler, *middleware.SessionManager) {
	t.Helper()
	sm := middleware.NewSessionManager("test-secret", nil)
	handler := NewFacesHandler(testConfig(), sm, store, createBackendClient(t, server), testSigner(t), nil)
	return handler, sm
}

// requestWithSession creates a request carrying a signed-in session in context
func requestWithSession(r *http.Request, session *middleware.Session) *http.Request {
	return r.WithContext(middleware.SetSessionInContext(r.Context(), session))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
