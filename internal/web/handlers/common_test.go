package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/facegate/internal/backend"
	"github.com/kozaktomas/facegate/internal/constants"
)

func TestRespondJSON_SetsStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Created", http.StatusCreated},
		{"BadRequest", http.StatusBadRequest},
		{"Unauthorized", http.StatusUnauthorized},
		{"BadGateway", http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, nil)

			if recorder.Code != tc.statusCode {
				t.Errorf("expected status %d, got %d", tc.statusCode, recorder.Code)
			}
			assertContentType(t, recorder, "application/json")
		})
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	// Body should be empty for nil data
	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondJSON_EncodesData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, map[string]any{"status": "ok", "identities": 3})

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%v'", result["status"])
	}
	if result["identities"] != float64(3) { // JSON numbers are float64
		t.Errorf("expected 3 identities, got %v", result["identities"])
	}
}

func TestRespondError_ContainsErrorKey(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusBadRequest, "something went wrong")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "something went wrong")
}

func TestDecodeJSON_RejectsOversizedBody(t *testing.T) {
	body := `{"password":"` + strings.Repeat("a", constants.MaxRequestBodySize) + `"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	recorder := httptest.NewRecorder()

	var v map[string]string
	if err := decodeJSON(recorder, req, &v); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestBackendStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "client error passes through",
			err:        fmt.Errorf("create user: %w", &backend.APIError{Status: 400, Message: "Email already registered"}),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Email already registered",
		},
		{
			name:       "not found passes through",
			err:        &backend.APIError{Status: 404, Message: "User not found"},
			wantStatus: http.StatusNotFound,
			wantMsg:    "User not found",
		},
		{
			name:       "server error becomes bad gateway",
			err:        &backend.APIError{Status: 500, Message: "boom"},
			wantStatus: http.StatusBadGateway,
			wantMsg:    "backend unavailable",
		},
		{
			name:       "transport error becomes bad gateway",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusBadGateway,
			wantMsg:    "backend unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := backendStatus(tt.err)
			if status != tt.wantStatus || msg != tt.wantMsg {
				t.Errorf("backendStatus() = %d %q, want %d %q", status, msg, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("evil\r\nINFO forged"); got != "evilINFO forged" {
		t.Errorf("sanitizeForLog() = %q", got)
	}
}

func TestDistancePtr(t *testing.T) {
	if distancePtr(posInf()) != nil {
		t.Error("expected nil for +Inf")
	}
	if d := distancePtr(0.25); d == nil || *d != 0.25 {
		t.Errorf("expected 0.25, got %v", d)
	}
}
