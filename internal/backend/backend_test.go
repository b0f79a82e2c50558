package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func loadTestData(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to load test data %s: %v", filename, err)
	}
	return data
}

func setupMockServer(t *testing.T) *httptest.Server {
	t.Helper()

	usersData := loadTestData(t, "users.json")
	historyData := loadTestData(t, "history.json")

	mux := http.NewServeMux()

	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(usersData)
	})

	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"User not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"name":"Ayu Lestari","email":"ayu@example.com"}`))
	})

	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Email == "ayu@example.com" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":"Email already registered"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(User{ID: 4, Name: req.Name, Email: req.Email, FaceEmbedding: req.FaceEmbedding})
	})

	mux.HandleFunc("PUT /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req UpdateUserRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(User{ID: 1, Name: "Ayu Lestari", FaceEmbedding: req.FaceEmbedding})
	})

	mux.HandleFunc("POST /attendance/check-in", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer assertion" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"missing assertion"}`))
			return
		}
		var req CheckInRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AttendanceResponse{
			Message:    "Check-in successful",
			Status:     "on_time",
			Attendance: &AttendanceRecord{ID: 11, UserID: req.UserID, Location: req.Location},
		})
	})

	mux.HandleFunc("POST /attendance/check-out", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"No check-in found for today"}`))
	})

	mux.HandleFunc("GET /attendance/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "2" {
			http.Error(w, "missing limit", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(historyData)
	})

	mux.HandleFunc("GET /attendance/today", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})

	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(url, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestListUsers(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	users, err := newTestClient(t, server.URL).ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	if users[0].FaceEmbedding != "[0.1, 0.2, 0.3]" {
		t.Errorf("embedding should be passed through untouched, got %q", users[0].FaceEmbedding)
	}
	if users[2].FaceEmbedding != "not-json" {
		t.Errorf("undecodable embedding should still be returned, got %q", users[2].FaceEmbedding)
	}
}

func TestGetUser(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	c := newTestClient(t, server.URL)

	user, err := c.GetUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Name != "Ayu Lestari" {
		t.Errorf("unexpected name %q", user.Name)
	}

	_, err = c.GetUser(context.Background(), 99)
	if !IsNotFoundError(err) {
		t.Errorf("expected not found error, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "User not found" {
		t.Errorf("expected detail message, got %v", err)
	}
}

func TestCreateUser(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	c := newTestClient(t, server.URL)

	user, err := c.CreateUser(context.Background(), CreateUserRequest{
		Name:          "Dian",
		Email:         "dian@example.com",
		FaceEmbedding: "[0.5]",
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID != 4 || user.FaceEmbedding != "[0.5]" {
		t.Errorf("unexpected user %+v", user)
	}

	_, err = c.CreateUser(context.Background(), CreateUserRequest{Name: "Ayu", Email: "ayu@example.com"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "Email already registered" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestUpdateUser(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	user, err := newTestClient(t, server.URL).UpdateUser(context.Background(), 1, UpdateUserRequest{FaceEmbedding: "[0.9]"})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if user.FaceEmbedding != "[0.9]" {
		t.Errorf("expected overwritten embedding, got %q", user.FaceEmbedding)
	}
}

func TestCheckIn_ForwardsToken(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	c := newTestClient(t, server.URL)
	req := CheckInRequest{UserID: 1, FaceEmbedding: "[0.1]", Location: "Office"}

	if _, err := c.CheckIn(context.Background(), req); err == nil {
		t.Fatal("expected error without assertion")
	}

	resp, err := c.WithToken("assertion").CheckIn(context.Background(), req)
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if resp.Attendance == nil || resp.Attendance.Location != "Office" || resp.Attendance.UserID != 1 {
		t.Errorf("unexpected attendance %+v", resp.Attendance)
	}
}

func TestCheckOut_Error(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	_, err := newTestClient(t, server.URL).CheckOut(context.Background(), CheckInRequest{FaceEmbedding: "[0.1]", Location: "Office"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "No check-in found for today" {
		t.Errorf("expected backend detail, got %v", err)
	}
}

func TestHistoryAndToday(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	c := newTestClient(t, server.URL)

	records, err := c.History(context.Background(), 1, HistoryParams{Limit: 2})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].WorkHours == nil || *records[0].WorkHours != 9.07 {
		t.Errorf("unexpected work hours %v", records[0].WorkHours)
	}
	if records[1].CheckOutTime != "" {
		t.Errorf("open record should have no check-out, got %q", records[1].CheckOutTime)
	}

	today, err := c.Today(context.Background())
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}
	if len(today) != 0 {
		t.Errorf("expected no records today, got %d", len(today))
	}
}
