// Package backend is a client for the external WorkFlow REST backend, which
// owns users and attendance records.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kozaktomas/facegate/internal/httpx"
)

// APIError is returned when the backend answers with an error status.
// Message is taken from the response's detail or message field.
type APIError = httpx.StatusError

// Client talks to the backend REST API.
type Client struct {
	http *httpx.Client
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	hc, err := httpx.New(baseURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	return &Client{http: hc}, nil
}

// WithToken returns a client that forwards token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	return &Client{http: c.http.WithToken(token)}
}

// BaseURL returns the backend URL.
func (c *Client) BaseURL() string {
	return c.http.BaseURL()
}

// ListUsers returns all users, each with its encoded face embedding.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	users, err := httpx.GetJSON[[]User](ctx, c.http, "users")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return *users, nil
}

// GetUser returns a single user.
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := httpx.GetJSON[User](ctx, c.http, "users/"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// CreateUser registers a new user together with the encoded face embedding.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	user, err := httpx.PostJSON[User](ctx, c.http, "users", req)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdateUser updates a user. The backend overwrites the stored embedding when one is sent.
func (c *Client) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*User, error) {
	user, err := httpx.PutJSON[User](ctx, c.http, "users/"+strconv.FormatInt(id, 10), req)
	if err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return user, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	endpoint := "users/" + strconv.FormatInt(id, 10)
	if err := httpx.DoRaw(ctx, c.http, http.MethodDelete, endpoint, nil, http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

// CheckIn records the arrival of the user identified by the embedding.
func (c *Client) CheckIn(ctx context.Context, req CheckInRequest) (*AttendanceResponse, error) {
	resp, err := httpx.PostJSON[AttendanceResponse](ctx, c.http, "attendance/check-in", req)
	if err != nil {
		return nil, fmt.Errorf("check in: %w", err)
	}
	return resp, nil
}

// CheckOut records the departure of the user identified by the embedding.
func (c *Client) CheckOut(ctx context.Context, req CheckInRequest) (*AttendanceResponse, error) {
	resp, err := httpx.PostJSON[AttendanceResponse](ctx, c.http, "attendance/check-out", req)
	if err != nil {
		return nil, fmt.Errorf("check out: %w", err)
	}
	return resp, nil
}

// History returns the attendance records of a user, newest first as the backend orders them.
func (c *Client) History(ctx context.Context, userID int64, params HistoryParams) ([]AttendanceRecord, error) {
	q := url.Values{}
	if params.StartDate != "" {
		q.Set("start_date", params.StartDate)
	}
	if params.EndDate != "" {
		q.Set("end_date", params.EndDate)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	endpoint := "attendance/history/" + strconv.FormatInt(userID, 10)
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	records, err := httpx.GetJSON[[]AttendanceRecord](ctx, c.http, endpoint)
	if err != nil {
		return nil, fmt.Errorf("attendance history of user %d: %w", userID, err)
	}
	return *records, nil
}

// Today returns today's attendance records.
func (c *Client) Today(ctx context.Context) ([]AttendanceRecord, error) {
	records, err := httpx.GetJSON[[]AttendanceRecord](ctx, c.http, "attendance/today")
	if err != nil {
		return nil, fmt.Errorf("today's attendance: %w", err)
	}
	return *records, nil
}

// IsNotFoundError reports whether err is a 404 from the backend.
func IsNotFoundError(err error) bool {
	return httpx.IsNotFoundError(err)
}
