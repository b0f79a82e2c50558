// Package gateway is the client of the facegate gateway API used by the CLI.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/httpx"
	"github.com/kozaktomas/facegate/internal/password"
)

const apiPrefix = "api/v1/"

// Client talks to a facegate gateway.
type Client struct {
	http *httpx.Client
}

// NewClient creates a client for the gateway at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	hc, err := httpx.New(baseURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	return &Client{http: hc}, nil
}

// WithToken returns a client authenticated with a session ID.
func (c *Client) WithToken(token string) *Client {
	return &Client{http: c.http.WithToken(token)}
}

// Health checks the gateway.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return httpx.GetJSON[HealthResponse](ctx, c.http, apiPrefix+"health")
}

// Config fetches the capture tunables the gateway runs with.
func (c *Client) Config(ctx context.Context) (*ConfigResponse, error) {
	return httpx.GetJSON[ConfigResponse](ctx, c.http, apiPrefix+"config")
}

// Strength scores a password on the gateway.
func (c *Client) Strength(ctx context.Context, pw string) (*password.Result, error) {
	return httpx.DoJSON[password.Result](ctx, c.http, http.MethodPost, apiPrefix+"password/strength", PasswordRequest{Password: pw}, http.StatusOK)
}

// Register creates a user with its face embedding.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	resp, err := httpx.PostJSON[RegisterResponse](ctx, c.http, apiPrefix+"register", req)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return resp, nil
}

// Identify matches an embedding server side. When nothing matches it returns
// the response (with the best distance) and an error wrapping facematch.ErrNoMatch.
func (c *Client) Identify(ctx context.Context, v embedding.Vector) (*IdentifyResponse, error) {
	encoded, err := embedding.Encode(v)
	if err != nil {
		return nil, err
	}

	resp, err := httpx.DoJSON[IdentifyResponse](ctx, c.http, http.MethodPost, apiPrefix+"faces/identify",
		FaceRequest{FaceEmbedding: encoded}, http.StatusOK, http.StatusUnauthorized)
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}
	if !resp.Matched {
		return resp, facematch.ErrNoMatch
	}
	return resp, nil
}

// CheckIn identifies the embedding and records an arrival.
func (c *Client) CheckIn(ctx context.Context, v embedding.Vector, location string) (*AttendanceResponse, error) {
	return c.attendance(ctx, "attendance/check-in", v, location)
}

// CheckOut identifies the embedding and records a departure.
func (c *Client) CheckOut(ctx context.Context, v embedding.Vector, location string) (*AttendanceResponse, error) {
	return c.attendance(ctx, "attendance/check-out", v, location)
}

func (c *Client) attendance(ctx context.Context, endpoint string, v embedding.Vector, location string) (*AttendanceResponse, error) {
	encoded, err := embedding.Encode(v)
	if err != nil {
		return nil, err
	}

	resp, err := httpx.DoJSON[AttendanceResponse](ctx, c.http, http.MethodPost, apiPrefix+endpoint,
		AttendanceRequest{FaceEmbedding: encoded, Location: location}, http.StatusOK, http.StatusUnauthorized)
	if err != nil {
		return nil, err
	}
	if !resp.Matched {
		return resp, facematch.ErrNoMatch
	}
	return resp, nil
}

// Enroll overwrites the face of the signed-in user.
func (c *Client) Enroll(ctx context.Context, v embedding.Vector) (*EnrollResponse, error) {
	encoded, err := embedding.Encode(v)
	if err != nil {
		return nil, err
	}
	return httpx.PutJSON[EnrollResponse](ctx, c.http, apiPrefix+"me/face", FaceRequest{FaceEmbedding: encoded})
}

// Sync asks the gateway to import embeddings from the backend.
func (c *Client) Sync(ctx context.Context) (*SyncResponse, error) {
	return httpx.PostJSON[SyncResponse](ctx, c.http, apiPrefix+"faces/sync", nil)
}

// Faces lists enrolled faces, filtered by normalized name when name is set.
func (c *Client) Faces(ctx context.Context, name string) ([]FaceView, error) {
	path := apiPrefix + "faces"
	if name != "" {
		path += "?name=" + url.QueryEscape(name)
	}
	resp, err := httpx.GetJSON[[]FaceView](ctx, c.http, path)
	if err != nil {
		return nil, err
	}
	return *resp, nil
}

// Status reports whether the client's token is a live session.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	return httpx.GetJSON[StatusResponse](ctx, c.http, apiPrefix+"auth/status")
}

// Logout ends the session of the client's token.
func (c *Client) Logout(ctx context.Context) error {
	return httpx.DoRaw(ctx, c.http, http.MethodPost, apiPrefix+"auth/logout", nil, http.StatusOK, http.StatusNoContent)
}

// IsUnauthorized reports whether err is a 401 from the gateway.
func IsUnauthorized(err error) bool {
	return httpx.StatusCode(err) == http.StatusUnauthorized || errors.Is(err, facematch.ErrNoMatch)
}
