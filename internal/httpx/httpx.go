// Package httpx holds the JSON-over-HTTP plumbing shared by the backend and gateway clients.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

const maxErrorBody = 512

// StatusError is returned when a server answers with an unexpected status.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

// Client sends JSON requests relative to a base URL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
}

// New creates a client for baseURL. A zero timeout means no client-side timeout.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme %q", u.Scheme)
	}
	return &Client{baseURL: u, http: &http.Client{Timeout: timeout}}, nil
}

// WithToken returns a copy of the client that sends "Authorization: Bearer token".
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// WithHTTPClient returns a copy of the client using hc for transport.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.http = hc
	return &cp
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ResolveURL joins endpoint (e.g. "users/5?x=1") onto the base URL.
func (c *Client) ResolveURL(endpoint string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(endpoint, "/")
}

// GetJSON performs a GET request and unmarshals the JSON response into the result type.
func GetJSON[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	return DoJSON[T](ctx, c, http.MethodGet, endpoint, nil, http.StatusOK)
}

// PostJSON performs a POST request that accepts either 200 OK or 201 Created.
func PostJSON[T any](ctx context.Context, c *Client, endpoint string, body any) (*T, error) {
	return DoJSON[T](ctx, c, http.MethodPost, endpoint, body, http.StatusOK, http.StatusCreated)
}

// PutJSON performs a PUT request with a JSON body and unmarshals the JSON response.
func PutJSON[T any](ctx context.Context, c *Client, endpoint string, body any) (*T, error) {
	return DoJSON[T](ctx, c, http.MethodPut, endpoint, body, http.StatusOK)
}

// DoJSON performs a request with an optional JSON body and unmarshals the JSON response.
// It accepts one or more valid status codes; any other status yields a *StatusError.
func DoJSON[T any](ctx context.Context, c *Client, method, endpoint string, body any, expectedStatuses ...int) (*T, error) {
	data, err := c.do(ctx, method, endpoint, body, expectedStatuses)
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return &result, nil
}

// DoRaw performs a request and discards the response body.
func DoRaw(ctx context.Context, c *Client, method, endpoint string, body any, expectedStatuses ...int) error {
	_, err := c.do(ctx, method, endpoint, body, expectedStatuses)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, expected []int) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.ResolveURL(endpoint), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req) //nolint:gosec // URL built from the configured base URL
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	if len(expected) == 0 {
		expected = []int{http.StatusOK}
	}
	if !slices.Contains(expected, resp.StatusCode) {
		return nil, &StatusError{Status: resp.StatusCode, Message: ErrorMessage(resp.StatusCode, data)}
	}
	return data, nil
}

// ErrorMessage extracts a human readable message from an error body.
// It understands {"detail": ...}, {"message": ...} and {"error": ...}.
func ErrorMessage(status int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := detailMessage(payload.Detail); msg != "" {
			return msg
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "request failed"
}

// detailMessage handles both a plain string and a list of validation errors.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// IsNotFoundError returns true if the error indicates a 404 Not Found response.
func IsNotFoundError(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
