package hrmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raynx/hrm-portal/structs"
)

// TokenSource hands out the bearer credential of the live session ("" when there is none)
type TokenSource interface {
	Token() string
}

// APIError is a non-2xx response of the HRM API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hrm api returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("hrm api returned %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 or 403 from the HRM API
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

// Message returns the text a user should see for err
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Client talks to the HRM REST API. Every call carries the session's bearer token and
// any 401/403 answer to an authenticated call ends the session through the unauthorized hook.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func()
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedHandler sets the hook run on a 401/403 answer
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New creates a client for the API at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource attaches the token source after construction; the session store and the
// client reference each other
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// SetUnauthorizedHandler attaches the unauthorized hook after construction
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.onUnauthorized = fn
}

// BaseURL is the API root the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// meta is the envelope minus its data
type meta struct {
	message string
	success bool
}

// do sends one request and decodes the envelope's data into out (when out is not nil)
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) (meta, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return meta{}, fmt.Errorf("could not encode request body for %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		slog.Error("could not make request", "error", err, "path", path)
		return meta{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("could not execute client.Do", "error", err, "method", method, "path", path)
		return meta{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return meta{}, fmt.Errorf("could not read response of %s %s: %w", method, path, err)
	}

	var env structs.Envelope[json.RawMessage]
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return meta{}, fmt.Errorf("could not decode response of %s %s: %w", method, path, err)
		}
	}

	m := meta{message: env.Message, success: env.Success}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Message}
		slog.Warn("hrm api call failed", "method", method, "path", path, "status", resp.StatusCode, "message", env.Message)
		if IsUnauthorized(apiErr) && token != "" && c.onUnauthorized != nil {
			slog.Info("session rejected by hrm api, logging out", "status", resp.StatusCode)
			c.onUnauthorized()
		}
		return m, apiErr
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return m, fmt.Errorf("could not decode data of %s %s: %w", method, path, err)
		}
	}
	slog.Debug("hrm api call", "method", method, "path", path, "status", resp.StatusCode)
	return m, nil
}
