// Package apiclient is the single path from the console to the remote
// inventory API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Header names understood by the remote API.
const (
	HeaderAPIKey = "x-api-key"
	HeaderUserID = "x-user-id"
)

// Identity is the session view the client needs: who is calling, and how to
// sign them out when the API disowns them.
type Identity interface {
	UserID() string
	Clear(ctx context.Context) error
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration
}

// Client issues authenticated JSON requests.
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	logger        *slog.Logger
	sanitizer     *sanitizer
	onInvalidUser func()
	observe       func(method string, status int)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInvalidUserHook registers fn to run after a forced sign-out.
func WithInvalidUserHook(fn func()) Option {
	return func(c *Client) {
		c.onInvalidUser = fn
	}
}

// WithRequestObserver registers fn to run after every call with the response
// status, or 0 when the request never got a response.
func WithRequestObserver(fn func(method string, status int)) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

// New constructs a Client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default(),
		sanitizer:  newSanitizer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET with optional query parameters.
func (c *Client) Get(ctx context.Context, id Identity, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.Do(ctx, id, http.MethodGet, path, nil, out)
}

// Post issues a POST.
func (c *Client) Post(ctx context.Context, id Identity, path string, body, out any) error {
	return c.Do(ctx, id, http.MethodPost, path, body, out)
}

// Patch issues a PATCH.
func (c *Client) Patch(ctx context.Context, id Identity, path string, body, out any) error {
	return c.Do(ctx, id, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, id Identity, path string, out any) error {
	return c.Do(ctx, id, http.MethodDelete, path, nil, out)
}

// Do sends one request. Non-success responses come back as *Error; an
// "Invalid user" response clears id before the error is returned.
func (c *Client) Do(ctx context.Context, id Identity, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := c.sanitizer.Body(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderAPIKey, c.apiKey)
	if id != nil {
		if userID := id.UserID(); userID != "" {
			req.Header.Set(HeaderUserID, userID)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(method, 0)
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.record(method, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("apiclient: read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Message: errorMessage(data)}
		if apiErr.Message == InvalidUserMessage {
			c.forceSignOut(ctx, id, method, path)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("apiclient: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) forceSignOut(ctx context.Context, id Identity, method, path string) {
	if id == nil {
		return
	}
	userID := id.UserID()
	if err := id.Clear(ctx); err != nil {
		c.logger.Warn("clear invalid session", slog.Any("error", err))
	}
	c.logger.Info("remote api rejected session identity",
		slog.String("user_id", userID),
		slog.String("method", method),
		slog.String("path", path))
	if c.onInvalidUser != nil {
		c.onInvalidUser()
	}
}

func (c *Client) record(method string, status int) {
	if c.observe != nil {
		c.observe(method, status)
	}
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = payload.Error
	} else {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		return UnknownErrorMessage
	}
	return msg
}
