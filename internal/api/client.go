// Package api provides a REST client for the task manager API.
// It implements a deep module interface - simple methods hiding the JSON
// envelopes, URL building and error decoding.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/robby/taskdeck/internal/auth"
)

// DefaultBaseURL matches the default backend address.
const DefaultBaseURL = "http://127.0.0.1:5000/api"

var (
	// ErrUnreachable indicates the request never got an HTTP response.
	ErrUnreachable = errors.New("server unreachable")
	// ErrInvalidID indicates an id argument is not a valid UUID.
	ErrInvalidID = errors.New("invalid id")
)

// Error is a non-2xx response from the API.
type Error struct {
	Status  int    // HTTP status code
	Message string // Server-provided message, or the status text
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsForbidden reports whether err is a 403 from the API.
func IsForbidden(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden
}

// Client is the API client. All requests go through the authenticated
// transport, so callers never set credentials themselves.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL whose requests go through transport.
func New(baseURL string, transport *auth.Transport, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: transport.Client(timeout),
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the {success, data, message} wrapper every endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// makeRequest executes a JSON request and decodes the envelope's data into out.
// out may be nil when the caller only cares about success.
func (c *Client) makeRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return fmt.Errorf("request canceled: %w", ctx.Err())
		}
		return fmt.Errorf("%w: %s %s: %v", ErrUnreachable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("invalid response from server: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("invalid response data: %w", err)
	}
	return nil
}

// decodeError builds an *Error from a non-2xx body, falling back to the status text.
func decodeError(status int, raw []byte) error {
	var body struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		msg = body.Message
		if msg == "" {
			msg = body.Detail
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Status: status, Message: msg}
}
