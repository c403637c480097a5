// Package api is the HTTP client for the agent backend. Every endpoint
// replies with a JSON envelope carrying a success flag and an optional
// error string; non-success envelopes surface as *RequestError.
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

	"agentconsole/internal/logging"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrEmptyMessage is returned for blank outgoing chat messages.
var ErrEmptyMessage = errors.New("api: empty message")

// RequestError describes a failed request: a transport-level failure,
// a non-2xx status, a malformed body, or a {success:false} envelope.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RequestError) Unwrap() error { return e.Err }

// ServerMessage returns the backend-supplied error text, or fallback when
// the backend gave none.
func ServerMessage(err error, fallback string) string {
	var re *RequestError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one agent backend.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// New creates a client for baseURL (e.g. "http://localhost:4000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the common part of every reply.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e envelope) ok() bool        { return e.Success }
func (e envelope) errText() string { return e.Error }

type enveloped interface {
	ok() bool
	errText() string
}

// doJSON sends body (if non-nil) as JSON and decodes the reply into out.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, out enveloped) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.send(req, op, out)
}

func (c *Client) send(req *http.Request, op string, out enveloped) error {
	timer := logging.StartTimer(logging.CategoryAPI, op)
	defer timer.StopWithThreshold(2 * time.Second)

	resp, err := c.client.Do(req)
	if err != nil {
		logging.APIWarn("%s %s failed: %v", req.Method, req.URL.Path, err)
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Error replies may still carry an envelope with a useful message.
		msg := strings.TrimSpace(string(data))
		var env envelope
		if json.Unmarshal(data, &env) == nil && env.Error != "" {
			msg = env.Error
		}
		logging.APIWarn("%s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode)
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if !out.ok() {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Message: out.errText()}
	}

	logging.APIDebug("%s %s ok", req.Method, req.URL.Path)
	return nil
}
