// Package transport issues HTTP requests against a Helix server and surfaces
// structured results: body, ETag and status per call, with an optional bearer
// token attached per request. Session cookies are kept in an in-memory jar so
// form-based logins carry over to subsequent calls.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client performs HTTP verbs against a single Helix server origin.
type Client struct {
	serverURL string
	http      *http.Client
	logger    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger attaches a logger for request/response debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient replaces the underlying HTTP client. The replacement should
// carry a cookie jar if login flows are going to be used.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the given server origin. The origin must be an
// absolute http(s) URL; a trailing slash is stripped.
func New(serverURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", serverURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", serverURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ServerURL returns the configured server origin.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// Response is the structured result of a completed HTTP call.
type Response struct {
	Body   []byte
	ETag   string
	Status int
}

// Error is a transport failure: either the request never completed (Status 0)
// or the server answered with a non-2xx status.
type Error struct {
	Method string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusOf extracts the HTTP status from a transport error chain, or 0 when
// the error is not a transport error or no response was received.
func StatusOf(err error) int {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Status
	}
	return 0
}

// Get issues a GET. A non-empty token is attached as a bearer credential.
func (c *Client) Get(ctx context.Context, path, token string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, "", token, nil)
}

// Post issues a POST with a JSON-encoded body.
func (c *Client) Post(ctx context.Context, path string, body any, token string) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json", token, nil)
}

// Put issues a PUT with a JSON-encoded body and optional extra headers
// (the If-Match precondition travels through here).
func (c *Client) Put(ctx context.Context, path string, body any, token string, headers map[string]string) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPut, path, bytes.NewReader(payload), "application/json", token, headers)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path, token string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, "", token, nil)
}

// PostForm issues a POST with a url-encoded form body. Cookies set by the
// server are retained in the jar, which is what turns a successful login
// response into an authenticated session.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*Response, error) {
	body := strings.NewReader(form.Encode())
	return c.do(ctx, http.MethodPost, path, body, "application/x-www-form-urlencoded", "", nil)
}

// resolve turns a site-relative path into an absolute URL against the server
// origin. Absolute URLs pass through untouched.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.serverURL + path
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, token string, headers map[string]string) (*Response, error) {
	target := c.resolve(path)

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &Error{Method: method, URL: target, Err: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("Accept", "*/*")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("url", target),
		zap.String("requestId", requestID))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Method: method, URL: target, Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug("response",
		zap.String("method", method),
		zap.String("url", target),
		zap.String("requestId", requestID),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode >= 400 {
		return nil, &Error{
			Method: method,
			URL:    target,
			Status: resp.StatusCode,
			Body:   string(payload),
			Err:    fmt.Errorf("server returned %s", resp.Status),
		}
	}

	return &Response{
		Body:   payload,
		ETag:   resp.Header.Get("ETag"),
		Status: resp.StatusCode,
	}, nil
}
