// Package api provides the authenticated HTTP client for the Bumbeez API.
//
// Every call goes through a request/response interceptor pair. The request
// side injects the current access token. The response side classifies
// failures and notifies the user. A 401 from a protected endpoint triggers
// one shared refresh of the access token, after which the request is
// replayed once.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/bumbeez/bumbeez-cli/internal/metrics"
	"github.com/bumbeez/bumbeez-cli/internal/notify"
	"github.com/bumbeez/bumbeez-cli/internal/securestore"
	"github.com/bumbeez/bumbeez-cli/internal/session"
)

// DefaultTimeout bounds each outbound request
const DefaultTimeout = 10 * time.Second

// Client is an HTTP client for the Bumbeez API
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration

	session  *session.State
	store    securestore.Store
	notifier notify.Notifier
	logger   zerolog.Logger
	metrics  *metrics.Recorder

	refreshes singleflight.Group
}

// Option configures a Client
type Option func(*Client)

// WithNotifier sets the sink that receives user-facing error messages
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the request logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient creates a new API client. The session and store are shared with
// the rest of the application; the client mutates them during refresh.
func NewClient(baseURL string, sess *session.State, store securestore.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  DefaultTimeout,
		session:  sess,
		store:    store,
		notifier: notify.Discard,
		logger:   zerolog.Nop(),
		metrics:  metrics.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Metrics returns the client's metrics recorder
func (c *Client) Metrics() *metrics.Recorder {
	return c.metrics
}

// CloseIdleConnections releases pooled connections
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// RequestOption adjusts a single call
type RequestOption func(*requestDescriptor)

// Silent suppresses user-facing notifications for calls that handle their
// own error display.
func Silent() RequestOption {
	return func(d *requestDescriptor) {
		d.silent = true
	}
}

// Request performs an HTTP request to the API
func (c *Client) Request(ctx context.Context, method, path string, body interface{}, result interface{}, opts ...RequestOption) error {
	var payload []byte
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = jsonBody
	}

	desc := c.newDescriptor(method, path, payload)
	for _, opt := range opts {
		opt(desc)
	}

	resp, err := c.do(ctx, desc)
	if err != nil {
		return err
	}

	// Parse response if result is provided
	if result != nil && len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, result interface{}, opts ...RequestOption) error {
	return c.Request(ctx, http.MethodGet, path, nil, result, opts...)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, body interface{}, result interface{}, opts ...RequestOption) error {
	return c.Request(ctx, http.MethodPost, path, body, result, opts...)
}

// Put performs a PUT request
func (c *Client) Put(ctx context.Context, path string, body interface{}, result interface{}, opts ...RequestOption) error {
	return c.Request(ctx, http.MethodPut, path, body, result, opts...)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, path string, result interface{}, opts ...RequestOption) error {
	return c.Request(ctx, http.MethodDelete, path, nil, result, opts...)
}

// RawResponse is an undecoded API response
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do performs a request with a pre-encoded JSON body and returns the raw
// response. Failures are classified exactly as for Request.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, opts ...RequestOption) (*RawResponse, error) {
	desc := c.newDescriptor(method, path, body)
	for _, opt := range opts {
		opt(desc)
	}

	resp, err := c.do(ctx, desc)
	if err != nil {
		return nil, err
	}
	return &RawResponse{StatusCode: resp.status, Header: resp.header, Body: resp.body}, nil
}

func (c *Client) notify(desc *requestDescriptor, message string) {
	if desc.silent || message == "" {
		return
	}
	c.metrics.Notifications.WithLabelValues(string(notify.SeverityError)).Inc()
	c.notifier.Notify(notify.SeverityError, message)
}
