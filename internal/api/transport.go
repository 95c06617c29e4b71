package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// requestDescriptor is one logical outbound request. It survives a replay:
// the same descriptor is sent again after a refresh with retried set.
type requestDescriptor struct {
	method    string
	path      string
	url       string
	header    http.Header
	body      []byte
	silent    bool
	retried   bool
	sentToken string
}

func (c *Client) newDescriptor(method, path string, body []byte) *requestDescriptor {
	header := make(http.Header)
	header.Set("Accept", "application/json")
	if body != nil {
		header.Set("Content-Type", "application/json")
	}
	header.Set(requestIDHeader, uuid.NewString())

	return &requestDescriptor{
		method: method,
		path:   path,
		url:    c.baseURL + path,
		header: header,
		body:   body,
	}
}

// response is a fully read HTTP response
type response struct {
	status int
	header http.Header
	body   []byte
}

// message returns the server-supplied error message, if any
func (r *response) message() string {
	var errResp ErrorResponse
	if err := json.Unmarshal(r.body, &errResp); err != nil {
		return ""
	}
	return errResp.Message
}

// authorize is the request interceptor: it sets the bearer header from the
// current session, overwriting any previous value. No token, no header.
func (c *Client) authorize(desc *requestDescriptor) {
	token := c.session.AccessToken()
	desc.sentToken = token
	if token == "" {
		desc.header.Del("Authorization")
		return
	}
	desc.header.Set("Authorization", "Bearer "+token)
}

// do runs one attempt through the interceptor pair
func (c *Client) do(ctx context.Context, desc *requestDescriptor) (*response, error) {
	c.authorize(desc)

	resp, err := c.send(ctx, desc)
	if err != nil {
		return c.onFailure(ctx, desc, nil, err)
	}
	if resp.status >= http.StatusBadRequest {
		return c.onFailure(ctx, desc, resp, nil)
	}

	c.metrics.Requests.WithLabelValues("ok").Inc()
	return resp, nil
}

func (c *Client) send(ctx context.Context, desc *requestDescriptor) (*response, error) {
	var bodyReader io.Reader
	if desc.body != nil {
		bodyReader = bytes.NewReader(desc.body)
	}

	req, err := http.NewRequestWithContext(ctx, desc.method, desc.url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = desc.header.Clone()

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("method", desc.method).
			Str("url", desc.url).
			Str("request_id", desc.header.Get(requestIDHeader)).
			Bool("retried", desc.retried).
			Dur("elapsed", time.Since(start)).
			Msg("request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	// Read response body
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("method", desc.method).
		Str("url", desc.url).
		Str("request_id", desc.header.Get(requestIDHeader)).
		Bool("retried", desc.retried).
		Int("status", httpResp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	return &response{status: httpResp.StatusCode, header: httpResp.Header, body: body}, nil
}

// onFailure is the response interceptor for failed attempts. Every path
// either returns a replayed response or an error for the caller.
func (c *Client) onFailure(ctx context.Context, desc *requestDescriptor, resp *response, sendErr error) (*response, error) {
	cl := classify(desc, resp, sendErr)

	if !cl.refresh {
		c.metrics.Requests.WithLabelValues(cl.kind.String()).Inc()
		if cl.notify {
			c.notify(desc, cl.message)
		}
		apiErr := &APIError{Kind: cl.kind, Message: cl.message, Err: sendErr}
		if resp != nil {
			apiErr.StatusCode = resp.status
			apiErr.Message = orDefault(resp.message(), cl.message)
		}
		return nil, apiErr
	}

	// Mark before any suspension so this descriptor can never re-enter
	// the refresh branch.
	desc.retried = true

	// The session moved on while this request was in flight; replay with
	// the current token instead of spending the refresh token again.
	if current := c.session.AccessToken(); current != "" && current != desc.sentToken {
		c.logger.Debug().Str("url", desc.url).Msg("replaying with newer access token")
		c.metrics.Retries.Inc()
		return c.do(ctx, desc)
	}

	if _, err := c.refreshAccessToken(ctx); err != nil {
		if ctx.Err() != nil {
			c.metrics.Requests.WithLabelValues(KindUnclassified.String()).Inc()
			return nil, &APIError{Kind: KindUnclassified, Err: err}
		}
		c.metrics.Requests.WithLabelValues(KindSessionExpired.String()).Inc()
		c.notify(desc, msgSessionExpired)
		apiErr := &APIError{Kind: KindSessionExpired, Message: msgSessionExpired, Err: err}
		if errors.Is(err, ErrNoRefreshToken) {
			// nothing to refresh with: the caller sees the 401 itself
			apiErr.StatusCode = resp.status
			apiErr.Message = orDefault(resp.message(), msgSessionExpired)
		}
		return nil, apiErr
	}

	c.metrics.Retries.Inc()
	return c.do(ctx, desc)
}
