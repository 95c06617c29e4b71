package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// User-facing messages
const (
	msgTimeout        = "The request took too long. Check your connection."
	msgUnreachable    = "Unable to reach the server. Check your internet connection."
	msgSessionExpired = "Session expired. Please sign in again."
	msgAuthFailed     = "Authentication failed."
	msgBadRequest     = "The data sent is invalid."
	msgForbidden      = "You do not have the required permissions."
	msgNotFound       = "The requested item does not exist or no longer exists."
	msgConflict       = "This resource already exists."
	msgTooMany        = "Too many requests. Please wait a moment."
	msgServer         = "Server error. Please try again later."
)

// classification is the decision taken for one failed attempt
type classification struct {
	kind    ErrorKind
	refresh bool
	notify  bool
	message string
}

// classify maps a failed attempt to an outcome. Exactly one of resp and
// sendErr is set. Rules are checked in order and the first match wins.
func classify(desc *requestDescriptor, resp *response, sendErr error) classification {
	if resp == nil {
		return classifyTransport(sendErr)
	}

	if resp.status == http.StatusUnauthorized && !desc.retried {
		if isAuthRoute(desc.path) {
			return classification{
				kind:    KindAuthRouteRejected,
				notify:  true,
				message: orDefault(resp.message(), msgAuthFailed),
			}
		}
		return classification{kind: KindSessionExpired, refresh: true}
	}

	c := classification{kind: statusKind(resp.status), notify: true}
	switch resp.status {
	case http.StatusBadRequest:
		c.message = orDefault(resp.message(), msgBadRequest)
	case http.StatusForbidden:
		c.message = msgForbidden
	case http.StatusNotFound:
		c.message = msgNotFound
	case http.StatusConflict:
		c.message = orDefault(resp.message(), msgConflict)
	case http.StatusTooManyRequests:
		c.message = msgTooMany
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		c.message = msgServer
	default:
		c.message = orDefault(resp.message(), fmt.Sprintf("An error occurred (%d).", resp.status))
	}
	return c
}

// classifyTransport handles attempts that produced no response at all.
// A caller that canceled its own call gets no notification.
func classifyTransport(err error) classification {
	if errors.Is(err, context.Canceled) {
		return classification{kind: KindUnclassified}
	}
	if isTimeout(err) {
		return classification{kind: KindNetworkUnreachable, notify: true, message: msgTimeout}
	}
	return classification{kind: KindNetworkUnreachable, notify: true, message: msgUnreachable}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusKind(status int) ErrorKind {
	switch {
	case status >= 500:
		return KindServerError
	case status >= 400:
		return KindClientError
	default:
		return KindUnclassified
	}
}

// isAuthRoute reports whether path targets an authentication endpoint.
// A 401 from one of these is a rejected credential, never an expired session.
func isAuthRoute(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.Contains(path, "/auth") ||
		strings.Contains(path, "/login") ||
		strings.Contains(path, "/register")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
