package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionExpired matches any APIError of kind KindSessionExpired
	ErrSessionExpired = errors.New("session expired")

	// ErrNoRefreshToken is returned by the refresh flow when nothing is persisted
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// ErrInvalidInput wraps payload validation failures raised before any network call
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorKind is the classification of a failed call
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindNetworkUnreachable
	KindAuthRouteRejected
	KindSessionExpired
	KindClientError
	KindServerError
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindAuthRouteRejected:
		return "auth_route_rejected"
	case KindSessionExpired:
		return "session_expired"
	case KindClientError:
		return "client_error"
	case KindServerError:
		return "server_error"
	default:
		return "unclassified"
	}
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Message string `json:"message"`
}

// APIError represents a failed call, classified
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return e.Kind.String()
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrSessionExpired) match session-terminating failures
func (e *APIError) Is(target error) bool {
	return target == ErrSessionExpired && e.Kind == KindSessionExpired
}

// IsUnauthorized checks if the error is an unauthorized error
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsNotFound checks if the error is a not found error
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// KindOf returns the classification carried by err, or KindUnclassified
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnclassified
}
