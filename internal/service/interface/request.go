package iface

import (
	"context"
	"net/http"
)

// RequestInput represents an arbitrary API call
type RequestInput struct {
	Method string
	Path   string
	Data   []byte
	Silent bool
}

// Response is the raw outcome of a successful call
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RequestService defines the interface for generic API calls
type RequestService interface {
	// Do sends the request through the authenticated client
	Do(ctx context.Context, input *RequestInput) (*Response, error)
}
