package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bumbeez/bumbeez-cli/internal/api"
	iface "github.com/bumbeez/bumbeez-cli/internal/service/interface"
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// requestService implements iface.RequestService
type requestService struct {
	client *api.Client
}

// NewRequestService creates a new generic request service
func NewRequestService(client *api.Client) iface.RequestService {
	return &requestService{
		client: client,
	}
}

// Do validates the input and sends it through the interceptor pipeline
func (s *requestService) Do(ctx context.Context, input *iface.RequestInput) (*iface.Response, error) {
	method := strings.ToUpper(input.Method)
	if !allowedMethods[method] {
		return nil, fmt.Errorf("%w: unsupported method %q", api.ErrInvalidInput, input.Method)
	}
	if !strings.HasPrefix(input.Path, "/") {
		return nil, fmt.Errorf("%w: path must start with /", api.ErrInvalidInput)
	}

	var body []byte
	if len(input.Data) > 0 {
		if !json.Valid(input.Data) {
			return nil, fmt.Errorf("%w: data is not valid JSON", api.ErrInvalidInput)
		}
		body = input.Data
	}

	var opts []api.RequestOption
	if input.Silent {
		opts = append(opts, api.Silent())
	}

	resp, err := s.client.Do(ctx, method, input.Path, body, opts...)
	if err != nil {
		return nil, err
	}
	return &iface.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}
