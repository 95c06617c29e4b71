package service

import (
	"context"
	"fmt"

	"github.com/bumbeez/bumbeez-cli/internal/api"
	iface "github.com/bumbeez/bumbeez-cli/internal/service/interface"
)

// profileService implements iface.ProfileService
type profileService struct {
	client *api.Client
}

// NewProfileService creates a new profile service
func NewProfileService(client *api.Client) iface.ProfileService {
	return &profileService{
		client: client,
	}
}

// Me fetches the profile. An empty session is restored by the client's
// refresh protocol on the first 401.
func (s *profileService) Me(ctx context.Context) (*iface.Profile, error) {
	p, err := s.client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &iface.Profile{
		ID:        p.ID,
		Email:     p.Email,
		Firstname: p.Firstname,
		Lastname:  p.Lastname,
	}, nil
}
