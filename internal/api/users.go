package api

import (
	"context"
)

// PathMe is the profile of the signed-in user
const PathMe = "/users/me"

// Profile represents the response from GET /users/me
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
}

// Me fetches the profile of the signed-in user
func (c *Client) Me(ctx context.Context, opts ...RequestOption) (*Profile, error) {
	var resp Profile
	if err := c.Get(ctx, PathMe, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}
