package iface

import (
	"context"
)

// Profile represents the signed-in user's profile
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
}

// ProfileService defines the interface for profile operations
type ProfileService interface {
	// Me returns the profile of the signed-in user
	Me(ctx context.Context) (*Profile, error)
}
