// Package iface defines service interfaces for the Bumbeez CLI.
// These interfaces enable dependency injection and mocking for tests.
package iface

import (
	"context"
	"time"
)

// User is the signed-in account as the CLI knows it
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LoginInput represents the credentials for signing in
type LoginInput struct {
	Email    string
	Password string
}

// RegisterInput represents the input for creating an account
type RegisterInput struct {
	Email     string
	Password  string
	Firstname string
	Lastname  string
}

// AuthStatus describes the locally held credentials. It never calls the API.
type AuthStatus struct {
	SessionActive   bool       `json:"session_active"`
	HasRefreshToken bool       `json:"has_refresh_token"`
	User            *User      `json:"user,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// SignedIn reports whether a protected call can succeed without a new login
func (s *AuthStatus) SignedIn() bool {
	return s.SessionActive || s.HasRefreshToken
}

// AuthService defines the interface for authentication operations
type AuthService interface {
	// Register creates an account and signs in with it
	Register(ctx context.Context, input *RegisterInput) (*User, error)

	// Login exchanges credentials for a session and persists the refresh token
	Login(ctx context.Context, input *LoginInput) (*User, error)

	// Logout revokes the session remotely when possible and always clears it locally
	Logout(ctx context.Context) error

	// Refresh exchanges the persisted refresh token for a new access token
	Refresh(ctx context.Context) (*AuthStatus, error)

	// Status reports the locally held credentials
	Status(ctx context.Context) (*AuthStatus, error)
}
