package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/bumbeez/bumbeez-cli/internal/session"
)

// Auth endpoint paths
const (
	PathRegister = "/auth/register"
	PathLogin    = "/auth/login"
	PathRefresh  = "/auth/refresh"
	PathLogout   = "/auth/logout"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterRequest represents the request body for creating an account
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Firstname string `json:"firstname" validate:"required"`
	Lastname  string `json:"lastname" validate:"required"`
}

// LoginRequest represents the request body for signing in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the response from /auth/login
type LoginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         session.User `json:"user"`
}

// RefreshRequest represents the request body for /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse represents the response from /auth/refresh.
// The user is optional.
type RefreshResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	User         *session.User `json:"user,omitempty"`
}

// Register creates a new account and returns the created user record
func (c *Client) Register(ctx context.Context, req *RegisterRequest, opts ...RequestOption) (*session.User, error) {
	if err := validateInput(req); err != nil {
		return nil, err
	}

	var user session.User
	if err := c.Post(ctx, PathRegister, req, &user, opts...); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for an access token, a refresh token and the user
func (c *Client) Login(ctx context.Context, req *LoginRequest, opts ...RequestOption) (*LoginResponse, error) {
	if err := validateInput(req); err != nil {
		return nil, err
	}

	var resp LoginResponse
	if err := c.Post(ctx, PathLogin, req, &resp, opts...); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, fmt.Errorf("login response is missing tokens")
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for new tokens. The call is always
// silent: a failed refresh is reported once, as an expired session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := c.Post(ctx, PathRefresh, &RefreshRequest{RefreshToken: refreshToken}, &resp, Silent()); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the current session on the server
func (c *Client) Logout(ctx context.Context, opts ...RequestOption) error {
	return c.Post(ctx, PathLogout, nil, nil, opts...)
}

func validateInput(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidInput, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
