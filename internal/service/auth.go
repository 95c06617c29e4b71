package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bumbeez/bumbeez-cli/internal/api"
	"github.com/bumbeez/bumbeez-cli/internal/securestore"
	iface "github.com/bumbeez/bumbeez-cli/internal/service/interface"
	"github.com/bumbeez/bumbeez-cli/internal/session"
)

// ErrNotLoggedIn is returned when no credentials are held at all
var ErrNotLoggedIn = errors.New("not logged in. Please run 'bumbeez login' first")

// authService implements iface.AuthService
type authService struct {
	client  *api.Client
	session *session.State
	store   securestore.Store
	logger  zerolog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(client *api.Client, sess *session.State, store securestore.Store, logger zerolog.Logger) iface.AuthService {
	return &authService{
		client:  client,
		session: sess,
		store:   store,
		logger:  logger,
	}
}

// Register creates the account, then signs in with the same credentials
func (s *authService) Register(ctx context.Context, input *iface.RegisterInput) (*iface.User, error) {
	_, err := s.client.Register(ctx, &api.RegisterRequest{
		Email:     input.Email,
		Password:  input.Password,
		Firstname: input.Firstname,
		Lastname:  input.Lastname,
	})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	user, err := s.Login(ctx, &iface.LoginInput{Email: input.Email, Password: input.Password})
	if err != nil {
		return nil, fmt.Errorf("account created but sign-in failed: %w", err)
	}
	return user, nil
}

// Login signs in and persists the refresh token
func (s *authService) Login(ctx context.Context, input *iface.LoginInput) (*iface.User, error) {
	resp, err := s.client.Login(ctx, &api.LoginRequest{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	if err := s.store.Set(ctx, securestore.RefreshTokenKey, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	if err := s.session.SetCredentials(resp.AccessToken, resp.User); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.logger.Debug().Str("user_id", resp.User.ID).Msg("signed in")
	return toUser(&resp.User), nil
}

// Logout is idempotent. The remote call is best-effort and silent; local
// credentials are removed whatever it returns.
func (s *authService) Logout(ctx context.Context) error {
	_, hasToken, err := s.store.Get(ctx, securestore.RefreshTokenKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read stored credentials")
	}

	// a fresh process holds only the refresh token; restore the session so
	// the server can revoke it
	if !s.session.IsAuthenticated() && hasToken {
		if _, err := s.client.RefreshSession(ctx); err != nil {
			s.logger.Debug().Err(err).Msg("could not restore session before logout")
		}
	}
	if s.session.IsAuthenticated() {
		if err := s.client.Logout(ctx, api.Silent()); err != nil {
			s.logger.Debug().Err(err).Msg("remote logout failed")
		}
	}

	if err := s.store.Delete(ctx, securestore.RefreshTokenKey); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	s.session.Clear()
	return nil
}

// Refresh runs the same single-flight refresh a 401 would trigger
func (s *authService) Refresh(ctx context.Context) (*iface.AuthStatus, error) {
	if _, err := s.client.RefreshSession(ctx); err != nil {
		if errors.Is(err, api.ErrNoRefreshToken) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	return s.Status(ctx)
}

// Status reports what is held locally without calling the API
func (s *authService) Status(ctx context.Context) (*iface.AuthStatus, error) {
	snap := s.session.Snapshot()

	token, ok, err := s.store.Get(ctx, securestore.RefreshTokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	status := &iface.AuthStatus{
		SessionActive:   snap.Authenticated(),
		HasRefreshToken: ok && token != "",
		User:            toUser(snap.User),
	}
	if snap.AccessToken != "" {
		if claims, err := session.ParseClaims(snap.AccessToken); err == nil && !claims.ExpiresAt.IsZero() {
			exp := claims.ExpiresAt
			status.ExpiresAt = &exp
		}
	}
	return status, nil
}

func toUser(u *session.User) *iface.User {
	if u == nil {
		return nil
	}
	return &iface.User{ID: u.ID, Email: u.Email}
}
