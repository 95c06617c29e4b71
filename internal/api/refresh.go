package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bumbeez/bumbeez-cli/internal/metrics"
	"github.com/bumbeez/bumbeez-cli/internal/securestore"
	"github.com/bumbeez/bumbeez-cli/internal/session"
)

const refreshFlightKey = "refresh"

// RefreshSession exchanges the persisted refresh token for a new access
// token, sharing the in-flight refresh with any concurrent caller.
func (c *Client) RefreshSession(ctx context.Context) (string, error) {
	return c.refreshAccessToken(ctx)
}

// refreshAccessToken joins the in-flight refresh or starts one. The refresh
// runs detached from ctx so that one waiter giving up does not fail the
// others; ctx only bounds how long this caller waits.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	ch := c.refreshes.DoChan(refreshFlightKey, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.runRefresh(rctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// runRefresh performs one refresh: read the stored token, call the refresh
// endpoint, then update the session and persist the rotated token.
func (c *Client) runRefresh(ctx context.Context) (string, error) {
	stored, ok, err := c.store.Get(ctx, securestore.RefreshTokenKey)
	if err != nil {
		c.session.Clear()
		c.metrics.Refreshes.WithLabelValues(metrics.RefreshFailed).Inc()
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	if !ok || stored == "" {
		c.session.Clear()
		c.metrics.Refreshes.WithLabelValues(metrics.RefreshNoToken).Inc()
		return "", ErrNoRefreshToken
	}

	previous := c.session.User()

	result, err := c.Refresh(ctx, stored)
	if err != nil {
		c.session.Clear()
		c.metrics.Refreshes.WithLabelValues(metrics.RefreshFailed).Inc()
		if rejected(err) {
			// the server no longer accepts this token; keeping it only
			// guarantees another failure next time
			if delErr := c.store.Delete(ctx, securestore.RefreshTokenKey); delErr != nil {
				c.logger.Warn().Err(delErr).Msg("failed to delete rejected refresh token")
			}
		}
		c.logger.Debug().Err(err).Msg("refresh failed")
		return "", err
	}

	user := resolveUser(previous, result)
	if err := c.session.SetCredentials(result.AccessToken, user); err != nil {
		c.session.Clear()
		c.metrics.Refreshes.WithLabelValues(metrics.RefreshFailed).Inc()
		return "", fmt.Errorf("refresh returned no access token: %w", err)
	}

	if result.RefreshToken != "" {
		if err := c.store.Set(ctx, securestore.RefreshTokenKey, result.RefreshToken); err != nil {
			// the new access token is valid for this process; only the next
			// start is affected
			c.logger.Error().Err(err).Msg("failed to persist rotated refresh token")
		}
	}

	c.metrics.Refreshes.WithLabelValues(metrics.RefreshSuccess).Inc()
	c.logger.Debug().Msg("access token refreshed")
	return result.AccessToken, nil
}

// resolveUser keeps the identity already in the session; the refresh
// payload and then the token's own claims are fallbacks.
func resolveUser(previous *session.User, result *RefreshResponse) session.User {
	if previous != nil {
		return *previous
	}
	if result.User != nil {
		return *result.User
	}
	if u, ok := session.UserFromToken(result.AccessToken); ok {
		return u
	}
	return session.User{}
}

// rejected reports whether the refresh endpoint refused the token itself,
// as opposed to a transport or server failure.
func rejected(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}
