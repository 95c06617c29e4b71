package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bumbeez/bumbeez-cli/internal/metrics"
	"github.com/bumbeez/bumbeez-cli/internal/mocks"
	"github.com/bumbeez/bumbeez-cli/internal/notify"
	"github.com/bumbeez/bumbeez-cli/internal/securestore"
	"github.com/bumbeez/bumbeez-cli/internal/session"
	"github.com/bumbeez/bumbeez-cli/internal/testutil/fakeapi"
)

func TestRefresh_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	h := newHarness(t)
	user, _, _ := h.signIn(t)
	h.srv.ExpireAccessTokens()
	h.srv.SetRefreshDelay(100 * time.Millisecond)

	const callers = 8
	start := make(chan struct{})
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			p, err := h.client.Me(context.Background())
			if err == nil && p.ID != user.ID {
				err = errors.New("wrong profile")
			}
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	assert.Equal(t, 1, h.srv.Calls(PathRefresh), "concurrent 401s must share one refresh")

	// every replay carried the same new token
	newAccess := h.sess.AccessToken()
	tokens := h.srv.MeTokens()
	require.Len(t, tokens, callers)
	for _, tok := range tokens {
		assert.Equal(t, newAccess, tok)
	}
	assert.Empty(t, h.notes.All())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.client.Metrics().Refreshes.WithLabelValues(metrics.RefreshSuccess)))
}

func TestRefresh_StaleUnauthorizedReplaysWithoutRefresh(t *testing.T) {
	sess := session.New()
	require.NoError(t, sess.SetCredentials("access-1", session.User{ID: "u1"}))
	store := securestore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), securestore.RefreshTokenKey, "refresh-1"))

	var mu sync.Mutex
	var seen []string
	refreshCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc(PathRefresh, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		refreshCalls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/thing", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		mu.Lock()
		seen = append(seen, auth)
		mu.Unlock()
		if auth == "Bearer access-1" {
			// another request refreshed while this one was in flight
			assert.NoError(t, sess.SetCredentials("access-2", session.User{ID: "u1"}))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	c := newCaptureClient(t, mux, sess, store)

	require.NoError(t, c.Get(context.Background(), "/thing", nil))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, refreshCalls)
	assert.Equal(t, []string{"Bearer access-1", "Bearer access-2"}, seen)
	stored, _, _ := store.Get(context.Background(), securestore.RefreshTokenKey)
	assert.Equal(t, "refresh-1", stored)
}

func TestRefresh_Failure(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(srv *fakeapi.Server)
		wantStored bool
	}{
		{
			name:       "rejected token is deleted",
			setup:      func(srv *fakeapi.Server) { srv.RevokeRefreshTokens() },
			wantStored: false,
		},
		{
			name:       "forbidden token is deleted",
			setup:      func(srv *fakeapi.Server) { srv.FailRefreshWith(http.StatusForbidden) },
			wantStored: false,
		},
		{
			name:       "server failure keeps token",
			setup:      func(srv *fakeapi.Server) { srv.FailRefreshWith(http.StatusServiceUnavailable) },
			wantStored: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, _, refresh := h.signIn(t)
			h.srv.ExpireAccessTokens()
			tt.setup(h.srv)

			_, err := h.client.Me(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSessionExpired)
			assert.Equal(t, KindSessionExpired, KindOf(err))

			assert.Equal(t, 1, h.srv.Calls(PathRefresh))
			assert.Equal(t, 1, h.srv.Calls(PathMe), "no replay after a failed refresh")
			assert.False(t, h.sess.IsAuthenticated())
			assert.Nil(t, h.sess.User())

			// the refresh call itself is silent: exactly one message
			assert.Equal(t, []string{msgSessionExpired}, h.notes.Messages())

			stored, ok := h.storedRefresh(t)
			assert.Equal(t, tt.wantStored, ok)
			if tt.wantStored {
				assert.Equal(t, refresh, stored)
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(h.client.Metrics().Refreshes.WithLabelValues(metrics.RefreshFailed)))
		})
	}
}

func TestRefresh_CallerGivesUpWhileRefreshContinues(t *testing.T) {
	h := newHarness(t)
	_, oldAccess, oldRefresh := h.signIn(t)
	h.srv.ExpireAccessTokens()
	h.srv.SetRefreshDelay(300 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := h.client.Me(ctx)
	require.Error(t, err)
	assert.Equal(t, KindUnclassified, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, h.notes.All(), "a caller that gave up is not notified")

	// the detached refresh still lands for everyone else
	require.Eventually(t, func() bool {
		stored, ok, err := h.store.Get(context.Background(), securestore.RefreshTokenKey)
		return err == nil && ok && stored != oldRefresh
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotEqual(t, oldAccess, h.sess.AccessToken())
	assert.True(t, h.sess.IsAuthenticated())
	assert.Equal(t, 1, h.srv.Calls(PathRefresh))
}

func TestRefresh_StoreReadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)

	srv := fakeapi.New(t)
	sess := session.New()
	require.NoError(t, sess.SetCredentials("not-issued-by-server", session.User{ID: "u1"}))

	store.EXPECT().
		Get(gomock.Any(), securestore.RefreshTokenKey).
		Return("", false, errors.New("keyring locked"))
	notifier.EXPECT().Notify(notify.SeverityError, msgSessionExpired).Times(1)

	c := NewClient(srv.URL, sess, store, WithNotifier(notifier))
	t.Cleanup(c.CloseIdleConnections)

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.ErrorContains(t, err, "keyring locked")
	assert.False(t, sess.IsAuthenticated())
	assert.Equal(t, 0, srv.Calls(PathRefresh))
}

func TestRefresh_PersistFailureKeepsNewSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	srv := fakeapi.New(t)
	user := srv.AddUser("bee@bumbeez.test", "honey123")
	_, refresh := srv.IssueTokens(user.Email)
	sess := session.New()

	store.EXPECT().Get(gomock.Any(), securestore.RefreshTokenKey).Return(refresh, true, nil)
	store.EXPECT().Set(gomock.Any(), securestore.RefreshTokenKey, gomock.Not(refresh)).Return(errors.New("disk full"))

	c := NewClient(srv.URL, sess, store)
	t.Cleanup(c.CloseIdleConnections)

	token, err := c.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, sess.AccessToken())
	assert.Equal(t, user.ID, sess.User().ID)
}

func TestRefreshSession(t *testing.T) {
	t.Run("no stored token", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		require.NoError(t, h.store.Delete(context.Background(), securestore.RefreshTokenKey))

		_, err := h.client.RefreshSession(context.Background())
		require.ErrorIs(t, err, ErrNoRefreshToken)
		assert.False(t, h.sess.IsAuthenticated())
		assert.Empty(t, h.notes.All())
	})

	t.Run("rotates tokens", func(t *testing.T) {
		h := newHarness(t)
		_, oldAccess, oldRefresh := h.signIn(t)

		token, err := h.client.RefreshSession(context.Background())
		require.NoError(t, err)
		assert.NotEqual(t, oldAccess, token)
		assert.Equal(t, token, h.sess.AccessToken())

		stored, ok := h.storedRefresh(t)
		require.True(t, ok)
		assert.NotEqual(t, oldRefresh, stored)
	})
}

func TestResolveUser(t *testing.T) {
	prev := &session.User{ID: "prev", Email: "prev@bumbeez.test"}
	payload := &session.User{ID: "payload", Email: "payload@bumbeez.test"}

	assert.Equal(t, *prev, resolveUser(prev, &RefreshResponse{User: payload}))
	assert.Equal(t, *payload, resolveUser(nil, &RefreshResponse{User: payload}))
	assert.Equal(t, session.User{}, resolveUser(nil, &RefreshResponse{AccessToken: "opaque"}))
}

func TestRejected(t *testing.T) {
	assert.True(t, rejected(&APIError{StatusCode: http.StatusUnauthorized}))
	assert.True(t, rejected(&APIError{StatusCode: http.StatusBadRequest}))
	assert.False(t, rejected(&APIError{StatusCode: http.StatusBadGateway}))
	assert.False(t, rejected(&APIError{Kind: KindNetworkUnreachable}))
	assert.False(t, rejected(errors.New("boom")))
}

// refresh responses encode the optional user the way the server sends it
func TestRefreshResponse_OptionalUser(t *testing.T) {
	var withUser, withoutUser RefreshResponse
	require.NoError(t, json.Unmarshal([]byte(`{"accessToken":"a","refreshToken":"r","user":{"id":"1","email":"x@y.z"}}`), &withUser))
	require.NoError(t, json.Unmarshal([]byte(`{"accessToken":"a","refreshToken":"r"}`), &withoutUser))
	require.NotNil(t, withUser.User)
	assert.Equal(t, "1", withUser.User.ID)
	assert.Nil(t, withoutUser.User)
}
