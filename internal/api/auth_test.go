package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bumbeez/bumbeez-cli/internal/securestore"
	"github.com/bumbeez/bumbeez-cli/internal/session"
)

func TestRegister(t *testing.T) {
	h := newHarness(t)

	user, err := h.client.Register(context.Background(), &RegisterRequest{
		Email:     "new@bumbeez.test",
		Password:  "honey123",
		Firstname: "Maya",
		Lastname:  "Bee",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@bumbeez.test", user.Email)
	assert.NotEmpty(t, user.ID)
	assert.False(t, h.sess.IsAuthenticated(), "registering does not sign in")
}

func TestRegister_Duplicate(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("taken@bumbeez.test", "honey123")

	_, err := h.client.Register(context.Background(), &RegisterRequest{
		Email:     "taken@bumbeez.test",
		Password:  "honey123",
		Firstname: "Maya",
		Lastname:  "Bee",
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "An account with this email already exists.", apiErr.Message)
	assert.Equal(t, []string{"An account with this email already exists."}, h.notes.Messages())
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) error
	}{
		{
			name: "register bad email",
			call: func(c *Client) error {
				_, err := c.Register(context.Background(), &RegisterRequest{Email: "nope", Password: "honey123", Firstname: "a", Lastname: "b"})
				return err
			},
		},
		{
			name: "register short password",
			call: func(c *Client) error {
				_, err := c.Register(context.Background(), &RegisterRequest{Email: "a@b.co", Password: "123", Firstname: "a", Lastname: "b"})
				return err
			},
		},
		{
			name: "register missing name",
			call: func(c *Client) error {
				_, err := c.Register(context.Background(), &RegisterRequest{Email: "a@b.co", Password: "honey123"})
				return err
			},
		},
		{
			name: "login missing password",
			call: func(c *Client) error {
				_, err := c.Login(context.Background(), &LoginRequest{Email: "a@b.co"})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := tt.call(h.client)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, 0, h.srv.Calls(PathRegister)+h.srv.Calls(PathLogin), "invalid input never reaches the network")
			assert.Empty(t, h.notes.All())
		})
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	user := h.srv.AddUser("bee@bumbeez.test", "honey123")

	resp, err := h.client.Login(context.Background(), &LoginRequest{Email: user.Email, Password: "honey123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.True(t, h.srv.ValidRefreshToken(resp.RefreshToken))
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, user.Email, resp.User.Email)
}

func TestLogin_MissingTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathLogin, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"1","email":"a@b.co"}}`))
	})
	c := newCaptureClient(t, mux, session.New(), securestore.NewMemoryStore())

	_, err := c.Login(context.Background(), &LoginRequest{Email: "a@b.co", Password: "x"})
	assert.ErrorContains(t, err, "missing tokens")
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	_, access, refresh := h.signIn(t)

	require.NoError(t, h.client.Logout(context.Background()))
	assert.Equal(t, []string{"Bearer " + access}, h.srv.LogoutAuthorizations())
	assert.False(t, h.srv.ValidRefreshToken(refresh))
}
