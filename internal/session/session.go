// Package session holds the in-memory authenticated session: the current
// access token and the user it belongs to. The session is never persisted.
package session

import (
	"errors"
	"sync"
)

// ErrIncompleteCredentials is returned when SetCredentials is called without a token
var ErrIncompleteCredentials = errors.New("session: access token is required")

// User is the profile associated with the current access token
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Snapshot is a consistent copy of the session at one point in time
type Snapshot struct {
	AccessToken string
	User        *User
}

// Authenticated reports whether the snapshot carries credentials
func (s Snapshot) Authenticated() bool {
	return s.AccessToken != ""
}

// State is the process-wide session. The access token and user are always
// set and cleared together. The zero value is an empty session.
type State struct {
	mu          sync.RWMutex
	accessToken string
	user        *User
}

// New creates an empty session
func New() *State {
	return &State{}
}

// SetCredentials replaces the access token and user in one step
func (s *State) SetCredentials(accessToken string, user User) error {
	if accessToken == "" {
		return ErrIncompleteCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.user = &user
	return nil
}

// Clear removes the access token and user
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.user = nil
}

// AccessToken returns the current access token, or "" when signed out
func (s *State) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// User returns a copy of the current user, or nil when signed out
func (s *State) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Snapshot returns the token and user read under one lock
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{AccessToken: s.accessToken}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// IsAuthenticated reports whether an access token is held
func (s *State) IsAuthenticated() bool {
	return s.AccessToken() != ""
}
