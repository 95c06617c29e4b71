// Package fakeapi is an in-process Bumbeez API for tests. It issues JWT
// access tokens and rotating refresh tokens, and counts the calls it sees.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

var signingKey = []byte("fakeapi-signing-key")

// User is an account known to the fake server
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	password  string
}

// Server is a fake Bumbeez API backed by httptest
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	users       map[string]*User // by email
	access      map[string]string
	refresh     map[string]string
	seq         int
	calls       map[string]int
	meTokens    []string
	logoutAuth  []string
	refreshWait time.Duration
	refreshFail int
	omitUser    bool
}

// New starts a fake server that is closed when the test ends
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:   make(map[string]*User),
		access:  make(map[string]string),
		refresh: make(map[string]string),
		calls:   make(map[string]int),
	}

	r := mux.NewRouter()
	r.Use(s.count)
	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/users/me", s.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/status/{code:[0-9]{3}}", s.handleStatus)
	r.HandleFunc("/echo", s.requireAuth(s.handleEcho))

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddUser registers an account directly
func (s *Server) AddUser(email, password string) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.addUserLocked(email, password, "", "")
}

// IssueTokens mints a valid access/refresh pair for email
func (s *Server) IssueTokens(email string) (accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[email]
	return s.mintAccessLocked(u), s.mintRefreshLocked(u)
}

// ExpireAccessTokens invalidates every access token issued so far
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]string)
}

// RevokeRefreshTokens invalidates every refresh token issued so far
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]string)
}

// SetRefreshDelay makes /auth/refresh wait before answering
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshWait = d
}

// FailRefreshWith makes /auth/refresh answer with status (0 restores normal behavior)
func (s *Server) FailRefreshWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFail = status
}

// OmitUserOnRefresh drops the user from refresh responses
func (s *Server) OmitUserOnRefresh(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitUser = omit
}

// Calls returns how many requests hit path
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// MeTokens returns the access tokens of successful /users/me calls, in order
func (s *Server) MeTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.meTokens...)
}

// LogoutAuthorizations returns the Authorization headers sent to /auth/logout
func (s *Server) LogoutAuthorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logoutAuth...)
}

// ValidRefreshToken reports whether token is currently accepted
func (s *Server) ValidRefreshToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.refresh[token]
	return ok
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[body.Email]; exists {
		writeError(w, http.StatusConflict, "An account with this email already exists.")
		return
	}
	u := s.addUserLocked(body.Email, body.Password, body.Firstname, body.Lastname)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[body.Email]
	if !ok || u.password != body.Password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken":  s.mintAccessLocked(u),
		"refreshToken": s.mintRefreshLocked(u),
		"user":         u,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	wait := s.refreshWait
	s.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshFail != 0 {
		writeError(w, s.refreshFail, "Refresh unavailable.")
		return
	}

	email, ok := s.refresh[body.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token.")
		return
	}
	// rotation: the presented token is spent
	delete(s.refresh, body.RefreshToken)

	u := s.users[email]
	resp := map[string]interface{}{
		"accessToken":  s.mintAccessLocked(u),
		"refreshToken": s.mintRefreshLocked(u),
	}
	if !s.omitUser {
		resp["user"] = u
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutAuth = append(s.logoutAuth, auth)

	token := strings.TrimPrefix(auth, "Bearer ")
	email, ok := s.access[token]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not signed in.")
		return
	}
	delete(s.access, token)
	for rt, owner := range s.refresh {
		if owner == email {
			delete(s.refresh, rt)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.access[token]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Token expired.")
		return
	}
	s.meTokens = append(s.meTokens, token)
	writeJSON(w, http.StatusOK, s.users[email])
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	code, _ := strconv.Atoi(mux.Vars(r)["code"])
	if msg := r.URL.Query().Get("message"); msg != "" {
		writeError(w, code, msg)
		return
	}
	w.WriteHeader(code)
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	_ = json.NewDecoder(r.Body).Decode(&body)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"method":    r.Method,
		"requestId": r.Header.Get("X-Request-ID"),
		"body":      body,
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		_, ok := s.access[token]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token expired.")
			return
		}
		next(w, r)
	}
}

func (s *Server) addUserLocked(email, password, first, last string) *User {
	s.seq++
	u := &User{
		ID:        fmt.Sprintf("user-%d", s.seq),
		Email:     email,
		Firstname: first,
		Lastname:  last,
		password:  password,
	}
	s.users[email] = u
	return u
}

func (s *Server) mintAccessLocked(u *User) string {
	s.seq++
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
		"jti":   strconv.Itoa(s.seq),
	}).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	s.access[tok] = u.Email
	return tok
}

func (s *Server) mintRefreshLocked(u *User) string {
	s.seq++
	tok := fmt.Sprintf("refresh-%d", s.seq)
	s.refresh[tok] = u.Email
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
