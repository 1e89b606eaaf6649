package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"agora/internal/models"
)

var ErrEmptyCredentials = errors.New("username and password are required")

// API is the slice of the REST client the session manager needs.
type API interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Manager owns the authenticated identity for a client run. It is created at
// app start, torn down on logout, and re-created on re-login. All dependents
// receive it explicitly instead of reading ambient global state.
type Manager struct {
	mu    sync.RWMutex
	api   API
	user  *models.User
	token string
}

// NewManager builds an unauthenticated Manager.
func NewManager(api API) *Manager {
	return &Manager{api: api}
}

type loginResult struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Login authenticates against the REST API and stores the identity.
func (m *Manager) Login(ctx context.Context, username, password string) (models.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.Session{}, ErrEmptyCredentials
	}

	var result loginResult
	err := m.api.Post(ctx, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &result)
	if err != nil {
		return models.Session{}, err
	}

	m.mu.Lock()
	m.user = &result.User
	m.token = result.Token
	m.mu.Unlock()

	return m.Current(), nil
}

// Logout destroys the session. Safe to call when not logged in.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.mu.Unlock()
}

// Current returns the session snapshot. Unauthenticated is a valid state, not
// an error: callers degrade to read-only behavior.
func (m *Manager) Current() models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return models.Session{}
	}
	name := m.user.DisplayName
	if name == "" {
		name = m.user.Username
	}
	return models.Session{UserID: m.user.ID, DisplayName: name, Authenticated: true}
}

// Token returns the bearer token for the current session, or "".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}
