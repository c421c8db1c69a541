package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	apperrors "github.com/civicconnect/portal/internal/errors"
	"github.com/civicconnect/portal/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider            = (*MockAuthProvider)(nil)
	_ ports.CredentialAuthenticator = (*StaticAuthenticator)(nil)
	_ ports.DemoAuthenticator       = (*StaticAuthenticator)(nil)
	_ ports.SessionStore            = (*MemorySessionStore)(nil)
	_ ports.RoleMapper              = (*StaticRoleMapper)(nil)
)

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL     string
	StatePrefix string
	NoncePrefix string
	DefaultUser domainauth.Identity

	callCount int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL:     "https://mock-idp/auth",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		DefaultUser: domainauth.Identity{
			UserID:    "mock-user-1",
			Name:      "Mock Citizen",
			Email:     "mock.citizen@example.com",
			Groups:    []string{"citizens"},
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.callCount++
	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}

	state := fmt.Sprintf("%s-%d", statePrefix, m.callCount)
	nonce := fmt.Sprintf("%s-%d", noncePrefix, m.callCount)
	return authURL, state, nonce, nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}

	user := m.DefaultUser
	if user.UserID == "" {
		user = domainauth.Identity{
			UserID: "mock-user-1",
			Name:   "Mock Citizen",
			Email:  "mock.citizen@example.com",
			Groups: []string{"citizens"},
		}
	}
	user.ExpiresAt = time.Now().Add(time.Hour)
	return user, nil
}

// StaticAuthenticator accepts a fixed table of accounts. It serves both the
// credential and the demo ports.
type StaticAuthenticator struct {
	// Accounts is keyed by email.
	Accounts map[string]StaticAccount
	// Err, when set, is returned from every call.
	Err error
}

// StaticAccount is a single entry of StaticAuthenticator.
type StaticAccount struct {
	Password string
	Identity domainauth.Identity
}

func (s *StaticAuthenticator) Authenticate(_ context.Context, creds domainauth.Credentials) (domainauth.Identity, error) {
	if s.Err != nil {
		return domainauth.Identity{}, s.Err
	}
	acct, ok := s.Accounts[creds.Email]
	if !ok || acct.Password != creds.Password {
		return domainauth.Identity{}, domainauth.ErrInvalidCredentials
	}
	return withFreshExpiry(acct.Identity), nil
}

func (s *StaticAuthenticator) DemoIdentity(_ context.Context, role domainauth.Role) (domainauth.Identity, error) {
	if s.Err != nil {
		return domainauth.Identity{}, s.Err
	}
	for _, acct := range s.Accounts {
		if acct.Identity.Role == role {
			return withFreshExpiry(acct.Identity), nil
		}
	}
	return domainauth.Identity{}, ErrNotFound
}

func withFreshExpiry(id domainauth.Identity) domainauth.Identity {
	if id.ExpiresAt.IsZero() {
		id.ExpiresAt = time.Now().Add(time.Hour)
	}
	return id
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session

	// GetErr, when set, is returned from Get to simulate an unreadable store.
	GetErr error
	// Gets counts calls to Get.
	Gets int
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetErr != nil {
		return domainauth.Session{}, m.GetErr
	}
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ErrNotFound is returned by mocks when an entity is not present.
var ErrNotFound error = apperrors.NotFound("not found")

// StaticRoleMapper maps groups by simple string membership rules.
type StaticRoleMapper struct {
	AdminGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	for _, g := range groups {
		if m.AdminGroup != "" && g == m.AdminGroup {
			return domainauth.RoleAdmin
		}
	}
	return domainauth.RoleCitizen
}
