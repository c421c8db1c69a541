package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/ports"
	"github.com/google/uuid"
)

// DefaultSessionTTL applies when an identity carries no expiry of its own.
const DefaultSessionTTL = 12 * time.Hour

// Role landing pages.
const (
	AdminDashboardPath   = "/dashboard/admin"
	CitizenDashboardPath = "/dashboard/citizen"
)

// AuthServiceOptions groups dependencies for AuthService.
// Provider, Credentials and Demo are optional; the matching login flows
// report ErrLoginModeDisabled when theirs is nil.
type AuthServiceOptions struct {
	Provider    ports.AuthProvider
	Credentials ports.CredentialAuthenticator
	Demo        ports.DemoAuthenticator
	Sessions    ports.SessionStore
	Roles       ports.RoleMapper
	SessionTTL  time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// AuthService orchestrates authentication flows by coordinating providers, role mapping, and session persistence.
type AuthService struct {
	provider    ports.AuthProvider
	credentials ports.CredentialAuthenticator
	demo        ports.DemoAuthenticator
	sessions    ports.SessionStore
	roles       ports.RoleMapper
	ttl         time.Duration
	base        *slog.Logger
	logger      *slog.Logger
	now         func() time.Time
}

var (
	// ErrSessionExpired is returned by GetSession for a stored but expired session.
	ErrSessionExpired = errors.New("session expired")
	// ErrLoginModeDisabled is returned when a login flow has no backing provider.
	ErrLoginModeDisabled = errors.New("login mode not enabled")
)

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider:    opts.Provider,
		credentials: opts.Credentials,
		demo:        opts.Demo,
		sessions:    opts.Sessions,
		roles:       opts.Roles,
		ttl:         ttl,
		base:        logger,
		logger:      logger.With("component", "auth_service"),
		now:         now,
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.provider == nil {
		return nil, ErrLoginModeDisabled
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{
		AuthURL: authURL,
		State:   state,
		Nonce:   nonce,
	}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// LoginResult contains the session created by a successful login.
type LoginResult struct {
	Session domainauth.Session
}

// CompleteLogin exchanges the authorization code for an identity, maps its role,
// and persists a session.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*LoginResult, error) {
	if s.provider == nil {
		return nil, ErrLoginModeDisabled
	}
	if input.Code == "" {
		return nil, errors.New("authorization code is required")
	}
	if input.State == "" {
		return nil, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	return s.startSession(ctx, identity)
}

// Login verifies credentials with the authentication service and persists a session.
// Rejected credentials surface as domainauth.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, creds domainauth.Credentials) (*LoginResult, error) {
	if s.credentials == nil {
		return nil, ErrLoginModeDisabled
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return nil, domainauth.ErrInvalidCredentials
	}

	identity, err := s.credentials.Authenticate(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return s.startSession(ctx, identity)
}

// DemoLogin signs in as the demo account holding role.
func (s *AuthService) DemoLogin(ctx context.Context, role domainauth.Role) (*LoginResult, error) {
	if s.demo == nil {
		return nil, ErrLoginModeDisabled
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	identity, err := s.demo.DemoIdentity(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("demo identity: %w", err)
	}
	return s.startSession(ctx, identity)
}

func (s *AuthService) startSession(ctx context.Context, identity domainauth.Identity) (*LoginResult, error) {
	now := s.now()
	session := domainauth.Session{
		ID:          generateSessionID(),
		UserID:      identity.UserID,
		Name:        identity.Name,
		Email:       identity.Email,
		Role:        s.resolveRole(identity),
		AccessToken: identity.AccessToken,
		IssuedAt:    identity.IssuedAt,
		ExpiresAt:   identity.ExpiresAt,
	}
	if session.IssuedAt.IsZero() {
		session.IssuedAt = now
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = now.Add(s.ttl)
	}

	if !session.Complete() {
		return nil, fmt.Errorf("identity for %q is missing required fields", identity.Email)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.InfoContext(ctx, "session started",
		"user_id", session.UserID,
		"role", string(session.Role),
		"expires_at", session.ExpiresAt,
	)
	return &LoginResult{Session: session}, nil
}

// resolveRole keeps a role the identity source asserted; otherwise groups are mapped.
func (s *AuthService) resolveRole(identity domainauth.Identity) domainauth.Role {
	if identity.Role.Valid() {
		return identity.Role
	}
	if s.roles != nil {
		return s.roles.Map(identity.Groups)
	}
	return domainauth.RoleCitizen
}

// GetSession retrieves a session by ID. Expired and corrupt records are removed.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainauth.ErrCorruptSession) {
			s.discard(ctx, sessionID)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Expired(s.now()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(ErrSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, ErrSessionExpired
	}

	return &session, nil
}

func (s *AuthService) discard(ctx context.Context, sessionID string) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "failed to delete corrupt session", "error", err)
	}
}

// Logout removes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil // Nothing to logout
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// Oracle returns a fresh SessionOracle for sessionID.
func (s *AuthService) Oracle(sessionID string) *SessionOracle {
	return NewSessionOracle(SessionOracleOptions{
		Store:     s.sessions,
		SessionID: sessionID,
		Now:       s.now,
		Logger:    s.base,
	})
}

// LandingPath returns the dashboard a freshly signed-in user is sent to.
func LandingPath(role domainauth.Role) string {
	if role == domainauth.RoleAdmin {
		return AdminDashboardPath
	}
	return CitizenDashboardPath
}

// generateSessionID creates a random, URL-safe session ID.
func generateSessionID() string {
	return uuid.New().String()
}
