package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModePassword signs users in with email and password against the civic auth API.
	AuthModePassword AuthMode = "password"
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeDemo uses the fixed demo accounts (never in production).
	AuthModeDemo AuthMode = "demo"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "password", "oauth", "demo":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: password, oauth, demo)", v)
	}
}

// SessionStoreKind selects where sessions and drafts are kept.
type SessionStoreKind string

const (
	SessionStoreRedis  SessionStoreKind = "redis"
	SessionStoreMemory SessionStoreKind = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionStoreKind.
func (k *SessionStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "redis", "memory":
		*k = SessionStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionStore: %q (valid options: redis, memory)", v)
	}
}

// AuthAPIConfig points at the civic authentication API used in password mode.
type AuthAPIConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:8000"`
	Timeout time.Duration `env:"TIMEOUT"  envDefault:"10s"`
	// TokenSecret verifies access token signatures (HS256). Empty skips verification.
	TokenSecret string `env:"TOKEN_SECRET"`

	// JMESPath expressions locating identity fields in the /auth/me response.
	UserIDField string `env:"FIELD_USER_ID" envDefault:"id"`
	EmailField  string `env:"FIELD_EMAIL"   envDefault:"email"`
	NameField   string `env:"FIELD_NAME"    envDefault:"full_name"`
	RoleField   string `env:"FIELD_ROLE"    envDefault:"role"`
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"civic-portal"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// RoleClaim names an ID token claim carrying the portal role verbatim.
	RoleClaim string `env:"ROLE_CLAIM"`
	LogoutURL string `env:"LOGOUT_URL"`
}

// DemoAuthConfig controls the demo accounts used when AUTH_MODE=demo.
type DemoAuthConfig struct {
	// AccountsFile is a YAML file of accounts; empty uses the built-in set.
	AccountsFile       string        `env:"ACCOUNTS_FILE"`
	InferRoleFromEmail bool          `env:"INFER_ROLE_FROM_EMAIL" envDefault:"false"`
	SessionDuration    time.Duration `env:"SESSION_DURATION"      envDefault:"8h"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"password"`

	API   AuthAPIConfig  `envPrefix:"AUTH_API_"`
	OAuth OAuthConfig    `envPrefix:"OAUTH_"`
	Demo  DemoAuthConfig `envPrefix:"DEMO_AUTH_"`

	// Group names mapped to roles when the identity carries groups instead of a role.
	AdminGroup          string `env:"ADMIN_GROUP"`
	DepartmentHeadGroup string `env:"DEPARTMENT_HEAD_GROUP"`
	ModeratorGroup      string `env:"MODERATOR_GROUP"`

	SessionStore SessionStoreKind `env:"SESSION_STORE"  envDefault:"redis"`
	// SessionTTL applies when the identity source reports no expiry.
	SessionTTL time.Duration `env:"SESSION_TTL"    envDefault:"12h"`
	DraftTTL   time.Duration `env:"DRAFT_TTL"      envDefault:"24h"`
	CookieName string        `env:"SESSION_COOKIE" envDefault:"session_id"`

	LoginPath        string `env:"AUTH_LOGIN_PATH"        envDefault:"/login"`
	UnauthorizedPath string `env:"AUTH_UNAUTHORIZED_PATH" envDefault:"/unauthorized"`
}

// Sanitize trims values and fills derived defaults.
func (c *AuthConfig) Sanitize() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.OAuth.DiscoveryURL = strings.TrimSpace(c.OAuth.DiscoveryURL)
	c.Demo.AccountsFile = strings.TrimSpace(c.Demo.AccountsFile)
	if c.CookieName = strings.TrimSpace(c.CookieName); c.CookieName == "" {
		c.CookieName = "session_id"
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 12 * time.Hour
	}
	if c.DraftTTL <= 0 {
		c.DraftTTL = 24 * time.Hour
	}
	if c.Mode != AuthModeDemo {
		// inference is a demo-only convenience
		c.Demo.InferRoleFromEmail = false
	}
}

// Validate reports settings the selected mode cannot run without.
func (c *AuthConfig) Validate() error {
	var errs []error
	switch c.Mode {
	case AuthModePassword:
		if c.API.BaseURL == "" {
			errs = append(errs, errors.New("AUTH_API_BASE_URL is required in password mode"))
		}
	case AuthModeOAuth:
		if c.OAuth.DiscoveryURL == "" || c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" {
			errs = append(errs, errors.New("OAUTH_DISCOVERY_URL, OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required in oauth mode"))
		}
	case AuthModeDemo:
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.Mode))
	}
	for name, p := range map[string]string{
		"AUTH_LOGIN_PATH":        c.LoginPath,
		"AUTH_UNAUTHORIZED_PATH": c.UnauthorizedPath,
	} {
		if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
			errs = append(errs, fmt.Errorf("%s must be a local path, got %q", name, p))
		}
	}
	return errors.Join(errs...)
}
