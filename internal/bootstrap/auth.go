package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/civicconnect/portal/config"
	"github.com/civicconnect/portal/internal/adapters/authroles"
	"github.com/civicconnect/portal/internal/adapters/civicapi"
	"github.com/civicconnect/portal/internal/adapters/devauth"
	"github.com/civicconnect/portal/internal/adapters/oidc"
	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/ports"
	"github.com/civicconnect/portal/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth     config.AuthConfig
	Sessions ports.SessionStore
	Logger   *slog.Logger
}

// AuthBundle is the auth service plus the roles the login page offers for
// one-click demo sign-in.
type AuthBundle struct {
	Service   *service.AuthService
	DemoRoles []domainauth.Role
}

// BuildAuthService creates an auth service for the configured auth mode.
func BuildAuthService(ctx context.Context, cfg AuthConfig) (*AuthBundle, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("auth: session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := service.AuthServiceOptions{
		Sessions: cfg.Sessions,
		Roles: authroles.StaticRoleMapper{
			AdminGroup:          cfg.Auth.AdminGroup,
			DepartmentHeadGroup: cfg.Auth.DepartmentHeadGroup,
			ModeratorGroup:      cfg.Auth.ModeratorGroup,
		},
		SessionTTL: cfg.Auth.SessionTTL,
		Logger:     logger,
	}
	var demoRoles []domainauth.Role

	switch cfg.Auth.Mode {
	case config.AuthModePassword:
		client, err := buildCivicAPIClient(cfg.Auth.API, logger)
		if err != nil {
			return nil, err
		}
		opts.Credentials = client

	case config.AuthModeOAuth:
		prov, err := buildOIDCProvider(ctx, cfg.Auth.OAuth)
		if err != nil {
			return nil, err
		}
		opts.Provider = prov

	case config.AuthModeDemo:
		prov, err := buildDemoProvider(cfg.Auth.Demo)
		if err != nil {
			return nil, err
		}
		opts.Credentials = prov
		opts.Demo = prov
		demoRoles = demoRolesOf(prov.Accounts())
		logger.Warn("demo authentication enabled; do not use in production",
			"accounts", len(prov.Accounts()),
			"infer_role_from_email", cfg.Auth.Demo.InferRoleFromEmail,
		)

	default:
		return nil, fmt.Errorf("auth: unsupported mode %q", cfg.Auth.Mode)
	}

	logger.Info("auth service configured", "mode", cfg.Auth.Mode)
	return &AuthBundle{Service: service.NewAuthService(opts), DemoRoles: demoRoles}, nil
}

func buildCivicAPIClient(api config.AuthAPIConfig, logger *slog.Logger) (*civicapi.Client, error) {
	client, err := civicapi.New(civicapi.Config{
		BaseURL:    api.BaseURL,
		HTTPClient: &http.Client{Timeout: api.Timeout},
		Fields: civicapi.FieldPaths{
			UserID: api.UserIDField,
			Email:  api.EmailField,
			Name:   api.NameField,
			Role:   api.RoleField,
		},
		TokenSecret: api.TokenSecret,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("auth api client: %w", err)
	}
	return client, nil
}

func buildOIDCProvider(ctx context.Context, oauth config.OAuthConfig) (*oidc.Provider, error) {
	prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
		RoleClaim:    oauth.RoleClaim,
	})
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	return prov, nil
}

func buildDemoProvider(demo config.DemoAuthConfig) (*devauth.Provider, error) {
	var accounts []devauth.Account
	if demo.AccountsFile != "" {
		loaded, err := devauth.LoadAccounts(demo.AccountsFile)
		if err != nil {
			return nil, fmt.Errorf("demo accounts: %w", err)
		}
		accounts = loaded
	}
	prov, err := devauth.NewProvider(devauth.Config{
		Accounts:           accounts,
		InferRoleFromEmail: demo.InferRoleFromEmail,
		SessionDuration:    demo.SessionDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("demo provider: %w", err)
	}
	return prov, nil
}

// demoRolesOf lists the roles some account can sign in as, in AllRoles order.
func demoRolesOf(accounts []devauth.Account) []domainauth.Role {
	held := make(map[domainauth.Role]bool, len(accounts))
	for _, a := range accounts {
		if role, ok := domainauth.ParseRole(a.Role); ok {
			held[role] = true
		}
	}
	var roles []domainauth.Role
	for _, role := range domainauth.AllRoles() {
		if held[role] {
			roles = append(roles, role)
		}
	}
	return roles
}
