// Package devauth is the demo sign-in backend. It serves fixed accounts from a
// YAML file (or built-in defaults) and is only wired when AUTH_MODE=demo.
package devauth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/ports"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const defaultSessionDuration = 8 * time.Hour

// ErrNoDemoAccount is returned by DemoIdentity when no account has the role.
var ErrNoDemoAccount = errors.New("no demo account for role")

// Account is one demo user. Password is hashed on load and may be omitted
// when PasswordHash is set.
type Account struct {
	UserID       string `yaml:"user_id"`
	Email        string `yaml:"email"`
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	Password     string `yaml:"password,omitempty"`
	PasswordHash string `yaml:"password_hash,omitempty"`
}

type accountsFile struct {
	Accounts []Account `yaml:"accounts"`
}

// Config controls the demo provider.
type Config struct {
	Accounts []Account
	// InferRoleFromEmail signs in unknown emails with a role guessed from the
	// address ("admin" or "gov" means admin). Demo only.
	InferRoleFromEmail bool
	SessionDuration    time.Duration
	// BcryptCost applies to plain passwords hashed on load. Defaults to bcrypt.DefaultCost.
	BcryptCost int
	Now        func() time.Time
}

// Provider implements ports.CredentialAuthenticator and ports.DemoAuthenticator.
type Provider struct {
	accounts map[string]account
	order    []string
	infer    bool
	duration time.Duration
	now      func() time.Time
}

type account struct {
	Account
	role domainauth.Role
	hash []byte
}

var (
	_ ports.CredentialAuthenticator = (*Provider)(nil)
	_ ports.DemoAuthenticator       = (*Provider)(nil)
)

// DefaultAccounts returns the built-in demo users.
func DefaultAccounts() []Account {
	return []Account{
		{UserID: "demo-citizen", Email: "rajesh.kumar@demo.com", Name: "Rajesh Kumar", Role: "citizen", Password: "password123"},
		{UserID: "demo-admin", Email: "admin@civicconnect.gov.in", Name: "Dr. Suresh Mehta", Role: "admin", Password: "admin123"},
		{UserID: "demo-pwd-head", Email: "pwd.head@civicconnect.gov.in", Name: "Shri Ramesh Gupta", Role: "department_head", Password: "password123"},
		{UserID: "demo-moderator", Email: "moderator@civicconnect.gov.in", Name: "Kavita Nair", Role: "moderator", Password: "password123"},
	}
}

// LoadAccounts reads accounts from a YAML file of the form
//
//	accounts:
//	  - email: a@b.in
//	    role: citizen
//	    password_hash: $2a$10$...
func LoadAccounts(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read demo accounts: %w", err)
	}
	var f accountsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse demo accounts: %w", err)
	}
	return f.Accounts, nil
}

// MarshalAccounts renders accounts in the LoadAccounts format.
func MarshalAccounts(accounts []Account) ([]byte, error) {
	return yaml.Marshal(accountsFile{Accounts: accounts})
}

// HashPassword returns the bcrypt hash stored in password_hash.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// NewProvider validates cfg and hashes any plain passwords.
func NewProvider(cfg Config) (*Provider, error) {
	accounts := cfg.Accounts
	if len(accounts) == 0 {
		accounts = DefaultAccounts()
	}
	p := &Provider{
		accounts: make(map[string]account, len(accounts)),
		infer:    cfg.InferRoleFromEmail,
		duration: cfg.SessionDuration,
		now:      cfg.Now,
	}
	if p.duration <= 0 {
		p.duration = defaultSessionDuration
	}
	if p.now == nil {
		p.now = time.Now
	}

	for i, a := range accounts {
		acc, err := prepare(a, cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("demo account %d: %w", i, err)
		}
		key := normalizeEmail(a.Email)
		if _, dup := p.accounts[key]; dup {
			return nil, fmt.Errorf("demo account %d: duplicate email %s", i, a.Email)
		}
		p.accounts[key] = acc
		p.order = append(p.order, key)
	}
	return p, nil
}

func prepare(a Account, cost int) (account, error) {
	if strings.TrimSpace(a.Email) == "" {
		return account{}, errors.New("email is required")
	}
	role, ok := domainauth.ParseRole(a.Role)
	if !ok {
		return account{}, fmt.Errorf("unknown role %q", a.Role)
	}
	hash := []byte(a.PasswordHash)
	if len(hash) == 0 {
		if a.Password == "" {
			return account{}, errors.New("password or password_hash is required")
		}
		h, err := HashPassword(a.Password, cost)
		if err != nil {
			return account{}, err
		}
		hash = []byte(h)
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return account{}, fmt.Errorf("invalid password_hash: %w", err)
	}
	if a.UserID == "" {
		a.UserID = "demo-" + normalizeEmail(a.Email)
	}
	if a.Name == "" {
		a.Name = a.Email
	}
	a.Password = ""
	return account{Account: a, role: role, hash: hash}, nil
}

// Authenticate checks creds against the demo accounts.
func (p *Provider) Authenticate(_ context.Context, creds domainauth.Credentials) (domainauth.Identity, error) {
	key := normalizeEmail(creds.Email)
	acc, ok := p.accounts[key]
	if !ok {
		if p.infer && key != "" && creds.Password != "" {
			return p.identity(Account{UserID: "demo-" + key, Email: key, Name: key}, InferRoleFromEmail(key)), nil
		}
		return domainauth.Identity{}, domainauth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(creds.Password)); err != nil {
		return domainauth.Identity{}, domainauth.ErrInvalidCredentials
	}
	return p.identity(acc.Account, acc.role), nil
}

// DemoIdentity returns the first account holding role.
func (p *Provider) DemoIdentity(_ context.Context, role domainauth.Role) (domainauth.Identity, error) {
	for _, key := range p.order {
		if acc := p.accounts[key]; acc.role == role {
			return p.identity(acc.Account, acc.role), nil
		}
	}
	return domainauth.Identity{}, fmt.Errorf("%w %q", ErrNoDemoAccount, role)
}

// Accounts lists the configured demo users without credentials.
func (p *Provider) Accounts() []Account {
	out := make([]Account, 0, len(p.order))
	for _, key := range p.order {
		a := p.accounts[key].Account
		a.PasswordHash = ""
		out = append(out, a)
	}
	return out
}

func (p *Provider) identity(a Account, role domainauth.Role) domainauth.Identity {
	now := p.now()
	return domainauth.Identity{
		UserID:    a.UserID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(p.duration),
	}
}

// InferRoleFromEmail guesses a role from an address: "admin" or "gov" in the
// address means admin, anything else is a citizen.
func InferRoleFromEmail(email string) domainauth.Role {
	e := strings.ToLower(email)
	if strings.Contains(e, "admin") || strings.Contains(e, "gov") {
		return domainauth.RoleAdmin
	}
	return domainauth.RoleCitizen
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
