// Package civicapi signs citizens in against the civic authentication API.
package civicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/ports"
)

const maxResponseBytes = 1 << 20

// FieldPaths are JMESPath expressions locating identity fields in the
// /auth/me profile document.
type FieldPaths struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// DefaultFieldPaths matches the civic API's user response.
func DefaultFieldPaths() FieldPaths {
	return FieldPaths{UserID: "id", Email: "email", Name: "full_name", Role: "role"}
}

// Config configures the client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Fields     FieldPaths
	// TokenSecret verifies access token signatures when set.
	TokenSecret string
	Logger      *slog.Logger
	Now         func() time.Time
}

// Client implements ports.CredentialAuthenticator over HTTP.
type Client struct {
	base      *url.URL
	http      *http.Client
	fields    FieldPaths
	inspector *TokenInspector
	logger    *slog.Logger
	now       func() time.Time
}

var _ ports.CredentialAuthenticator = (*Client)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid auth API base URL %q", cfg.BaseURL)
	}

	fields := cfg.Fields
	defaults := DefaultFieldPaths()
	fields.UserID = firstNonEmpty(fields.UserID, defaults.UserID)
	fields.Email = firstNonEmpty(fields.Email, defaults.Email)
	fields.Name = firstNonEmpty(fields.Name, defaults.Name)
	fields.Role = firstNonEmpty(fields.Role, defaults.Role)
	for _, expr := range []string{fields.UserID, fields.Email, fields.Name, fields.Role} {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("invalid profile field expression %q: %w", expr, err)
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	inspector := NewTokenInspector(cfg.TokenSecret)
	inspector.now = now

	return &Client{
		base:      base,
		http:      client,
		fields:    fields,
		inspector: inspector,
		logger:    logger.With("component", "civic_auth_api"),
		now:       now,
	}, nil
}

// Authenticate exchanges creds for an access token and loads the profile.
func (c *Client) Authenticate(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error) {
	tok, err := c.login(ctx, creds)
	if err != nil {
		return domainauth.Identity{}, err
	}

	claims, err := c.inspector.Inspect(tok.AccessToken)
	if err != nil {
		c.logger.WarnContext(ctx, "access token rejected", "error", err)
		return domainauth.Identity{}, err
	}

	profile, err := c.profile(ctx, tok.AccessToken)
	if err != nil {
		return domainauth.Identity{}, err
	}

	now := c.now()
	id := domainauth.Identity{
		UserID:      firstNonEmpty(c.field(profile, c.fields.UserID), claims.Subject),
		Email:       firstNonEmpty(c.field(profile, c.fields.Email), claims.Email),
		Name:        c.field(profile, c.fields.Name),
		AccessToken: tok.AccessToken,
		IssuedAt:    claims.IssuedAt,
		ExpiresAt:   claims.ExpiresAt,
	}
	if role, ok := domainauth.ParseRole(firstNonEmpty(c.field(profile, c.fields.Role), claims.Role)); ok {
		id.Role = role
	}
	if id.IssuedAt.IsZero() {
		id.IssuedAt = now
	}
	if id.ExpiresAt.IsZero() && tok.ExpiresIn > 0 {
		id.ExpiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return id, nil
}

func (c *Client) login(ctx context.Context, creds domainauth.Credentials) (tokenResponse, error) {
	body, err := json.Marshal(loginRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		return tokenResponse{}, fmt.Errorf("encode login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/auth/login"), bytes.NewReader(body))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var tok tokenResponse
	if err := c.do(req, &tok); err != nil {
		return tokenResponse{}, err
	}
	if tok.AccessToken == "" {
		return tokenResponse{}, errors.New("auth API returned no access token")
	}
	return tok, nil
}

func (c *Client) profile(ctx context.Context, accessToken string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/auth/me"), nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	var profile any
	if err := c.do(req, &profile); err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth API %s: %w", req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body := io.LimitReader(resp.Body, maxResponseBytes)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, body)
		return domainauth.ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, body)
		return fmt.Errorf("auth API %s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// field evaluates expr against the profile and returns a string result.
func (c *Client) field(profile any, expr string) string {
	v, err := jmespath.Search(expr, profile)
	if err != nil {
		c.logger.Debug("profile field lookup failed", "expr", expr, "error", err)
		return ""
	}
	s, _ := v.(string)
	return s
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
