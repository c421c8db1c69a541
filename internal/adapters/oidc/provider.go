// Package oidc signs portal users in through an OpenID Connect identity provider.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/ports"
	"golang.org/x/oauth2"
)

const randomLength = 32

var (
	errMissingIDToken = errors.New("missing id_token in token response")
	errInvalidNonce   = errors.New("invalid nonce")
)

// Provider implements ports.AuthProvider using OIDC discovery and the
// authorization code flow.
type Provider struct {
	config    *oauth2.Config
	client    *http.Client
	provider  *gooidc.Provider
	verifier  *gooidc.IDTokenVerifier
	roleClaim string
}

var _ ports.AuthProvider = (*Provider)(nil)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	// RoleClaim names a claim carrying the portal role directly. When the
	// claim is absent the role is derived from groups.
	RoleClaim  string
	HTTPClient *http.Client // Optional, defaults to a 30s client
}

// NewProvider runs discovery against cfg.DiscoveryURL and returns a Provider.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	switch {
	case cfg.ClientID == "":
		return nil, errors.New("client ID is required")
	case cfg.ClientSecret == "":
		return nil, errors.New("client secret is required")
	case cfg.RedirectURL == "":
		return nil, errors.New("redirect URL is required")
	case cfg.DiscoveryURL == "":
		return nil, errors.New("discovery URL is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")

	op, err := gooidc.NewProvider(gooidc.ClientContext(ctx, client), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	scopes := strings.Fields(cfg.Scope)
	if !slices.Contains(scopes, gooidc.ScopeOpenID) {
		scopes = append([]string{gooidc.ScopeOpenID}, scopes...)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		client:    client,
		provider:  op,
		verifier:  op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		roleClaim: cfg.RoleClaim,
	}, nil
}

// Begin returns the provider authorization URL with fresh state and nonce.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}
	state, err := randomString(randomLength)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(randomLength)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	authURL := p.config.AuthCodeURL(state, gooidc.Nonce(nonce))
	return authURL, state, nonce, nil
}

// Exchange trades the authorization code for tokens, verifies the ID token
// and nonce, and fills gaps from the userinfo endpoint.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.Identity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.client)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	c, err := p.verifiedClaims(ctx, token, in.Nonce)
	if err != nil {
		return domainauth.Identity{}, err
	}
	if c.Email == "" || c.Sub == "" {
		ui, uiErr := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
		if uiErr != nil {
			return domainauth.Identity{}, fmt.Errorf("get user info: %w", uiErr)
		}
		var extra claims
		if err := ui.Claims(&extra); err != nil {
			return domainauth.Identity{}, fmt.Errorf("decode user info: %w", err)
		}
		c = c.merge(extra)
	}

	id := c.identity(p.roleClaim)
	id.AccessToken = token.AccessToken
	id.IssuedAt = time.Now()
	id.ExpiresAt = token.Expiry
	if id.ExpiresAt.IsZero() {
		id.ExpiresAt = id.IssuedAt.Add(time.Hour)
	}
	return id, nil
}

func (p *Provider) verifiedClaims(ctx context.Context, token *oauth2.Token, nonce string) (claims, error) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return claims{}, errMissingIDToken
	}
	idTok, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return claims{}, fmt.Errorf("verify id_token: %w", err)
	}
	if idTok.Nonce != nonce {
		return claims{}, errInvalidNonce
	}
	var c claims
	if err := idTok.Claims(&c); err != nil {
		return claims{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	if p.roleClaim != "" {
		var all map[string]any
		if err := idTok.Claims(&all); err == nil {
			if v, ok := all[p.roleClaim].(string); ok {
				c.Role = v
			}
		}
	}
	return c, nil
}

// claims is the subset of standard OIDC claims the portal reads.
type claims struct {
	Sub        string   `json:"sub"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	GivenName  string   `json:"given_name"`
	FamilyName string   `json:"family_name"`
	Groups     []string `json:"groups"`
	Role       string   `json:"-"`
}

// merge fills empty fields of c from other.
func (c claims) merge(other claims) claims {
	c.Sub = firstNonEmpty(c.Sub, other.Sub)
	c.Email = firstNonEmpty(c.Email, other.Email)
	c.Name = firstNonEmpty(c.Name, other.Name)
	c.GivenName = firstNonEmpty(c.GivenName, other.GivenName)
	c.FamilyName = firstNonEmpty(c.FamilyName, other.FamilyName)
	if len(c.Groups) == 0 {
		c.Groups = other.Groups
	}
	return c
}

func (c claims) identity(roleClaim string) domainauth.Identity {
	name := c.Name
	if name == "" {
		name = strings.TrimSpace(c.GivenName + " " + c.FamilyName)
	}
	id := domainauth.Identity{
		UserID: c.Sub,
		Name:   firstNonEmpty(name, c.Email),
		Email:  c.Email,
		Groups: c.Groups,
	}
	if roleClaim != "" {
		if role, ok := domainauth.ParseRole(c.Role); ok {
			id.Role = role
		}
	}
	return id
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// randomString returns a URL-safe random string of exactly n characters.
func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
