package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newDiscoveryServer serves a discovery document whose token endpoint rejects every code.
func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 srv.URL,
			"authorization_endpoint": "https://idp.example.gov/authorize",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
			"jwks_uri":               srv.URL + "/jwks",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	srv := newDiscoveryServer(t)
	p, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     "civic-portal",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		Scope:        "profile email groups",
		DiscoveryURL: srv.URL + "/.well-known/openid-configuration",
		RoleClaim:    "civic_role",
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider(t *testing.T) {
	p := newTestProvider(t)
	assert.Equal(t, "https://idp.example.gov/authorize", p.config.Endpoint.AuthURL)
	assert.Equal(t, "openid", p.config.Scopes[0], "openid scope is always requested")
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name:   "missing client ID",
			config: ProviderConfig{ClientSecret: "s", RedirectURL: "http://localhost/cb", DiscoveryURL: "http://idp"},
			errMsg: "client ID is required",
		},
		{
			name:   "missing client secret",
			config: ProviderConfig{ClientID: "c", RedirectURL: "http://localhost/cb", DiscoveryURL: "http://idp"},
			errMsg: "client secret is required",
		},
		{
			name:   "missing redirect URL",
			config: ProviderConfig{ClientID: "c", ClientSecret: "s", DiscoveryURL: "http://idp"},
			errMsg: "redirect URL is required",
		},
		{
			name:   "missing discovery URL",
			config: ProviderConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "http://localhost/cb"},
			errMsg: "discovery URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_Begin(t *testing.T) {
	p := newTestProvider(t)

	authURL, state, nonce, err := p.Begin(context.Background(), ports.BeginInput{RedirectURL: "/auth/callback"})
	require.NoError(t, err)
	assert.Len(t, state, randomLength)
	assert.Len(t, nonce, randomLength)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "civic-portal", q.Get("client_id"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, nonce, q.Get("nonce"))

	_, _, _, err = p.Begin(context.Background(), ports.BeginInput{})
	require.Error(t, err)
}

func TestProvider_Exchange(t *testing.T) {
	p := newTestProvider(t)

	tests := []struct {
		name   string
		input  ports.ExchangeInput
		errMsg string
	}{
		{name: "missing code", input: ports.ExchangeInput{State: "s", Nonce: "n"}, errMsg: "authorization code is required"},
		{name: "missing state", input: ports.ExchangeInput{Code: "c", Nonce: "n"}, errMsg: "state is required"},
		{name: "missing nonce", input: ports.ExchangeInput{Code: "c", State: "s"}, errMsg: "nonce is required"},
		{name: "rejected code", input: ports.ExchangeInput{Code: "c", State: "s", Nonce: "n"}, errMsg: "exchange code for token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Exchange(context.Background(), tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestClaims_Identity(t *testing.T) {
	c := claims{
		Sub:        "sub-1",
		Email:      "officer@civic.gov.in",
		GivenName:  "Meera",
		FamilyName: "Rao",
		Groups:     []string{"civic-admins"},
		Role:       "department_head",
	}

	id := c.identity("civic_role")
	assert.Equal(t, "sub-1", id.UserID)
	assert.Equal(t, "Meera Rao", id.Name)
	assert.Equal(t, domainauth.RoleDepartmentHead, id.Role)
	assert.Equal(t, []string{"civic-admins"}, id.Groups)

	c.Role = "Admin"
	assert.Empty(t, c.identity("civic_role").Role, "roles are matched verbatim")
	assert.Empty(t, c.identity("").Role)
}

func TestClaims_Merge(t *testing.T) {
	got := claims{Sub: "keep"}.merge(claims{Sub: "other", Email: "a@b.in", Name: "A", Groups: []string{"g"}})
	assert.Equal(t, "keep", got.Sub)
	assert.Equal(t, "a@b.in", got.Email)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, []string{"g"}, got.Groups)
}

func TestRandomString(t *testing.T) {
	a, err := randomString(16)
	require.NoError(t, err)
	b, err := randomString(16)
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}
