package civicapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "civic-test-secret"

var apiNow = time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

type fakeAPI struct {
	token   string
	profile map[string]any
	status  int
}

func (f *fakeAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		if req.Password != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: f.token, TokenType: "bearer", ExpiresIn: 1800})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(f.profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string, cfg Config) *Client {
	t.Helper()
	cfg.BaseURL = baseURL
	cfg.Now = func() time.Time { return apiNow }
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestClient_Authenticate(t *testing.T) {
	exp := apiNow.Add(30 * time.Minute)
	api := &fakeAPI{
		token: signToken(t, testSecret, jwt.MapClaims{
			"sub":   "42",
			"email": "rajesh.kumar@demo.com",
			"role":  "citizen",
			"iat":   apiNow.Unix(),
			"exp":   exp.Unix(),
		}),
		profile: map[string]any{
			"id":        "42",
			"email":     "rajesh.kumar@demo.com",
			"full_name": "Rajesh Kumar",
			"role":      "citizen",
		},
	}
	srv := api.server(t)
	c := newTestClient(t, srv.URL+"/", Config{TokenSecret: testSecret})

	id, err := c.Authenticate(context.Background(), domainauth.Credentials{Email: "rajesh.kumar@demo.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "42", id.UserID)
	assert.Equal(t, "Rajesh Kumar", id.Name)
	assert.Equal(t, domainauth.RoleCitizen, id.Role)
	assert.Equal(t, api.token, id.AccessToken)
	assert.True(t, id.ExpiresAt.Equal(exp))
	assert.True(t, id.IssuedAt.Equal(apiNow))
}

func TestClient_Authenticate_InvalidCredentials(t *testing.T) {
	api := &fakeAPI{token: "unused"}
	srv := api.server(t)
	c := newTestClient(t, srv.URL, Config{})

	_, err := c.Authenticate(context.Background(), domainauth.Credentials{Email: "a@b.in", Password: "wrong"})
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
}

func TestClient_Authenticate_ServerError(t *testing.T) {
	api := &fakeAPI{status: http.StatusBadGateway}
	srv := api.server(t)
	c := newTestClient(t, srv.URL, Config{})

	_, err := c.Authenticate(context.Background(), domainauth.Credentials{Email: "a@b.in", Password: "password123"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domainauth.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestClient_Authenticate_RejectsForgedToken(t *testing.T) {
	api := &fakeAPI{
		token:   signToken(t, "someone-else", jwt.MapClaims{"sub": "1", "exp": apiNow.Add(time.Hour).Unix()}),
		profile: map[string]any{"id": "1"},
	}
	srv := api.server(t)
	c := newTestClient(t, srv.URL, Config{TokenSecret: testSecret})

	_, err := c.Authenticate(context.Background(), domainauth.Credentials{Email: "a@b.in", Password: "password123"})
	assert.ErrorIs(t, err, ErrTokenRejected)
}

func TestClient_Authenticate_CustomFieldsAndExpiresIn(t *testing.T) {
	api := &fakeAPI{
		// unsigned verification: no exp claim, expiry comes from expires_in
		token: signToken(t, "any", jwt.MapClaims{"sub": "7"}),
		profile: map[string]any{
			"user": map[string]any{
				"uuid":    "u-7",
				"contact": map[string]any{"email": "pwd.head@civicconnect.gov.in"},
				"name":    "Shri Ramesh Gupta",
				"roles":   []any{"department_head", "citizen"},
			},
		},
	}
	srv := api.server(t)
	c := newTestClient(t, srv.URL, Config{Fields: FieldPaths{
		UserID: "user.uuid",
		Email:  "user.contact.email",
		Name:   "user.name",
		Role:   "user.roles[0]",
	}})

	id, err := c.Authenticate(context.Background(), domainauth.Credentials{Email: "pwd.head@civicconnect.gov.in", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "u-7", id.UserID)
	assert.Equal(t, "pwd.head@civicconnect.gov.in", id.Email)
	assert.Equal(t, domainauth.RoleDepartmentHead, id.Role)
	assert.True(t, id.ExpiresAt.Equal(apiNow.Add(1800*time.Second)))
}

func TestClient_UnknownRoleLeftEmpty(t *testing.T) {
	api := &fakeAPI{
		token:   signToken(t, "any", jwt.MapClaims{"sub": "9", "role": "Admin"}),
		profile: map[string]any{"id": "9", "email": "x@gov.in", "role": "Admin"},
	}
	srv := api.server(t)
	c := newTestClient(t, srv.URL, Config{})

	id, err := c.Authenticate(context.Background(), domainauth.Credentials{Email: "x@gov.in", Password: "password123"})
	require.NoError(t, err)
	assert.Empty(t, id.Role, "roles are matched verbatim")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	require.Error(t, err)

	_, err = New(Config{BaseURL: "http://api.local", Fields: FieldPaths{Role: "roles[?"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid profile field expression")
}
