package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/civicconnect/portal/internal/adapters/memory"
	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/mocks"
	mockauth "github.com/civicconnect/portal/internal/mocks/auth"
	"github.com/civicconnect/portal/internal/observability/statsd"
	"github.com/civicconnect/portal/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testCSRFToken = "test-csrf-token"

type harness struct {
	t        *testing.T
	sessions *mockauth.MemorySessionStore
	accounts *mockauth.StaticAuthenticator
	idp      *mockauth.MockAuthProvider
	auth     *service.AuthService
	repo     *mocks.MockGrievanceRepository
	drafts   *service.DraftService
	metrics  *statsd.Recorder
	handler  http.Handler
}

type harnessOptions struct {
	mode string
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	if opts.mode == "" {
		opts.mode = ModePassword
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := gomock.NewController(t)

	h := &harness{
		t:        t,
		sessions: mockauth.NewMemorySessionStore(),
		accounts: &mockauth.StaticAuthenticator{Accounts: map[string]mockauth.StaticAccount{
			"citizen@civicconnect.example": {
				Password: "password123",
				Identity: domainauth.Identity{UserID: "7", Name: "Asha", Email: "citizen@civicconnect.example", Role: domainauth.RoleCitizen},
			},
			"admin@civicconnect.example": {
				Password: "password123",
				Identity: domainauth.Identity{UserID: "1", Name: "Ravi", Email: "admin@civicconnect.example", Role: domainauth.RoleAdmin},
			},
		}},
		idp:     mockauth.NewMockAuthProvider(),
		repo:    mocks.NewMockGrievanceRepository(ctrl),
		metrics: &statsd.Recorder{},
	}
	h.auth = service.NewAuthService(service.AuthServiceOptions{
		Provider:    h.idp,
		Credentials: h.accounts,
		Demo:        h.accounts,
		Sessions:    h.sessions,
		Roles:       mockauth.StaticRoleMapper{AdminGroup: "civic-admins"},
		Logger:      logger,
	})
	h.drafts = service.NewDraftService(service.DraftServiceOptions{
		Store:  memory.NewDraftStore(memory.Options{}),
		Logger: logger,
	})
	grievances := service.NewGrievanceService(service.GrievanceServiceOptions{
		Repo:   h.repo,
		Drafts: h.drafts,
		Logger: logger,
	})

	handler, err := NewRouter(RouterServices{
		Auth:       h.auth,
		Grievances: grievances,
		Drafts:     h.drafts,
		AuthMode:   opts.mode,
		DemoRoles:  []domainauth.Role{domainauth.RoleCitizen, domainauth.RoleAdmin},
		Metrics:    h.metrics,
		Logger:     logger,
	})
	require.NoError(t, err)
	h.handler = handler
	return h
}

// signIn stores a session for role and returns its cookie.
func (h *harness) signIn(role domainauth.Role) *http.Cookie {
	h.t.Helper()
	sess := domainauth.Session{
		ID:        "sess-" + string(role),
		UserID:    "user-" + string(role),
		Email:     string(role) + "@civicconnect.example",
		Name:      "Test " + string(role),
		Role:      role,
		IssuedAt:  time.Now().Add(-time.Minute),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(h.t, h.sessions.Save(context.Background(), sess))
	return &http.Cookie{Name: DefaultSessionCookie, Value: sess.ID}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// form builds a CSRF-valid form post.
func form(target string, values url.Values) *http.Request {
	values.Set(csrfFormField, testCSRFToken)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testCSRFToken})
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
