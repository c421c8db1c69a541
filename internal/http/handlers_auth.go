package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/observability/metrics"
	"github.com/civicconnect/portal/internal/observability/statsd"
	"github.com/civicconnect/portal/internal/service"
)

// Login modes understood by AuthHandlers.
const (
	ModePassword = "password"
	ModeOAuth    = "oauth"
	ModeDemo     = "demo"
)

// AuthService is the part of service.AuthService the HTTP layer drives.
type AuthService interface {
	SessionOracles
	Login(ctx context.Context, creds domainauth.Credentials) (*service.LoginResult, error)
	DemoLogin(ctx context.Context, role domainauth.Role) (*service.LoginResult, error)
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc     AuthService
	Mode    string
	Cookies CookieSettings
	Paths   AccessPaths
	Metrics statsd.Sink
	Logger  *slog.Logger
	// DemoRoles lists the roles offered as one-click demo sign-ins.
	DemoRoles []domainauth.Role
	Now       func() time.Time

	pages *pages
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Redirect string `json:"redirect"`
}

type demoLoginRequest struct {
	Role     string `json:"role"`
	Redirect string `json:"redirect"`
}

type loginResponse struct {
	RedirectTo string      `json:"redirect_to"`
	User       sessionUser `json:"user"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

type sessionUser struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  domainauth.Role `json:"role"`
}

func userOf(s domainauth.Session) sessionUser {
	return sessionUser{ID: s.UserID, Name: s.Name, Email: s.Email, Role: s.Role}
}

// LoginPage renders the sign-in page for the configured mode.
// GET /login?redirect=<optional path>.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := loginPage{
		Title:     "Sign in",
		Mode:      h.Mode,
		Redirect:  safeRedirectPath(r.URL.Query().Get("redirect")),
		CSRFToken: CSRFToken(r),
	}
	if r.URL.Query().Get("error") != "" {
		data.Error = "The email or password you entered is incorrect."
	}
	if h.Mode == ModeDemo {
		for _, role := range h.DemoRoles {
			data.DemoRoles = append(data.DemoRoles, string(role))
		}
	}
	h.pages.render(w, r, pageLogin, http.StatusOK, data)
}

// UnauthorizedPage tells a signed-in user they lack the role for a page.
// GET /unauthorized.
func (h *AuthHandlers) UnauthorizedPage(w http.ResponseWriter, r *http.Request) {
	data := unauthorizedPage{Title: "Access denied", CSRFToken: CSRFToken(r)}
	if sess, ok := h.Svc.Oracle(h.Cookies.sessionID(r)).CurrentSession(r.Context()); ok {
		data.Landing = service.LandingPath(sess.Role)
	}
	h.pages.render(w, r, pageUnauthorized, http.StatusForbidden, data)
}

// Login verifies an email and password. Accepts a form post or JSON.
// POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isJSONBody(r) {
		if !DecodeJSON(w, r, &req) {
			return
		}
	} else {
		req = loginRequest{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
			Redirect: r.PostFormValue("redirect"),
		}
	}

	result, err := h.Svc.Login(r.Context(), domainauth.Credentials{Email: req.Email, Password: req.Password})
	metrics.EmitLogin(h.Metrics, h.modeTag(ModePassword), loginResult(err), err)
	if err != nil {
		h.loginFailed(w, r, req.Redirect, err)
		return
	}
	h.signedIn(w, r, result.Session, req.Redirect)
}

// DemoLogin signs in as the demo account for a role.
// POST /auth/demo-login.
func (h *AuthHandlers) DemoLogin(w http.ResponseWriter, r *http.Request) {
	var req demoLoginRequest
	if isJSONBody(r) {
		if !DecodeJSON(w, r, &req) {
			return
		}
	} else {
		req = demoLoginRequest{Role: r.PostFormValue("role"), Redirect: r.PostFormValue("redirect")}
	}

	role, ok := domainauth.ParseRole(req.Role)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_role",
			Err:     errors.New("role must be one of: citizen, admin, department_head, moderator"),
			Field:   "role",
		})
		return
	}

	result, err := h.Svc.DemoLogin(r.Context(), role)
	metrics.EmitLogin(h.Metrics, ModeDemo, loginResult(err), err)
	if err != nil {
		h.loginFailed(w, r, req.Redirect, err)
		return
	}
	h.signedIn(w, r, result.Session, req.Redirect)
}

// BeginOAuth starts the identity provider flow.
// GET /auth/oidc/login?redirect=<optional path>.
func (h *AuthHandlers) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	redirect := safeRedirectPath(r.URL.Query().Get("redirect"))
	result, err := h.Svc.BeginLogin(r.Context(), orRoot(redirect))
	if err != nil {
		if errors.Is(err, service.ErrLoginModeDisabled) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "login_mode_disabled", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed", Err: err})
		return
	}

	h.Cookies.set(w, r, oauthStateCookie, result.State, oauthCookieLifetime)
	h.Cookies.set(w, r, oauthNonceCookie, result.Nonce, oauthCookieLifetime)
	if redirect != "" {
		h.Cookies.set(w, r, postLoginCookie, redirect, oauthCookieLifetime)
	}
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback completes the identity provider flow.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}
	stateCookie, err := r.Cookie(oauthStateCookie)
	if state == "" || err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie(oauthNonceCookie)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	metrics.EmitLogin(h.Metrics, ModeOAuth, loginResult(err), err)
	if err != nil {
		h.logger().WarnContext(r.Context(), "oauth login failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "login_completion_failed",
			Err:     errors.New("sign-in could not be completed"),
		})
		return
	}

	h.Cookies.clear(w, r, oauthStateCookie)
	h.Cookies.clear(w, r, oauthNonceCookie)
	var redirect string
	if c, err := r.Cookie(postLoginCookie); err == nil {
		redirect = c.Value
		h.Cookies.clear(w, r, postLoginCookie)
	}
	h.Cookies.setSession(w, r, result.Session, h.now())
	http.Redirect(w, r, postLoginPath(redirect, result.Session.Role), http.StatusFound)
}

// Logout ends the session and returns the visitor to the login page.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if id := h.Cookies.sessionID(r); id != "" {
		if err := h.Svc.Logout(r.Context(), id); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.Cookies.clear(w, r, h.Cookies.sessionName())

	target := h.Paths.withDefaults().Login
	switch classify(r) {
	case clientAPI:
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": target})
	case clientHTMX:
		SetHXRedirect(w, target)
		w.WriteHeader(http.StatusOK)
	case clientBrowser:
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

// Status reports whether the caller is signed in.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	id := h.Cookies.sessionID(r)
	sess, ok := h.Svc.Oracle(id).CurrentSession(r.Context())
	if !ok {
		if id != "" {
			h.Cookies.clear(w, r, h.Cookies.sessionName())
		}
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          userOf(sess),
		"expires_at":    sess.ExpiresAt,
	})
}

func (h *AuthHandlers) signedIn(w http.ResponseWriter, r *http.Request, sess domainauth.Session, redirect string) {
	h.Cookies.setSession(w, r, sess, h.now())
	target := postLoginPath(redirect, sess.Role)
	switch classify(r) {
	case clientAPI:
		WriteJSON(w, http.StatusOK, loginResponse{RedirectTo: target, User: userOf(sess), ExpiresAt: sess.ExpiresAt})
	case clientHTMX:
		SetHXRedirect(w, target)
		w.WriteHeader(http.StatusOK)
	case clientBrowser:
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func (h *AuthHandlers) loginFailed(w http.ResponseWriter, r *http.Request, redirect string, err error) {
	switch {
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		if classify(r) == clientBrowser {
			q := url.Values{}
			q.Set("error", "invalid_credentials")
			if p := safeRedirectPath(redirect); p != "" {
				q.Set("redirect", p)
			}
			http.Redirect(w, r, h.Paths.withDefaults().Login+"?"+q.Encode(), http.StatusSeeOther)
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "invalid_credentials", Err: err})
	case errors.Is(err, service.ErrLoginModeDisabled):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "login_mode_disabled", Err: err})
	default:
		h.logger().ErrorContext(r.Context(), "login failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: "login_failed",
			Err:     errors.New("authentication service unavailable"),
		})
	}
}

func (h *AuthHandlers) modeTag(fallback string) string {
	if h.Mode != "" {
		return h.Mode
	}
	return fallback
}

// postLoginPath keeps a safe requested path, otherwise the role's dashboard.
func postLoginPath(requested string, role domainauth.Role) string {
	if p := safeRedirectPath(requested); p != "" {
		return p
	}
	return service.LandingPath(role)
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return "rejected"
	default:
		return metrics.ResultError
	}
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

func orRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
