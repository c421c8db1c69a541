package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/guard"
	"github.com/civicconnect/portal/internal/observability/statsd"
	"github.com/civicconnect/portal/internal/service"
)

// DefaultSessionCookie names the cookie carrying the session id.
const DefaultSessionCookie = "session_id"

// SessionOracles builds the identity oracle for one request.
type SessionOracles interface {
	Oracle(sessionID string) *service.SessionOracle
}

// AccessPaths are the only two places the guard ever sends a visitor.
type AccessPaths struct {
	Login        string
	Unauthorized string
}

func (p AccessPaths) withDefaults() AccessPaths {
	if p.Login == "" {
		p.Login = "/login"
	}
	if p.Unauthorized == "" {
		p.Unauthorized = "/unauthorized"
	}
	return p
}

// AccessConfig configures RequireAccess.
type AccessConfig struct {
	Sessions SessionOracles // Required
	// RequiredRoles restricts the route; empty admits any signed-in user.
	RequiredRoles domainauth.RoleSet
	Paths         AccessPaths
	CookieName    string
	Logger        *slog.Logger
	Metrics       statsd.Sink
}

// RequireAccess protects a handler with a fresh access guard per request.
// Visitors without a usable session go to the login page, visitors lacking a
// required role go to the unauthorized page. API callers get 401/403 instead.
// On success the session is available through SessionFromContext.
func RequireAccess(cfg AccessConfig) func(http.Handler) http.Handler {
	if cfg.Sessions == nil {
		panic("RequireAccess: Sessions is required")
	}
	paths := cfg.Paths.withDefaults()
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string
			if c, err := r.Cookie(cookieName); err == nil {
				sessionID = c.Value
			}
			oracle := cfg.Sessions.Oracle(sessionID)

			g := guard.New(guard.Options{
				RequiredRoles: cfg.RequiredRoles,
				Route:         routeOf(r),
				Logger:        logger,
				Metrics:       cfg.Metrics,
			})
			g.Activate(r.Context(), oracle, &httpNavigator{w: w, r: r, paths: paths})
			g.Render(nil, func() {
				sess, _ := oracle.CurrentSession(r.Context())
				next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), &sess)))
			})
		})
	}
}

func routeOf(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.URL.Path
}

// httpNavigator turns a guard redirect into the response the client understands.
type httpNavigator struct {
	w     http.ResponseWriter
	r     *http.Request
	paths AccessPaths
}

func (n *httpNavigator) Navigate(_ context.Context, to guard.Destination) {
	if classify(n.r) == clientAPI {
		if to == guard.DestinationUnauthorized {
			WriteError(n.w, ErrorParams{
				Code:    http.StatusForbidden,
				ErrCode: "insufficient_permissions",
				Err:     errors.New("insufficient permissions"),
			})
			return
		}
		WriteError(n.w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	target := n.paths.Unauthorized
	if to == guard.DestinationLogin {
		target = loginURL(n.paths.Login, redirectPathForRequest(n.r))
	}
	if classify(n.r) == clientHTMX {
		SetHXRedirect(n.w, target)
		n.w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(n.w, n.r, target, http.StatusSeeOther)
}

// loginURL appends the return path as the redirect query parameter.
func loginURL(loginPath, returnTo string) string {
	u := url.URL{Path: loginPath}
	if returnTo != "" && returnTo != "/" {
		q := url.Values{}
		q.Set("redirect", returnTo)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// redirectPathForRequest picks the page the visitor should return to after
// signing in. htmx requests report the page they were issued from.
func redirectPathForRequest(r *http.Request) string {
	if IsHTMX(r) {
		if current := safeRedirectFromURL(r.Header.Get("Hx-Current-Url")); current != "" {
			return current
		}
	}
	return safeRedirectPath(r.URL.RequestURI())
}

func safeRedirectFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Host != "" && !u.IsAbs() {
		return ""
	}
	if u.IsAbs() {
		return safeRedirectPath(u.RequestURI())
	}
	return safeRedirectPath(raw)
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute or protocol-relative URL. Returns "" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return ""
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || len(candidate) > 1 && (candidate[1] == '/' || candidate[1] == '\\') {
		return ""
	}
	if len(u.Path) == 0 || u.Path[0] != '/' {
		return ""
	}
	return candidate
}
