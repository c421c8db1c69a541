package httpx

import (
	"net/http"
	"strings"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
)

const (
	oauthStateCookie    = "oauth_state"
	oauthNonceCookie    = "oauth_nonce"
	postLoginCookie     = "post_login_redirect"
	oauthCookieLifetime = 10 * time.Minute
)

// CookieSettings controls the attributes of every cookie the portal sets.
type CookieSettings struct {
	SessionName string
	Domain      string
	// Secure forces the Secure attribute. Requests over TLS or behind an
	// https-terminating proxy get it regardless.
	Secure bool
}

func (c CookieSettings) sessionName() string {
	if c.SessionName == "" {
		return DefaultSessionCookie
	}
	return c.SessionName
}

func (c CookieSettings) secure(r *http.Request) bool {
	return c.Secure || r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func (c CookieSettings) set(w http.ResponseWriter, r *http.Request, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// clear expires a cookie, mirroring the attributes used to set it.
func (c CookieSettings) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// setSession writes the session cookie so that it lapses with the session.
func (c CookieSettings) setSession(w http.ResponseWriter, r *http.Request, s domainauth.Session, now time.Time) {
	ttl := s.ExpiresAt.Sub(now)
	if ttl < time.Second {
		ttl = time.Second
	}
	c.set(w, r, c.sessionName(), s.ID, ttl)
}

func (c CookieSettings) sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(c.sessionName()); err == nil {
		return cookie.Value
	}
	return ""
}
