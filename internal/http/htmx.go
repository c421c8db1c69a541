package httpx

import (
	"net/http"
	"strings"
)

// IsHTMX reports whether the request was initiated by htmx (Hx-Request: true).
func IsHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Hx-Request"), "true")
}

// SetHXRedirect instructs htmx to redirect the browser to the given URL.
func SetHXRedirect(w http.ResponseWriter, url string) { w.Header().Set("Hx-Redirect", url) }

// client describes how a request expects to be told to go elsewhere.
type client int

const (
	clientBrowser client = iota
	clientHTMX
	clientAPI
)

// classify sorts a request into browser, htmx, or API traffic.
// API routes and JSON-only callers get status codes; htmx gets a redirect header.
func classify(r *http.Request) client {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return clientAPI
	}
	if IsHTMX(r) {
		return clientHTMX
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html") {
		return clientAPI
	}
	return clientBrowser
}
