package httpx

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed pages/*.html
var pageFS embed.FS

const (
	pageLogin        = "login.html"
	pageUnauthorized = "unauthorized.html"
)

// pages holds one template set per page, each combined with the shared layout.
type pages struct {
	sets   map[string]*template.Template
	logger *slog.Logger
}

func loadPages(logger *slog.Logger) (*pages, error) {
	p := &pages{sets: make(map[string]*template.Template), logger: logger}
	for _, name := range []string{pageLogin, pageUnauthorized} {
		t, err := template.ParseFS(pageFS, "pages/layout.html", "pages/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		p.sets[name] = t
	}
	return p, nil
}

type loginPage struct {
	Title     string
	Mode      string
	Redirect  string
	Error     string
	DemoRoles []string
	CSRFToken string
}

type unauthorizedPage struct {
	Title     string
	Landing   string
	CSRFToken string
}

// render executes the page into a buffer so a template failure never leaves a
// half-written response.
func (p *pages) render(w http.ResponseWriter, r *http.Request, name string, status int, data any) {
	t, ok := p.sets[name]
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		p.logger.ErrorContext(r.Context(), "page render failed", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
