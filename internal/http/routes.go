// Package httpx serves the Civic Connect portal: sign-in flows, guarded
// dashboards, the grievance API and the location channel.
package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/domain/geo"
	"github.com/civicconnect/portal/internal/observability/statsd"
	"github.com/civicconnect/portal/internal/service"
)

// reviewerRoles may see every grievance.
var reviewerRoles = domainauth.Roles( //nolint:gochecknoglobals // immutable role set
	domainauth.RoleAdmin,
	domainauth.RoleDepartmentHead,
	domainauth.RoleModerator,
)

// statusEditors may move grievances through review.
var statusEditors = domainauth.Roles( //nolint:gochecknoglobals // immutable role set
	domainauth.RoleAdmin,
	domainauth.RoleDepartmentHead,
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth       AuthService               // Required
	Grievances *service.GrievanceService // Required
	Drafts     *service.DraftService     // Required

	// AuthMode is one of ModePassword, ModeOAuth or ModeDemo.
	AuthMode  string
	DemoRoles []domainauth.Role
	Cookies   CookieSettings
	Paths     AccessPaths

	PositionOptions geo.PositionOptions
	MapCenter       geo.Coordinate

	// Readiness checks are reported on /readyz.
	Readiness map[string]ReadinessCheck
	Metrics   statsd.Sink
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewRouter creates and configures the portal's HTTP router.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Auth == nil || services.Grievances == nil || services.Drafts == nil {
		return nil, fmt.Errorf("router: auth, grievance and draft services are required")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pg, err := loadPages(logger)
	if err != nil {
		return nil, err
	}
	paths := services.Paths.withDefaults()

	authHandlers := &AuthHandlers{
		Svc:       services.Auth,
		Mode:      services.AuthMode,
		Cookies:   services.Cookies,
		Paths:     paths,
		Metrics:   services.Metrics,
		Logger:    logger,
		DemoRoles: services.DemoRoles,
		Now:       services.Now,
		pages:     pg,
	}
	grievances := &GrievanceHandlers{Grievances: services.Grievances, Drafts: services.Drafts}
	locations := &LocationHandlers{
		Drafts:          services.Drafts,
		PositionOptions: services.PositionOptions,
		Center:          services.MapCenter,
		Metrics:         services.Metrics,
		Logger:          logger,
	}

	guarded := func(roles domainauth.RoleSet, h http.HandlerFunc) http.Handler {
		return RequireAccess(AccessConfig{
			Sessions:      services.Auth,
			RequiredRoles: roles,
			Paths:         paths,
			CookieName:    services.Cookies.sessionName(),
			Logger:        logger,
			Metrics:       services.Metrics,
		})(h)
	}
	anyone := domainauth.RoleSet(nil)
	admin := domainauth.Roles(domainauth.RoleAdmin)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)
	mux.Handle("GET /readyz", readyHandler(services.Readiness))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	mux.HandleFunc("GET "+paths.Login, authHandlers.LoginPage)
	mux.HandleFunc("GET "+paths.Unauthorized, authHandlers.UnauthorizedPage)
	mux.HandleFunc("POST /auth/login", authHandlers.Login)
	mux.HandleFunc("POST /auth/demo-login", authHandlers.DemoLogin)
	mux.HandleFunc("GET /auth/oidc/login", authHandlers.BeginOAuth)
	mux.HandleFunc("GET /auth/callback", authHandlers.Callback)
	mux.HandleFunc("POST /auth/logout", authHandlers.Logout)
	mux.HandleFunc("GET /auth/status", authHandlers.Status)

	mux.Handle("GET /dashboard", guarded(anyone, grievances.Dashboard))
	mux.Handle("GET /dashboard/citizen", guarded(anyone, grievances.CitizenDashboard))
	mux.Handle("GET /dashboard/admin", guarded(admin, grievances.AdminDashboard))

	mux.Handle("GET /api/grievances", guarded(anyone, grievances.ListMine))
	mux.Handle("POST /api/grievances", guarded(anyone, grievances.Submit))
	mux.Handle("PUT /api/grievances/{id}", guarded(anyone, grievances.Edit))
	mux.Handle("GET /api/grievances/track/{tracking}", guarded(anyone, grievances.Track))
	mux.Handle("POST /api/grievances/drafts", guarded(anyone, grievances.CreateDraft))
	mux.Handle("DELETE /api/grievances/drafts/{id}", guarded(anyone, grievances.DiscardDraft))
	mux.Handle("GET /api/grievances/drafts/{id}/location", guarded(anyone, grievances.DraftLocation))
	mux.Handle("GET /api/admin/grievances", guarded(reviewerRoles, grievances.ListAll))
	mux.Handle("PUT /api/admin/grievances/{id}/status", guarded(statusEditors, grievances.UpdateStatus))

	mux.Handle("GET /ws/location", guarded(anyone, locations.Channel))

	return CSRFProtection(services.Cookies)(mux), nil
}
