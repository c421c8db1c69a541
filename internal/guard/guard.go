// Package guard decides whether a protected page may be shown to the current visitor.
//
// A Guard is single-use: it starts in StateChecking, evaluates the visitor once
// through an Oracle, and settles in exactly one terminal state. Redirecting
// states trigger a single navigation and nothing protected is ever rendered
// outside StateAllowed.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/observability/metrics"
	"github.com/civicconnect/portal/internal/observability/statsd"
)

var errNoOracle = errors.New("no session oracle")

// State is the guard's position in its lifecycle.
type State string

const (
	StateChecking                  State = "checking"
	StateAllowed                   State = "allowed"
	StateRedirectingToLogin        State = "redirecting_to_login"
	StateRedirectingToUnauthorized State = "redirecting_to_unauthorized"
)

// Terminal reports whether s ends an activation.
func (s State) Terminal() bool { return s != StateChecking }

// Destination is where a redirecting guard sends the visitor.
type Destination string

const (
	DestinationLogin        Destination = "login"
	DestinationUnauthorized Destination = "unauthorized"
)

// Oracle answers identity questions for the current visitor.
type Oracle interface {
	IsAuthenticated(ctx context.Context) bool
	HasAnyRole(ctx context.Context, roles domainauth.RoleSet) bool
}

// Navigator performs a redirect.
type Navigator interface {
	Navigate(ctx context.Context, to Destination)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, to Destination)

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, to Destination) { f(ctx, to) }

// Options configures a Guard.
type Options struct {
	// RequiredRoles restricts access to sessions holding one of these roles.
	// Empty means any authenticated session.
	RequiredRoles domainauth.RoleSet
	// Route tags log lines and metrics.
	Route   string
	Logger  *slog.Logger
	Metrics statsd.Sink
	Now     func() time.Time
}

// Guard is a single access check.
type Guard struct {
	required domainauth.RoleSet
	route    string
	logger   *slog.Logger
	metrics  statsd.Sink
	now      func() time.Time

	mu        sync.Mutex
	state     State
	activated bool
}

// New returns a Guard in StateChecking.
func New(opts Options) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Guard{
		required: opts.RequiredRoles,
		route:    opts.Route,
		logger:   logger.With("component", "access_guard"),
		metrics:  opts.Metrics,
		now:      now,
		state:    StateChecking,
	}
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Activate evaluates the visitor and settles the guard. It navigates at most once.
// Calling Activate again returns the state of the first activation without
// consulting the oracle.
func (g *Guard) Activate(ctx context.Context, oracle Oracle, nav Navigator) State {
	g.mu.Lock()
	if g.activated {
		state := g.state
		g.mu.Unlock()
		return state
	}
	g.activated = true
	g.mu.Unlock()

	start := g.now()
	state, err := g.evaluate(ctx, oracle)

	g.mu.Lock()
	g.state = state
	g.mu.Unlock()

	metrics.EmitAccessDecision(g.metrics, metrics.AccessMetric{
		State:    string(state),
		Route:    g.route,
		Duration: g.now().Sub(start),
		Err:      err,
	})

	switch state {
	case StateRedirectingToLogin:
		g.navigate(ctx, nav, DestinationLogin)
	case StateRedirectingToUnauthorized:
		g.navigate(ctx, nav, DestinationUnauthorized)
	case StateAllowed, StateChecking:
	}
	return state
}

// Render calls loading while the check is pending and content once access is allowed.
// Neither is called in a redirecting state.
func (g *Guard) Render(loading, content func()) {
	switch g.State() {
	case StateChecking:
		if loading != nil {
			loading()
		}
	case StateAllowed:
		if content != nil {
			content()
		}
	case StateRedirectingToLogin, StateRedirectingToUnauthorized:
	}
}

func (g *Guard) evaluate(ctx context.Context, oracle Oracle) (state State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session check panicked: %v", r)
			g.logger.ErrorContext(ctx, "access check failed; redirecting to login",
				"route", g.route,
				"error", err,
			)
			state = StateRedirectingToLogin
		}
	}()

	if oracle == nil {
		err = errNoOracle
		g.logger.ErrorContext(ctx, "access check failed; redirecting to login", "route", g.route, "error", err)
		return StateRedirectingToLogin, err
	}

	state = Decide(ctx, oracle, g.required)
	if state != StateAllowed {
		g.logger.DebugContext(ctx, "access denied",
			"route", g.route,
			"state", string(state),
			"required_roles", g.required.Strings(),
		)
	}
	return state, nil
}

func (g *Guard) navigate(ctx context.Context, nav Navigator, to Destination) {
	if nav == nil {
		g.logger.WarnContext(ctx, "guard has no navigator", "route", g.route, "destination", string(to))
		return
	}
	nav.Navigate(ctx, to)
}

// Decide applies the access rule: unauthenticated visitors go to login, visitors
// lacking every required role go to unauthorized, everyone else is allowed.
func Decide(ctx context.Context, oracle Oracle, required domainauth.RoleSet) State {
	if !oracle.IsAuthenticated(ctx) {
		return StateRedirectingToLogin
	}
	if !required.Empty() && !oracle.HasAnyRole(ctx, required) {
		return StateRedirectingToUnauthorized
	}
	return StateAllowed
}
