package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	apperrors "github.com/civicconnect/portal/internal/errors"
	"github.com/civicconnect/portal/internal/ports"
)

// SessionOracleOptions groups dependencies for SessionOracle.
type SessionOracleOptions struct {
	Store     ports.SessionStore
	SessionID string
	Now       func() time.Time
	Logger    *slog.Logger
}

// SessionOracle answers identity questions for a single session id.
//
// An oracle is meant to live for one access check. The store is read at most
// once, on first use, and the result is kept for the remaining calls so that
// repeated questions within the same check agree with each other.
// Unreadable, incomplete or expired records all read as "no session".
type SessionOracle struct {
	store  ports.SessionStore
	id     string
	now    func() time.Time
	logger *slog.Logger

	once    sync.Once
	session domainauth.Session
	present bool
}

// NewSessionOracle constructs a SessionOracle bound to opts.SessionID.
func NewSessionOracle(opts SessionOracleOptions) *SessionOracle {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionOracle{
		store:  opts.Store,
		id:     opts.SessionID,
		now:    now,
		logger: logger.With("component", "session_oracle"),
	}
}

// CurrentSession returns the session for the bound id, or false when there is none.
func (o *SessionOracle) CurrentSession(ctx context.Context) (domainauth.Session, bool) {
	o.once.Do(func() { o.session, o.present = o.load(ctx) })
	return o.session, o.present
}

// IsAuthenticated reports whether a complete, unexpired session exists.
func (o *SessionOracle) IsAuthenticated(ctx context.Context) bool {
	_, ok := o.CurrentSession(ctx)
	return ok
}

// HasAnyRole reports whether the current session's role is in roles.
// Without a session it is false for every set, the empty set included.
func (o *SessionOracle) HasAnyRole(ctx context.Context, roles domainauth.RoleSet) bool {
	sess, ok := o.CurrentSession(ctx)
	if !ok {
		return false
	}
	return roles.Contains(sess.Role)
}

func (o *SessionOracle) load(ctx context.Context) (sess domainauth.Session, ok bool) {
	if o.id == "" || o.store == nil {
		return domainauth.Session{}, false
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.WarnContext(ctx, "session read panicked; treating as signed out",
				"error", fmt.Sprint(r))
			sess, ok = domainauth.Session{}, false
		}
	}()

	got, err := o.store.Get(ctx, o.id)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			o.logger.WarnContext(ctx, "session unreadable; treating as signed out", "error", err)
		}
		return domainauth.Session{}, false
	}

	if !got.Complete() {
		o.logger.WarnContext(ctx, "session record incomplete; treating as signed out",
			"user_id", got.UserID,
			"role", string(got.Role),
		)
		return domainauth.Session{}, false
	}

	if got.Expired(o.now()) {
		o.logger.DebugContext(ctx, "session expired", "user_id", got.UserID, "expires_at", got.ExpiresAt)
		return domainauth.Session{}, false
	}

	return got, true
}
