package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"time"
)

// Role represents an application's authorization role.
// Roles are persisted and compared verbatim; no case folding is applied.
type Role string

const (
	RoleCitizen        Role = "citizen"
	RoleAdmin          Role = "admin"
	RoleDepartmentHead Role = "department_head"
	RoleModerator      Role = "moderator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleAdmin, RoleDepartmentHead, RoleModerator:
		return true
	default:
		return false
	}
}

// ParseRole returns the Role for s when s names a known role exactly.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// AllRoles lists every known role in a stable order.
func AllRoles() []Role {
	return []Role{RoleCitizen, RoleAdmin, RoleDepartmentHead, RoleModerator}
}

// RoleSet is a set of roles required by a protected view.
// An empty set means any authenticated session is sufficient.
type RoleSet []Role

// Roles builds a RoleSet.
func Roles(roles ...Role) RoleSet { return RoleSet(roles) }

// Empty reports whether no role is required.
func (s RoleSet) Empty() bool { return len(s) == 0 }

// Contains reports whether r is a member of the set.
func (s RoleSet) Contains(r Role) bool {
	for _, candidate := range s {
		if candidate == r {
			return true
		}
	}
	return false
}

// Strings returns the set as plain strings for logging and metrics.
func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

// Identity represents the authenticated principal returned by an authentication backend.
// Adapters map provider-specific payloads into this shape.
type Identity struct {
	UserID      string
	Name        string
	Email       string
	Role        Role     // set when the backend asserts a role directly
	Groups      []string // set when the role must be derived via a RoleMapper
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time // absolute expiry from the issued token
}

// Credentials carries an email/password pair submitted on the login form.
type Credentials struct {
	Email    string
	Password string
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier carried in the session cookie.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	AccessToken string    `json:"access_token,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Complete reports whether every field needed to act on the session is populated.
// Partially populated records are treated as absent by readers.
func (s Session) Complete() bool {
	return s.ID != "" && s.UserID != "" && s.Email != "" && s.Role.Valid() && !s.ExpiresAt.IsZero()
}

// Expired reports whether the session validity window has closed at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Usable reports whether the session is complete and unexpired at now.
func (s Session) Usable(now time.Time) bool {
	return s.Complete() && !s.Expired(now)
}

var (
	// ErrInvalidCredentials is returned by authenticators when the email/password pair is rejected.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrCorruptSession is returned by session stores when a persisted record cannot be decoded.
	ErrCorruptSession = errors.New("corrupt session record")
)
