//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"time"

	"github.com/civicconnect/portal/internal/domain/geo"
)

// Draft is the server-side state of a grievance form that has not been submitted yet.
// Location holds the single current selection; each selection replaces the previous one.
type Draft struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Location  *geo.Coordinate `json:"location,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// HasLocation reports whether a coordinate has been selected.
func (d Draft) HasLocation() bool { return d.Location != nil }
