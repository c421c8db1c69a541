package ports

import (
	"context"

	"github.com/civicconnect/portal/internal/domain/geo"
)

// LocationCapability asks a device for one position fix.
// Failures are reported as *geo.PositionError.
type LocationCapability interface {
	CurrentPosition(ctx context.Context, opts geo.PositionOptions) (geo.Position, error)
}

// Notifier shows transient notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n geo.Notice)
}
