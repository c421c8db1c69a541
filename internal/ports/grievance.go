package ports

import (
	"context"
	"time"

	"github.com/civicconnect/portal/internal/domain/model"
)

// DraftStore persists grievance drafts. Get, Update and Take return an error
// satisfying errors.IsNotFound from internal/errors when the draft does not exist.
type DraftStore interface {
	Save(ctx context.Context, d model.Draft) error
	Get(ctx context.Context, id string) (model.Draft, error)
	// Update overwrites d only if it is still stored.
	Update(ctx context.Context, d model.Draft) error
	// Take atomically reads and removes the draft; concurrent callers
	// see it at most once.
	Take(ctx context.Context, id string) (model.Draft, error)
	Delete(ctx context.Context, id string) error
}

// GrievanceRepository persists submitted grievances.
type GrievanceRepository interface {
	Create(ctx context.Context, g *model.Grievance) (*model.Grievance, error)
	GetByID(ctx context.Context, id string) (*model.Grievance, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*model.Grievance, error)
	UpdateStatus(ctx context.Context, id string, status model.GrievanceStatus, at time.Time) (*model.Grievance, error)
	// UpdatePending applies req only while the grievance is pending and owned
	// by reporterID; otherwise it returns a not-found error.
	UpdatePending(ctx context.Context, id, reporterID string, req model.UpdateGrievanceRequest, at time.Time) (*model.Grievance, error)
	List(ctx context.Context, opts model.GrievanceListOptions) ([]*model.Grievance, error)
	CountByStatus(ctx context.Context, reporterID *string) (model.GrievanceStatusCounts, error)
}

// GrievanceNotifier is told about newly filed grievances. Implementations
// decide which ones to escalate and must not block for long.
type GrievanceNotifier interface {
	NotifyGrievance(ctx context.Context, g *model.Grievance)
}

// Sweeper drops records that have outlived their expiry. Stores that expire
// records natively need not implement it.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}
