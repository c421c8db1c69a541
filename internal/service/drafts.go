package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/civicconnect/portal/internal/domain/geo"
	"github.com/civicconnect/portal/internal/domain/model"
	apperrors "github.com/civicconnect/portal/internal/errors"
	"github.com/civicconnect/portal/internal/ports"
	"github.com/oklog/ulid/v2"
)

// DefaultDraftTTL bounds how long an unsubmitted grievance form is kept.
const DefaultDraftTTL = 24 * time.Hour

// DraftServiceOptions groups dependencies for DraftService.
type DraftServiceOptions struct {
	Store  ports.DraftStore // Required
	TTL    time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

// DraftService holds the host form state of grievances being filed: the
// single location currently selected for each draft.
type DraftService struct {
	store  ports.DraftStore
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewDraftService constructs a DraftService.
func NewDraftService(opts DraftServiceOptions) *DraftService {
	if opts.Store == nil {
		panic("DraftStore is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &DraftService{
		store:  opts.Store,
		ttl:    ttl,
		logger: logger.With("component", "drafts"),
		now:    now,
	}
}

// Create starts a new draft owned by ownerID.
func (s *DraftService) Create(ctx context.Context, ownerID string) (model.Draft, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return model.Draft{}, apperrors.ValidationField("owner_id", "owner is required")
	}
	now := s.now().UTC()
	d := model.Draft{
		ID:        ulid.Make().String(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, d); err != nil {
		return model.Draft{}, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}

// Get returns the draft when it exists, has not expired and belongs to ownerID.
// Drafts owned by someone else are reported as not found.
func (s *DraftService) Get(ctx context.Context, id, ownerID string) (model.Draft, error) {
	if strings.TrimSpace(id) == "" {
		return model.Draft{}, apperrors.ValidationField("draft_id", "draft id is required")
	}
	d, err := s.store.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return model.Draft{}, apperrors.NotFoundf("draft %s not found", id)
		}
		return model.Draft{}, fmt.Errorf("get draft: %w", err)
	}
	if d.OwnerID != ownerID {
		s.logger.WarnContext(ctx, "draft requested by non-owner", "draft_id", id, "user_id", ownerID)
		return model.Draft{}, apperrors.NotFoundf("draft %s not found", id)
	}
	if !d.ExpiresAt.IsZero() && !s.now().Before(d.ExpiresAt) {
		return model.Draft{}, apperrors.NotFoundf("draft %s not found", id)
	}
	return d, nil
}

// SelectLocation replaces the draft's current location with c. A draft
// submitted or discarded meanwhile is not recreated.
func (s *DraftService) SelectLocation(ctx context.Context, id, ownerID string, c geo.Coordinate) error {
	if err := c.Validate(); err != nil {
		return apperrors.ValidationField("location", err.Error())
	}
	d, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	d.Location = &c
	d.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, d); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NotFoundf("draft %s not found", id)
		}
		return fmt.Errorf("save draft location: %w", err)
	}
	s.logger.DebugContext(ctx, "draft location selected", "draft_id", id, "lat", c.Lat, "lng", c.Lng)
	return nil
}

// Location returns the draft's current selection.
func (s *DraftService) Location(ctx context.Context, id, ownerID string) (geo.Coordinate, error) {
	d, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return geo.Coordinate{}, err
	}
	if !d.HasLocation() {
		return geo.Coordinate{}, apperrors.NotFound("no location selected")
	}
	return *d.Location, nil
}

// Take removes the draft so it can be submitted. Of several concurrent
// callers only one gets the draft; the rest see a conflict.
func (s *DraftService) Take(ctx context.Context, id, ownerID string) (model.Draft, error) {
	d, err := s.store.Take(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return model.Draft{}, apperrors.Conflict(fmt.Sprintf("draft %s is no longer available", id))
		}
		return model.Draft{}, fmt.Errorf("take draft: %w", err)
	}
	if d.OwnerID != ownerID {
		s.Restore(ctx, d)
		return model.Draft{}, apperrors.NotFoundf("draft %s not found", id)
	}
	return d, nil
}

// Restore puts back a draft removed by Take. Failures are logged.
func (s *DraftService) Restore(ctx context.Context, d model.Draft) {
	if err := s.store.Save(ctx, d); err != nil {
		s.logger.WarnContext(ctx, "draft not restored", "draft_id", d.ID, "error", err)
	}
}

// Discard removes one of ownerID's drafts.
func (s *DraftService) Discard(ctx context.Context, id, ownerID string) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
