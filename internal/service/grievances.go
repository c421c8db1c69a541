package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/domain/model"
	apperrors "github.com/civicconnect/portal/internal/errors"
	"github.com/civicconnect/portal/internal/ports"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultGrievancePageSize = 50
	maxGrievancePageSize     = 200
	summaryRecentCount       = 5
	trackingPrefix           = "GRV-"
)

// GrievanceServiceOptions groups dependencies for GrievanceService.
type GrievanceServiceOptions struct {
	Repo   ports.GrievanceRepository // Required
	Drafts *DraftService             // Required
	// Escalations is told about every stored grievance, off the request path.
	Escalations ports.GrievanceNotifier
	Logger      *slog.Logger
	Now         func() time.Time
}

// GrievanceService files and lists grievances.
type GrievanceService struct {
	repo        ports.GrievanceRepository
	drafts      *DraftService
	escalations ports.GrievanceNotifier
	logger      *slog.Logger
	now         func() time.Time
}

// GrievanceSummary is the dashboard view of a set of grievances.
type GrievanceSummary struct {
	Counts model.GrievanceStatusCounts `json:"counts"`
	Total  int                         `json:"total"`
	Recent []*model.Grievance          `json:"recent"`
}

// NewGrievanceService constructs a GrievanceService.
func NewGrievanceService(opts GrievanceServiceOptions) *GrievanceService {
	if opts.Repo == nil {
		panic("GrievanceRepository is required")
	}
	if opts.Drafts == nil {
		panic("DraftService is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &GrievanceService{
		repo:        opts.Repo,
		drafts:      opts.Drafts,
		escalations: opts.Escalations,
		logger:      logger.With("component", "grievances"),
		now:         now,
	}
}

// Submit files a grievance for the session's user at the draft's selected
// location. The draft is consumed atomically, so it yields at most one
// grievance; it is restored if the grievance cannot be stored.
func (s *GrievanceService) Submit(
	ctx context.Context,
	reporter domainauth.Session,
	req model.CreateGrievanceRequest,
) (*model.Grievance, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	if _, err := s.drafts.Location(ctx, req.DraftID, reporter.UserID); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, missingLocation()
		}
		return nil, err
	}
	d, err := s.drafts.Take(ctx, req.DraftID, reporter.UserID)
	if err != nil {
		return nil, err
	}
	if !d.HasLocation() {
		s.drafts.Restore(ctx, d)
		return nil, missingLocation()
	}

	now := s.now().UTC()
	g := &model.Grievance{
		ID:             uuid.NewString(),
		TrackingNumber: trackingPrefix + ulid.Make().String(),
		ReporterID:     reporter.UserID,
		ReporterEmail:  reporter.Email,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Priority:       req.Priority,
		Status:         model.GrievanceStatusPending,
		Latitude:       d.Location.Lat,
		Longitude:      d.Location.Lng,
		Address:        req.Address,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.repo.Create(ctx, g)
	if err != nil {
		s.drafts.Restore(ctx, d)
		return nil, fmt.Errorf("create grievance: %w", err)
	}

	s.logger.InfoContext(ctx, "grievance submitted",
		"tracking_number", created.TrackingNumber,
		"user_id", reporter.UserID,
		"category", created.Category,
	)
	if s.escalations != nil {
		go s.escalations.NotifyGrievance(context.WithoutCancel(ctx), created)
	}
	return created, nil
}

// Edit applies a reporter's changes to their own grievance while it is
// still pending. Grievances of other reporters are reported as not found.
func (s *GrievanceService) Edit(
	ctx context.Context,
	reporter domainauth.Session,
	id string,
	req model.UpdateGrievanceRequest,
) (*model.Grievance, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get grievance: %w", err)
	}
	if current.ReporterID != reporter.UserID {
		return nil, apperrors.NotFoundf("grievance %s not found", id)
	}
	if current.Status != model.GrievanceStatusPending {
		return nil, errNotEditable(current.Status)
	}

	updated, err := s.repo.UpdatePending(ctx, id, reporter.UserID, req, s.now().UTC())
	if err != nil {
		if apperrors.IsNotFound(err) {
			// status moved on between the read and the write
			return nil, errNotEditable("")
		}
		return nil, fmt.Errorf("update grievance: %w", err)
	}
	s.logger.InfoContext(ctx, "grievance edited", "tracking_number", updated.TrackingNumber, "user_id", reporter.UserID)
	return updated, nil
}

// UpdateStatus moves a grievance to status on behalf of a reviewer.
func (s *GrievanceService) UpdateStatus(
	ctx context.Context,
	reviewer domainauth.Session,
	id string,
	req model.UpdateStatusRequest,
) (*model.Grievance, error) {
	status, ok := model.ParseGrievanceStatus(string(req.Status))
	if !ok {
		return nil, apperrors.ValidationField("status",
			"status must be one of: pending, in_progress, resolved, rejected, closed")
	}
	updated, err := s.repo.UpdateStatus(ctx, id, status, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("update grievance status: %w", err)
	}
	s.logger.InfoContext(ctx, "grievance status changed",
		"tracking_number", updated.TrackingNumber,
		"status", updated.Status,
		"user_id", reviewer.UserID,
		"role", reviewer.Role,
	)
	return updated, nil
}

func missingLocation() error {
	return apperrors.ValidationField("location", "select a location on the map or detect your current location")
}

func errNotEditable(status model.GrievanceStatus) error {
	if status == "" {
		return apperrors.Conflict("only pending grievances can be edited")
	}
	return apperrors.Conflict(fmt.Sprintf("only pending grievances can be edited; this one is %s", status))
}

// Track looks a grievance up by tracking number.
func (s *GrievanceService) Track(ctx context.Context, trackingNumber string) (*model.Grievance, error) {
	if trackingNumber == "" {
		return nil, apperrors.ValidationField("tracking_number", "tracking number is required")
	}
	g, err := s.repo.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("get grievance: %w", err)
	}
	return g, nil
}

// ListMine returns the reporter's grievances, newest first.
func (s *GrievanceService) ListMine(ctx context.Context, reporterID string, limit, offset int) ([]*model.Grievance, error) {
	return s.list(ctx, model.GrievanceListOptions{Limit: limit, Offset: offset, ReporterID: &reporterID})
}

// ListAll returns grievances across all reporters.
func (s *GrievanceService) ListAll(ctx context.Context, opts model.GrievanceListOptions) ([]*model.Grievance, error) {
	return s.list(ctx, opts)
}

func (s *GrievanceService) list(ctx context.Context, opts model.GrievanceListOptions) ([]*model.Grievance, error) {
	opts.Limit = clampPageSize(opts.Limit)
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	items, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list grievances: %w", err)
	}
	return items, nil
}

// Summary returns status counts and the most recent grievances. A nil
// reporterID summarises every grievance.
func (s *GrievanceService) Summary(ctx context.Context, reporterID *string) (*GrievanceSummary, error) {
	var (
		counts model.GrievanceStatusCounts
		recent []*model.Grievance
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.repo.CountByStatus(gctx, reporterID)
		if err != nil {
			return fmt.Errorf("count grievances: %w", err)
		}
		counts = c
		return nil
	})
	g.Go(func() error {
		items, err := s.repo.List(gctx, model.GrievanceListOptions{Limit: summaryRecentCount, ReporterID: reporterID})
		if err != nil {
			return fmt.Errorf("recent grievances: %w", err)
		}
		recent = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if counts == nil {
		counts = model.GrievanceStatusCounts{}
	}
	if recent == nil {
		recent = []*model.Grievance{}
	}
	return &GrievanceSummary{Counts: counts, Total: counts.Total(), Recent: recent}, nil
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return defaultGrievancePageSize
	case n > maxGrievancePageSize:
		return maxGrievancePageSize
	default:
		return n
	}
}
