package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/civicconnect/portal/internal/domain/model"
	apperrors "github.com/civicconnect/portal/internal/errors"
	"github.com/civicconnect/portal/internal/ports"
	"github.com/jackc/pgx/v5"
)

const grievanceColumns = `id, tracking_number, reporter_id, reporter_email, title, description,
	category, priority, status, latitude, longitude, address, created_at, updated_at`

// GrievanceRepo stores grievances in PostgreSQL.
type GrievanceRepo struct {
	DB  *sql.DB
	now func() time.Time
}

var _ ports.GrievanceRepository = (*GrievanceRepo)(nil)

// NewGrievanceRepo creates a GrievanceRepo using the system clock.
func NewGrievanceRepo(db *sql.DB) *GrievanceRepo {
	return &GrievanceRepo{DB: db, now: time.Now}
}

// NewGrievanceRepoWithClock creates a GrievanceRepo that stamps rows using now.
func NewGrievanceRepoWithClock(db *sql.DB, now func() time.Time) *GrievanceRepo {
	return &GrievanceRepo{DB: db, now: now}
}

// Create inserts g. Zero timestamps are filled from the repository clock.
func (r *GrievanceRepo) Create(ctx context.Context, g *model.Grievance) (*model.Grievance, error) {
	if g == nil {
		return nil, ErrGrievanceRequired
	}
	now := r.now().UTC()
	createdAt, updatedAt := g.CreatedAt, g.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	var out model.Grievance
	err := withConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO grievances (
				id, tracking_number, reporter_id, reporter_email, title, description,
				category, priority, status, latitude, longitude, address, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING `+grievanceColumns,
			g.ID, g.TrackingNumber, g.ReporterID, g.ReporterEmail, g.Title, g.Description,
			g.Category, g.Priority, g.Status, g.Latitude, g.Longitude, g.Address, createdAt, updatedAt,
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Grievance])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID returns the grievance with the given id.
func (r *GrievanceRepo) GetByID(ctx context.Context, id string) (*model.Grievance, error) {
	return r.queryOne(ctx, id, `SELECT `+grievanceColumns+` FROM grievances WHERE id = $1`, id)
}

// GetByTrackingNumber returns the grievance with the given tracking number.
func (r *GrievanceRepo) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*model.Grievance, error) {
	return r.queryOne(ctx, trackingNumber,
		`SELECT `+grievanceColumns+` FROM grievances WHERE tracking_number = $1`, trackingNumber)
}

// UpdateStatus sets the status and updated_at of a grievance.
func (r *GrievanceRepo) UpdateStatus(
	ctx context.Context,
	id string,
	status model.GrievanceStatus,
	at time.Time,
) (*model.Grievance, error) {
	return r.queryOne(ctx, id, `
		UPDATE grievances SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+grievanceColumns,
		id, string(status), at.UTC())
}

// UpdatePending applies the set fields of req to a pending grievance owned by
// reporterID. The status check and the write happen in one statement.
func (r *GrievanceRepo) UpdatePending(
	ctx context.Context,
	id, reporterID string,
	req model.UpdateGrievanceRequest,
	at time.Time,
) (*model.Grievance, error) {
	var category, priority *string
	if req.Category != nil {
		v := string(*req.Category)
		category = &v
	}
	if req.Priority != nil {
		v := string(*req.Priority)
		priority = &v
	}
	return r.queryOne(ctx, id, `
		UPDATE grievances SET
			title       = COALESCE($3, title),
			description = COALESCE($4, description),
			category    = COALESCE($5, category),
			priority    = COALESCE($6, priority),
			address     = COALESCE($7, address),
			updated_at  = $8
		WHERE id = $1 AND reporter_id = $2 AND status = 'pending'
		RETURNING `+grievanceColumns,
		id, reporterID, req.Title, req.Description, category, priority, req.Address, at.UTC())
}

// queryOne runs a statement returning at most one grievance row; key names
// the grievance in the not-found error.
func (r *GrievanceRepo) queryOne(ctx context.Context, key, query string, args ...any) (*model.Grievance, error) {
	var out model.Grievance
	err := withConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Grievance])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("grievance %s not found", key)
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// List returns grievances newest first, filtered by reporter and status when set.
func (r *GrievanceRepo) List(ctx context.Context, opts model.GrievanceListOptions) ([]*model.Grievance, error) {
	where, args := grievanceFilter(opts.ReporterID, opts.Status)
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)
	args = append(args, limit, offset)
	query := `SELECT ` + grievanceColumns + ` FROM grievances` + where +
		` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var rowsOut []model.Grievance
	err := withConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Grievance])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list grievances: %w", apperrors.MapDBError(err))
	}

	res := make([]*model.Grievance, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// CountByStatus returns how many grievances sit in each status. Statuses
// with no grievances are present with a zero count.
func (r *GrievanceRepo) CountByStatus(ctx context.Context, reporterID *string) (model.GrievanceStatusCounts, error) {
	where, args := grievanceFilter(reporterID, nil)
	counts := model.GrievanceStatusCounts{
		model.GrievanceStatusPending:    0,
		model.GrievanceStatusInProgress: 0,
		model.GrievanceStatusResolved:   0,
		model.GrievanceStatusRejected:   0,
		model.GrievanceStatusClosed:     0,
	}

	err := withConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT status, COUNT(*) FROM grievances`+where+` GROUP BY status`, args...)
		if err != nil {
			return err
		}
		var (
			status model.GrievanceStatus
			n      int
		)
		_, err = pgx.ForEachRow(rows, []any{&status, &n}, func() error {
			counts[status] = n
			return nil
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count grievances: %w", apperrors.MapDBError(err))
	}
	return counts, nil
}

func grievanceFilter(reporterID *string, status *model.GrievanceStatus) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if reporterID != nil {
		args = append(args, *reporterID)
		clauses = append(clauses, "reporter_id = $"+strconv.Itoa(len(args)))
	}
	if status != nil {
		args = append(args, string(*status))
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
