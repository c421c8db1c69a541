package errors

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// constraintMessages covers the named CHECK and UNIQUE constraints on the
// grievances table. Postgres names column constraints <table>_<column>_<kind>.
var constraintMessages = map[string]struct{ field, message string }{
	"grievances_tracking_number_key": {"tracking_number", "A grievance with this tracking number already exists."},
	"grievances_pkey":                {"id", "A grievance with this id already exists."},
	"grievances_title_check":         {"title", "Title must be between 1 and 200 characters."},
	"grievances_description_check":   {"description", "Description must be between 1 and 5000 characters."},
	"grievances_category_check":      {"category", "Category is not recognised."},
	"grievances_priority_check":      {"priority", "Priority is not recognised."},
	"grievances_status_check":        {"status", "Status is not recognised."},
	"grievances_latitude_check":      {"location", "Latitude must be between -90 and 90."},
	"grievances_longitude_check":     {"location", "Longitude must be between -180 and 180."},
}

// MapDBError translates driver errors into AppErrors. Context errors become
// Timeout or Canceled, missing rows become NotFound, constraint violations
// become Conflict or Validation. Anything else is returned unchanged.
func MapDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "Request timed out. Please try again.")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "Request was canceled.")
	case errors.Is(err, pgx.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "Grievance not found")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return constraintError(pgErr, ErrCodeConflict, "This value already exists.")
	case pgerrcode.CheckViolation:
		return constraintError(pgErr, ErrCodeValidation, "A value is outside its allowed range.")
	case pgerrcode.NotNullViolation:
		field := pgErr.ColumnName
		msg := "A required value is missing."
		if field != "" {
			msg = humanize(field) + " is required."
		}
		return &AppError{Code: ErrCodeValidation, Message: msg, Field: field, Cause: pgErr}
	default:
		return Wrap(pgErr, ErrCodeInternal, "A database error occurred. Please try again.")
	}
}

func constraintError(pgErr *pgconn.PgError, code ErrorCode, fallback string) *AppError {
	if known, ok := constraintMessages[pgErr.ConstraintName]; ok {
		return &AppError{Code: code, Message: known.message, Field: known.field, Cause: pgErr}
	}
	return &AppError{Code: code, Message: fallback, Field: pgErr.ColumnName, Cause: pgErr}
}

// humanize turns reporter_email into "Reporter email".
func humanize(column string) string {
	s := strings.ReplaceAll(column, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
