package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/civicconnect/portal/internal/domain/geo"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{name: "message only", err: &AppError{Code: ErrCodeNotFound, Message: "draft not found"}, want: "draft not found"},
		{
			name: "message with cause",
			err:  &AppError{Code: ErrCodeInternal, Message: "save failed", Cause: errors.New("connection reset")},
			want: "save failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, ErrCodeInternal, "wrapped")
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{name: "not found", err: NotFound("x"), code: ErrCodeNotFound},
		{name: "not foundf", err: NotFoundf("draft %s", "d1"), code: ErrCodeNotFound},
		{name: "conflict", err: Conflict("x"), code: ErrCodeConflict},
		{name: "validation", err: Validation("x"), code: ErrCodeValidation},
		{name: "validationf", err: Validationf("bad %d", 1), code: ErrCodeValidation},
		{name: "internal", err: Internal("x"), code: ErrCodeInternal},
		{name: "session", err: SessionUnavailable("x"), code: ErrCodeSessionUnavailable},
		{name: "role", err: InsufficientRole("x"), code: ErrCodeInsufficientRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("title", "title is required")
	if !IsValidation(err) {
		t.Fatal("expected validation error")
	}
	if got := GetField(err); got != "title" {
		t.Errorf("GetField() = %q, want title", got)
	}
}

func TestWrap_NilError(t *testing.T) {
	if err := Wrap(nil, ErrCodeInternal, "x"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestPredicates_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", SessionUnavailable("no session"))
	if !IsSessionUnavailable(wrapped) {
		t.Error("IsSessionUnavailable should see through fmt wrapping")
	}
	if IsInsufficientRole(wrapped) {
		t.Error("IsInsufficientRole should be false")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("plain errors are never NotFound")
	}
	if IsTimeout(nil) || IsCanceled(nil) {
		t.Error("nil is not an AppError")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(Conflict("x")); got != ErrCodeConflict {
		t.Errorf("GetCode() = %v, want conflict", got)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode() = %v, want empty", got)
	}
}

func TestGeo(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    ErrorCode
		message string
	}{
		{
			name:    "permission denied",
			err:     geo.NewPositionError(geo.FailurePermissionDenied, "user denied"),
			code:    ErrCodeGeoPermissionDenied,
			message: geo.FailurePermissionDenied.Message(),
		},
		{
			name:    "capability missing",
			err:     geo.NewPositionError(geo.FailureCapabilityMissing, ""),
			code:    ErrCodeGeoCapabilityMissing,
			message: geo.FailureCapabilityMissing.Message(),
		},
		{
			name:    "deadline",
			err:     context.DeadlineExceeded,
			code:    ErrCodeGeoTimeout,
			message: geo.FailureTimeout.Message(),
		},
		{
			name:    "anything else",
			err:     errors.New("gps offline"),
			code:    ErrCodeGeoPositionUnavailable,
			message: geo.FailurePositionUnavailable.Message(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Geo(tt.err)
			if got.Code != tt.code {
				t.Errorf("Code = %v, want %v", got.Code, tt.code)
			}
			if got.Message != tt.message {
				t.Errorf("Message = %q, want %q", got.Message, tt.message)
			}
			if !errors.Is(got, tt.err) {
				t.Error("Geo should keep the cause")
			}
		})
	}

	if Geo(nil) != nil {
		t.Error("Geo(nil) should be nil")
	}
}
