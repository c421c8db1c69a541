// Package geo holds the location vocabulary shared by the acquisition engine,
// its device adapters, and the grievance draft that receives selections.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultCenter is the initial map center before any fix is obtained (New Delhi).
var DefaultCenter = Coordinate{Lat: 28.6139, Lng: 77.2090} //nolint:gochecknoglobals // immutable default

// ErrInvalidCoordinate is returned for coordinates outside WGS84 bounds.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Validate checks the coordinate lies within [-90,90] x [-180,180].
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, c.Lat)
	}
	if math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, c.Lng)
	}
	return nil
}

// IsZero reports whether the coordinate is the zero value.
func (c Coordinate) IsZero() bool { return c.Lat == 0 && c.Lng == 0 }

// Permission is the device geolocation permission as observed by the engine.
type Permission string

const (
	PermissionPrompt  Permission = "prompt"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// FailureKind classifies why a geolocation attempt failed.
type FailureKind string

const (
	FailureCapabilityMissing   FailureKind = "capability_missing"
	FailurePermissionDenied    FailureKind = "permission_denied"
	FailurePositionUnavailable FailureKind = "position_unavailable"
	FailureTimeout             FailureKind = "timeout"
)

// Message returns the user-facing notification text for the failure.
func (k FailureKind) Message() string {
	switch k {
	case FailureCapabilityMissing:
		return "Geolocation is not supported by this browser"
	case FailurePermissionDenied:
		return "Location access denied. Please enable location access in your browser settings."
	case FailureTimeout:
		return "Location request timed out. Please try again."
	default:
		return "Location unavailable. Please check your GPS settings."
	}
}

// SuccessMessage is shown after a position is detected.
const SuccessMessage = "Location detected successfully!"

// Browser PositionError codes as reported by the W3C Geolocation API.
const (
	BrowserCodePermissionDenied    = 1
	BrowserCodePositionUnavailable = 2
	BrowserCodeTimeout             = 3
)

// KindFromBrowserCode maps a W3C PositionError code to a FailureKind.
// Unknown codes are reported as unavailable.
func KindFromBrowserCode(code int) FailureKind {
	switch code {
	case BrowserCodePermissionDenied:
		return FailurePermissionDenied
	case BrowserCodeTimeout:
		return FailureTimeout
	default:
		return FailurePositionUnavailable
	}
}

// PositionOptions mirrors the options passed to the device for a single fix.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaximumAge = 5 * time.Minute
)

// DefaultPositionOptions returns high accuracy, a 15s timeout and a 5 minute maximum age.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		HighAccuracy: true,
		Timeout:      DefaultTimeout,
		MaximumAge:   DefaultMaximumAge,
	}
}

// Position is a single fix reported by a location capability.
type Position struct {
	Coordinate
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PositionError is the typed failure returned by location capabilities.
type PositionError struct {
	Kind   FailureKind
	Detail string
}

func (e *PositionError) Error() string {
	if e.Detail == "" {
		return "geolocation: " + string(e.Kind)
	}
	return "geolocation: " + string(e.Kind) + ": " + e.Detail
}

// NewPositionError builds a PositionError of the given kind.
func NewPositionError(kind FailureKind, detail string) *PositionError {
	return &PositionError{Kind: kind, Detail: detail}
}

// KindOf classifies err. Deadline errors become timeouts; anything unrecognised is
// reported as an unavailable position.
func KindOf(err error) FailureKind {
	var pe *PositionError
	if errors.As(err, &pe) && pe.Kind != "" {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailurePositionUnavailable
}

// NoticeLevel is the severity of a transient notification.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient, user-visible notification raised by the engine.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Kind    FailureKind `json:"kind,omitempty"`
	Message string      `json:"message"`
}

// FailureNotice builds the error notice for kind.
func FailureNotice(kind FailureKind) Notice {
	return Notice{Level: NoticeError, Kind: kind, Message: kind.Message()}
}

// SuccessNotice builds the notice raised after a successful detection.
func SuccessNotice() Notice {
	return Notice{Level: NoticeSuccess, Message: SuccessMessage}
}
