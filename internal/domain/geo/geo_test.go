package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		c       Coordinate
		wantErr bool
	}{
		{name: "default center", c: DefaultCenter},
		{name: "mumbai", c: Coordinate{Lat: 19.0760, Lng: 72.8777}},
		{name: "poles and antimeridian", c: Coordinate{Lat: -90, Lng: 180}},
		{name: "latitude too large", c: Coordinate{Lat: 90.0001, Lng: 0}, wantErr: true},
		{name: "longitude too small", c: Coordinate{Lat: 0, Lng: -180.5}, wantErr: true},
		{name: "nan", c: Coordinate{Lat: math.NaN(), Lng: 0}, wantErr: true},
		{name: "inf", c: Coordinate{Lat: 0, Lng: math.Inf(1)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinate)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestKindFromBrowserCode(t *testing.T) {
	assert.Equal(t, FailurePermissionDenied, KindFromBrowserCode(1))
	assert.Equal(t, FailurePositionUnavailable, KindFromBrowserCode(2))
	assert.Equal(t, FailureTimeout, KindFromBrowserCode(3))
	assert.Equal(t, FailurePositionUnavailable, KindFromBrowserCode(42))
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("device: %w", NewPositionError(FailurePermissionDenied, "user said no"))
	assert.Equal(t, FailurePermissionDenied, KindOf(wrapped))
	assert.Equal(t, FailureTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, FailurePositionUnavailable, KindOf(errors.New("boom")))
}

func TestFailureMessages(t *testing.T) {
	assert.Equal(t, "Location access denied. Please enable location access in your browser settings.",
		FailurePermissionDenied.Message())
	assert.Equal(t, "Location unavailable. Please check your GPS settings.", FailurePositionUnavailable.Message())
	assert.Equal(t, "Location request timed out. Please try again.", FailureTimeout.Message())
	assert.Equal(t, "Geolocation is not supported by this browser", FailureCapabilityMissing.Message())

	n := FailureNotice(FailureTimeout)
	assert.Equal(t, NoticeError, n.Level)
	assert.Equal(t, FailureTimeout, n.Kind)
	assert.Equal(t, NoticeSuccess, SuccessNotice().Level)
}

func TestDefaultPositionOptions(t *testing.T) {
	opts := DefaultPositionOptions()
	assert.True(t, opts.HighAccuracy)
	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.Equal(t, DefaultMaximumAge, opts.MaximumAge)
}
