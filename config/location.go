package config

import (
	"time"

	"github.com/civicconnect/portal/internal/domain/geo"
)

// LocationConfig controls the grievance form's location picker.
type LocationConfig struct {
	HighAccuracy bool          `env:"HIGH_ACCURACY" envDefault:"true"`
	Timeout      time.Duration `env:"TIMEOUT"       envDefault:"15s"`
	MaximumAge   time.Duration `env:"MAXIMUM_AGE"   envDefault:"5m"`

	// Initial map center before any selection.
	DefaultLat float64 `env:"DEFAULT_LAT" envDefault:"28.6139"`
	DefaultLng float64 `env:"DEFAULT_LNG" envDefault:"77.2090"`
}

// Sanitize falls back to defaults for out-of-range values.
func (c *LocationConfig) Sanitize() {
	def := geo.DefaultPositionOptions()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaximumAge < 0 {
		c.MaximumAge = 0
	}
	if c.Center().Validate() != nil {
		c.DefaultLat, c.DefaultLng = geo.DefaultCenter.Lat, geo.DefaultCenter.Lng
	}
}

// PositionOptions returns the options sent with every position request.
func (c *LocationConfig) PositionOptions() geo.PositionOptions {
	return geo.PositionOptions{
		HighAccuracy: c.HighAccuracy,
		Timeout:      c.Timeout,
		MaximumAge:   c.MaximumAge,
	}
}

// Center returns the configured initial map center.
func (c *LocationConfig) Center() geo.Coordinate {
	return geo.Coordinate{Lat: c.DefaultLat, Lng: c.DefaultLng}
}
