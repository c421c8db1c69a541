package config

import "time"

// ReaperConfig controls the periodic sweep of expired in-memory sessions
// and drafts. Redis expires its own keys and is never swept.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`
}

// Sanitize applies guardrails to reaper configuration.
func (c *ReaperConfig) Sanitize() {
	if c.Interval < time.Second {
		c.Interval = 5 * time.Minute
	}
}
