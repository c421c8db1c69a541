// Package notify defines the escalation payload sent to on-call channels when
// a high-priority grievance is filed.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
)

// GrievanceAlert is the canonical data emitted for an escalated grievance.
type GrievanceAlert struct {
	GrievanceID    string
	TrackingNumber string
	Title          string
	Category       string
	Priority       string
	ReporterEmail  string
	Address        string
	Latitude       float64
	Longitude      float64
	Severity       string
	OccurredAt     time.Time
	Metadata       map[string]string
}

// Sink describes a destination capable of consuming grievance alerts.
type Sink interface {
	SendGrievanceAlert(ctx context.Context, alert GrievanceAlert) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, alert GrievanceAlert) error

// SendGrievanceAlert implements the Sink interface.
func (f SinkFunc) SendGrievanceAlert(ctx context.Context, alert GrievanceAlert) error {
	if f == nil {
		return nil
	}
	return f(ctx, alert)
}
