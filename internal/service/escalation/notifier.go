// Package escalation fans high-priority grievances out to on-call sinks.
package escalation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/civicconnect/portal/internal/domain/model"
	"github.com/civicconnect/portal/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the escalation service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
	// MinPriority is the lowest priority escalated. Defaults to urgent.
	MinPriority model.GrievancePriority
	// Timeout bounds one fan-out. Defaults to 10s.
	Timeout time.Duration
}

// Service dispatches grievance alerts to all registered sinks.
type Service struct {
	logger  *slog.Logger
	sinks   []SinkRegistration
	minRank int
	timeout time.Duration
}

// NewService constructs an escalation notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink"
		}
		sinks = append(sinks, entry)
	}

	minRank := opts.MinPriority.Rank()
	if minRank == 0 {
		minRank = model.PriorityUrgent.Rank()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Service{
		logger:  logger.With("component", "escalation"),
		sinks:   sinks,
		minRank: minRank,
		timeout: timeout,
	}
}

// NotifyGrievance sends g to every sink when its priority qualifies. It blocks
// until all sinks return; delivery errors are logged.
func (s *Service) NotifyGrievance(ctx context.Context, g *model.Grievance) {
	if g == nil || len(s.sinks) == 0 || g.Priority.Rank() < s.minRank {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	alert := AlertFor(g)
	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendGrievanceAlert(ctx, alert); err != nil {
				s.logger.ErrorContext(ctx, "escalation delivery error",
					"sink", entry.Name,
					"tracking_number", g.TrackingNumber,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return len(s.sinks) > 0
}

// AlertFor converts a grievance into the sink payload.
func AlertFor(g *model.Grievance) notify.GrievanceAlert {
	alert := notify.GrievanceAlert{
		GrievanceID:    g.ID,
		TrackingNumber: g.TrackingNumber,
		Title:          g.Title,
		Category:       string(g.Category),
		Priority:       string(g.Priority),
		ReporterEmail:  g.ReporterEmail,
		Latitude:       g.Latitude,
		Longitude:      g.Longitude,
		Severity:       notify.SeverityError,
		OccurredAt:     g.CreatedAt,
	}
	if g.Priority == model.PriorityUrgent {
		alert.Severity = notify.SeverityCritical
	}
	if g.Address != nil {
		alert.Address = *g.Address
	}
	return alert
}
