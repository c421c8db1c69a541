package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/civicconnect/portal/config"
	obserrors "github.com/civicconnect/portal/internal/observability/errors"
	"github.com/civicconnect/portal/internal/observability/metrics"
	"github.com/civicconnect/portal/internal/observability/statsd"
	"github.com/civicconnect/portal/internal/ports"
)

// ReaperTarget names one store swept by the reaper.
type ReaperTarget struct {
	Name  string
	Store ports.Sweeper
}

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Targets []ReaperTarget      // Required: at least one store
	Config  config.ReaperConfig // Required: reaper configuration
	Logger  *slog.Logger        // Optional: structured logger
	Metrics statsd.Sink         // Optional: metrics sink (StatsD-compatible)
}

// ReaperService drops expired sessions and drafts from stores that only
// expire records lazily, so abandoned sign-ins and drafts do not hold
// capacity until they are next touched.
type ReaperService struct {
	targets []ReaperTarget
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	var targets []ReaperTarget
	for _, t := range opts.Targets {
		if t.Store != nil {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return nil, errors.New("reaper requires at least one store")
	}
	if opts.Config.Interval <= 0 {
		return nil, fmt.Errorf("reaper interval must be positive, got %s", opts.Config.Interval)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reaper_service")
	logger.Debug("ReaperService initialized", "interval", opts.Config.Interval, "targets", len(targets))

	return &ReaperService{
		targets: targets,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run sweeps at the configured interval until ctx is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)

	// Replicas started together should not sweep in lockstep.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logSweepError(err)
			}
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Sweep runs one pass over every target and returns the number of records
// dropped. A failing target does not stop the others.
func (s *ReaperService) Sweep(ctx context.Context) (int64, error) {
	start := time.Now()
	var (
		total int64
		errs  []error
	)
	for _, t := range s.targets {
		n, err := t.Store.Sweep(ctx)
		s.emitTargetMetric(t.Name, n, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", t.Name, err))
			continue
		}
		total += n
		if n > 0 {
			s.logger.InfoContext(ctx, "swept expired records", "store", t.Name, "count", n)
		}
	}

	err := errors.Join(errs...)
	s.emitSweepMetrics(total, time.Since(start), err)
	return total, err
}

func (s *ReaperService) emitSweepMetrics(total int64, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}

	tags := map[string]string{"result": sweepResult(total, err)}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	s.metrics.Count("reaper.sweep", 1, tags)
	if elapsed > 0 {
		s.metrics.Timing("reaper.sweep_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitTargetMetric(name string, count int64, err error) {
	if s.metrics == nil {
		return
	}
	tags := map[string]string{
		"store":  name,
		"result": sweepResult(count, err),
	}
	if err == nil && count > 0 {
		s.metrics.Count("reaper.records_swept", count, tags)
	}
}

func sweepResult(count int64, err error) string {
	switch {
	case err != nil:
		return metrics.ResultError
	case count == 0:
		return metrics.ResultNoop
	default:
		return metrics.ResultSuccess
	}
}

func (s *ReaperService) logSweepError(err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Debug("sweep cancelled by context", "error", err)
		return
	}
	s.logger.Error("sweep failed", "error", err)
}
