// Package location implements the location picker behind the grievance form:
// one-shot device detection, manual map selection, and the permission state
// shown to the user.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/civicconnect/portal/internal/domain/geo"
	"github.com/civicconnect/portal/internal/observability/metrics"
	"github.com/civicconnect/portal/internal/observability/statsd"
	"github.com/civicconnect/portal/internal/ports"
)

var (
	// ErrDetectionInProgress is returned when a detection is already outstanding.
	ErrDetectionInProgress = errors.New("location detection already in progress")
	// ErrEngineClosed is returned by every operation after Close.
	ErrEngineClosed = errors.New("location engine closed")
	// ErrMapNotReady is returned by SelectFromMap before the map has loaded.
	ErrMapNotReady = errors.New("map not ready")
)

const (
	sourceDetect = "detect"
	sourceMap    = "map"
)

// SelectFunc receives every coordinate the engine emits.
type SelectFunc func(lat, lng float64)

// Options configures an Engine.
type Options struct {
	// Capability is the device location source. Nil means the device has none.
	Capability ports.LocationCapability
	// OnSelect receives emitted coordinates. It must not call back into the engine.
	OnSelect SelectFunc
	Notifier ports.Notifier
	// PositionOptions defaults to geo.DefaultPositionOptions when zero.
	PositionOptions geo.PositionOptions
	// Center defaults to geo.DefaultCenter when zero.
	Center  geo.Coordinate
	Logger  *slog.Logger
	Metrics statsd.Sink
	Now     func() time.Time
}

// Engine acquires a location for one form. It is safe for concurrent use.
type Engine struct {
	capability ports.LocationCapability
	onSelect   SelectFunc
	notifier   ports.Notifier
	posOpts    geo.PositionOptions
	logger     *slog.Logger
	metrics    statsd.Sink
	now        func() time.Time

	mu         sync.Mutex
	permission geo.Permission
	center     geo.Coordinate
	mapReady   bool
	pending    bool
	closed     bool
	// selections counts emissions; a detection started at an older count is stale.
	selections uint64

	// emitMu serialises emissions to onSelect.
	emitMu sync.Mutex
}

// NewEngine returns an Engine in the Prompt state.
func NewEngine(opts Options) *Engine {
	posOpts := opts.PositionOptions
	if posOpts == (geo.PositionOptions{}) {
		posOpts = geo.DefaultPositionOptions()
	}
	if posOpts.Timeout <= 0 {
		posOpts.Timeout = geo.DefaultTimeout
	}
	center := opts.Center
	if center.IsZero() {
		center = geo.DefaultCenter
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		capability: opts.Capability,
		onSelect:   opts.OnSelect,
		notifier:   opts.Notifier,
		posOpts:    posOpts,
		logger:     logger.With("component", "location_engine"),
		metrics:    opts.Metrics,
		now:        now,
		permission: geo.PermissionPrompt,
		center:     center,
	}
}

// Permission returns the current permission state.
func (e *Engine) Permission() geo.Permission {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.permission
}

// Center returns where the map is centred.
func (e *Engine) Center() geo.Coordinate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.center
}

// MapReady reports whether manual selection is available.
func (e *Engine) MapReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mapReady
}

// SetMapReady marks the map as loaded (or not).
func (e *Engine) SetMapReady(ready bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mapReady = ready
}

// CanDetect reports whether the detect control should be enabled:
// no detection is outstanding and the engine is open.
func (e *Engine) CanDetect() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.pending && !e.closed
}

// Close tears the engine down. Outstanding results are dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

// DetectCurrentLocation asks the device for one fix and emits it.
// The permission is Prompt while the request is outstanding.
//
// On failure the permission becomes Denied, one notice is raised, and the
// returned error is a *geo.PositionError. If ctx is canceled the result is
// discarded and ctx.Err() is returned without a notice.
func (e *Engine) DetectCurrentLocation(ctx context.Context) (geo.Coordinate, error) {
	start := e.now()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return geo.Coordinate{}, ErrEngineClosed
	}
	if e.pending {
		e.mu.Unlock()
		return geo.Coordinate{}, ErrDetectionInProgress
	}
	if e.capability == nil {
		e.permission = geo.PermissionDenied
		e.mu.Unlock()
		err := geo.NewPositionError(geo.FailureCapabilityMissing, "")
		e.reportFailure(ctx, err, start)
		return geo.Coordinate{}, err
	}
	e.pending = true
	e.permission = geo.PermissionPrompt
	startedAt := e.selections
	e.mu.Unlock()

	pos, err := e.request(ctx)

	e.mu.Lock()
	e.pending = false
	if e.closed {
		e.mu.Unlock()
		e.logger.DebugContext(ctx, "dropping location result after close")
		return geo.Coordinate{}, ErrEngineClosed
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		e.mu.Unlock()
		return geo.Coordinate{}, ctxErr
	}
	if err != nil {
		e.permission = geo.PermissionDenied
		e.mu.Unlock()
		e.reportFailure(ctx, err, start)
		return geo.Coordinate{}, err
	}
	e.permission = geo.PermissionGranted
	e.center = pos.Coordinate
	e.mu.Unlock()

	if e.emit(startedAt, pos.Coordinate) {
		e.notify(ctx, geo.SuccessNotice())
	} else {
		e.logger.InfoContext(ctx, "detected location superseded by manual selection")
	}
	metrics.EmitLocation(e.metrics, metrics.LocationMetric{
		Source:   sourceDetect,
		Result:   metrics.ResultSuccess,
		Duration: e.now().Sub(start),
	})
	return pos.Coordinate, nil
}

// SelectFromMap emits a coordinate picked on the map. It works in every
// permission state and leaves the permission unchanged.
func (e *Engine) SelectFromMap(lat, lng float64) error {
	c := geo.Coordinate{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		return err
	}

	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if !e.mapReady {
		e.mu.Unlock()
		return ErrMapNotReady
	}
	e.selections++
	e.mu.Unlock()

	if e.onSelect != nil {
		e.onSelect(c.Lat, c.Lng)
	}
	metrics.EmitLocation(e.metrics, metrics.LocationMetric{Source: sourceMap, Result: metrics.ResultSuccess})
	return nil
}

// emit delivers c unless a selection happened after startedAt.
func (e *Engine) emit(startedAt uint64, c geo.Coordinate) bool {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	if e.selections != startedAt || e.closed {
		e.mu.Unlock()
		return false
	}
	e.selections++
	e.mu.Unlock()

	if e.onSelect != nil {
		e.onSelect(c.Lat, c.Lng)
	}
	return true
}

type positionResult struct {
	pos geo.Position
	err error
}

// request runs one capability call bounded by the configured timeout.
func (e *Engine) request(ctx context.Context) (geo.Position, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.posOpts.Timeout)
	defer cancel()

	results := make(chan positionResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- positionResult{err: geo.NewPositionError(geo.FailurePositionUnavailable, fmt.Sprint(r))}
			}
		}()
		pos, err := e.capability.CurrentPosition(reqCtx, e.posOpts)
		results <- positionResult{pos: pos, err: err}
	}()

	select {
	case r := <-results:
		if r.err != nil {
			return geo.Position{}, asPositionError(r.err)
		}
		if err := r.pos.Validate(); err != nil {
			return geo.Position{}, geo.NewPositionError(geo.FailurePositionUnavailable, err.Error())
		}
		return r.pos, nil
	case <-reqCtx.Done():
		if ctx.Err() != nil {
			return geo.Position{}, ctx.Err()
		}
		return geo.Position{}, geo.NewPositionError(geo.FailureTimeout,
			fmt.Sprintf("no position within %s", e.posOpts.Timeout))
	}
}

func asPositionError(err error) *geo.PositionError {
	var pe *geo.PositionError
	if errors.As(err, &pe) && pe.Kind != "" {
		return pe
	}
	return geo.NewPositionError(geo.KindOf(err), err.Error())
}

func (e *Engine) reportFailure(ctx context.Context, err error, start time.Time) {
	kind := geo.KindOf(err)
	e.logger.WarnContext(ctx, "location detection failed", "kind", string(kind), "error", err)
	e.notify(ctx, geo.FailureNotice(kind))
	metrics.EmitLocation(e.metrics, metrics.LocationMetric{
		Source:   sourceDetect,
		Result:   metrics.ResultError,
		Failure:  string(kind),
		Duration: e.now().Sub(start),
		Err:      err,
	})
}

func (e *Engine) notify(ctx context.Context, n geo.Notice) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ctx, n)
}
