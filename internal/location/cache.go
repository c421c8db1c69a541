package location

import (
	"context"
	"sync"
	"time"

	"github.com/civicconnect/portal/internal/domain/geo"
	"github.com/civicconnect/portal/internal/ports"
)

// CapabilityFunc adapts a function to ports.LocationCapability.
type CapabilityFunc func(ctx context.Context, opts geo.PositionOptions) (geo.Position, error)

// CurrentPosition calls f.
func (f CapabilityFunc) CurrentPosition(ctx context.Context, opts geo.PositionOptions) (geo.Position, error) {
	return f(ctx, opts)
}

// CachedCapability reuses the last fix while it is younger than the
// requested MaximumAge. Age is measured from when the fix was received,
// not from the device timestamp.
type CachedCapability struct {
	next ports.LocationCapability
	now  func() time.Time

	mu         sync.Mutex
	last       *geo.Position
	receivedAt time.Time
}

var _ ports.LocationCapability = (*CachedCapability)(nil)

// WithPositionCache wraps next. A nil now uses time.Now.
func WithPositionCache(next ports.LocationCapability, now func() time.Time) *CachedCapability {
	if now == nil {
		now = time.Now
	}
	return &CachedCapability{next: next, now: now}
}

// CurrentPosition returns a cached fix when allowed, otherwise polls next.
func (c *CachedCapability) CurrentPosition(ctx context.Context, opts geo.PositionOptions) (geo.Position, error) {
	if pos, ok := c.cached(opts.MaximumAge); ok {
		return pos, nil
	}

	pos, err := c.next.CurrentPosition(ctx, opts)
	if err != nil {
		return geo.Position{}, err
	}
	received := c.now()
	if pos.Timestamp.IsZero() {
		pos.Timestamp = received
	}

	c.mu.Lock()
	c.last = &pos
	c.receivedAt = received
	c.mu.Unlock()
	return pos, nil
}

// Forget drops the cached fix.
func (c *CachedCapability) Forget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = nil
}

func (c *CachedCapability) cached(maxAge time.Duration) (geo.Position, bool) {
	if maxAge <= 0 {
		return geo.Position{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return geo.Position{}, false
	}
	if c.now().Sub(c.receivedAt) > maxAge {
		return geo.Position{}, false
	}
	return *c.last, true
}
