package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/civicconnect/portal/internal/domain/geo"
	"github.com/civicconnect/portal/internal/mocks"
	"github.com/civicconnect/portal/internal/observability/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type selection struct{ lat, lng float64 }

type harness struct {
	mu       sync.Mutex
	selected []selection
	notices  []geo.Notice
	metrics  statsd.Recorder
}

func (h *harness) onSelect(lat, lng float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selected = append(h.selected, selection{lat, lng})
}

func (h *harness) Notify(_ context.Context, n geo.Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, n)
}

func (h *harness) selections() []selection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]selection(nil), h.selected...)
}

func (h *harness) noticeList() []geo.Notice {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]geo.Notice(nil), h.notices...)
}

func newTestEngine(h *harness, capability CapabilityFunc) *Engine {
	opts := Options{
		OnSelect: h.onSelect,
		Notifier: h,
		Metrics:  &h.metrics,
	}
	if capability != nil {
		opts.Capability = capability
	}
	return NewEngine(opts)
}

func fixAt(lat, lng float64) CapabilityFunc {
	return func(context.Context, geo.PositionOptions) (geo.Position, error) {
		return geo.Position{Coordinate: geo.Coordinate{Lat: lat, Lng: lng}, Accuracy: 12, Timestamp: time.Now()}, nil
	}
}

func failWith(err error) CapabilityFunc {
	return func(context.Context, geo.PositionOptions) (geo.Position, error) {
		return geo.Position{}, err
	}
}

// blocker is a capability that parks until released or its context ends.
type blocker struct {
	entered chan struct{}
	release chan geo.Position
}

func newBlocker() *blocker {
	return &blocker{entered: make(chan struct{}, 1), release: make(chan geo.Position, 1)}
}

func (b *blocker) capability(ctx context.Context, _ geo.PositionOptions) (geo.Position, error) {
	b.entered <- struct{}{}
	select {
	case pos := <-b.release:
		return pos, nil
	case <-ctx.Done():
		return geo.Position{}, ctx.Err()
	}
}

func (b *blocker) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-b.entered:
	case <-time.After(time.Second):
		t.Fatal("capability was never called")
	}
}

func TestEngine_InitialState(t *testing.T) {
	e := NewEngine(Options{})
	assert.Equal(t, geo.PermissionPrompt, e.Permission())
	assert.Equal(t, geo.DefaultCenter, e.Center())
	assert.False(t, e.MapReady())
	assert.True(t, e.CanDetect())
}

func TestEngine_DetectSuccess(t *testing.T) {
	h := &harness{}
	e := newTestEngine(h, fixAt(28.6139, 77.2090))

	got, err := e.DetectCurrentLocation(context.Background())
	require.NoError(t, err)

	assert.Equal(t, geo.Coordinate{Lat: 28.6139, Lng: 77.2090}, got)
	assert.Equal(t, geo.PermissionGranted, e.Permission())
	assert.Equal(t, []selection{{28.6139, 77.2090}}, h.selections())
	assert.Equal(t, got, e.Center())
	assert.Equal(t, []geo.Notice{geo.SuccessNotice()}, h.noticeList())
	assert.Len(t, h.metrics.Named("location.acquire"), 1)
}

func TestEngine_DetectFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    geo.FailureKind
		message string
	}{
		{
			name:    "permission denied",
			err:     geo.NewPositionError(geo.FailurePermissionDenied, "user dismissed prompt"),
			kind:    geo.FailurePermissionDenied,
			message: "Location access denied. Please enable location access in your browser settings.",
		},
		{
			name:    "position unavailable",
			err:     geo.NewPositionError(geo.FailurePositionUnavailable, ""),
			kind:    geo.FailurePositionUnavailable,
			message: "Location unavailable. Please check your GPS settings.",
		},
		{
			name:    "device timeout",
			err:     geo.NewPositionError(geo.FailureTimeout, ""),
			kind:    geo.FailureTimeout,
			message: "Location request timed out. Please try again.",
		},
		{
			name:    "unsupported device",
			err:     geo.NewPositionError(geo.FailureCapabilityMissing, ""),
			kind:    geo.FailureCapabilityMissing,
			message: "Geolocation is not supported by this browser",
		},
		{
			name:    "unclassified error",
			err:     errors.New("chip on fire"),
			kind:    geo.FailurePositionUnavailable,
			message: "Location unavailable. Please check your GPS settings.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &harness{}
			e := newTestEngine(h, failWith(tt.err))

			_, err := e.DetectCurrentLocation(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.kind, geo.KindOf(err))

			assert.Equal(t, geo.PermissionDenied, e.Permission())
			assert.Empty(t, h.selections())
			notices := h.noticeList()
			require.Len(t, notices, 1)
			assert.Equal(t, geo.NoticeError, notices[0].Level)
			assert.Equal(t, tt.message, notices[0].Message)
			assert.True(t, e.CanDetect(), "no automatic retry, but the user may try again")
		})
	}
}

func TestEngine_NoCapability(t *testing.T) {
	h := &harness{}
	e := newTestEngine(h, nil)

	_, err := e.DetectCurrentLocation(context.Background())
	require.Error(t, err)
	assert.Equal(t, geo.FailureCapabilityMissing, geo.KindOf(err))
	assert.Equal(t, geo.PermissionDenied, e.Permission())
	assert.Equal(t, []geo.Notice{geo.FailureNotice(geo.FailureCapabilityMissing)}, h.noticeList())
	assert.Empty(t, h.selections())
}

func TestEngine_EnforcesTimeout(t *testing.T) {
	h := &harness{}
	b := newBlocker()
	e := NewEngine(Options{
		Capability:      CapabilityFunc(b.capability),
		OnSelect:        h.onSelect,
		Notifier:        h,
		PositionOptions: geo.PositionOptions{HighAccuracy: true, Timeout: 20 * time.Millisecond, MaximumAge: time.Minute},
	})

	_, err := e.DetectCurrentLocation(context.Background())
	require.Error(t, err)
	assert.Equal(t, geo.FailureTimeout, geo.KindOf(err))
	assert.Equal(t, geo.PermissionDenied, e.Permission())
	assert.Equal(t, []geo.Notice{geo.FailureNotice(geo.FailureTimeout)}, h.noticeList())
}

type ignoringCapability struct{ done chan struct{} }

func (c ignoringCapability) CurrentPosition(context.Context, geo.PositionOptions) (geo.Position, error) {
	<-c.done
	return geo.Position{}, nil
}

func TestEngine_TimeoutWhenCapabilityIgnoresContext(t *testing.T) {
	h := &harness{}
	capability := ignoringCapability{done: make(chan struct{})}
	defer close(capability.done)

	e := NewEngine(Options{
		Capability:      capability,
		OnSelect:        h.onSelect,
		Notifier:        h,
		PositionOptions: geo.PositionOptions{Timeout: 20 * time.Millisecond},
	})

	_, err := e.DetectCurrentLocation(context.Background())
	assert.Equal(t, geo.FailureTimeout, geo.KindOf(err))
	assert.Equal(t, geo.PermissionDenied, e.Permission())
}

func TestEngine_InvalidFixIsUnavailable(t *testing.T) {
	h := &harness{}
	e := newTestEngine(h, fixAt(123, 0))

	_, err := e.DetectCurrentLocation(context.Background())
	assert.Equal(t, geo.FailurePositionUnavailable, geo.KindOf(err))
	assert.Empty(t, h.selections())
}

func TestEngine_SelectFromMap(t *testing.T) {
	for _, denied := range []bool{false, true} {
		h := &harness{}
		e := newTestEngine(h, failWith(geo.NewPositionError(geo.FailurePermissionDenied, "")))
		if denied {
			_, _ = e.DetectCurrentLocation(context.Background())
		}
		before := e.Permission()
		e.SetMapReady(true)

		require.NoError(t, e.SelectFromMap(19.0760, 72.8777))
		assert.Equal(t, []selection{{19.0760, 72.8777}}, h.selections())
		assert.Equal(t, before, e.Permission())
	}
}

func TestEngine_SelectFromMap_Rejections(t *testing.T) {
	h := &harness{}
	e := newTestEngine(h, nil)

	require.ErrorIs(t, e.SelectFromMap(19.0760, 72.8777), ErrMapNotReady)

	e.SetMapReady(true)
	require.ErrorIs(t, e.SelectFromMap(91, 0), geo.ErrInvalidCoordinate)

	e.Close()
	require.ErrorIs(t, e.SelectFromMap(19.0760, 72.8777), ErrEngineClosed)
	assert.Empty(t, h.selections())
}

func TestEngine_OneDetectionInFlight(t *testing.T) {
	h := &harness{}
	b := newBlocker()
	e := newTestEngine(h, b.capability)

	done := make(chan error, 1)
	go func() {
		_, err := e.DetectCurrentLocation(context.Background())
		done <- err
	}()
	b.waitEntered(t)

	assert.False(t, e.CanDetect())
	_, err := e.DetectCurrentLocation(context.Background())
	require.ErrorIs(t, err, ErrDetectionInProgress)

	b.release <- geo.Position{Coordinate: geo.Coordinate{Lat: 28.6139, Lng: 77.2090}}
	require.NoError(t, <-done)
	assert.True(t, e.CanDetect())
	assert.Len(t, h.selections(), 1)
}

func TestEngine_ManualSelectionSupersedesDetection(t *testing.T) {
	h := &harness{}
	b := newBlocker()
	e := newTestEngine(h, b.capability)
	e.SetMapReady(true)

	done := make(chan error, 1)
	go func() {
		_, err := e.DetectCurrentLocation(context.Background())
		done <- err
	}()
	b.waitEntered(t)

	require.NoError(t, e.SelectFromMap(19.0760, 72.8777))
	b.release <- geo.Position{Coordinate: geo.Coordinate{Lat: 28.6139, Lng: 77.2090}}
	require.NoError(t, <-done)

	assert.Equal(t, []selection{{19.0760, 72.8777}}, h.selections())
	assert.Equal(t, geo.PermissionGranted, e.Permission())
	assert.Empty(t, h.noticeList(), "no success notice for a fix the form did not take")
}

func TestEngine_RetryAfterDenialReturnsToPrompt(t *testing.T) {
	h := &harness{}
	b := newBlocker()
	denied := true
	e := newTestEngine(h, func(ctx context.Context, opts geo.PositionOptions) (geo.Position, error) {
		if denied {
			return geo.Position{}, geo.NewPositionError(geo.FailurePermissionDenied, "")
		}
		return b.capability(ctx, opts)
	})

	_, err := e.DetectCurrentLocation(context.Background())
	require.Error(t, err)
	require.Equal(t, geo.PermissionDenied, e.Permission())

	denied = false
	done := make(chan error, 1)
	go func() {
		_, err := e.DetectCurrentLocation(context.Background())
		done <- err
	}()
	b.waitEntered(t)

	assert.Equal(t, geo.PermissionPrompt, e.Permission())
	assert.False(t, e.CanDetect())

	b.release <- geo.Position{Coordinate: geo.Coordinate{Lat: 28.6139, Lng: 77.2090}}
	require.NoError(t, <-done)
	assert.Equal(t, geo.PermissionGranted, e.Permission())
}

func TestEngine_CloseDropsPendingResult(t *testing.T) {
	h := &harness{}
	b := newBlocker()
	e := newTestEngine(h, b.capability)

	done := make(chan error, 1)
	go func() {
		_, err := e.DetectCurrentLocation(context.Background())
		done <- err
	}()
	b.waitEntered(t)

	e.Close()
	b.release <- geo.Position{Coordinate: geo.Coordinate{Lat: 28.6139, Lng: 77.2090}}

	require.ErrorIs(t, <-done, ErrEngineClosed)
	assert.Empty(t, h.selections())
	assert.Empty(t, h.noticeList())
	assert.False(t, e.CanDetect())

	_, err := e.DetectCurrentLocation(context.Background())
	require.ErrorIs(t, err, ErrEngineClosed)
}

func TestEngine_CallerCancellation(t *testing.T) {
	h := &harness{}
	b := newBlocker()
	e := newTestEngine(h, b.capability)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.DetectCurrentLocation(ctx)
		done <- err
	}()
	b.waitEntered(t)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, geo.PermissionPrompt, e.Permission())
	assert.Empty(t, h.noticeList())
	assert.True(t, e.CanDetect())
}

func TestEngine_RequestsConfiguredOptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	capability := mocks.NewMockLocationCapability(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)

	capability.EXPECT().
		CurrentPosition(gomock.Any(), geo.DefaultPositionOptions()).
		Return(geo.Position{Coordinate: geo.Coordinate{Lat: 28.6139, Lng: 77.2090}}, nil).
		Times(1)
	notifier.EXPECT().Notify(gomock.Any(), geo.SuccessNotice()).Times(1)

	var emitted int
	e := NewEngine(Options{
		Capability: capability,
		Notifier:   notifier,
		OnSelect:   func(float64, float64) { emitted++ },
	})

	_, err := e.DetectCurrentLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, emitted)
}
