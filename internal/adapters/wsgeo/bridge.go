// Package wsgeo connects a browser page to the location engine over a WebSocket.
//
// The browser owns the geolocation API and the map; the server owns the
// decision logic. The bridge serves as the engine's LocationCapability (by
// asking the page for a fix) and Notifier (by pushing toasts), and forwards
// map events from the page to the engine.
package wsgeo

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/civicconnect/portal/internal/domain/geo"
	"github.com/civicconnect/portal/internal/ports"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 32
)

// ErrBridgeClosed is returned by CurrentPosition once the connection is gone.
var ErrBridgeClosed = errors.New("location channel closed")

// Controller is the engine surface the bridge drives.
type Controller interface {
	DetectCurrentLocation(ctx context.Context) (geo.Coordinate, error)
	SelectFromMap(lat, lng float64) error
	SetMapReady(ready bool)
	Permission() geo.Permission
	CanDetect() bool
	Close()
}

var upgrader = websocket.Upgrader{ //nolint:gochecknoglobals // stateless, same-origin by default
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Upgrade switches an HTTP request to a WebSocket connection. Cross-origin
// requests are rejected.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Options configures a Bridge.
type Options struct {
	Logger *slog.Logger
}

type reply struct {
	pos geo.Position
	err error
}

// Bridge speaks the location protocol on one connection.
type Bridge struct {
	conn   *websocket.Conn
	logger *slog.Logger

	out  chan []byte
	done chan struct{}
	once sync.Once

	mu        sync.Mutex
	supported bool
	pending   map[string]chan reply
}

var (
	_ ports.LocationCapability = (*Bridge)(nil)
	_ ports.Notifier           = (*Bridge)(nil)
)

// NewBridge wraps conn. Call Run to start serving it.
func NewBridge(conn *websocket.Conn, opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		conn:      conn,
		logger:    logger.With("component", "ws_location"),
		out:       make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		supported: true,
		pending:   make(map[string]chan reply),
	}
}

// CurrentPosition asks the page for one fix and waits for its answer.
func (b *Bridge) CurrentPosition(ctx context.Context, opts geo.PositionOptions) (geo.Position, error) {
	b.mu.Lock()
	if !b.supported {
		b.mu.Unlock()
		return geo.Position{}, geo.NewPositionError(geo.FailureCapabilityMissing, "page reported no geolocation support")
	}
	id := ulid.Make().String()
	ch := make(chan reply, 1)
	b.pending[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	if err := b.send(ctx, positionRequest{
		Type: typePositionRequest,
		ID:   id,
		Options: wireOptions{
			EnableHighAccuracy: opts.HighAccuracy,
			TimeoutMS:          opts.Timeout.Milliseconds(),
			MaximumAgeMS:       opts.MaximumAge.Milliseconds(),
		},
	}); err != nil {
		return geo.Position{}, err
	}

	select {
	case r := <-ch:
		return r.pos, r.err
	case <-ctx.Done():
		return geo.Position{}, ctx.Err()
	case <-b.done:
		return geo.Position{}, ErrBridgeClosed
	}
}

// Notify pushes a toast to the page.
func (b *Bridge) Notify(ctx context.Context, n geo.Notice) {
	if err := b.send(ctx, toastMessage{Type: typeToast, Level: string(n.Level), Message: n.Message}); err != nil {
		b.logger.DebugContext(ctx, "toast not delivered", "error", err)
	}
}

// SendSelection tells the page which coordinate the form now holds.
func (b *Bridge) SendSelection(ctx context.Context, c geo.Coordinate) {
	if err := b.send(ctx, selectionMessage{Type: typeSelection, Lat: c.Lat, Lng: c.Lng}); err != nil {
		b.logger.DebugContext(ctx, "selection not delivered", "error", err)
	}
}

// Run serves the connection until it closes or ctx ends, then closes ctrl.
func (b *Bridge) Run(ctx context.Context, ctrl Controller) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	defer func() {
		cancel()
		b.once.Do(func() { close(b.done) })
		ctrl.Close()
		wg.Wait()
		_ = b.conn.Close()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		b.writePump(ctx)
	}()

	b.sendPermission(ctx, ctrl)
	b.readPump(ctx, ctrl, &wg)
}

func (b *Bridge) readPump(ctx context.Context, ctrl Controller, wg *sync.WaitGroup) {
	b.conn.SetReadLimit(maxMessageSize)
	_ = b.conn.SetReadDeadline(time.Now().Add(pongWait))
	b.conn.SetPongHandler(func(string) error {
		return b.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.WarnContext(ctx, "location channel read failed", "error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			b.sendError(ctx, "invalid_message", "message is not valid JSON")
			continue
		}
		b.handle(ctx, ctrl, msg, wg)
	}
}

func (b *Bridge) handle(ctx context.Context, ctrl Controller, msg inboundMessage, wg *sync.WaitGroup) {
	switch msg.Type {
	case typeHello:
		if msg.Supported != nil {
			b.mu.Lock()
			b.supported = *msg.Supported
			b.mu.Unlock()
		}
		b.sendPermission(ctx, ctrl)

	case typeMapReady:
		ctrl.SetMapReady(true)
		b.sendPermission(ctx, ctrl)

	case typeDetect:
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ctrl.DetectCurrentLocation(ctx); err != nil {
				b.logger.DebugContext(ctx, "detection ended without a fix", "error", err)
			}
			b.sendPermission(ctx, ctrl)
		}()
		b.sendPermission(ctx, ctrl)

	case typeMapClick:
		if msg.Lat == nil || msg.Lng == nil {
			b.sendError(ctx, "invalid_selection", "lat and lng are required")
			return
		}
		if err := ctrl.SelectFromMap(*msg.Lat, *msg.Lng); err != nil {
			b.sendError(ctx, "invalid_selection", err.Error())
		}

	case typePosition:
		if msg.Lat == nil || msg.Lng == nil {
			b.resolve(msg.ID, reply{err: geo.NewPositionError(geo.FailurePositionUnavailable, "fix without coordinates")})
			return
		}
		pos := geo.Position{
			Coordinate: geo.Coordinate{Lat: *msg.Lat, Lng: *msg.Lng},
			Accuracy:   msg.Accuracy,
		}
		if msg.Timestamp > 0 {
			pos.Timestamp = time.UnixMilli(msg.Timestamp)
		}
		b.resolve(msg.ID, reply{pos: pos})

	case typePositionError:
		b.resolve(msg.ID, reply{err: geo.NewPositionError(geo.KindFromBrowserCode(msg.Code), msg.Message)})

	default:
		b.sendError(ctx, "unknown_type", "unsupported message type "+msg.Type)
	}
}

func (b *Bridge) resolve(id string, r reply) {
	b.mu.Lock()
	ch, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()
	if !ok {
		b.logger.Debug("reply for unknown position request", "id", id)
		return
	}
	ch <- r
}

func (b *Bridge) sendPermission(ctx context.Context, ctrl Controller) {
	err := b.send(ctx, permissionMessage{
		Type:      typePermission,
		State:     string(ctrl.Permission()),
		CanDetect: ctrl.CanDetect(),
	})
	if err != nil {
		b.logger.DebugContext(ctx, "permission update not delivered", "error", err)
	}
}

func (b *Bridge) sendError(ctx context.Context, code, message string) {
	_ = b.send(ctx, errorMessage{Type: typeError, Code: code, Message: message})
}

func (b *Bridge) send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case b.out <- data:
		return nil
	case <-b.done:
		return ErrBridgeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = b.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = b.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-b.out:
			_ = b.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				b.logger.DebugContext(ctx, "location channel write failed", "error", err)
				_ = b.conn.Close()
				return
			}
		case <-ticker.C:
			_ = b.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := b.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
