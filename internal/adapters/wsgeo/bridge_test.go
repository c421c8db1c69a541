package wsgeo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/civicconnect/portal/internal/domain/geo"
	"github.com/civicconnect/portal/internal/location"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r)
		if err != nil {
			return
		}
		bridge := NewBridge(conn, Options{})
		engine := location.NewEngine(location.Options{
			Capability: bridge,
			Notifier:   bridge,
			OnSelect: func(lat, lng float64) {
				bridge.SendSelection(context.Background(), geo.Coordinate{Lat: lat, Lng: lng})
			},
		})
		bridge.Run(context.Background(), engine)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil returns the next message of type want, skipping others.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q", want)
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == want {
			return msg
		}
	}
}

func TestBridge_InitialPermission(t *testing.T) {
	conn := dial(t, newTestServer(t))

	msg := readUntil(t, conn, typePermission)
	assert.Equal(t, "prompt", msg["state"])
	assert.Equal(t, true, msg["can_detect"])
}

func TestBridge_MapSelection(t *testing.T) {
	conn := dial(t, newTestServer(t))

	send(t, conn, map[string]any{"type": typeMapClick, "lat": 19.0760, "lng": 72.8777})
	errMsg := readUntil(t, conn, typeError)
	assert.Equal(t, "invalid_selection", errMsg["code"])

	send(t, conn, map[string]any{"type": typeMapReady})
	send(t, conn, map[string]any{"type": typeMapClick, "lat": 19.0760, "lng": 72.8777})

	sel := readUntil(t, conn, typeSelection)
	assert.InDelta(t, 19.0760, sel["lat"], 1e-9)
	assert.InDelta(t, 72.8777, sel["lng"], 1e-9)
}

func TestBridge_DetectSuccess(t *testing.T) {
	conn := dial(t, newTestServer(t))

	send(t, conn, map[string]any{"type": typeDetect})
	req := readUntil(t, conn, typePositionRequest)

	opts, ok := req["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, opts["enableHighAccuracy"])
	assert.InDelta(t, 15000, opts["timeout"], 0)
	assert.InDelta(t, 300000, opts["maximumAge"], 0)

	send(t, conn, map[string]any{
		"type":      typePosition,
		"id":        req["id"],
		"lat":       28.6139,
		"lng":       77.2090,
		"accuracy":  20,
		"timestamp": time.Now().UnixMilli(),
	})

	sel := readUntil(t, conn, typeSelection)
	assert.InDelta(t, 28.6139, sel["lat"], 1e-9)

	toast := readUntil(t, conn, typeToast)
	assert.Equal(t, "success", toast["level"])
	assert.Equal(t, geo.SuccessMessage, toast["message"])

	perm := readUntil(t, conn, typePermission)
	for perm["state"] != "granted" {
		perm = readUntil(t, conn, typePermission)
	}
	assert.Equal(t, true, perm["can_detect"])
}

func TestBridge_DetectDenied(t *testing.T) {
	conn := dial(t, newTestServer(t))

	send(t, conn, map[string]any{"type": typeDetect})
	req := readUntil(t, conn, typePositionRequest)
	send(t, conn, map[string]any{"type": typePositionError, "id": req["id"], "code": geo.BrowserCodePermissionDenied})

	toast := readUntil(t, conn, typeToast)
	assert.Equal(t, "error", toast["level"])
	assert.Equal(t, geo.FailurePermissionDenied.Message(), toast["message"])

	perm := readUntil(t, conn, typePermission)
	for perm["state"] != "denied" {
		perm = readUntil(t, conn, typePermission)
	}
}

func TestBridge_UnsupportedDevice(t *testing.T) {
	conn := dial(t, newTestServer(t))

	send(t, conn, map[string]any{"type": typeHello, "supported": false})
	send(t, conn, map[string]any{"type": typeDetect})

	toast := readUntil(t, conn, typeToast)
	assert.Equal(t, geo.FailureCapabilityMissing.Message(), toast["message"])
}

func TestBridge_RejectsGarbage(t *testing.T) {
	conn := dial(t, newTestServer(t))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "invalid_message", readUntil(t, conn, typeError)["code"])

	send(t, conn, map[string]any{"type": "teleport"})
	assert.Equal(t, "unknown_type", readUntil(t, conn, typeError)["code"])
}
