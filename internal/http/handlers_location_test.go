package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/domain/geo"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialLocation(t *testing.T, srv *httptest.Server, cookie *http.Cookie, draftID string) *websocket.Conn {
	t.Helper()
	target := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/location?draft=" + draftID
	header := http.Header{}
	header.Set("Cookie", cookie.String())
	conn, resp, err := websocket.DefaultDialer.Dial(target, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func nextOfType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
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

func TestLocationChannel_MapSelectionIsSavedToDraft(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	srv := httptest.NewServer(h.handler)
	t.Cleanup(srv.Close)

	cookie := h.signIn(domainauth.RoleCitizen)
	d, err := h.drafts.Create(context.Background(), "user-citizen")
	require.NoError(t, err)

	conn := dialLocation(t, srv, cookie, d.ID)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "map_ready"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "map_click", "lat": 19.076, "lng": 72.8777}))

	sel := nextOfType(t, conn, "selection")
	assert.InDelta(t, 19.076, sel["lat"], 1e-9)
	assert.InDelta(t, 72.8777, sel["lng"], 1e-9)

	loc, err := h.drafts.Location(context.Background(), d.ID, "user-citizen")
	require.NoError(t, err)
	assert.Equal(t, geo.Coordinate{Lat: 19.076, Lng: 72.8777}, loc)

	assert.Eventually(t, func() bool {
		samples := h.metrics.Named("location.acquire")
		return len(samples) == 1 && samples[0].Tags["source"] == "map"
	}, time.Second, 10*time.Millisecond)
}

func TestLocationChannel_ReplaysExistingSelection(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	srv := httptest.NewServer(h.handler)
	t.Cleanup(srv.Close)

	cookie := h.signIn(domainauth.RoleCitizen)
	ctx := context.Background()
	d, err := h.drafts.Create(ctx, "user-citizen")
	require.NoError(t, err)
	require.NoError(t, h.drafts.SelectLocation(ctx, d.ID, "user-citizen", geo.Coordinate{Lat: 12.9716, Lng: 77.5946}))

	conn := dialLocation(t, srv, cookie, d.ID)

	sel := nextOfType(t, conn, "selection")
	assert.InDelta(t, 12.9716, sel["lat"], 1e-9)
	assert.InDelta(t, 77.5946, sel["lng"], 1e-9)
}

func TestLocationChannel_RejectsBeforeUpgrade(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	d, err := h.drafts.Create(context.Background(), "someone-else")
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "missing draft", target: "/ws/location", want: http.StatusBadRequest},
		{name: "unknown draft", target: "/ws/location?draft=nope", want: http.StatusNotFound},
		{name: "draft of another user", target: "/ws/location?draft=" + d.ID, want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.AddCookie(h.signIn(domainauth.RoleCitizen))
			rec := h.do(req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLocationChannel_RequiresSession(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/ws/location?draft=abc", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fws%2Flocation%3Fdraft%3Dabc", rec.Header().Get("Location"))
}
