package statsd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) net.PacketConn {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })
	return pc
}

func readLine(t *testing.T, pc net.PacketConn) string {
	t.Helper()
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestClient_SendsDatagrams(t *testing.T) {
	pc := listen(t)
	client, err := NewClient(context.Background(), Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     " portal. ",
		GlobalTags: map[string]string{"env": "prod", " auth_mode ": " demo "},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.True(t, client.Enabled())

	client.Count("access.decision", 1, map[string]string{"state": "allowed", "env": "stage", "": "dropped"})
	assert.Equal(t, "portal.access.decision:1|c|#auth_mode:demo,env:stage,state:allowed", readLine(t, pc))

	client.Gauge("reaper.last_success_epoch", 1.5, nil)
	assert.Equal(t, "portal.reaper.last_success_epoch:1.5|g|#auth_mode:demo,env:prod", readLine(t, pc))

	client.Timing("location.duration", 1500*time.Microsecond, nil)
	assert.Equal(t, "portal.location.duration:1.5|ms|#auth_mode:demo,env:prod", readLine(t, pc))
}

func TestClient_Close(t *testing.T) {
	pc := listen(t)
	client, err := NewClient(context.Background(), Config{Enabled: true, Address: pc.LocalAddr().String()})
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.False(t, client.Enabled())
	require.NoError(t, client.Close(), "second close is a no-op")
	assert.NotPanics(t, func() { client.Count("after.close", 1, nil) })

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	assert.NoError(t, nilClient.Close())
	assert.NotPanics(t, func() { nilClient.Gauge("x", 1, nil) })
}

func TestNewClient_Disabled(t *testing.T) {
	for name, cfg := range map[string]Config{
		"flag off":      {Enabled: false, Address: "127.0.0.1:8125"},
		"blank address": {Enabled: true, Address: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			client, err := NewClient(context.Background(), cfg)
			require.NoError(t, err)
			assert.False(t, client.Enabled())
		})
	}
}

func TestNewClient_DialError(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Enabled: true, Address: "bad address"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statsd dial")
}

func TestClient_Line(t *testing.T) {
	client, err := NewClient(context.Background(), Config{})
	require.NoError(t, err)

	line, ok := client.line("  grievance/submit..count ", "2", "c", nil)
	require.True(t, ok)
	assert.Equal(t, "civic_portal.grievance_submit.count:2|c", line)

	_, ok = client.line(" .. ", "1", "c", nil)
	assert.False(t, ok, "empty names are dropped")
}

func TestMetricName(t *testing.T) {
	tests := map[string]string{
		" auth/login ":  "auth_login",
		"foo..bar":      "foo.bar",
		"multi  space":  "multi__space",
		"route:|@tag":   "route___tag",
		".leading.dot.": "leading.dot",
	}
	for in, want := range tests {
		assert.Equal(t, want, metricName(in), in)
	}
}
