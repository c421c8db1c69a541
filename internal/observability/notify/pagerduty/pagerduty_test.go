package pagerduty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/civicconnect/portal/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when routing key missing")
	}
}

func TestBuildEventDefaults(t *testing.T) {
	client, err := NewClient(Config{RoutingKey: "key", Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := client.buildEvent(notify.GrievanceAlert{
		GrievanceID:    "g-1",
		TrackingNumber: "GRV-123",
		Title:          "Transformer fire",
		Category:       "safety",
		Priority:       "urgent",
	})

	payload, ok := event["payload"].(map[string]any)
	if !ok {
		t.Fatalf("expected payload section")
	}
	if payload["severity"] != notify.SeverityCritical {
		t.Fatalf("expected default severity, got %v", payload["severity"])
	}
	if payload["source"] != "civic-portal" || payload["component"] != "grievances" {
		t.Fatalf("unexpected defaults: %v %v", payload["source"], payload["component"])
	}
	if summary, _ := payload["summary"].(string); !strings.Contains(summary, "GRV-123") || !strings.Contains(summary, "urgent") {
		t.Fatalf("unexpected summary %q", summary)
	}

	custom, ok := payload["custom_details"].(map[string]any)
	if !ok {
		t.Fatalf("expected custom details")
	}
	for _, key := range []string{"grievance_id", "tracking_number", "category", "priority"} {
		if _, exists := custom[key]; !exists {
			t.Fatalf("expected key %s in custom details", key)
		}
	}

	if event["dedup_key"] != "grievance:GRV-123" {
		t.Fatalf("unexpected dedup key %v", event["dedup_key"])
	}
}

func TestSendGrievanceAlert(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "rk", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.SendGrievanceAlert(context.Background(), notify.GrievanceAlert{TrackingNumber: "GRV-9"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["routing_key"] != "rk" || got["event_action"] != "trigger" {
		t.Fatalf("unexpected event: %v", got)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"invalid event"}`))
	}))
	defer failing.Close()

	client, _ = NewClient(Config{RoutingKey: "rk", Endpoint: failing.URL})
	err = client.SendGrievanceAlert(context.Background(), notify.GrievanceAlert{TrackingNumber: "GRV-9"})
	if err == nil || !strings.Contains(err.Error(), "invalid event") {
		t.Fatalf("expected api error, got %v", err)
	}
}
