package escalation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/civicconnect/portal/internal/domain/model"
	"github.com/civicconnect/portal/internal/observability/notify"
)

type capture struct {
	mu   sync.Mutex
	got  []notify.GrievanceAlert
	fail error
}

func (c *capture) sink() notify.Sink {
	return notify.SinkFunc(func(_ context.Context, a notify.GrievanceAlert) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.got = append(c.got, a)
		return c.fail
	})
}

func grievance(p model.GrievancePriority) *model.Grievance {
	addr := "MG Road, Bengaluru"
	return &model.Grievance{
		ID:             "g-1",
		TrackingNumber: "GRV-01",
		Title:          "Open manhole",
		Category:       model.CategorySafety,
		Priority:       p,
		Latitude:       12.9756,
		Longitude:      77.6050,
		Address:        &addr,
	}
}

func TestServiceNotifyGrievance(t *testing.T) {
	c := &capture{}
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "capture", Sink: c.sink()}}})

	svc.NotifyGrievance(context.Background(), grievance(model.PriorityUrgent))

	if len(c.got) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(c.got))
	}
	a := c.got[0]
	if a.Severity != notify.SeverityCritical || a.Address != "MG Road, Bengaluru" || a.TrackingNumber != "GRV-01" {
		t.Fatalf("unexpected alert: %+v", a)
	}
}

func TestServiceSkipsBelowMinPriority(t *testing.T) {
	c := &capture{}
	svc := NewService(Options{
		Sinks:       []SinkRegistration{{Sink: c.sink()}},
		MinPriority: model.PriorityHigh,
	})

	svc.NotifyGrievance(context.Background(), grievance(model.PriorityMedium))
	svc.NotifyGrievance(context.Background(), grievance(model.PriorityHigh))
	svc.NotifyGrievance(context.Background(), nil)

	if len(c.got) != 1 {
		t.Fatalf("expected only the high priority grievance, got %d alerts", len(c.got))
	}
	if c.got[0].Severity != notify.SeverityError {
		t.Fatalf("expected error severity for high priority, got %s", c.got[0].Severity)
	}
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "nil"}}})
	if svc.Enabled() {
		t.Fatal("expected Enabled() to be false when no sinks registered")
	}
	svc.NotifyGrievance(context.Background(), grievance(model.PriorityUrgent))
}

func TestServiceLogsErrors(t *testing.T) {
	failing := &capture{fail: errors.New("boom")}
	ok := &capture{}
	svc := NewService(Options{Sinks: []SinkRegistration{
		{Name: "fail", Sink: failing.sink()},
		{Name: "ok", Sink: ok.sink()},
	}})

	svc.NotifyGrievance(context.Background(), grievance(model.PriorityUrgent))

	if len(ok.got) != 1 {
		t.Fatal("a failing sink must not block the others")
	}
}
