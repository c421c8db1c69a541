package metrics

import (
	"time"

	obserrors "github.com/civicconnect/portal/internal/observability/errors"
	"github.com/civicconnect/portal/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// AccessMetric captures one access guard decision.
type AccessMetric struct {
	State    string
	Route    string
	Duration time.Duration
	Err      error
}

// EmitAccessDecision emits the outcome of a guard activation.
func EmitAccessDecision(sink statsd.Sink, in AccessMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"state": in.State}
	if in.Route != "" {
		tags["route"] = in.Route
	}
	if in.Err != nil {
		tags["error_class"] = obserrors.Classify(in.Err)
	}

	sink.Count("access.decision", 1, tags)
	if in.Duration > 0 {
		sink.Timing("access.check", in.Duration, CloneTags(tags))
	}
}

// LocationMetric captures the outcome of a location acquisition.
type LocationMetric struct {
	// Source is "detect" or "map".
	Source   string
	Result   string
	Failure  string
	Duration time.Duration
	Err      error
}

// EmitLocation emits location acquisition metrics.
func EmitLocation(sink statsd.Sink, in LocationMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"source": in.Source,
		"result": in.Result,
	}
	if in.Failure != "" {
		tags["failure"] = in.Failure
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("location.acquire", 1, tags)
	if in.Duration > 0 {
		sink.Timing("location.duration", in.Duration, CloneTags(tags))
	}
}

// EmitLogin counts a login attempt for mode ("password", "oauth", "demo").
func EmitLogin(sink statsd.Sink, mode, result string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"mode": mode, "result": result}
	if err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	sink.Count("auth.login", 1, tags)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
