package metrics

import (
	"time"

	errs "github.com/hrdesk/hrdesk-client/internal/errors"
	"github.com/hrdesk/hrdesk-client/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// SessionMetric captures details about a session lifecycle event for
// metric emission.
type SessionMetric struct {
	Operation string
	Result    string
	Duration  time.Duration
	Err       error
}

// EmitSessionLifecycle emits standardised session lifecycle metrics.
// Operations cover login, refresh, logout, initialize and status checks.
func EmitSessionLifecycle(sink statsd.Sink, in SessionMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"operation": in.Operation,
		"result":    in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if code := errs.GetCode(in.Err); code != "" {
			tags["error_class"] = string(code)
		}
	}

	sink.Count("session.operation", 1, tags)

	if in.Duration > 0 {
		sink.Timing("session.duration", in.Duration, CloneTags(tags))
	}
}

// EmitSessionRemaining records the remaining lifetime of the current
// access token as a gauge.
func EmitSessionRemaining(sink statsd.Sink, remaining time.Duration) {
	if sink == nil {
		return
	}
	sink.Gauge("session.remaining_seconds", remaining.Seconds(), nil)
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
