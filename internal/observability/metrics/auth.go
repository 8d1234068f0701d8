package metrics

import (
	"time"

	obserrors "github.com/quillsuite/quill-go/internal/observability/errors"
	"github.com/quillsuite/quill-go/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// RefreshMetric captures details about a credential refresh episode.
type RefreshMetric struct {
	Result   string
	Duration time.Duration
	Err      error
}

// EmitRefresh emits standardised refresh-episode metrics.
func EmitRefresh(sink statsd.Sink, in RefreshMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": in.Result}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("auth.refresh", 1, tags)
	if in.Duration > 0 {
		sink.Timing("auth.refresh.duration", in.Duration, CloneTags(tags))
	}
}

// EmitRestore emits the identity-restoration outcome.
func EmitRestore(sink statsd.Sink, outcome string) {
	if sink == nil {
		return
	}
	sink.Count("auth.restore", 1, map[string]string{"outcome": outcome})
}

// EmitLogout emits a secure-logout completion.
func EmitLogout(sink statsd.Sink, kind string) {
	if sink == nil {
		return
	}
	sink.Count("auth.logout", 1, map[string]string{"identity": kind})
}

// EmitRejectedCall emits a request-interceptor rejection.
func EmitRejectedCall(sink statsd.Sink, code string) {
	if sink == nil {
		return
	}
	sink.Count("auth.call.rejected", 1, map[string]string{"code": code})
}

// CloneTags creates a shallow copy of a tag map, filtering out empty maps.
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
