// Package metrics defines the metric vocabulary of the inference pipeline and the sinks that carry it.
package metrics

import (
	"time"

	obserrors "github.com/target/inferq/internal/observability/errors"
	"github.com/target/inferq/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
	ResultRetry   = "retry"
)

// Job transitions.
const (
	TransitionEnqueue  = "enqueue"
	TransitionClaim    = "claim"
	TransitionComplete = "complete"
	TransitionFail     = "fail"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result != ResultSuccess {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// EngineMetric describes one call to an inference or embedding engine.
type EngineMetric struct {
	// Kind is KindInference or KindEmbedding.
	Kind     string
	Provider string
	Result   string
	Duration time.Duration
	Err      error
}

// Engine kinds.
const (
	KindInference = "inference"
	KindEmbedding = "embedding"
)

// EmitEngineCall emits "<kind>.call" and "<kind>.duration".
func EmitEngineCall(sink statsd.Sink, in EngineMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"provider": in.Provider,
		"result":   in.Result,
	}
	if in.Err != nil {
		tags["error_class"] = obserrors.Classify(in.Err)
	}
	sink.Count(in.Kind+".call", 1, tags)
	if in.Duration > 0 {
		sink.Timing(in.Kind+".duration", in.Duration, CloneTags(tags))
	}
}

// EmitEmbeddingHandoff counts the outcome of a post-reply embedding task.
func EmitEmbeddingHandoff(sink statsd.Sink, result string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": result}
	if err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	sink.Count("embedding.generate", 1, tags)
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
