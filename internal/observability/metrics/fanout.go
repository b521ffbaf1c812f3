package metrics

import (
	"time"

	"github.com/target/inferq/internal/observability/statsd"
)

// FanOut forwards every metric to each non-nil sink.
type FanOut []statsd.Sink

var _ statsd.Sink = FanOut(nil)

// NewFanOut drops nil sinks. It returns nil when no sink remains so callers can skip emission.
func NewFanOut(sinks ...statsd.Sink) statsd.Sink {
	out := make(FanOut, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

// Count implements statsd.Sink.
func (f FanOut) Count(name string, value int64, tags map[string]string) {
	for _, s := range f {
		s.Count(name, value, tags)
	}
}

// Gauge implements statsd.Sink.
func (f FanOut) Gauge(name string, value float64, tags map[string]string) {
	for _, s := range f {
		s.Gauge(name, value, tags)
	}
}

// Timing implements statsd.Sink.
func (f FanOut) Timing(name string, value time.Duration, tags map[string]string) {
	for _, s := range f {
		s.Timing(name, value, tags)
	}
}
