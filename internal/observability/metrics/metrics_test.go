package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMetric struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

type recordingSink struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

func (r *recordingSink) Count(name string, value int64, tags map[string]string) {
	r.add(recordedMetric{kind: "count", name: name, value: float64(value), tags: tags})
}

func (r *recordingSink) Gauge(name string, value float64, tags map[string]string) {
	r.add(recordedMetric{kind: "gauge", name: name, value: value, tags: tags})
}

func (r *recordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	r.add(recordedMetric{kind: "timing", name: name, value: float64(value), tags: tags})
}

func (r *recordingSink) add(m recordedMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
}

type sentinelErr struct{}

func (sentinelErr) Error() string { return "sentinel" }

func TestEmitJobLifecycle(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	EmitJobLifecycle(sink, JobMetric{
		Transition: TransitionComplete,
		Result:     ResultError,
		Duration:   time.Second,
		Err:        sentinelErr{},
	})

	require.Len(t, sink.metrics, 2)
	assert.Equal(t, "job.transition", sink.metrics[0].name)
	assert.Equal(t, "complete", sink.metrics[0].tags["transition"])
	assert.Equal(t, "metrics_sentinelerr", sink.metrics[0].tags["error_class"])
	assert.Equal(t, "job.duration", sink.metrics[1].name)

	EmitJobLifecycle(nil, JobMetric{})
}

func TestEmitJobLifecycle_NoDurationNoClass(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	EmitJobLifecycle(sink, JobMetric{Transition: TransitionClaim, Result: ResultSuccess, Err: errors.New("ignored")})

	require.Len(t, sink.metrics, 1)
	_, ok := sink.metrics[0].tags["error_class"]
	assert.False(t, ok)
}

func TestEmitEngineCall(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	EmitEngineCall(sink, EngineMetric{Kind: KindInference, Provider: "mock", Result: ResultSuccess, Duration: time.Millisecond})

	require.Len(t, sink.metrics, 2)
	assert.Equal(t, "inference.call", sink.metrics[0].name)
	assert.Equal(t, "inference.duration", sink.metrics[1].name)
	assert.Equal(t, "mock", sink.metrics[0].tags["provider"])
}

func TestEmitEmbeddingHandoff(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	EmitEmbeddingHandoff(sink, ResultError, context.DeadlineExceeded)
	EmitEmbeddingHandoff(nil, ResultSuccess, nil)

	require.Len(t, sink.metrics, 1)
	assert.Equal(t, "embedding.generate", sink.metrics[0].name)
	assert.Equal(t, "deadline_exceeded", sink.metrics[0].tags["error_class"])
}

func TestFanOut(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewFanOut())
	assert.Nil(t, NewFanOut(nil, nil))

	a, b := &recordingSink{}, &recordingSink{}
	single := NewFanOut(nil, a)
	assert.Same(t, a, single)
	single.Count("w", 1, nil)

	fan := NewFanOut(a, b)
	fan.Count("x", 2, nil)
	fan.Gauge("y", 1.5, nil)
	fan.Timing("z", time.Second, nil)

	assert.Len(t, a.metrics, 4)
	assert.Len(t, b.metrics, 3)
}

func TestPrometheusSink(t *testing.T) {
	t.Parallel()

	sink := NewPrometheusSink("inferq", nil)

	sink.Count("job.transition", 1, map[string]string{"transition": "claim", "result": "success"})
	sink.Count("job.transition", 2, map[string]string{"transition": "claim", "result": "success"})
	// Unknown label dropped, missing label filled with "".
	sink.Count("job.transition", 1, map[string]string{"transition": "fail", "extra": "x"})
	sink.Gauge("queue.depth", 7, nil)
	sink.Timing("job.duration", 250*time.Millisecond, map[string]string{"transition": "complete"})

	expected := `
# HELP inferq_job_transition_total Count of job.transition events.
# TYPE inferq_job_transition_total counter
inferq_job_transition_total{result="",transition="fail"} 1
inferq_job_transition_total{result="success",transition="claim"} 3
`
	require.NoError(t, testutil.GatherAndCompare(sink.Registry(), strings.NewReader(expected), "inferq_job_transition_total"))

	count, err := testutil.GatherAndCount(sink.Registry(), "inferq_queue_depth", "inferq_job_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rec := httptest.NewRecorder()
	sink.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "inferq_queue_depth 7")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestPromName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "job_transition", promName("job.transition"))
	assert.Equal(t, "reaper_fail_queued", promName(" reaper.fail-queued "))
}
