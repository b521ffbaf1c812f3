package metrics

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/target/inferq/internal/observability/statsd"
)

// PrometheusSink adapts the statsd.Sink vocabulary to Prometheus collectors.
// Each metric name gets one vector, created on first use with the label keys seen then.
// Later emissions fill missing labels with "" and drop unknown ones.
type PrometheusSink struct {
	namespace string
	registry  *prometheus.Registry
	logger    *slog.Logger

	mu         sync.Mutex
	counters   map[string]*labeledCounter
	gauges     map[string]*labeledGauge
	histograms map[string]*labeledHistogram
}

type labeledCounter struct {
	vec    *prometheus.CounterVec
	labels []string
}

type labeledGauge struct {
	vec    *prometheus.GaugeVec
	labels []string
}

type labeledHistogram struct {
	vec    *prometheus.HistogramVec
	labels []string
}

var _ statsd.Sink = (*PrometheusSink)(nil)

// latencyBuckets covers sub-millisecond DB calls through multi-second inference.
var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// NewPrometheusSink creates a sink backed by its own registry, pre-loaded with Go runtime
// and process collectors.
func NewPrometheusSink(namespace string, logger *slog.Logger) *PrometheusSink {
	if logger == nil {
		logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &PrometheusSink{
		namespace:  promName(namespace),
		registry:   reg,
		logger:     logger.With("component", "prometheus_sink"),
		counters:   map[string]*labeledCounter{},
		gauges:     map[string]*labeledGauge{},
		histograms: map[string]*labeledHistogram{},
	}
}

// Registry exposes the underlying registry.
func (p *PrometheusSink) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Count implements statsd.Sink.
func (p *PrometheusSink) Count(name string, value int64, tags map[string]string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	c, ok := p.counters[name]
	if !ok {
		labels := labelKeys(tags)
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      promName(name) + "_total",
			Help:      "Count of " + name + " events.",
		}, labels)
		if !p.register(name, vec) {
			p.mu.Unlock()
			return
		}
		c = &labeledCounter{vec: vec, labels: labels}
		p.counters[name] = c
	}
	p.mu.Unlock()
	c.vec.WithLabelValues(labelValues(c.labels, tags)...).Add(float64(value))
}

// Gauge implements statsd.Sink.
func (p *PrometheusSink) Gauge(name string, value float64, tags map[string]string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	g, ok := p.gauges[name]
	if !ok {
		labels := labelKeys(tags)
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      promName(name),
			Help:      "Current value of " + name + ".",
		}, labels)
		if !p.register(name, vec) {
			p.mu.Unlock()
			return
		}
		g = &labeledGauge{vec: vec, labels: labels}
		p.gauges[name] = g
	}
	p.mu.Unlock()
	g.vec.WithLabelValues(labelValues(g.labels, tags)...).Set(value)
}

// Timing implements statsd.Sink. Durations are recorded in seconds.
func (p *PrometheusSink) Timing(name string, value time.Duration, tags map[string]string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	h, ok := p.histograms[name]
	if !ok {
		labels := labelKeys(tags)
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      promName(name) + "_seconds",
			Help:      "Latency distribution of " + name + ".",
			Buckets:   latencyBuckets,
		}, labels)
		if !p.register(name, vec) {
			p.mu.Unlock()
			return
		}
		h = &labeledHistogram{vec: vec, labels: labels}
		p.histograms[name] = h
	}
	p.mu.Unlock()
	h.vec.WithLabelValues(labelValues(h.labels, tags)...).Observe(value.Seconds())
}

// register must be called with p.mu held.
func (p *PrometheusSink) register(name string, c prometheus.Collector) bool {
	if err := p.registry.Register(c); err != nil {
		p.logger.Warn("prometheus register failed", "metric", name, "error", err)
		return false
	}
	return true
}

func labelKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		if n := promName(k); n != "" {
			keys = append(keys, n)
		}
	}
	sort.Strings(keys)
	return keys
}

func labelValues(keys []string, tags map[string]string) []string {
	normalized := make(map[string]string, len(tags))
	for k, v := range tags {
		normalized[promName(k)] = v
	}
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = normalized[k]
	}
	return values
}

// promName maps a dotted statsd name to a Prometheus identifier.
func promName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
