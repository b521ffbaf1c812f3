// Package statsd emits StatsD line-protocol metrics with DogStatsD-style tags over UDP.
package statsd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Sink describes the minimal interface required to emit StatsD-style metrics.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Config describes how to connect to a StatsD-compatible agent.
type Config struct {
	Enabled    bool
	Address    string
	Prefix     string
	Logger     *slog.Logger
	GlobalTags map[string]string
}

// Client emits metrics over UDP. It is safe for concurrent use.
type Client struct {
	prefix     string
	globalTags map[string]string
	logger     *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	failed atomic.Int64
}

var _ Sink = (*Client)(nil)

const dialTimeout = 5 * time.Second

// NewClient dials the configured endpoint. A disabled config or empty address
// returns a client that drops every metric.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		prefix:     sanitizePrefix(cfg.Prefix),
		globalTags: cloneTags(cfg.GlobalTags),
		logger:     logger.With("component", "statsd"),
	}

	address := strings.TrimSpace(cfg.Address)
	if !cfg.Enabled || address == "" {
		return c, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	conn, err := (&net.Dialer{}).DialContext(ctx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", address, err)
	}
	c.conn = conn
	return c, nil
}

// Enabled reports whether the client holds a live connection.
func (c *Client) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// FailedWrites returns the number of datagrams that could not be sent.
func (c *Client) FailedWrites() int64 {
	if c == nil {
		return 0
	}
	return c.failed.Load()
}

// Count increments a counter metric.
func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.send(name, strconv.FormatInt(value, 10), "c", tags)
}

// Gauge records the current value for a gauge metric.
func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.send(name, formatFloat(value), "g", tags)
}

// Timing records a timing metric in milliseconds.
func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	c.send(name, formatFloat(float64(value)/float64(time.Millisecond)), "ms", tags)
}

// Close releases the UDP connection. Later writes are dropped.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) send(name, value, kind string, tags map[string]string) {
	if c == nil {
		return
	}
	metric := c.metricName(name)
	if metric == "" {
		return
	}

	var b strings.Builder
	b.WriteString(metric)
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteByte('|')
	b.WriteString(kind)
	b.WriteString(formatTags(c.globalTags, tags))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if _, err := c.conn.Write([]byte(b.String())); err != nil {
		c.failed.Add(1)
		c.logger.Debug("statsd write failed", "metric", metric, "error", err)
	}
}

func (c *Client) metricName(name string) string {
	normalized := normalizeMetricName(name)
	switch {
	case normalized == "":
		return ""
	case c.prefix == "":
		return normalized
	default:
		return c.prefix + "." + normalized
	}
}

func sanitizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), ".")
}

var metricNameReplacer = strings.NewReplacer(" ", "_", "/", "_", ":", "_", "|", "_", "@", "_")

func normalizeMetricName(name string) string {
	n := metricNameReplacer.Replace(strings.TrimSpace(name))
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	return strings.Trim(n, ".")
}

// formatTags merges global and local tags (local wins) into a sorted "|#k:v,..." suffix.
func formatTags(global, local map[string]string) string {
	merged := cloneTags(global)
	for k, v := range cloneTags(local) {
		merged[k] = v
	}
	if len(merged) == 0 {
		return ""
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + ":" + merged[k]
	}
	return "|#" + strings.Join(pairs, ",")
}

func cloneTags(tags map[string]string) map[string]string {
	cp := make(map[string]string, len(tags))
	for k, v := range tags {
		if key := strings.TrimSpace(k); key != "" {
			cp[key] = strings.TrimSpace(v)
		}
	}
	return cp
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
