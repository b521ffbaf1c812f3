// Package pagerduty triggers incidents for failed jobs via the Events API v2.
package pagerduty

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/target/inferq/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// Endpoint overrides APIEndpoint.
	Endpoint string
}

// Client publishes events via PagerDuty's Events API v2.
type Client struct {
	poster     *notify.WebhookPoster
	routingKey string
	source     string
	component  string
}

var _ notify.Sink = (*Client)(nil)

// NewClient constructs a PagerDuty events client. A routing key is required.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}
	endpoint := notify.Fallback(strings.TrimSpace(cfg.Endpoint), APIEndpoint)
	return &Client{
		poster:     notify.NewWebhookPoster("pagerduty api", endpoint, cfg.RetryLimit, cfg.Client, cfg.Timeout),
		routingKey: key,
		source:     notify.Fallback(strings.TrimSpace(cfg.Source), "inferq"),
		component:  notify.Fallback(strings.TrimSpace(cfg.Component), "inference-worker"),
	}, nil
}

// SendJobFailure submits a trigger event to PagerDuty.
func (c *Client) SendJobFailure(ctx context.Context, payload notify.JobFailurePayload) error {
	return c.poster.PostJSON(ctx, c.buildEvent(payload))
}

func (c *Client) buildEvent(payload notify.JobFailurePayload) map[string]any {
	severity := strings.ToLower(notify.Fallback(payload.Severity, notify.SeverityCritical))

	occurredAt := payload.OccurredAt.UTC()
	if payload.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	custom := map[string]any{
		"job_id":          payload.JobID,
		"message_id":      payload.MessageID,
		"conversation_id": payload.ConversationID,
		"user_id":         payload.UserID,
		"retry_count":     payload.RetryCount,
		"max_retries":     payload.MaxRetries,
		"error":           payload.Error,
		"error_class":     payload.ErrorClass,
	}
	for k, v := range payload.Metadata {
		if _, exists := custom[k]; !exists {
			custom[k] = v
		}
	}

	return map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    "inference_job:" + notify.Fallback(payload.JobID, "unknown"),
		"payload": map[string]any{
			"summary":        fmt.Sprintf("Inference job %s failed", notify.Fallback(payload.JobID, "unknown")),
			"severity":       severity,
			"source":         c.source,
			"component":      c.component,
			"timestamp":      occurredAt.Format(time.RFC3339),
			"custom_details": custom,
		},
	}
}
