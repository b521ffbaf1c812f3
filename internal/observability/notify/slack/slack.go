// Package slack posts job failure notifications to a Slack incoming webhook.
package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/target/inferq/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// JobURLPrefix links the job id, e.g. https://inferq.example.com/api/jobs.
	JobURLPrefix string
}

// Client delivers job failure notifications to a Slack webhook.
type Client struct {
	poster       *notify.WebhookPoster
	channel      string
	username     string
	jobURLPrefix string
}

var _ notify.Sink = (*Client)(nil)

// NewClient builds a Slack webhook client.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}
	return &Client{
		poster:       notify.NewWebhookPoster("slack webhook", webhookURL, cfg.RetryLimit, cfg.Client, cfg.Timeout),
		channel:      strings.TrimSpace(cfg.Channel),
		username:     notify.Fallback(strings.TrimSpace(cfg.Username), "inferq"),
		jobURLPrefix: strings.TrimSpace(cfg.JobURLPrefix),
	}, nil
}

// SendJobFailure posts a formatted message to Slack.
func (c *Client) SendJobFailure(ctx context.Context, payload notify.JobFailurePayload) error {
	return c.poster.PostJSON(ctx, c.formatMessage(payload))
}

func (c *Client) formatMessage(payload notify.JobFailurePayload) map[string]any {
	ts := payload.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}

	var text strings.Builder
	text.WriteString("*Inference job failed*")
	if job := c.jobDisplay(payload.JobID); job != "" {
		text.WriteString(" ")
		text.WriteString(job)
	}
	text.WriteByte('\n')

	attempts := ""
	if payload.MaxRetries > 0 || payload.RetryCount > 0 {
		attempts = strconv.Itoa(payload.RetryCount) + "/" + strconv.Itoa(payload.MaxRetries) + " retries"
	}
	for _, f := range []struct{ label, value string }{
		{"Severity", notify.Fallback(payload.Severity, notify.SeverityCritical)},
		{"Conversation", escape(payload.ConversationID)},
		{"Message", escape(payload.MessageID)},
		{"User", escape(payload.UserID)},
		{"Attempts", attempts},
		{"Error class", payload.ErrorClass},
		{"Error", escape(payload.Error)},
	} {
		appendField(&text, f.label, f.value)
	}
	appendMetadata(&text, payload.Metadata)
	text.WriteString("• Timestamp: ")
	text.WriteString(ts.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func (c *Client) jobDisplay(jobID string) string {
	id := escape(strings.TrimSpace(jobID))
	if id == "" {
		return ""
	}
	if link := c.jobLink(jobID); link != "" {
		return fmt.Sprintf("<%s|%s>", link, id)
	}
	return "`" + id + "`"
}

func (c *Client) jobLink(jobID string) string {
	if c.jobURLPrefix == "" {
		return ""
	}
	u, err := url.Parse(c.jobURLPrefix)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	link, err := url.JoinPath(u.String(), jobID)
	if err != nil {
		return ""
	}
	return link
}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(value string) string {
	return slackEscaper.Replace(value)
}

func appendField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(value)
	text.WriteByte('\n')
}

func appendMetadata(text *strings.Builder, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	text.WriteString("• Metadata:\n")
	for _, k := range keys {
		text.WriteString("    • ")
		text.WriteString(k)
		text.WriteString(": ")
		text.WriteString(escape(metadata[k]))
		text.WriteByte('\n')
	}
}
