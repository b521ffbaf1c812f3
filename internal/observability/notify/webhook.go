package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultWebhookTimeout = 5 * time.Second
	retryStep             = 200 * time.Millisecond
	maxErrorBody          = 4 << 10
)

// WebhookPoster posts JSON bodies with linear-backoff retries.
type WebhookPoster struct {
	// Name prefixes errors, e.g. "slack".
	Name       string
	URL        string
	RetryLimit int
	Client     *http.Client
}

// NewWebhookPoster builds a poster; a nil client gets one with timeout.
func NewWebhookPoster(name, url string, retryLimit int, client *http.Client, timeout time.Duration) *WebhookPoster {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &WebhookPoster{
		Name:       name,
		URL:        url,
		RetryLimit: max(retryLimit, 0),
		Client:     client,
	}
}

// PostJSON encodes v and delivers it, retrying failed attempts up to RetryLimit times.
func (p *WebhookPoster) PostJSON(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", p.Name, err)
	}

	attempts := p.RetryLimit + 1
	var lastErr error
	for attempt := range attempts {
		if lastErr = p.post(ctx, body); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * retryStep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (p *WebhookPoster) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", p.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", p.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			return fmt.Errorf("drain %s response body: %w", p.Name, err)
		}
		return nil
	}

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr != nil {
		return errors.Join(
			fmt.Errorf("%s %s", p.Name, resp.Status),
			fmt.Errorf("read error response: %w", readErr),
		)
	}
	return fmt.Errorf("%s %s: %s", p.Name, resp.Status, strings.TrimSpace(string(respBody)))
}

// Fallback returns fallback when value is blank.
func Fallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
