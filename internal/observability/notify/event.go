// Package notify carries terminal job failures to external alerting sinks.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
)

// JobFailurePayload captures the canonical data emitted for a failed inference job.
type JobFailurePayload struct {
	JobID          string
	MessageID      string
	ConversationID string
	UserID         string
	RetryCount     int
	MaxRetries     int
	Error          string
	ErrorClass     string
	Severity       string
	OccurredAt     time.Time
	Metadata       map[string]string
}

// Sink describes a destination capable of consuming job failure notifications.
type Sink interface {
	SendJobFailure(ctx context.Context, payload JobFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, payload JobFailurePayload) error

// SendJobFailure implements the Sink interface.
func (f SinkFunc) SendJobFailure(ctx context.Context, payload JobFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
