package failurenotifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/target/inferq/internal/observability/notify"
)

const defaultDeliveryTimeout = 10 * time.Second

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
	// DeliveryTimeout bounds each fan-out. Zero uses 10s.
	DeliveryTimeout time.Duration
}

// Service dispatches terminal job failures to all registered sinks.
type Service struct {
	logger  *slog.Logger
	sinks   []SinkRegistration
	timeout time.Duration
}

// NewService constructs a failure notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "failure_notifier")

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{
			Name: name,
			Sink: entry.Sink,
		})
	}

	timeout := opts.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}

	return &Service{
		logger:  logger,
		sinks:   sinks,
		timeout: timeout,
	}
}

// NotifyJobFailure fans the payload out to all sinks and waits for every delivery.
// Delivery runs detached from ctx cancellation so a finished HTTP request does not abort alerts.
func (s *Service) NotifyJobFailure(ctx context.Context, payload notify.JobFailurePayload) {
	if s == nil || len(s.sinks) == 0 {
		return
	}

	if payload.JobID == "" {
		s.logger.WarnContext(ctx, "dropping failure notification without job id")
		return
	}
	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now().UTC()
	}

	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendJobFailure(deliverCtx, payload); err != nil {
				s.logger.Error("failure notifier delivery error",
					"sink", entry.Name,
					"job_id", payload.JobID,
					"error_class", payload.ErrorClass,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}
