package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/target/inferq/config"
	"github.com/target/inferq/internal/core"
	"github.com/target/inferq/internal/domain/model"
	obserrors "github.com/target/inferq/internal/observability/errors"
	"github.com/target/inferq/internal/observability/metrics"
	"github.com/target/inferq/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository // Required
	Config  config.ReaperConfig
	Logger  *slog.Logger // Optional
	Metrics statsd.Sink  // Optional
}

// ReaperService expires queued jobs nobody claimed and prunes old terminal jobs.
type ReaperService struct {
	repo    core.ReaperRepository
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
	}

	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// MustNewReaperService constructs a new ReaperService and panics on error.
func MustNewReaperService(opts ReaperServiceOptions) *ReaperService {
	svc, err := NewReaperService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create ReaperService: %v", err))
	}
	return svc
}

// Run sweeps immediately after a jittered start, then every Interval, until ctx ends.
// Cancellation returns nil; a deadline returns the context error.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logInfo(ctx, "starting reaper service", "interval", s.config.Interval)

	if !sleepCtx(ctx, reaperJitter(s.config.Interval)) {
		return shutdownErr(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		s.logSweepError(s.RunOnce(ctx))

		select {
		case <-ctx.Done():
			s.logInfo(ctx, "reaper service stopping", "reason", ctx.Err())
			return shutdownErr(ctx)
		case <-ticker.C:
		}
	}
}

func reaperJitter(interval time.Duration) time.Duration {
	maxJitter := int64(interval / 10)
	if maxJitter <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(maxJitter)) //nolint:gosec // scheduling jitter
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func shutdownErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// reaperStep is one cleanup operation, drained in batches until the repository reports no rows.
type reaperStep struct {
	operation string
	label     string
	maxAge    time.Duration
	batch     func(ctx context.Context) (int64, error)
}

type reaperStepResult struct {
	step  reaperStep
	count int64
	err   error
}

func (s *ReaperService) steps() []reaperStep {
	cfg := s.config
	deleteStep := func(status model.JobStatus, maxAge time.Duration) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) {
			return s.repo.DeleteOldJobs(ctx, model.DeleteOldJobsParams{
				Status:    status,
				MaxAge:    maxAge,
				BatchSize: cfg.BatchSize,
			})
		}
	}

	return []reaperStep{
		{
			operation: "fail_queued",
			label:     "fail stale queued jobs",
			maxAge:    cfg.QueuedMaxAge,
			batch: func(ctx context.Context) (int64, error) {
				return s.repo.FailStaleQueuedJobs(ctx, cfg.QueuedMaxAge, cfg.BatchSize)
			},
		},
		{
			operation: "delete_completed",
			label:     "delete old completed jobs",
			maxAge:    cfg.CompletedMaxAge,
			batch:     deleteStep(model.JobStatusCompleted, cfg.CompletedMaxAge),
		},
		{
			operation: "delete_failed",
			label:     "delete old failed jobs",
			maxAge:    cfg.FailedMaxAge,
			batch:     deleteStep(model.JobStatusFailed, cfg.FailedMaxAge),
		},
	}
}

// RunOnce performs one pass of every cleanup step. Steps run even when an earlier one fails.
// When every failure is a context cancellation the result is context.Canceled.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := time.Now()

	steps := s.steps()
	results := make([]reaperStepResult, 0, len(steps))
	var errs []error
	onlyCanceled := true
	for _, step := range steps {
		count, err := s.drain(ctx, step)
		results = append(results, reaperStepResult{step: step, count: count, err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.label, err))
			onlyCanceled = onlyCanceled && isContextCancellation(err)
		}
	}

	s.emitSweepMetrics(results, time.Since(start))

	if len(errs) == 0 {
		return nil
	}
	if onlyCanceled {
		return context.Canceled
	}
	return fmt.Errorf("cleanup failed: %w", errors.Join(errs...))
}

func (s *ReaperService) drain(ctx context.Context, step reaperStep) (int64, error) {
	var total int64
	for {
		n, err := step.batch(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
	if total > 0 {
		s.logInfo(ctx, step.label, "count", total, "max_age", step.maxAge)
	}
	return total, nil
}

func (s *ReaperService) emitSweepMetrics(results []reaperStepResult, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	var total int64
	var firstErr error
	for _, r := range results {
		total += r.count
		stepErr := suppressContextCancellation(r.err)
		if firstErr == nil {
			firstErr = stepErr
		}
		s.emitOperationMetric(r.step.operation, r.count, stepErr)
	}

	tags := map[string]string{"result": sweepResult(total, firstErr)}
	if class := obserrors.Classify(firstErr); firstErr != nil && class != "" {
		tags["error_class"] = class
	}
	s.metrics.Count("reaper.cleanup", 1, tags)
	if elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", elapsed, metrics.CloneTags(tags))
	}
	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitOperationMetric(operation string, count int64, err error) {
	tags := map[string]string{
		"operation": operation,
		"result":    sweepResult(count, err),
	}
	if class := obserrors.Classify(err); err != nil && class != "" {
		tags["error_class"] = class
	}
	s.metrics.Count("reaper.cleanup_operation", 1, tags)
	if err == nil && count > 0 {
		s.metrics.Count("reaper.jobs_processed", count, metrics.CloneTags(tags))
	}
}

func sweepResult(count int64, err error) string {
	switch {
	case err != nil:
		return metrics.ResultError
	case count == 0:
		return metrics.ResultNoop
	default:
		return metrics.ResultSuccess
	}
}

func (s *ReaperService) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *ReaperService) logSweepError(err error) {
	if err == nil || s.logger == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.Debug("cleanup cancelled by context", "error", err)
		return
	}
	s.logger.Error("cleanup failed", "error", err)
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
