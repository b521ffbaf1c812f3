package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/target/inferq/internal/core"
	domainjob "github.com/target/inferq/internal/domain/job"
	"github.com/target/inferq/internal/domain/model"
	apperrors "github.com/target/inferq/internal/errors"
	obserrors "github.com/target/inferq/internal/observability/errors"
	"github.com/target/inferq/internal/observability/metrics"
	"github.com/target/inferq/internal/observability/notify"
	"github.com/target/inferq/internal/observability/statsd"
	"github.com/target/inferq/internal/service/failurenotifier"
)

// maxFailureReasonLen caps last_error so a verbose engine error cannot bloat the row.
const maxFailureReasonLen = 1000

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo            core.InferenceJobRepository // Required: job repository
	DefaultLease    time.Duration               // Required: how long a claim is held before the job counts as stuck
	Logger          *slog.Logger                // Optional: structured logger
	Metrics         statsd.Sink                 // Optional: lifecycle metrics
	FailureNotifier *failurenotifier.Service    // Optional: terminal failure fan-out
	RetryPolicy     *domainjob.RetryPolicy      // Optional: override default retry policy
	Notifier        domainjob.Notifier          // Optional: custom job availability notifier
	NotifierOptions domainjob.NotifierOptions   // Optional: configure default notifier behaviour
}

// JobService owns inference job state transitions.
//
// This service manages:
// - Claiming the next queued job under a lease
// - Completing and failing claimed jobs, including retry decisions
// - Failure notifications and lifecycle metrics
// - Job-added subscriptions for the in-process trigger.
type JobService struct {
	repo            core.InferenceJobRepository
	leasePolicy     *domainjob.LeasePolicy
	retryPolicy     domainjob.RetryPolicy
	notifier        domainjob.Notifier
	logger          *slog.Logger
	metrics         statsd.Sink
	failureNotifier *failurenotifier.Service
	now             func() time.Time
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("InferenceJobRepository is required")
	}

	leasePolicy, err := domainjob.NewLeasePolicy(opts.DefaultLease)
	if err != nil {
		return nil, fmt.Errorf("create lease policy: %w", err)
	}

	retryPolicy := domainjob.NewRetryPolicy()
	if opts.RetryPolicy != nil {
		retryPolicy = *opts.RetryPolicy
	}

	notifier := opts.Notifier
	if notifier == nil {
		options := opts.NotifierOptions
		if options.Waiter == nil {
			options.Waiter = opts.Repo
		}
		notifier, err = domainjob.NewNotifier(options)
		if err != nil {
			return nil, fmt.Errorf("create job notifier: %w", err)
		}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
		logger.Debug("JobService initialized", "default_lease", leasePolicy.Default())
	}

	return &JobService{
		repo:            opts.Repo,
		leasePolicy:     leasePolicy,
		retryPolicy:     retryPolicy,
		notifier:        notifier,
		logger:          logger,
		metrics:         opts.Metrics,
		failureNotifier: opts.FailureNotifier,
		now:             time.Now,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Claim takes the oldest queued job under the default lease.
// Returns model.ErrNoJobsAvailable when the queue is empty.
func (s *JobService) Claim(ctx context.Context) (*model.ClaimedJob, error) {
	decision := s.leasePolicy.Resolve(0)

	job, err := s.repo.ClaimNext(ctx, decision.Seconds)
	if errors.Is(err, model.ErrNoJobsAvailable) {
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Transition: metrics.TransitionClaim,
			Result:     metrics.ResultNoop,
		})
		return nil, model.ErrNoJobsAvailable
	}
	if err != nil {
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Transition: metrics.TransitionClaim,
			Result:     metrics.ResultError,
			Err:        err,
		})
		return nil, fmt.Errorf("claim next job: %w", err)
	}

	var queued time.Duration
	if !job.CreatedAt.IsZero() {
		queued = s.now().Sub(job.CreatedAt)
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: metrics.TransitionClaim,
		Result:     metrics.ResultSuccess,
		Duration:   queued,
	})

	if s.logger != nil {
		s.logger.DebugContext(ctx, "job claimed",
			"job_id", job.ID,
			"message_id", job.MessageID,
			"conversation_id", job.ConversationID,
			"retry_count", job.RetryCount,
			"lease_seconds", decision.Seconds,
		)
	}
	return job, nil
}

// CompleteWithReply stores the assistant reply and finalizes the claimed job in one step.
// Returns a nil message and false when the job left processing first, e.g. its lease
// expired and was reclaimed. Nothing is stored in that case.
func (s *JobService) CompleteWithReply(ctx context.Context, job *model.ClaimedJob, reply string) (*model.Message, bool, error) {
	if job == nil {
		return nil, false, errors.New("job is required")
	}

	msg, completed, err := s.repo.CompleteWithReply(ctx, job.ID, &model.CreateMessageRequest{
		ConversationID: job.ConversationID,
		UserID:         job.UserID,
		Role:           model.RoleAssistant,
		Content:        reply,
	})
	if err != nil {
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Transition: metrics.TransitionComplete,
			Result:     metrics.ResultError,
			Err:        err,
		})
		return nil, false, fmt.Errorf("complete job %s: %w", job.ID, err)
	}

	result := metrics.ResultSuccess
	if !completed {
		result = metrics.ResultNoop
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: metrics.TransitionComplete,
		Result:     result,
		Duration:   s.sinceClaim(job),
	})

	if s.logger != nil {
		if completed {
			s.logger.InfoContext(ctx, "job completed",
				"job_id", job.ID,
				"message_id", job.MessageID,
				"conversation_id", job.ConversationID,
				"result_message_id", msg.ID,
			)
		} else {
			s.logger.WarnContext(ctx, "job left processing before completion", "job_id", job.ID)
		}
	}
	return msg, completed, nil
}

// Fail records a failed attempt. The retry policy decides whether kind may re-queue the job;
// the store re-queues only while retries remain. Terminal failures are fanned out to the
// failure notifier.
func (s *JobService) Fail(
	ctx context.Context,
	job *model.ClaimedJob,
	kind domainjob.FailureKind,
	cause error,
) (*model.InferenceJob, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	if cause == nil {
		return nil, errors.New("failure cause is required")
	}

	reason := truncate(cause.Error(), maxFailureReasonLen)
	updated, err := s.repo.Fail(ctx, model.FailJobRequest{
		JobID:     job.ID,
		Reason:    reason,
		Retryable: s.retryPolicy.Retryable(kind),
	})
	if err != nil {
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Transition: metrics.TransitionFail,
			Result:     metrics.ResultError,
			Err:        err,
		})
		if errors.Is(err, model.ErrJobNotClaimed) && s.logger != nil {
			s.logger.WarnContext(ctx, "job left processing before failure was recorded",
				"job_id", job.ID, "failure_kind", kind)
		}
		return nil, fmt.Errorf("fail job %s: %w", job.ID, err)
	}

	requeued := updated.Status == model.JobStatusQueued
	result := metrics.ResultError
	if requeued {
		result = metrics.ResultRetry
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: metrics.TransitionFail,
		Result:     result,
		Duration:   s.sinceClaim(job),
		Err:        cause,
	})

	if s.logger != nil {
		s.logger.WarnContext(ctx, "job attempt failed",
			"job_id", job.ID,
			"message_id", job.MessageID,
			"conversation_id", job.ConversationID,
			"failure_kind", kind,
			"status", updated.Status,
			"retry_count", updated.RetryCount,
			"max_retries", updated.MaxRetries,
			"error", reason,
		)
	}

	if !requeued && s.failureNotifier.Enabled() {
		s.failureNotifier.NotifyJobFailure(ctx, buildJobFailurePayload(job, updated, kind, cause))
	}
	return updated, nil
}

func buildJobFailurePayload(
	job *model.ClaimedJob,
	updated *model.InferenceJob,
	kind domainjob.FailureKind,
	cause error,
) notify.JobFailurePayload {
	class := obserrors.Classify(cause)
	severity := notify.SeverityCritical
	if kind == domainjob.FailureTimeout {
		severity = notify.SeverityError
	}

	payload := notify.JobFailurePayload{
		JobID:          updated.ID,
		MessageID:      updated.MessageID,
		ConversationID: job.ConversationID,
		UserID:         updated.UserID,
		RetryCount:     updated.RetryCount,
		MaxRetries:     updated.MaxRetries,
		Error:          truncate(cause.Error(), maxFailureReasonLen),
		ErrorClass:     class,
		Severity:       severity,
		OccurredAt:     updated.UpdatedAt,
		Metadata: map[string]string{
			"failure_kind": string(kind),
			"status":       string(updated.Status),
			"retry_count":  strconv.Itoa(updated.RetryCount),
			"max_retries":  strconv.Itoa(updated.MaxRetries),
		},
	}
	if code := apperrors.GetCode(cause); code != "" {
		payload.Metadata["error_code"] = string(code)
	}
	return payload
}

// GetForUser returns a job owned by userID. Jobs of other users are reported as not found.
func (s *JobService) GetForUser(ctx context.Context, id, userID string) (*model.InferenceJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	if job.UserID != userID {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	return job, nil
}

// Stats returns job counts by status.
func (s *JobService) Stats(ctx context.Context) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", err)
	}
	return stats, nil
}

// RecordQueueDepth publishes current job counts as gauges.
func (s *JobService) RecordQueueDepth(ctx context.Context) error {
	if s.metrics == nil {
		return nil
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	for status, n := range map[model.JobStatus]int{
		model.JobStatusQueued:     stats.Queued,
		model.JobStatusProcessing: stats.Processing,
		model.JobStatusCompleted:  stats.Completed,
		model.JobStatusFailed:     stats.Failed,
	} {
		s.metrics.Gauge("job.count", float64(n), map[string]string{"status": string(status)})
	}
	return nil
}

// Subscribe returns an unsubscribe func and a channel signalled when jobs are enqueued.
func (s *JobService) Subscribe() (func(), <-chan struct{}) {
	if s.notifier == nil {
		ch := make(chan struct{})
		close(ch)
		return func() {}, ch
	}
	return s.notifier.Subscribe()
}

// StopNotifications stops the job-added listener and closes all subscriber channels.
func (s *JobService) StopNotifications() {
	if s.notifier != nil {
		s.notifier.StopAll()
	}
}

func (s *JobService) sinceClaim(job *model.ClaimedJob) time.Duration {
	if job.ClaimedAt == nil || job.ClaimedAt.IsZero() {
		return 0
	}
	return s.now().Sub(*job.ClaimedAt)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary.
	for n > 0 && n < len(s) && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}
