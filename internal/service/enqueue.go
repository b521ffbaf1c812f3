package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/target/inferq/internal/core"
	domainauth "github.com/target/inferq/internal/domain/auth"
	"github.com/target/inferq/internal/domain/model"
	apperrors "github.com/target/inferq/internal/errors"
	"github.com/target/inferq/internal/observability/metrics"
	"github.com/target/inferq/internal/observability/statsd"
)

// contentPreviewLen bounds how much of a message body reaches the logs.
const contentPreviewLen = 50

// EnqueueServiceOptions groups dependencies for EnqueueService.
type EnqueueServiceOptions struct {
	Repo       core.InferenceJobRepository // Required: job repository
	MaxRetries int                         // Retries granted to each new job
	Logger     *slog.Logger                // Optional: structured logger
	Metrics    statsd.Sink                 // Optional: lifecycle metrics
}

// EnqueueService accepts user messages and queues an inference job for each.
// It never runs inference itself; the call returns as soon as both rows are durable.
type EnqueueService struct {
	repo       core.InferenceJobRepository
	maxRetries int
	logger     *slog.Logger
	metrics    statsd.Sink
	newID      func() string
}

// NewEnqueueService constructs a new EnqueueService.
func NewEnqueueService(opts EnqueueServiceOptions) (*EnqueueService, error) {
	if opts.Repo == nil {
		return nil, errors.New("InferenceJobRepository is required")
	}
	if opts.MaxRetries < 0 {
		return nil, errors.New("MaxRetries cannot be negative")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "enqueue_service")
	}

	return &EnqueueService{
		repo:       opts.Repo,
		maxRetries: opts.MaxRetries,
		logger:     logger,
		metrics:    opts.Metrics,
		newID:      uuid.NewString,
	}, nil
}

// MustNewEnqueueService constructs a new EnqueueService and panics on error.
func MustNewEnqueueService(opts EnqueueServiceOptions) *EnqueueService {
	svc, err := NewEnqueueService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create EnqueueService: %v", err))
	}
	return svc
}

// Enqueue stores the user's message and a queued job answering it in one transaction.
// A fresh conversation id is assigned when the request carries none.
func (s *EnqueueService) Enqueue(
	ctx context.Context,
	caller domainauth.Identity,
	req model.EnqueueRequest,
) (*model.EnqueueResult, error) {
	if !caller.Valid() {
		return nil, apperrors.Unauthorized("a verified user is required")
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperrors.ValidationField("content", "content is required")
	}

	conversationID := s.newID()
	if req.ConversationID != nil && *req.ConversationID != "" {
		conversationID = *req.ConversationID
	}

	start := time.Now()
	msg, job, err := s.repo.CreateWithMessage(ctx, &model.CreateJobWithMessageRequest{
		Message: model.CreateMessageRequest{
			ConversationID: conversationID,
			UserID:         caller.UserID,
			Role:           model.RoleUser,
			Content:        req.Content,
		},
		MaxRetries: s.maxRetries,
	})
	if err != nil {
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Transition: metrics.TransitionEnqueue,
			Result:     metrics.ResultError,
			Err:        err,
		})
		return nil, fmt.Errorf("enqueue message: %w", err)
	}

	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: metrics.TransitionEnqueue,
		Result:     metrics.ResultSuccess,
		Duration:   time.Since(start),
	})

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job enqueued",
			"job_id", job.ID,
			"message_id", msg.ID,
			"conversation_id", msg.ConversationID,
			"user_id", caller.UserID,
			"content_preview", preview(req.Content),
		)
	}

	return &model.EnqueueResult{
		MessageID:      msg.ID,
		JobID:          job.ID,
		ConversationID: msg.ConversationID,
	}, nil
}

func preview(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= contentPreviewLen {
		return content
	}
	return truncate(content, contentPreviewLen) + "..."
}
