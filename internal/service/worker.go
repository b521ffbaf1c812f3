package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/target/inferq/internal/core"
	domainjob "github.com/target/inferq/internal/domain/job"
	"github.com/target/inferq/internal/domain/model"
	apperrors "github.com/target/inferq/internal/errors"
	"github.com/target/inferq/internal/observability/metrics"
	"github.com/target/inferq/internal/observability/statsd"
	"github.com/target/inferq/internal/ports"
	"golang.org/x/sync/errgroup"
)

// RunLockKeyPrefix namespaces worker run-lock slots within the cache.
const RunLockKeyPrefix = "worker:run:"

// embeddingSubmitter hands an assistant reply to the background embedding step.
type embeddingSubmitter interface {
	Submit(msg *model.Message) bool
}

// WorkerConfig bounds one worker invocation.
type WorkerConfig struct {
	// BatchSize is how many jobs one invocation may claim. Default 1.
	BatchSize int
	// Concurrency bounds jobs of a batch processed in parallel. Default 1.
	Concurrency int
	// InferenceTimeout bounds each inference call. Required.
	InferenceTimeout time.Duration
}

// RunLockConfig enables the cross-replica run lock.
type RunLockConfig struct {
	Cache core.CacheRepository
	// Slots is the number of invocations allowed to overlap across all replicas.
	Slots int
	TTL   time.Duration
}

// WorkerPipelineOptions groups dependencies for WorkerPipeline.
type WorkerPipelineOptions struct {
	Jobs       *JobService           // Required: claims jobs and stores their replies
	Engine     ports.InferenceEngine // Required
	Embeddings embeddingSubmitter    // Optional: post-reply embedding hand-off
	Config     WorkerConfig
	RunLock    *RunLockConfig // Optional
	Logger     *slog.Logger
	Metrics    statsd.Sink
}

// WorkerPipeline processes claimed inference jobs. Every invocation is independent; the
// claim protocol in the store is what keeps two invocations off the same job.
type WorkerPipeline struct {
	jobs       *JobService
	engine     ports.InferenceEngine
	embeddings embeddingSubmitter
	cfg        WorkerConfig
	runLocks   []*core.RunLock
	logger     *slog.Logger
	metrics    statsd.Sink
}

// NewWorkerPipeline constructs a new WorkerPipeline.
func NewWorkerPipeline(opts WorkerPipelineOptions) (*WorkerPipeline, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobService is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("InferenceEngine is required")
	}
	if opts.Config.InferenceTimeout <= 0 {
		return nil, errors.New("InferenceTimeout must be positive")
	}

	cfg := opts.Config
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	var locks []*core.RunLock
	if opts.RunLock != nil && opts.RunLock.Cache != nil {
		slots := max(opts.RunLock.Slots, 1)
		for i := range slots {
			key := fmt.Sprintf("%s%d", RunLockKeyPrefix, i)
			locks = append(locks, core.NewRunLock(opts.RunLock.Cache, key, opts.RunLock.TTL))
		}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "worker_pipeline")
		logger.Debug("WorkerPipeline initialized",
			"engine", opts.Engine.Name(),
			"batch_size", cfg.BatchSize,
			"concurrency", cfg.Concurrency,
			"inference_timeout", cfg.InferenceTimeout,
			"run_lock_slots", len(locks),
		)
	}

	return &WorkerPipeline{
		jobs:       opts.Jobs,
		engine:     opts.Engine,
		embeddings: opts.Embeddings,
		cfg:        cfg,
		runLocks:   locks,
		logger:     logger,
		metrics:    opts.Metrics,
	}, nil
}

// MustNewWorkerPipeline constructs a new WorkerPipeline and panics on error.
func MustNewWorkerPipeline(opts WorkerPipelineOptions) *WorkerPipeline {
	p, err := NewWorkerPipeline(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create WorkerPipeline: %v", err))
	}
	return p
}

// Run performs one worker invocation: it claims up to BatchSize jobs and processes each.
// An empty result means there was nothing to do, or every run-lock slot was busy.
func (p *WorkerPipeline) Run(ctx context.Context) (model.WorkerRunResult, error) {
	release, err := p.acquireRunSlot(ctx)
	if errors.Is(err, core.ErrLockHeld) {
		if p.logger != nil {
			p.logger.DebugContext(ctx, "all worker run slots busy, skipping invocation")
		}
		return model.WorkerRunResult{}, nil
	}
	if err != nil {
		return model.WorkerRunResult{}, err
	}
	defer release(context.WithoutCancel(ctx))

	if p.cfg.BatchSize == 1 {
		outcome, err := p.ProcessNext(ctx)
		if err != nil || outcome == nil {
			return model.WorkerRunResult{}, err
		}
		return model.WorkerRunResult{Outcomes: []model.JobOutcome{*outcome}}, nil
	}
	return p.runBatch(ctx)
}

// runBatch claims jobs in parallel up to Concurrency. A worker stops claiming once
// the queue reports empty. Processing errors do not cancel siblings mid-inference.
func (p *WorkerPipeline) runBatch(ctx context.Context) (model.WorkerRunResult, error) {
	var (
		mu       sync.Mutex
		outcomes []model.JobOutcome
		drained  bool
	)

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for range p.cfg.BatchSize {
		mu.Lock()
		stop := drained
		mu.Unlock()
		if stop || ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			outcome, err := p.ProcessNext(ctx)
			mu.Lock()
			defer mu.Unlock()
			if outcome != nil {
				outcomes = append(outcomes, *outcome)
			} else if err == nil {
				drained = true
			}
			return err
		})
	}

	err := g.Wait()
	return model.WorkerRunResult{Outcomes: outcomes}, err
}

// ProcessNext claims and processes a single job. It returns (nil, nil) when the queue is empty.
// Once a job is claimed, engine and store failures are recorded on the job and reported in the
// outcome rather than returned; the returned error covers claim failures and failures to record.
func (p *WorkerPipeline) ProcessNext(ctx context.Context) (*model.JobOutcome, error) {
	job, err := p.jobs.Claim(ctx)
	if errors.Is(err, model.ErrNoJobsAvailable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	log := p.jobLogger(job)

	reply, err := p.infer(ctx, job)
	if err != nil && ctx.Err() != nil {
		// Shutting down: leave the job processing so the lease sweep re-queues it.
		if log != nil {
			log.WarnContext(ctx, "invocation canceled during inference", "error", err)
		}
		return nil, ctx.Err()
	}
	if err != nil {
		kind := domainjob.FailureEngine
		if apperrors.IsTimeout(err) {
			kind = domainjob.FailureTimeout
		}
		return p.fail(ctx, job, kind, err)
	}

	replyMsg, completed, err := p.jobs.CompleteWithReply(ctx, job, reply)
	if err != nil {
		return p.fail(ctx, job, domainjob.FailureStore,
			apperrors.Wrap(err, apperrors.ErrCodeInternal, "store assistant reply"))
	}
	if !completed {
		return &model.JobOutcome{
			JobID:     job.ID,
			Status:    model.JobStatusProcessing,
			Error:     "job lease expired before completion",
			ErrorCode: string(apperrors.ErrCodeConflict),
		}, nil
	}

	if p.embeddings != nil && !p.embeddings.Submit(replyMsg) && log != nil {
		log.WarnContext(ctx, "embedding hand-off rejected", "result_message_id", replyMsg.ID)
	}

	return &model.JobOutcome{
		JobID:      job.ID,
		Status:     model.JobStatusCompleted,
		ResponseID: replyMsg.ID,
	}, nil
}

// infer runs the engine under InferenceTimeout. Deadline expiry becomes a Timeout AppError.
func (p *WorkerPipeline) infer(ctx context.Context, job *model.ClaimedJob) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.InferenceTimeout)
	defer cancel()

	start := time.Now()
	reply, err := p.engine.Generate(callCtx, job.Content)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = apperrors.Internal("inference engine returned an empty reply")
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitEngineCall(p.metrics, metrics.EngineMetric{
		Kind:     metrics.KindInference,
		Provider: p.engine.Name(),
		Result:   result,
		Duration: time.Since(start),
		Err:      err,
	})

	if err != nil {
		return "", engineError(callCtx, ctx, err, "inference")
	}
	return reply, nil
}

func (p *WorkerPipeline) fail(
	ctx context.Context,
	job *model.ClaimedJob,
	kind domainjob.FailureKind,
	cause error,
) (*model.JobOutcome, error) {
	updated, err := p.jobs.Fail(ctx, job, kind, cause)
	if errors.Is(err, model.ErrJobNotClaimed) {
		return &model.JobOutcome{
			JobID:     job.ID,
			Status:    model.JobStatusProcessing,
			Error:     cause.Error(),
			ErrorCode: string(apperrors.GetCode(cause)),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.JobOutcome{
		JobID:     job.ID,
		Status:    updated.Status,
		Error:     cause.Error(),
		ErrorCode: string(apperrors.GetCode(cause)),
	}, nil
}

// acquireRunSlot takes the first free run-lock slot. Without locks it always succeeds.
func (p *WorkerPipeline) acquireRunSlot(ctx context.Context) (func(context.Context), error) {
	if len(p.runLocks) == 0 {
		return func(context.Context) {}, nil
	}
	owner := uuid.NewString()
	for _, lock := range p.runLocks {
		release, err := lock.Acquire(ctx, owner)
		if errors.Is(err, core.ErrLockHeld) {
			continue
		}
		if err != nil {
			// Redis trouble must not stop the queue; the claim protocol still holds.
			if p.logger != nil {
				p.logger.WarnContext(ctx, "run lock unavailable, proceeding without it", "error", err)
			}
			return func(context.Context) {}, nil
		}
		return release, nil
	}
	return nil, core.ErrLockHeld
}

func (p *WorkerPipeline) jobLogger(job *model.ClaimedJob) *slog.Logger {
	if p.logger == nil {
		return nil
	}
	return p.logger.With(
		"job_id", job.ID,
		"message_id", job.MessageID,
		"conversation_id", job.ConversationID,
	)
}
