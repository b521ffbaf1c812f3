// Package trigger runs worker invocations in-process on a fixed interval and on job-added notifications.
package trigger

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/target/inferq/internal/domain/model"
	obserrors "github.com/target/inferq/internal/observability/errors"
	"github.com/target/inferq/internal/observability/metrics"
	"github.com/target/inferq/internal/observability/statsd"
	"golang.org/x/sync/semaphore"
)

// Worker is the invocation entry point shared with the HTTP worker endpoint.
type Worker interface {
	Run(ctx context.Context) (model.WorkerRunResult, error)
}

// Queue supplies wake-ups and queue depth sampling. Optional.
type Queue interface {
	Subscribe() (func(), <-chan struct{})
	RecordQueueDepth(ctx context.Context) error
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Worker Worker // Required
	Queue  Queue

	Interval   time.Duration // default 60s
	RunOnStart bool
	// Concurrency bounds overlapping invocations; a tick is skipped when all slots are busy.
	Concurrency int
	// Jitter delays the first invocation by a random amount below it.
	Jitter time.Duration

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Runner fires worker invocations until its context ends.
type Runner struct {
	worker     Worker
	queue      Queue
	interval   time.Duration
	runOnStart bool
	jitter     time.Duration
	slots      *semaphore.Weighted
	logger     *slog.Logger
	metrics    statsd.Sink

	wg sync.WaitGroup
}

// NewRunner creates a new trigger runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Worker == nil {
		return nil, errors.New("worker is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	concurrency := max(opts.Concurrency, 1)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		worker:     opts.Worker,
		queue:      opts.Queue,
		interval:   interval,
		runOnStart: opts.RunOnStart,
		jitter:     max(opts.Jitter, 0),
		slots:      semaphore.NewWeighted(int64(concurrency)),
		logger:     logger.With("component", "trigger"),
		metrics:    opts.Metrics,
	}, nil
}

// Run starts the trigger loop and runs until the context is cancelled.
// In-flight invocations are awaited before it returns.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting trigger runner", "interval", r.interval, "run_on_start", r.runOnStart)
	defer r.wg.Wait()

	var wake <-chan struct{}
	if r.queue != nil {
		unsub, ch := r.queue.Subscribe()
		defer unsub()
		wake = ch
	}

	if r.jitter > 0 {
		if !sleep(ctx, rand.N(r.jitter)) {
			return nil
		}
	}
	if r.runOnStart {
		r.fire(ctx, "start")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "trigger runner stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			r.recordQueueDepth(ctx)
			r.fire(ctx, "tick")
		case _, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			r.fire(ctx, "notify")
		}
	}
}

// fire starts one invocation when a slot is free.
func (r *Runner) fire(ctx context.Context, source string) {
	if !r.slots.TryAcquire(1) {
		if r.metrics != nil {
			r.metrics.Count("trigger.skipped", 1, map[string]string{"source": source})
		}
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.slots.Release(1)
		r.drain(ctx, source)
	}()
}

// drain invokes the worker until it reports nothing to do, fails, or ctx ends.
func (r *Runner) drain(ctx context.Context, source string) {
	for ctx.Err() == nil {
		start := time.Now()
		res, err := r.worker.Run(ctx)
		r.emit(source, res, time.Since(start), err)

		if err != nil {
			if !errors.Is(err, context.Canceled) {
				r.logger.ErrorContext(ctx, "worker invocation failed", "source", source, "error", err)
			}
			return
		}
		if res.Empty() {
			return
		}
		for _, o := range res.Outcomes {
			r.logger.InfoContext(ctx, "job processed",
				"source", source,
				"job_id", o.JobID,
				"status", o.Status,
				"response_id", o.ResponseID,
				"error", o.Error,
			)
		}
	}
}

func (r *Runner) emit(source string, res model.WorkerRunResult, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}
	result := metrics.ResultSuccess
	switch {
	case err != nil:
		result = metrics.ResultError
	case res.Empty():
		result = metrics.ResultNoop
	}
	tags := map[string]string{"source": source, "result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	r.metrics.Count("trigger.invocation", 1, tags)
	if n := len(res.Outcomes); n > 0 {
		r.metrics.Count("trigger.jobs_processed", int64(n), tags)
	}
	r.metrics.Timing("trigger.invocation_duration", elapsed, metrics.CloneTags(tags))
}

func (r *Runner) recordQueueDepth(ctx context.Context) {
	if r.queue == nil {
		return
	}
	if err := r.queue.RecordQueueDepth(ctx); err != nil && ctx.Err() == nil {
		r.logger.WarnContext(ctx, "queue depth sample failed", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
