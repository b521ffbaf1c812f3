package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/target/inferq/internal/domain/model"
	"github.com/target/inferq/internal/observability/metrics"
	"github.com/target/inferq/internal/observability/statsd"
	"golang.org/x/sync/semaphore"
)

const (
	resultDropped = "dropped"

	defaultEmbeddingConcurrency = 8
	pendingPerSlot              = 16
)

// messageEmbedder is the part of EmbeddingService the executor drives.
type messageEmbedder interface {
	EmbedMessage(ctx context.Context, msg *model.Message, text string) (*model.Embedding, error)
}

// EmbeddingExecutorOptions groups dependencies for EmbeddingExecutor.
type EmbeddingExecutorOptions struct {
	Embedder    messageEmbedder // Required
	Concurrency int             // Max embeddings computed at once; default 8
	Logger      *slog.Logger
	Metrics     statsd.Sink
}

// EmbeddingExecutor runs post-reply embeddings in the background.
// A submitted task never reports back to the job that produced the message;
// failures are logged and counted only.
type EmbeddingExecutor struct {
	embedder   messageEmbedder
	sem        *semaphore.Weighted
	maxPending int64
	pending    atomic.Int64
	logger     *slog.Logger
	metrics    statsd.Sink

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewEmbeddingExecutor constructs a new EmbeddingExecutor.
func NewEmbeddingExecutor(opts EmbeddingExecutorOptions) (*EmbeddingExecutor, error) {
	if opts.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultEmbeddingConcurrency
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &EmbeddingExecutor{
		embedder:   opts.Embedder,
		sem:        semaphore.NewWeighted(int64(concurrency)),
		maxPending: int64(concurrency * pendingPerSlot),
		logger:     logger.With("component", "embedding_executor"),
		metrics:    opts.Metrics,
		baseCtx:    ctx,
		cancel:     cancel,
	}, nil
}

// Submit schedules an embedding for msg and returns immediately.
// It returns false when the executor is shut down or its backlog is full.
func (e *EmbeddingExecutor) Submit(msg *model.Message) bool {
	if msg == nil {
		return false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}
	if e.pending.Add(1) > e.maxPending {
		e.pending.Add(-1)
		e.logger.Warn("embedding backlog full, dropping task", "message_id", msg.ID)
		metrics.EmitEmbeddingHandoff(e.metrics, resultDropped, nil)
		return false
	}

	e.wg.Add(1)
	go e.run(msg)
	return true
}

func (e *EmbeddingExecutor) run(msg *model.Message) {
	defer e.wg.Done()
	defer e.pending.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("embedding task panic: %v", r)
			e.logger.Error("embedding task panicked", "message_id", msg.ID, "error", err)
			metrics.EmitEmbeddingHandoff(e.metrics, metrics.ResultError, err)
		}
	}()

	if err := e.sem.Acquire(e.baseCtx, 1); err != nil {
		metrics.EmitEmbeddingHandoff(e.metrics, resultDropped, err)
		return
	}
	defer e.sem.Release(1)

	if _, err := e.embedder.EmbedMessage(e.baseCtx, msg, msg.Content); err != nil {
		e.logger.Error("embedding generation failed",
			"message_id", msg.ID,
			"conversation_id", msg.ConversationID,
			"error", err,
		)
		metrics.EmitEmbeddingHandoff(e.metrics, metrics.ResultError, err)
		return
	}
	metrics.EmitEmbeddingHandoff(e.metrics, metrics.ResultSuccess, nil)
}

// Pending returns the number of submitted tasks not yet finished.
func (e *EmbeddingExecutor) Pending() int64 {
	return e.pending.Load()
}

// Shutdown stops accepting tasks and waits for in-flight ones. When ctx ends first,
// outstanding tasks are canceled and ctx's error is returned.
func (e *EmbeddingExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		<-done
		return ctx.Err()
	}
}
