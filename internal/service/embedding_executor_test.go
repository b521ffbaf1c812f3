package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/inferq/internal/domain/model"
)

type funcEmbedder func(ctx context.Context, msg *model.Message, text string) (*model.Embedding, error)

func (f funcEmbedder) EmbedMessage(ctx context.Context, msg *model.Message, text string) (*model.Embedding, error) {
	return f(ctx, msg, text)
}

func TestNewEmbeddingExecutor(t *testing.T) {
	_, err := NewEmbeddingExecutor(EmbeddingExecutorOptions{})
	require.Error(t, err)

	e, err := NewEmbeddingExecutor(EmbeddingExecutorOptions{
		Embedder: funcEmbedder(func(context.Context, *model.Message, string) (*model.Embedding, error) {
			return nil, nil
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(defaultEmbeddingConcurrency*pendingPerSlot), e.maxPending)
}

func TestEmbeddingExecutor_SubmitAndShutdown(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	sink := &capturingSink{}
	e, err := NewEmbeddingExecutor(EmbeddingExecutorOptions{
		Embedder: funcEmbedder(func(_ context.Context, msg *model.Message, text string) (*model.Embedding, error) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, msg.ID+"="+text)
			if msg.ID == "bad" {
				return nil, errors.New("engine down")
			}
			return &model.Embedding{MessageID: msg.ID}, nil
		}),
		Concurrency: 2,
		Metrics:     sink,
	})
	require.NoError(t, err)

	assert.True(t, e.Submit(&model.Message{ID: "m1", Content: "hello"}))
	assert.True(t, e.Submit(&model.Message{ID: "bad", Content: "oops"}))
	assert.False(t, e.Submit(nil))

	require.NoError(t, e.Shutdown(context.Background()))
	assert.Equal(t, int64(0), e.Pending())
	assert.ElementsMatch(t, []string{"m1=hello", "bad=oops"}, seen)

	results := map[string]int{}
	for _, m := range sink.find("embedding.generate") {
		results[m.tags["result"]]++
	}
	assert.Equal(t, map[string]int{"success": 1, "error": 1}, results)

	assert.False(t, e.Submit(&model.Message{ID: "late"}), "closed executor accepts no work")
}

func TestEmbeddingExecutor_DropsWhenBacklogFull(t *testing.T) {
	release := make(chan struct{})
	sink := &capturingSink{}
	e, err := NewEmbeddingExecutor(EmbeddingExecutorOptions{
		Embedder: funcEmbedder(func(ctx context.Context, _ *model.Message, _ string) (*model.Embedding, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return &model.Embedding{}, nil
		}),
		Concurrency: 1,
		Metrics:     sink,
	})
	require.NoError(t, err)

	for range pendingPerSlot {
		require.True(t, e.Submit(&model.Message{ID: "m"}))
	}
	assert.False(t, e.Submit(&model.Message{ID: "overflow"}))
	assert.Equal(t, int64(pendingPerSlot), e.Pending())

	dropped := sink.find("embedding.generate")
	require.Len(t, dropped, 1)
	assert.Equal(t, resultDropped, dropped[0].tags["result"])

	close(release)
	require.NoError(t, e.Shutdown(context.Background()))
}

func TestEmbeddingExecutor_ShutdownDeadlineCancelsTasks(t *testing.T) {
	e, err := NewEmbeddingExecutor(EmbeddingExecutorOptions{
		Embedder: funcEmbedder(func(ctx context.Context, _ *model.Message, _ string) (*model.Embedding, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
		Concurrency: 1,
	})
	require.NoError(t, err)
	require.True(t, e.Submit(&model.Message{ID: "stuck"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = e.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(0), e.Pending())
}

func TestEmbeddingExecutor_RecoversPanics(t *testing.T) {
	sink := &capturingSink{}
	e, err := NewEmbeddingExecutor(EmbeddingExecutorOptions{
		Embedder: funcEmbedder(func(context.Context, *model.Message, string) (*model.Embedding, error) {
			panic("nil vector")
		}),
		Metrics: sink,
	})
	require.NoError(t, err)
	require.True(t, e.Submit(&model.Message{ID: "m"}))
	require.NoError(t, e.Shutdown(context.Background()))

	got := sink.find("embedding.generate")
	require.Len(t, got, 1)
	assert.Equal(t, "error", got[0].tags["result"])
}
