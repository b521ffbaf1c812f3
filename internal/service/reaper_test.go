package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/inferq/config"
	"github.com/target/inferq/internal/domain/model"
)

// mockReaperRepo is a simple mock implementation for testing.
type mockReaperRepo struct {
	mu sync.Mutex

	failStaleQueuedJobsCalled int
	failStaleQueuedJobsCount  int64
	failStaleQueuedJobsError  error
	failStaleQueuedMaxAge     time.Duration

	deleteOldJobsCalls map[model.JobStatus]int
	deleteOldJobsCount int64
	deleteOldJobsError error
	deleteOldJobsAges  map[model.JobStatus]time.Duration
}

func (m *mockReaperRepo) FailStaleQueuedJobs(_ context.Context, maxAge time.Duration, _ int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStaleQueuedJobsCalled++
	m.failStaleQueuedMaxAge = maxAge
	if m.failStaleQueuedJobsError != nil {
		return 0, m.failStaleQueuedJobsError
	}
	// Return count on first call, then 0 to simulate batch exhaustion
	if m.failStaleQueuedJobsCalled == 1 {
		return m.failStaleQueuedJobsCount, nil
	}
	return 0, nil
}

func (m *mockReaperRepo) DeleteOldJobs(_ context.Context, params model.DeleteOldJobsParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteOldJobsCalls == nil {
		m.deleteOldJobsCalls = make(map[model.JobStatus]int)
		m.deleteOldJobsAges = make(map[model.JobStatus]time.Duration)
	}
	m.deleteOldJobsCalls[params.Status]++
	m.deleteOldJobsAges[params.Status] = params.MaxAge
	if m.deleteOldJobsError != nil {
		return 0, m.deleteOldJobsError
	}
	if m.deleteOldJobsCalls[params.Status] == 1 {
		return m.deleteOldJobsCount, nil
	}
	return 0, nil
}

func (m *mockReaperRepo) queuedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failStaleQueuedJobsCalled
}

func testReaperConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:        5 * time.Minute,
		QueuedMaxAge:    time.Hour,
		CompletedMaxAge: 7 * 24 * time.Hour,
		FailedMaxAge:    3 * 24 * time.Hour,
		BatchSize:       1000,
	}
}

func TestNewReaperService(t *testing.T) {
	t.Run("creates service with valid options", func(t *testing.T) {
		svc, err := NewReaperService(ReaperServiceOptions{
			Repo:   &mockReaperRepo{},
			Config: testReaperConfig(),
			Logger: slog.Default(),
		})

		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("returns error when repo is nil", func(t *testing.T) {
		_, err := NewReaperService(ReaperServiceOptions{Config: testReaperConfig()})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "ReaperRepository is required")
	})

	t.Run("must constructor panics without repo", func(t *testing.T) {
		assert.Panics(t, func() {
			MustNewReaperService(ReaperServiceOptions{Config: testReaperConfig()})
		})
	})
}

func TestReaperService_RunOnce(t *testing.T) {
	t.Run("runs all cleanup operations successfully", func(t *testing.T) {
		repo := &mockReaperRepo{
			failStaleQueuedJobsCount: 5,
			deleteOldJobsCount:       10,
		}
		svc := MustNewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig()})

		require.NoError(t, svc.RunOnce(context.Background()))

		// Each operation is called twice: once returning count, once returning 0
		assert.Equal(t, 2, repo.failStaleQueuedJobsCalled)
		assert.Equal(t, 2, repo.deleteOldJobsCalls[model.JobStatusCompleted])
		assert.Equal(t, 2, repo.deleteOldJobsCalls[model.JobStatusFailed])
		assert.Equal(t, time.Hour, repo.failStaleQueuedMaxAge)
		assert.Equal(t, 7*24*time.Hour, repo.deleteOldJobsAges[model.JobStatusCompleted])
		assert.Equal(t, 3*24*time.Hour, repo.deleteOldJobsAges[model.JobStatusFailed])
	})

	t.Run("continues on partial errors", func(t *testing.T) {
		repo := &mockReaperRepo{
			failStaleQueuedJobsError: errors.New("fail error"),
			deleteOldJobsCount:       10,
		}
		svc := MustNewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig()})

		err := svc.RunOnce(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "fail stale queued jobs")
		assert.Equal(t, 1, repo.failStaleQueuedJobsCalled)
		assert.Equal(t, 2, repo.deleteOldJobsCalls[model.JobStatusCompleted])
		assert.Equal(t, 2, repo.deleteOldJobsCalls[model.JobStatusFailed])
	})

	t.Run("reports cancellation as context.Canceled", func(t *testing.T) {
		repo := &mockReaperRepo{
			failStaleQueuedJobsError: context.Canceled,
			deleteOldJobsError:       context.Canceled,
		}
		svc := MustNewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig()})

		err := svc.RunOnce(context.Background())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestReaperService_Metrics(t *testing.T) {
	repo := &mockReaperRepo{failStaleQueuedJobsCount: 2}
	sink := &capturingSink{}
	svc := MustNewReaperService(ReaperServiceOptions{
		Repo:    repo,
		Config:  testReaperConfig(),
		Metrics: sink,
	})

	require.NoError(t, svc.RunOnce(context.Background()))

	cleanup := sink.find("reaper.cleanup")
	require.Len(t, cleanup, 1)
	assert.Equal(t, "success", cleanup[0].tags["result"])

	ops := sink.find("reaper.cleanup_operation")
	require.Len(t, ops, 3)
	processed := sink.find("reaper.jobs_processed")
	require.Len(t, processed, 1)
	assert.Equal(t, "fail_queued", processed[0].tags["operation"])
	assert.InDelta(t, 2, processed[0].value, 0)
	assert.Len(t, sink.find("reaper.last_success_epoch"), 1)
}

func TestReaperService_Run(t *testing.T) {
	t.Run("stops on context cancellation", func(t *testing.T) {
		repo := &mockReaperRepo{}
		cfg := testReaperConfig()
		cfg.Interval = 100 * time.Millisecond
		svc := MustNewReaperService(ReaperServiceOptions{Repo: repo, Config: cfg})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- svc.Run(ctx)
		}()

		time.Sleep(150 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Run did not stop after context cancellation")
		}
		assert.GreaterOrEqual(t, repo.queuedCalls(), 1)
	})

	t.Run("continues running despite cleanup errors", func(t *testing.T) {
		repo := &mockReaperRepo{failStaleQueuedJobsError: errors.New("test error")}
		cfg := testReaperConfig()
		cfg.Interval = 50 * time.Millisecond
		svc := MustNewReaperService(ReaperServiceOptions{Repo: repo, Config: cfg})

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		err := svc.Run(ctx)

		// Deadline, not the cleanup error, ends the loop.
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.GreaterOrEqual(t, repo.queuedCalls(), 2)
	})
}
