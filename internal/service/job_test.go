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
	domainjob "github.com/target/inferq/internal/domain/job"
	"github.com/target/inferq/internal/domain/model"
	apperrors "github.com/target/inferq/internal/errors"
	"github.com/target/inferq/internal/mocks"
	"github.com/target/inferq/internal/observability/notify"
	"github.com/target/inferq/internal/service/failurenotifier"
	"go.uber.org/mock/gomock"
)

type stubJobNotifier struct {
	subscribeCalls int
	stopCalled     bool
}

func (s *stubJobNotifier) Subscribe() (func(), <-chan struct{}) {
	s.subscribeCalls++
	ch := make(chan struct{})
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }, ch
}

func (s *stubJobNotifier) StopAll() {
	s.stopCalled = true
}

var _ domainjob.Notifier = (*stubJobNotifier)(nil)

type jobServiceDeps struct {
	repo     *mocks.MockInferenceJobRepository
	notifier *stubJobNotifier
	sink     *capturingSink
	failures *[]notify.JobFailurePayload
}

func newTestJobService(t *testing.T) (*JobService, jobServiceDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)

	var (
		mu       sync.Mutex
		received []notify.JobFailurePayload
	)
	fn := failurenotifier.NewService(failurenotifier.Options{
		Sinks: []failurenotifier.SinkRegistration{{
			Name: "capture",
			Sink: notify.SinkFunc(func(_ context.Context, p notify.JobFailurePayload) error {
				mu.Lock()
				defer mu.Unlock()
				received = append(received, p)
				return nil
			}),
		}},
	})

	deps := jobServiceDeps{
		repo:     mocks.NewMockInferenceJobRepository(ctrl),
		notifier: &stubJobNotifier{},
		sink:     &capturingSink{},
		failures: &received,
	}
	svc := MustNewJobService(JobServiceOptions{
		Repo:            deps.repo,
		DefaultLease:    90 * time.Second,
		Logger:          slog.Default(),
		Metrics:         deps.sink,
		FailureNotifier: fn,
		Notifier:        deps.notifier,
	})
	return svc, deps
}

func TestNewJobService(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockInferenceJobRepository(ctrl)

	t.Run("success with default notifier", func(t *testing.T) {
		svc, err := NewJobService(JobServiceOptions{Repo: repo, DefaultLease: time.Minute})
		require.NoError(t, err)
		assert.NotNil(t, svc.notifier)
		assert.Equal(t, time.Minute, svc.leasePolicy.Default())
	})

	t.Run("missing repo", func(t *testing.T) {
		_, err := NewJobService(JobServiceOptions{DefaultLease: time.Minute})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "InferenceJobRepository is required")
	})

	t.Run("non-positive lease", func(t *testing.T) {
		_, err := NewJobService(JobServiceOptions{Repo: repo})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lease")
	})

	t.Run("must constructor panics", func(t *testing.T) {
		assert.Panics(t, func() { MustNewJobService(JobServiceOptions{}) })
	})
}

func TestJobService_Claim(t *testing.T) {
	t.Run("uses default lease in seconds", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		job := claimedJob("j1", "hello")
		deps.repo.EXPECT().ClaimNext(gomock.Any(), 90).Return(job, nil)

		got, err := svc.Claim(context.Background())
		require.NoError(t, err)
		assert.Equal(t, job, got)

		claims := deps.sink.find("job.transition")
		require.Len(t, claims, 1)
		assert.Equal(t, "claim", claims[0].tags["transition"])
		assert.Equal(t, "success", claims[0].tags["result"])
	})

	t.Run("empty queue", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		deps.repo.EXPECT().ClaimNext(gomock.Any(), 90).Return(nil, model.ErrNoJobsAvailable)

		_, err := svc.Claim(context.Background())
		require.ErrorIs(t, err, model.ErrNoJobsAvailable)
		assert.Equal(t, "noop", deps.sink.find("job.transition")[0].tags["result"])
	})

	t.Run("store error is wrapped", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		boom := errors.New("connection reset")
		deps.repo.EXPECT().ClaimNext(gomock.Any(), 90).Return(nil, boom)

		_, err := svc.Claim(context.Background())
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "claim next job")
	})
}

func TestJobService_CompleteWithReply(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		job := claimedJob("j1", "hello")
		deps.repo.EXPECT().
			CompleteWithReply(gomock.Any(), "j1", &model.CreateMessageRequest{
				ConversationID: job.ConversationID,
				UserID:         job.UserID,
				Role:           model.RoleAssistant,
				Content:        "hi there",
			}).
			Return(&model.Message{ID: "reply-1"}, true, nil)

		msg, ok, err := svc.CompleteWithReply(context.Background(), job, "hi there")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "reply-1", msg.ID)

		transitions := deps.sink.find("job.transition")
		require.Len(t, transitions, 1)
		assert.Equal(t, "complete", transitions[0].tags["transition"])
		assert.Len(t, deps.sink.find("job.duration"), 1)
	})

	t.Run("lease lost", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		deps.repo.EXPECT().CompleteWithReply(gomock.Any(), "j1", gomock.Any()).Return(nil, false, nil)

		msg, ok, err := svc.CompleteWithReply(context.Background(), claimedJob("j1", "x"), "reply")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, msg)
		assert.Equal(t, "noop", deps.sink.find("job.transition")[0].tags["result"])
	})

	t.Run("store error", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		deps.repo.EXPECT().CompleteWithReply(gomock.Any(), "j1", gomock.Any()).Return(nil, false, errors.New("conn reset"))

		_, _, err := svc.CompleteWithReply(context.Background(), claimedJob("j1", "x"), "reply")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "complete job j1: conn reset")
		assert.Equal(t, "error", deps.sink.find("job.transition")[0].tags["result"])
	})

	t.Run("nil job", func(t *testing.T) {
		svc, _ := newTestJobService(t)
		_, _, err := svc.CompleteWithReply(context.Background(), nil, "r")
		require.Error(t, err)
	})
}

func TestJobService_Fail(t *testing.T) {
	timeoutErr := apperrors.Wrap(context.DeadlineExceeded, apperrors.ErrCodeTimeout, "inference engine timed out")

	t.Run("retryable timeout re-queues without notifying", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		job := claimedJob("j1", "hello")
		deps.repo.EXPECT().
			Fail(gomock.Any(), model.FailJobRequest{JobID: "j1", Reason: timeoutErr.Error(), Retryable: true}).
			Return(&model.InferenceJob{ID: "j1", Status: model.JobStatusQueued, RetryCount: 1, MaxRetries: 1}, nil)

		updated, err := svc.Fail(context.Background(), job, domainjob.FailureTimeout, timeoutErr)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusQueued, updated.Status)
		assert.Empty(t, *deps.failures)

		transitions := deps.sink.find("job.transition")
		require.Len(t, transitions, 1)
		assert.Equal(t, "retry", transitions[0].tags["result"])
		assert.Equal(t, "timeout", transitions[0].tags["error_class"])
	})

	t.Run("engine error fails terminally and notifies", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		job := claimedJob("j2", "hello")
		cause := apperrors.Wrap(errors.New("503 from upstream"), apperrors.ErrCodeInternal, "inference engine failed")
		deps.repo.EXPECT().
			Fail(gomock.Any(), gomock.Cond(func(req model.FailJobRequest) bool {
				return req.JobID == "j2" && !req.Retryable
			})).
			Return(&model.InferenceJob{
				ID: "j2", MessageID: "msg-j2", UserID: "user-1",
				Status: model.JobStatusFailed, MaxRetries: 1,
			}, nil)

		updated, err := svc.Fail(context.Background(), job, domainjob.FailureEngine, cause)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, updated.Status)

		require.Len(t, *deps.failures, 1)
		p := (*deps.failures)[0]
		assert.Equal(t, "j2", p.JobID)
		assert.Equal(t, job.ConversationID, p.ConversationID)
		assert.Equal(t, "internal", p.ErrorClass)
		assert.Equal(t, notify.SeverityCritical, p.Severity)
		assert.Equal(t, "engine", p.Metadata["failure_kind"])
		assert.Equal(t, "internal", p.Metadata["error_code"])
	})

	t.Run("job no longer claimed", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		deps.repo.EXPECT().Fail(gomock.Any(), gomock.Any()).Return(nil, model.ErrJobNotClaimed)

		_, err := svc.Fail(context.Background(), claimedJob("j3", "x"), domainjob.FailureStore, errors.New("boom"))
		require.ErrorIs(t, err, model.ErrJobNotClaimed)
		assert.Empty(t, *deps.failures)
	})

	t.Run("long reasons are truncated", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		long := make([]byte, 3*maxFailureReasonLen)
		for i := range long {
			long[i] = 'x'
		}
		deps.repo.EXPECT().
			Fail(gomock.Any(), gomock.Cond(func(req model.FailJobRequest) bool {
				return len(req.Reason) == maxFailureReasonLen
			})).
			Return(&model.InferenceJob{ID: "j4", Status: model.JobStatusFailed}, nil)

		_, err := svc.Fail(context.Background(), claimedJob("j4", "x"), domainjob.FailureEngine, errors.New(string(long)))
		require.NoError(t, err)
	})

	t.Run("requires a cause", func(t *testing.T) {
		svc, _ := newTestJobService(t)
		_, err := svc.Fail(context.Background(), claimedJob("j5", "x"), domainjob.FailureEngine, nil)
		require.Error(t, err)
	})
}

func TestJobService_GetForUser(t *testing.T) {
	svc, deps := newTestJobService(t)
	job := &model.InferenceJob{ID: "j1", UserID: "user-1", Status: model.JobStatusQueued}
	deps.repo.EXPECT().GetByID(gomock.Any(), "j1").Return(job, nil).Times(2)

	got, err := svc.GetForUser(context.Background(), "j1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, job, got)

	_, err = svc.GetForUser(context.Background(), "j1", "someone-else")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobService_RecordQueueDepth(t *testing.T) {
	svc, deps := newTestJobService(t)
	deps.repo.EXPECT().Stats(gomock.Any()).Return(&model.JobStats{Queued: 3, Processing: 1}, nil)

	require.NoError(t, svc.RecordQueueDepth(context.Background()))

	gauges := deps.sink.find("job.count")
	require.Len(t, gauges, 4)
	for _, g := range gauges {
		if g.tags["status"] == "queued" {
			assert.InDelta(t, 3, g.value, 0)
		}
	}
}

func TestJobService_Subscribe(t *testing.T) {
	svc, deps := newTestJobService(t)

	unsub, ch := svc.Subscribe()
	assert.NotNil(t, ch)
	unsub()
	svc.StopNotifications()

	assert.Equal(t, 1, deps.notifier.subscribeCalls)
	assert.True(t, deps.notifier.stopCalled)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("  abc  ", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	// "é" is two bytes; cutting inside it backs off to the boundary.
	assert.Equal(t, "a", truncate("aé", 2))
}
