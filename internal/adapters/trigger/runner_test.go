package trigger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/inferq/internal/domain/model"
)

type fakeWorker struct {
	calls atomic.Int32
	fn    func(call int32) (model.WorkerRunResult, error)
}

func (w *fakeWorker) Run(ctx context.Context) (model.WorkerRunResult, error) {
	n := w.calls.Add(1)
	if w.fn == nil {
		return model.WorkerRunResult{}, nil
	}
	return w.fn(n)
}

type fakeQueue struct {
	mu      sync.Mutex
	ch      chan struct{}
	samples int
	unsubs  int
}

func (q *fakeQueue) Subscribe() (func(), <-chan struct{}) {
	return func() {
		q.mu.Lock()
		q.unsubs++
		q.mu.Unlock()
	}, q.ch
}

func (q *fakeQueue) RecordQueueDepth(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.samples++
	return nil
}

func runFor(t *testing.T, r *Runner, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, r.Run(ctx))
}

func TestNewRunner_RequiresWorker(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}

func TestRunner_RunOnStartDrainsBacklog(t *testing.T) {
	w := &fakeWorker{fn: func(call int32) (model.WorkerRunResult, error) {
		if call <= 3 {
			return model.WorkerRunResult{Outcomes: []model.JobOutcome{{JobID: "j", Status: model.JobStatusCompleted}}}, nil
		}
		return model.WorkerRunResult{}, nil
	}}
	r, err := NewRunner(RunnerOptions{Worker: w, Interval: time.Hour, RunOnStart: true})
	require.NoError(t, err)

	runFor(t, r, 100*time.Millisecond)
	assert.Equal(t, int32(4), w.calls.Load())
}

func TestRunner_TicksAndSamplesQueue(t *testing.T) {
	w := &fakeWorker{}
	q := &fakeQueue{ch: make(chan struct{})}
	r, err := NewRunner(RunnerOptions{Worker: w, Queue: q, Interval: 20 * time.Millisecond})
	require.NoError(t, err)

	runFor(t, r, 110*time.Millisecond)
	assert.GreaterOrEqual(t, w.calls.Load(), int32(3))
	q.mu.Lock()
	defer q.mu.Unlock()
	assert.GreaterOrEqual(t, q.samples, 3)
	assert.Equal(t, 1, q.unsubs)
}

func TestRunner_WakesOnNotification(t *testing.T) {
	w := &fakeWorker{}
	q := &fakeQueue{ch: make(chan struct{}, 1)}
	q.ch <- struct{}{}
	r, err := NewRunner(RunnerOptions{Worker: w, Queue: q, Interval: time.Hour})
	require.NoError(t, err)

	runFor(t, r, 50*time.Millisecond)
	assert.Equal(t, int32(1), w.calls.Load())
}

func TestRunner_ClosedNotificationChannelIsIgnored(t *testing.T) {
	w := &fakeWorker{}
	q := &fakeQueue{ch: make(chan struct{})}
	close(q.ch)
	r, err := NewRunner(RunnerOptions{Worker: w, Queue: q, Interval: time.Hour})
	require.NoError(t, err)

	runFor(t, r, 30*time.Millisecond)
	assert.Equal(t, int32(0), w.calls.Load())
}

func TestRunner_SkipsWhenSlotsBusy(t *testing.T) {
	release := make(chan struct{})
	w := &fakeWorker{fn: func(int32) (model.WorkerRunResult, error) {
		<-release
		return model.WorkerRunResult{}, nil
	}}
	r, err := NewRunner(RunnerOptions{Worker: w, Interval: 10 * time.Millisecond, RunOnStart: true, Concurrency: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), w.calls.Load())

	cancel()
	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_ErrorStopsDrain(t *testing.T) {
	w := &fakeWorker{fn: func(int32) (model.WorkerRunResult, error) {
		return model.WorkerRunResult{}, errors.New("db down")
	}}
	r, err := NewRunner(RunnerOptions{Worker: w, Interval: time.Hour, RunOnStart: true})
	require.NoError(t, err)

	runFor(t, r, 30*time.Millisecond)
	assert.Equal(t, int32(1), w.calls.Load())
}
