package job

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWaiterRequired indicates a notifier cannot be constructed without a waiter.
var ErrWaiterRequired = errors.New("notifier waiter is required")

// Waiter blocks until a new job is announced or ctx ends.
type Waiter interface {
	WaitForJobAdded(ctx context.Context) error
}

// Notifier fans job-added announcements out to subscribers.
type Notifier interface {
	Subscribe() (func(), <-chan struct{})
	StopAll()
}

// NotifierOptions configure the behaviour of the default notifier implementation.
type NotifierOptions struct {
	Waiter     Waiter
	WaitWindow time.Duration
	Backoff    time.Duration
}

// DefaultNotifier runs one listener while at least one subscriber exists.
type DefaultNotifier struct {
	waiter     Waiter
	waitWindow time.Duration
	backoff    time.Duration

	mu     sync.Mutex
	subs   map[chan struct{}]struct{}
	cancel context.CancelFunc
}

// NewNotifier constructs the default notifier implementation.
func NewNotifier(opts NotifierOptions) (*DefaultNotifier, error) {
	if opts.Waiter == nil {
		return nil, ErrWaiterRequired
	}

	waitWindow := opts.WaitWindow
	if waitWindow <= 0 {
		waitWindow = time.Minute
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	return &DefaultNotifier{
		waiter:     opts.Waiter,
		waitWindow: waitWindow,
		backoff:    backoff,
		subs:       make(map[chan struct{}]struct{}),
	}, nil
}

// Subscribe returns an unsubscribe func and a channel that receives a value
// whenever a job is announced. Signals coalesce: the channel holds at most one.
func (n *DefaultNotifier) Subscribe() (func(), <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		n.cancel = cancel
		go n.listenLoop(ctx)
	}

	ch := make(chan struct{}, 1)
	n.subs[ch] = struct{}{}

	unsub := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[ch]; !ok {
			return
		}
		delete(n.subs, ch)
		drainAndClose(ch)
		if len(n.subs) == 0 && n.cancel != nil {
			n.cancel()
			n.cancel = nil
		}
	}

	return unsub, ch
}

// StopAll stops the listener and closes every subscriber channel.
func (n *DefaultNotifier) StopAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	for ch := range n.subs {
		drainAndClose(ch)
		delete(n.subs, ch)
	}
}

func (n *DefaultNotifier) listenLoop(ctx context.Context) {
	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, n.waitWindow)
		err := n.waiter.WaitForJobAdded(waitCtx)
		cancel()

		if ctx.Err() != nil {
			return
		}
		if err == nil {
			n.broadcast()
			continue
		}
		if errors.Is(err, context.DeadlineExceeded) {
			continue
		}

		timer := time.NewTimer(n.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (n *DefaultNotifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// drainAndClose removes any buffered notifications before closing the channel so
// receivers observe a closed channel immediately.
func drainAndClose(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ Notifier = (*DefaultNotifier)(nil)
