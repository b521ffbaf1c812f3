package data

import (
	"sync"
	"time"
)

// TimeProvider supplies the clock used for lease and retention arithmetic.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider implements TimeProvider using the system clock.
type RealTimeProvider struct{}

// Now returns the current system time.
func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

// FixedTimeProvider implements TimeProvider with a settable time for tests.
type FixedTimeProvider struct {
	mu        sync.Mutex
	fixedTime time.Time
}

// NewFixedTimeProvider creates a new FixedTimeProvider with the given time.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{fixedTime: t}
}

// Now returns the fixed time.
func (f *FixedTimeProvider) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fixedTime
}

// SetTime replaces the fixed time.
func (f *FixedTimeProvider) SetTime(t time.Time) {
	f.mu.Lock()
	f.fixedTime = t
	f.mu.Unlock()
}

// AddTime advances the fixed time by d.
func (f *FixedTimeProvider) AddTime(d time.Duration) {
	f.mu.Lock()
	f.fixedTime = f.fixedTime.Add(d)
	f.mu.Unlock()
}
