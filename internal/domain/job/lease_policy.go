// Package job holds pure policy logic for inference jobs: how long a claim
// is held before the job counts as stuck, and whether a failed attempt is retried.
package job

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidDefaultLease indicates the configured default lease duration is not positive.
var ErrInvalidDefaultLease = errors.New("default lease must be positive")

// LeaseSource identifies how a lease duration was resolved.
type LeaseSource string

const (
	// LeaseSourceExplicit indicates the caller supplied a positive duration.
	LeaseSourceExplicit LeaseSource = "explicit"
	// LeaseSourceDefault indicates the default duration was used.
	LeaseSourceDefault LeaseSource = "default"
	// LeaseSourceClamped indicates the requested duration was clamped to whole seconds.
	LeaseSourceClamped LeaseSource = "clamped"
)

// LeasePolicy converts claim lease durations into whole seconds for the store.
type LeasePolicy struct {
	defaultLease time.Duration
}

// NewLeasePolicy constructs a LeasePolicy with the provided default lease duration.
func NewLeasePolicy(defaultLease time.Duration) (*LeasePolicy, error) {
	if defaultLease <= 0 {
		return nil, ErrInvalidDefaultLease
	}
	return &LeasePolicy{defaultLease: defaultLease}, nil
}

// Default returns the configured default lease duration.
func (p *LeasePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultLease
}

// LeaseDecision captures the outcome of resolving a lease request.
type LeaseDecision struct {
	Seconds   int
	Source    LeaseSource
	Requested time.Duration
}

// Clamped reports whether the requested value was clamped.
func (d LeaseDecision) Clamped() bool {
	return d.Source == LeaseSourceClamped
}

// Duration returns the resolved lease as a time.Duration.
func (d LeaseDecision) Duration() time.Duration {
	return time.Duration(d.Seconds) * time.Second
}

// Resolve normalises the requested duration. Zero selects the default; negative
// and sub-second values clamp to one second.
func (p *LeasePolicy) Resolve(request time.Duration) LeaseDecision {
	decision := LeaseDecision{Requested: request}

	if request == 0 {
		decision.Source = LeaseSourceDefault
		decision.Seconds, _ = toSeconds(p.Default())
		return decision
	}

	seconds, clamped := toSeconds(request)
	decision.Seconds = seconds
	decision.Source = LeaseSourceExplicit
	if clamped {
		decision.Source = LeaseSourceClamped
	}
	return decision
}

func toSeconds(d time.Duration) (int, bool) {
	seconds := int64(d / time.Second)
	switch {
	case seconds <= 0:
		return 1, true
	case seconds > math.MaxInt32:
		return math.MaxInt32, true
	default:
		return int(seconds), false
	}
}
