package job

// FailureKind classifies why processing a claimed job stopped.
type FailureKind string

const (
	// FailureTimeout means the inference engine exceeded its budget.
	FailureTimeout FailureKind = "timeout"
	// FailureLeaseExpired means the claim outlived its lease without completing.
	FailureLeaseExpired FailureKind = "lease_expired"
	// FailureEngine means the inference engine returned an error.
	FailureEngine FailureKind = "engine"
	// FailureStore means persisting the reply failed.
	FailureStore FailureKind = "store"
)

// RetryPolicy decides whether a failed attempt re-queues its job.
// Only timeouts and expired leases are retried; engine and store errors fail immediately.
type RetryPolicy struct {
	retryable map[FailureKind]bool
}

// NewRetryPolicy returns the default policy.
func NewRetryPolicy() RetryPolicy {
	return RetryPolicy{retryable: map[FailureKind]bool{
		FailureTimeout:      true,
		FailureLeaseExpired: true,
	}}
}

// Retryable reports whether kind may be retried at all.
func (p RetryPolicy) Retryable(kind FailureKind) bool {
	return p.retryable[kind]
}

// ShouldRequeue reports whether an attempt that failed with kind re-queues given
// the job's current retry counters.
func (p RetryPolicy) ShouldRequeue(kind FailureKind, retryCount, maxRetries int) bool {
	return p.Retryable(kind) && retryCount < maxRetries
}
