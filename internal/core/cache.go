// Package core defines the repository ports and small cache-backed helpers shared by the inferq services.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CacheRepository defines the interface for caching operations.
// The data layer provides a Redis implementation.
type CacheRepository interface {
	// Set stores a value with the given TTL. A zero TTL never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns nil when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete returns true if the key was deleted.
	Delete(ctx context.Context, key string) (bool, error)

	// DeleteIfEquals removes key only while it still holds value.
	DeleteIfEquals(ctx context.Context, key string, value []byte) (bool, error)

	Exists(ctx context.Context, key string) (bool, error)

	// SetIfNotExists atomically sets a key only if it is absent.
	// Returns true if the key was set.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Health checks the cache connection.
	Health(ctx context.Context) error
}

// ErrLockHeld is returned by RunLock.Acquire when another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another worker")

// RunLock is a best-effort distributed mutex built on CacheRepository.SetIfNotExists.
// It bounds how many worker runs overlap across replicas; correctness of job claims
// does not depend on it.
type RunLock struct {
	cache CacheRepository
	key   string
	ttl   time.Duration
}

// NewRunLock creates a RunLock. A nil cache yields a lock that always succeeds.
func NewRunLock(cache CacheRepository, key string, ttl time.Duration) *RunLock {
	return &RunLock{cache: cache, key: key, ttl: ttl}
}

// Acquire takes the lock and returns a release func. ErrLockHeld means the caller should skip this run.
func (l *RunLock) Acquire(ctx context.Context, owner string) (func(context.Context), error) {
	if l == nil || l.cache == nil {
		return func(context.Context) {}, nil
	}
	ok, err := l.cache.SetIfNotExists(ctx, l.key, []byte(owner), l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(releaseCtx context.Context) {
		// Expired locks may already belong to another owner.
		_, _ = l.cache.DeleteIfEquals(releaseCtx, l.key, []byte(owner))
	}, nil
}

// Key returns the cache key backing the lock.
func (l *RunLock) Key() string {
	if l == nil {
		return ""
	}
	return l.key
}
