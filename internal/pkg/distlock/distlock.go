// Package distlock provides non-blocking mutual exclusion for background
// work that must not self-overlap, such as the offline queue drain.
package distlock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is the interface for a try-style lock. Acquire never blocks: it
// reports false when another holder owns the lock.
type Lock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// New creates a lock using the best available backend. If redisClient is
// non-nil, uses Redis (safe across hosts sharing one queue). Otherwise
// falls back to an in-process mutex.
func New(redisClient *redis.Client, key string, ttl time.Duration) Lock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewLocalLock()
}

// LocalLock implements Lock with an in-process mutex. TryLock semantics
// keep Acquire non-blocking, matching the Redis implementation.
type LocalLock struct {
	mu sync.Mutex
}

// NewLocalLock creates an in-process lock.
func NewLocalLock() *LocalLock { return &LocalLock{} }

// Acquire tries to take the lock without blocking.
func (l *LocalLock) Acquire(ctx context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

// Release releases the lock.
func (l *LocalLock) Release(ctx context.Context) error {
	l.mu.Unlock()
	return nil
}
