// Package keylock serializes operations that share a key, such as checkpoint
// transitions for one bus+date or scans against one entitlement. Operations on
// different keys proceed in parallel.
package keylock

import (
	"context"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

// Locker grants exclusive access to a key. The returned release func must be
// called when the critical section ends.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Memory is a process-local locker backed by a mutex per key. Keys are
// bounded (bus+date, entitlement+date) so entries are kept for the process
// lifetime.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemory creates an in-process locker.
func NewMemory() *Memory {
	return &Memory{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the key's mutex is held.
func (m *Memory) Acquire(_ context.Context, key string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock, nil
}

// Redis is a distributed locker for multi-instance deployments.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewRedis creates a redislock-backed locker. The TTL bounds how long a
// crashed holder can leave a key locked.
func NewRedis(client *redislock.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{client: client, ttl: ttl}
}

// Acquire obtains the distributed lock, retrying briefly so concurrent
// requests queue rather than fail.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := r.client.Obtain(ctx, "lock:"+key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 100),
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Release(context.Background()) }, nil
}
