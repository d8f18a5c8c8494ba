package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryLimiter keeps attempt timestamps in a bounded LRU whose entries expire with the window.
// It only limits a single process; use RedisLimiter when running several instances.
type MemoryLimiter struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, []time.Time]
	opts  Options
}

// NewMemoryLimiter returns a limiter tracking at most maxKeys clients.
func NewMemoryLimiter(maxKeys int, opts Options) *MemoryLimiter {
	opts = opts.withDefaults()
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &MemoryLimiter{
		cache: expirable.NewLRU[string, []time.Time](maxKeys, nil, opts.Window),
		opts:  opts,
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.opts.Now()
	floor := now.Add(-l.opts.Window)
	prev, _ := l.cache.Get(key)
	attempts := make([]time.Time, 0, len(prev)+1)
	for _, at := range prev {
		if at.After(floor) {
			attempts = append(attempts, at)
		}
	}

	if len(attempts) >= l.opts.Limit {
		l.cache.Add(key, attempts)
		return Result{Allowed: false, RetryAfter: l.opts.Window - now.Sub(attempts[0])}, nil
	}
	attempts = append(attempts, now)
	l.cache.Add(key, attempts)
	return Result{Allowed: true, Remaining: l.opts.Limit - len(attempts)}, nil
}

// Reset implements Limiter.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Remove(key)
	return nil
}

// Len reports how many keys are tracked.
func (l *MemoryLimiter) Len() int {
	return l.cache.Len()
}
