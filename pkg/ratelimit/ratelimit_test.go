package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func limiters(t *testing.T, clock *fakeClock) map[string]Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts := Options{Limit: 5, Window: 15 * time.Minute, Now: clock.Now}
	return map[string]Limiter{
		"redis":  NewRedisLimiter(client, "ratelimit:login:", opts),
		"memory": NewMemoryLimiter(100, opts),
	}
}

func TestLimiterBlocksAfterLimitAndSlides(t *testing.T) {
	for _, name := range []string{"redis", "memory"} {
		t.Run(name, func(t *testing.T) {
			clock := newClock()
			l := limiters(t, clock)[name]
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				res, err := l.Allow(ctx, "10.0.0.1")
				require.NoError(t, err)
				assert.True(t, res.Allowed, "attempt %d", i+1)
				assert.Equal(t, 4-i, res.Remaining)
				clock.Advance(time.Minute)
			}

			res, err := l.Allow(ctx, "10.0.0.1")
			require.NoError(t, err)
			assert.False(t, res.Allowed)
			assert.Equal(t, 10*time.Minute, res.RetryAfter)

			other, err := l.Allow(ctx, "10.0.0.2")
			require.NoError(t, err)
			assert.True(t, other.Allowed)

			// the first attempt falls out of the window
			clock.Advance(10 * time.Minute)
			res, err = l.Allow(ctx, "10.0.0.1")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
		})
	}
}

func TestLimiterReset(t *testing.T) {
	for _, name := range []string{"redis", "memory"} {
		t.Run(name, func(t *testing.T) {
			clock := newClock()
			l := limiters(t, clock)[name]
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				_, err := l.Allow(ctx, "ip")
				require.NoError(t, err)
			}
			res, err := l.Allow(ctx, "ip")
			require.NoError(t, err)
			require.False(t, res.Allowed)

			require.NoError(t, l.Reset(ctx, "ip"))
			res, err = l.Allow(ctx, "ip")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
		})
	}
}

func TestRedisLimiterSetsKeyTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiter(client, "rl:", Options{Limit: 2, Window: time.Minute})
	_, err := l.Allow(context.Background(), "ip")
	require.NoError(t, err)

	assert.Equal(t, time.Minute, mr.TTL("rl:ip"))
	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("rl:ip"))
}

func TestMemoryLimiterIsBounded(t *testing.T) {
	l := NewMemoryLimiter(2, Options{Limit: 1, Window: time.Hour})
	ctx := context.Background()
	for _, ip := range []string{"a", "b", "c"} {
		_, err := l.Allow(ctx, ip)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, l.Len())
}

func TestConcurrentAttemptsNeverExceedLimit(t *testing.T) {
	for _, name := range []string{"redis", "memory"} {
		t.Run(name, func(t *testing.T) {
			l := limiters(t, newClock())[name]
			ctx := context.Background()

			var wg sync.WaitGroup
			var allowed atomic.Int32
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := l.Allow(ctx, "10.0.0.9")
					assert.NoError(t, err)
					if res.Allowed {
						allowed.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(5), allowed.Load())
		})
	}
}
