package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// allowScript trims the window, then either records the attempt or reports the oldest one.
// KEYS[1] window key; ARGV floor ms, now ms, window ms, limit, member.
// Returns {allowed, count before this attempt, oldest score or ""}.
var allowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count >= tonumber(ARGV[4]) then
	local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
	return {0, count, oldest[2] or ''}
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[5])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return {1, count, ''}
`)

// RedisLimiter keeps one sorted set per key, scored by attempt time in milliseconds.
// The key expires with the window so idle clients leave nothing behind.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	opts   Options
}

// NewRedisLimiter returns a limiter storing windows under prefix.
func NewRedisLimiter(client redis.UniversalClient, prefix string, opts Options) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, opts: opts.withDefaults()}
}

func (l *RedisLimiter) key(k string) string { return l.prefix + k }

// Allow implements Limiter. The check and the insert run as one script, so concurrent
// attempts from the same key cannot all pass a nearly full window.
func (l *RedisLimiter) Allow(ctx context.Context, k string) (Result, error) {
	now := l.opts.Now()
	nowMs := now.UnixMilli()
	windowMs := l.opts.Window.Milliseconds()
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	vals, err := allowScript.Run(ctx, l.client, []string{l.key(k)},
		strconv.FormatInt(nowMs-windowMs, 10),
		strconv.FormatInt(nowMs, 10),
		strconv.FormatInt(windowMs, 10),
		strconv.Itoa(l.opts.Limit),
		member,
	).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit: %w", err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("rate limit: unexpected reply %v", vals)
	}
	allowed, _ := vals[0].(int64)
	count, _ := vals[1].(int64)

	if allowed == 1 {
		return Result{Allowed: true, Remaining: l.opts.Limit - int(count) - 1}, nil
	}
	retry := l.opts.Window
	if s, ok := vals[2].(string); ok && s != "" {
		if score, err := strconv.ParseFloat(s, 64); err == nil {
			retry = l.opts.Window - now.Sub(time.UnixMilli(int64(score)))
		}
	}
	return Result{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
}

// Reset implements Limiter.
func (l *RedisLimiter) Reset(ctx context.Context, k string) error {
	return l.client.Del(ctx, l.key(k)).Err()
}
