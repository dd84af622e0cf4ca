package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterScript increments the per-key counter and stamps the window TTL on
// first use. INCR and PEXPIRE run atomically so concurrent logins from the
// same source cannot race past the limit.
var counterScript = redis.NewScript(`
    local current = redis.call('INCR', KEYS[1])
    if current == 1 then
        redis.call('PEXPIRE', KEYS[1], ARGV[2])
    end
    local ttl = redis.call('PTTL', KEYS[1])
    if ttl < 0 then ttl = 0 end
    if current > tonumber(ARGV[1]) then
        return { 0, 0, ttl }
    end
    return { 1, tonumber(ARGV[1]) - current, ttl }
`)

// RedisLimiter is a fixed-window counter shared across instances.
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewRedisLimiter builds a limiter allowing max attempts per window.
func NewRedisLimiter(rdb *redis.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, max: max, window: window}
}

// Attempt records one attempt for key. Infrastructure errors are returned
// to the caller; the middleware decides whether to fail open.
func (l *RedisLimiter) Attempt(ctx context.Context, key string) (Result, error) {
	vals, err := counterScript.Run(ctx, l.rdb,
		[]string{l.prefix + ":" + key},
		l.max, l.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, err
	}
	if len(vals) != 3 {
		return Result{Allowed: true}, nil
	}
	return Result{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}
