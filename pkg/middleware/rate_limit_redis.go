package middleware

import (
	"context"
	"time"

	"gigmarket/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// tokenBucket refills refill_tokens every interval_ms up to capacity and takes
// one token per call. It returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + (intervals * refill_tokens))
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RedisRateLimiter is a token bucket shared by every replica. A full bucket
// holds limit tokens and refills at limit per window.
type RedisRateLimiter struct {
	rdb      *redis.Client
	capacity int
	interval time.Duration
	ttl      time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration, log *logger.Logger) *RedisRateLimiter {
	interval := window / time.Duration(limit)
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ttl := 2 * window
	if ttl < time.Second {
		ttl = time.Second
	}
	return &RedisRateLimiter{
		rdb:      rdb,
		capacity: limit,
		interval: interval,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

// Allow takes a token for key. Requests pass when Redis cannot be reached.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if key == "" {
		return true, 0
	}

	vals, err := tokenBucket.Run(ctx, l.rdb, []string{rateLimitPrefix + key},
		l.now().UnixMilli(),
		l.capacity,
		1,
		l.interval.Milliseconds(),
		int64(l.ttl/time.Second),
	).Int64Slice()
	if err != nil {
		l.log.Warn("Rate limit check failed, allowing request", "key", key, "error", err)
		return true, 0
	}

	allowed, retryAfter, ok := bucketResult(vals)
	if !ok {
		l.log.Warn("Unexpected rate limit script result", "key", key, "result", vals)
		return true, 0
	}
	return allowed, retryAfter
}

func (l *RedisRateLimiter) Stop() {}

func bucketResult(vals []int64) (allowed bool, retryAfter time.Duration, ok bool) {
	if len(vals) != 3 {
		return false, 0, false
	}
	return vals[0] == 1, time.Duration(vals[2]) * time.Millisecond, true
}
