package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucket implements the token bucket atomically. Time is in milliseconds so slow refill
// rates keep their precision.
// KEYS[1] = bucket key
// ARGV[1] = capacity (burst)
// ARGV[2] = refill rate (tokens per millisecond)
// ARGV[3] = now (unix milliseconds)
// ARGV[4] = idle TTL (milliseconds)
// Returns 1 when allowed, 0 otherwise.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local info = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(info[1])
local last_refill = tonumber(info[2])

if not tokens then
	tokens = capacity
	last_refill = now
end

local filled = math.min(capacity, tokens + math.max(0, now - last_refill) * rate)

local allowed = 0
if filled >= 1 then
	allowed = 1
	filled = filled - 1
end

redis.call("HSET", key, "tokens", tostring(filled), "last_refill", now)
redis.call("PEXPIRE", key, ttl)

return allowed
`)

// RedisLimiter shares buckets across replicas through Redis.
type RedisLimiter struct {
	client redis.Scripter
	cfg    Config
	prefix string
	nowF   func() time.Time
}

// NewRedisLimiter returns a limiter storing buckets under prefix in client.
func NewRedisLimiter(client redis.Scripter, cfg Config, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, cfg: cfg, prefix: prefix, nowF: time.Now}
}

// Allow takes one token from key's bucket.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.nowF().UnixMilli()
	ratePerMs := l.cfg.perSecond() / 1000
	res, err := tokenBucket.Run(ctx, l.client, []string{l.prefix + key},
		l.cfg.Burst, ratePerMs, now, l.cfg.idleTTL().Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis: %w", err)
	}
	return res == 1, nil
}
