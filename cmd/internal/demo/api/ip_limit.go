package demoapi

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IPResult is the outcome of one IP-window check.
type IPResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// IPLimiter enforces the coarse, unauthenticated per-IP window in front of
// the quota gate. It is a separate layer with its own store: it protects the
// origin even for principals that were never provisioned.
type IPLimiter interface {
	Allow(ctx context.Context, ip string) (IPResult, error)
}

// RedisIPLimiter counts requests per IP in Redis with a fixed expiry window.
type RedisIPLimiter struct {
	client    goredis.Cmdable
	keyPrefix string
	limit     int
	window    time.Duration
}

var _ IPLimiter = (*RedisIPLimiter)(nil)

// RedisIPOption configures RedisIPLimiter.
type RedisIPOption func(*RedisIPLimiter)

// WithKeyPrefix sets the Redis key prefix (default "rate-limit:tryon:").
func WithKeyPrefix(prefix string) RedisIPOption {
	return func(l *RedisIPLimiter) { l.keyPrefix = prefix }
}

// NewRedisIPLimiter creates an IP limiter over a connected Redis client.
func NewRedisIPLimiter(client goredis.Cmdable, limit int, window time.Duration, opts ...RedisIPOption) *RedisIPLimiter {
	l := &RedisIPLimiter{
		client:    client,
		keyPrefix: "rate-limit:tryon:",
		limit:     limit,
		window:    window,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// incrWithExpiry atomically increments the counter and starts the window on
// the first increment.
// KEYS[1] = per-IP counter key
// ARGV[1] = window in seconds
// Returns {count, ttl_seconds}.
var incrWithExpiry = goredis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {count, ttl}
`)

// Allow counts one request for ip and reports whether it fits the window.
func (l *RedisIPLimiter) Allow(ctx context.Context, ip string) (IPResult, error) {
	res, err := incrWithExpiry.Run(ctx, l.client,
		[]string{l.keyPrefix + ip},
		int64(l.window.Seconds()),
	).Int64Slice()
	if err != nil {
		return IPResult{}, fmt.Errorf("demoapi: ip window: %w", err)
	}
	if len(res) != 2 {
		return IPResult{}, fmt.Errorf("demoapi: ip window: unexpected script result %v", res)
	}

	count, ttl := res[0], res[1]
	rem := l.limit - int(count)
	if rem < 0 {
		rem = 0
	}
	return IPResult{
		Allowed:   count <= int64(l.limit),
		Remaining: rem,
		ResetIn:   time.Duration(ttl) * time.Second,
	}, nil
}
