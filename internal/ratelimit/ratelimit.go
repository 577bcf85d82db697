package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter enforces a fixed-window request quota per key backed by Redis.
// A nil Limiter allows everything, so callers can leave rate limiting
// unconfigured in development.
type Limiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// New returns a Limiter allowing limit requests per window.
func New(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow reports whether the request identified by key fits in the
// current window. Redis errors fail open: a broken limiter should not
// take the API down with it.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}

	bucket := time.Now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("rate limit check: %w", err)
	}

	return count.Val() <= int64(l.limit), nil
}
