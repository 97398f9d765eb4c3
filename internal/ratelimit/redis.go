package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter is a Counter on a shared Redis instance, for deployments with
// more than one server replica. Fixed-window semantics: INCR, then EXPIRE when
// the increment created the key. Redis serializes the INCR, so concurrent
// callers each observe a distinct post-increment count.
type RedisCounter struct {
	redis redis.UniversalClient
}

// NewRedisCounter creates a RedisCounter backed by the given client.
func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{redis: client}
}

// Incr increments key and stamps the window TTL on first hit.
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.redis.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}
