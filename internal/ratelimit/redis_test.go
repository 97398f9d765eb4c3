package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisCounter(t *testing.T) (*RedisCounter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCounter(rdb), mr
}

func TestRedisCounter_Incr(t *testing.T) {
	counter, _ := newRedisCounter(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, err := counter.Incr(ctx, "rl:api:owner-1", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if count != i {
			t.Fatalf("count = %d, want %d", count, i)
		}
	}
}

func TestRedisCounter_WindowExpiry(t *testing.T) {
	counter, mr := newRedisCounter(t)
	ctx := context.Background()

	if _, err := counter.Incr(ctx, "rl:api:owner-1", time.Minute); err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if ttl := mr.TTL("rl:api:owner-1"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	mr.FastForward(time.Minute)
	count, err := counter.Incr(ctx, "rl:api:owner-1", time.Minute)
	if err != nil {
		t.Fatalf("Incr after expiry: %v", err)
	}
	if count != 1 {
		t.Errorf("count after window elapsed = %d, want 1", count)
	}
}

func TestLimiter_RedisBackendDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	limiter := New(NewRedisCounter(rdb))
	checkErr := limiter.Check(context.Background(), Policy{Name: "api", Limit: 5, Window: time.Minute}, "owner-1")
	if !errors.Is(checkErr, ErrCounterUnavailable) {
		t.Fatalf("want ErrCounterUnavailable, got %v", checkErr)
	}
}
