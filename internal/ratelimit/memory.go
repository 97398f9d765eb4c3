package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count       int64
	windowStart time.Time
}

// MemoryCounter is an in-process Counter for single-instance deployments and
// tests. A mutex makes the increment-then-compare sequence atomic across
// concurrent requests. Stale buckets are reused in place when their window
// elapses; they are never explicitly deleted.
type MemoryCounter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	nowF    func() time.Time
}

// NewMemoryCounter returns an empty in-process counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		buckets: make(map[string]*bucket),
		nowF:    time.Now,
	}
}

// Incr increments the bucket for key, resetting it to 1 when the window has
// elapsed or the bucket is new.
func (c *MemoryCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := c.nowF()
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[key]
	if !ok || now.Sub(b.windowStart) >= window {
		c.buckets[key] = &bucket{count: 1, windowStart: now}
		return 1, nil
	}
	b.count++
	return b.count, nil
}
