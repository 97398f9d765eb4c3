// Package ratelimit provides fixed-window request throttling keyed by an
// opaque identity string. The counter backend is injected so a single shared
// Redis instance can serve multiple server replicas, while tests and
// single-node deployments use an in-process counter.
//
// Identity derivation is the caller's job: authenticated routes key on the
// owner id, unauthenticated routes on the source address.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited is returned by Check when the identity has exhausted the
	// policy's window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrCounterUnavailable is returned when the counter backend cannot be
	// reached. Callers must not map this to a denial silently.
	ErrCounterUnavailable = errors.New("rate counter unavailable")
)

// Policy is a fixed-window budget for one route class.
type Policy struct {
	// Name partitions counter keys so the same identity can have independent
	// budgets per route class.
	Name string
	// Limit is the number of requests admitted per window.
	Limit int
	// Window is the fixed window length.
	Window time.Duration
}

// Counter is an atomically incrementable, expiring counter. Incr returns the
// post-increment count for key; a key whose window has elapsed (or that has
// never been seen) restarts at 1 with a fresh window. The increment and the
// window bookkeeping must be a single atomic step.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter gates requests through a Counter. The same Limiter serves every
// policy; buckets are partitioned by policy name.
type Limiter struct {
	counter Counter
}

// New creates a Limiter backed by the given counter.
func New(counter Counter) *Limiter {
	return &Limiter{counter: counter}
}

// Check admits or denies one request for identity under policy. The bucket is
// incremented even when the request is denied, so probing the limit is never
// free. Returns nil to admit, ErrRateLimited to deny, or a wrapped
// ErrCounterUnavailable when the backend failed.
func (l *Limiter) Check(ctx context.Context, policy Policy, identity string) error {
	count, err := l.counter.Incr(ctx, bucketKey(policy.Name, identity), policy.Window)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	if count > int64(policy.Limit) {
		return ErrRateLimited
	}
	return nil
}

func bucketKey(policyName, identity string) string {
	return "rl:" + policyName + ":" + identity
}
