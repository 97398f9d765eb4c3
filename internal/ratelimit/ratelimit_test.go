package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLimiter_DeniesPastLimit(t *testing.T) {
	limiter := New(NewMemoryCounter())
	policy := Policy{Name: "api", Limit: 3, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Check(ctx, policy, "owner-1"); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	if err := limiter.Check(ctx, policy, "owner-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("request 4: want ErrRateLimited, got %v", err)
	}
}

func TestLimiter_IdentitiesAreIndependent(t *testing.T) {
	limiter := New(NewMemoryCounter())
	policy := Policy{Name: "api", Limit: 1, Window: time.Minute}
	ctx := context.Background()

	if err := limiter.Check(ctx, policy, "owner-1"); err != nil {
		t.Fatalf("owner-1: %v", err)
	}
	if err := limiter.Check(ctx, policy, "owner-2"); err != nil {
		t.Fatalf("owner-2 must have its own budget: %v", err)
	}
	if err := limiter.Check(ctx, policy, "owner-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("owner-1 second request: want ErrRateLimited, got %v", err)
	}
}

func TestLimiter_PoliciesAreIndependent(t *testing.T) {
	limiter := New(NewMemoryCounter())
	ctx := context.Background()
	login := Policy{Name: "login", Limit: 1, Window: time.Minute}
	api := Policy{Name: "api", Limit: 1, Window: time.Minute}

	if err := limiter.Check(ctx, login, "owner-1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := limiter.Check(ctx, api, "owner-1"); err != nil {
		t.Fatalf("same identity under another policy must be admitted: %v", err)
	}
}

func TestLimiter_DenialConsumesSlot(t *testing.T) {
	// Denied requests still increment, so hammering a limit never lets the
	// counter drift back under it mid-window.
	counter := NewMemoryCounter()
	limiter := New(counter)
	policy := Policy{Name: "api", Limit: 2, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_ = limiter.Check(ctx, policy, "owner-1")
	}
	count, err := counter.Incr(ctx, bucketKey("api", "owner-1"), policy.Window)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if count != 11 {
		t.Errorf("count = %d, want 11", count)
	}
}

func TestMemoryCounter_WindowReset(t *testing.T) {
	now := time.Now()
	counter := NewMemoryCounter()
	counter.nowF = func() time.Time { return now }
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, err := counter.Incr(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if count != i {
			t.Fatalf("count = %d, want %d", count, i)
		}
	}

	// One tick short of the boundary the window is still open.
	now = now.Add(time.Minute - time.Millisecond)
	if count, _ := counter.Incr(ctx, "k", time.Minute); count != 4 {
		t.Errorf("count just before boundary = %d, want 4", count)
	}

	// At the boundary the bucket restarts.
	now = now.Add(time.Millisecond)
	if count, _ := counter.Incr(ctx, "k", time.Minute); count != 1 {
		t.Errorf("count after window elapsed = %d, want 1", count)
	}
}

func TestLimiter_ConcurrentChecksAdmitExactlyLimit(t *testing.T) {
	limiter := New(NewMemoryCounter())
	policy := Policy{Name: "api", Limit: 50, Window: time.Minute}
	ctx := context.Background()

	const requests = 80
	var wg sync.WaitGroup
	results := make(chan error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- limiter.Check(ctx, policy, "owner-1")
		}()
	}
	wg.Wait()
	close(results)

	admitted, denied := 0, 0
	for err := range results {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, ErrRateLimited):
			denied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if admitted != policy.Limit {
		t.Errorf("admitted = %d, want exactly %d", admitted, policy.Limit)
	}
	if denied != requests-policy.Limit {
		t.Errorf("denied = %d, want %d", denied, requests-policy.Limit)
	}
}

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("backend down")
}

func TestLimiter_CounterFailureIsNotADenial(t *testing.T) {
	limiter := New(failingCounter{})
	err := limiter.Check(context.Background(), Policy{Name: "api", Limit: 1, Window: time.Minute}, "owner-1")
	if !errors.Is(err, ErrCounterUnavailable) {
		t.Fatalf("want ErrCounterUnavailable, got %v", err)
	}
	if errors.Is(err, ErrRateLimited) {
		t.Fatal("backend failure must not classify as a rate denial")
	}
}
