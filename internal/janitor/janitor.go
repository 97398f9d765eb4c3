// Package janitor sweeps expired credential rows and spent blacklist
// entries on a fixed interval. Verification never depends on the sweep; an
// expired row that outlives its expiry is still rejected by the expiry check,
// so the janitor only reclaims storage.
package janitor

import (
	"context"
	"time"

	"relay-chat/backend/internal/logging"
)

// Sweeper deletes rows whose expiry is at or before now and reports how many
// went away.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Janitor runs periodic expiry sweeps over the credential and blacklist
// tables.
type Janitor struct {
	credentials Sweeper
	blacklist   Sweeper
	interval    time.Duration
	log         logging.Logger

	nowF func() time.Time
}

// New returns a Janitor sweeping both tables every interval.
func New(credentials, blacklist Sweeper, interval time.Duration, log logging.Logger) *Janitor {
	return &Janitor{
		credentials: credentials,
		blacklist:   blacklist,
		interval:    interval,
		log:         log,
		nowF:        func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once immediately, then on every interval tick until ctx is
// canceled. A failed sweep is logged and retried on the next tick; it never
// stops the loop.
func (j *Janitor) Run(ctx context.Context) {
	j.Sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep deletes expired rows from both tables. Each table is swept
// independently so one failure does not block the other.
func (j *Janitor) Sweep(ctx context.Context) {
	now := j.nowF()

	creds, err := j.credentials.DeleteExpired(ctx, now)
	if err != nil {
		j.log.Warn(ctx, "credential sweep failed", "err", err)
	}

	entries, err := j.blacklist.DeleteExpired(ctx, now)
	if err != nil {
		j.log.Warn(ctx, "blacklist sweep failed", "err", err)
	}

	j.log.Info(ctx, "expiry sweep done", "credentials_deleted", creds, "blacklist_deleted", entries)
}
