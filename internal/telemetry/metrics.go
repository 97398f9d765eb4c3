// Package telemetry defines the auth core's metric instruments.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the counters emitted by the auth core. A nil *Metrics is
// valid and records nothing, so callers never need to branch on whether
// metrics are configured.
type Metrics struct {
	verifyAccepted metric.Int64Counter
	verifyRejected metric.Int64Counter
	rateDenials    metric.Int64Counter
	pairsIssued    metric.Int64Counter
	revocations    metric.Int64Counter
}

// NewMetrics creates the instrument set on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	if m.verifyAccepted, err = meter.Int64Counter("auth.verify.accepted",
		metric.WithDescription("Token verifications that succeeded")); err != nil {
		return nil, err
	}
	if m.verifyRejected, err = meter.Int64Counter("auth.verify.rejected",
		metric.WithDescription("Token verifications rejected, by reason")); err != nil {
		return nil, err
	}
	if m.rateDenials, err = meter.Int64Counter("auth.ratelimit.denied",
		metric.WithDescription("Requests denied by the rate limiter, by policy")); err != nil {
		return nil, err
	}
	if m.pairsIssued, err = meter.Int64Counter("auth.pairs.issued",
		metric.WithDescription("Access/refresh pairs issued")); err != nil {
		return nil, err
	}
	if m.revocations, err = meter.Int64Counter("auth.revocations",
		metric.WithDescription("Revocations performed, by scope")); err != nil {
		return nil, err
	}
	return m, nil
}

// VerifyAccepted counts one successful verification.
func (m *Metrics) VerifyAccepted(ctx context.Context) {
	if m == nil {
		return
	}
	m.verifyAccepted.Add(ctx, 1)
}

// VerifyRejected counts one rejected verification with its reason code.
func (m *Metrics) VerifyRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.verifyRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RateLimited counts one rate-limit denial for the named policy.
func (m *Metrics) RateLimited(ctx context.Context, policy string) {
	if m == nil {
		return
	}
	m.rateDenials.Add(ctx, 1, metric.WithAttributes(attribute.String("policy", policy)))
}

// PairIssued counts one issued token pair.
func (m *Metrics) PairIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.pairsIssued.Add(ctx, 1)
}

// Revoked counts one revocation with its scope ("one", "owner", "epoch").
func (m *Metrics) Revoked(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	m.revocations.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}
