// Package audit records security-relevant auth actions. Writes are
// best-effort: an unreachable audit store never fails the request that
// triggered the event.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"relay-chat/backend/internal/audit/domain"
	auditrepo "relay-chat/backend/internal/audit/repository"
	"relay-chat/backend/internal/logging"
)

// SentinelOwnerID is recorded for events with no resolvable owner (e.g. a
// failed login for an unknown email).
const SentinelOwnerID = "_anonymous"

// Recorder writes a single auth event. Implementations must be best-effort.
type Recorder interface {
	Record(ctx context.Context, ownerID, action, ip, metadata string)
}

// Logger implements Recorder against the auth event repository.
type Logger struct {
	repo auditrepo.Repository
	log  logging.Logger
}

// NewLogger returns a Recorder that persists to repo and reports write
// failures through log.
func NewLogger(repo auditrepo.Repository, log logging.Logger) *Logger {
	return &Logger{repo: repo, log: log}
}

// Record writes one auth event. Errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, ownerID, action, ip, metadata string) {
	if l.repo == nil {
		return
	}
	if ownerID == "" {
		ownerID = SentinelOwnerID
	}
	e := &domain.AuthEvent{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Action:    action,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, e); err != nil {
		l.log.Warn(ctx, "audit write failed", "action", action, "err", err)
	}
}

// NopRecorder discards all events. Useful in tests and when auditing is
// disabled.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, string, string, string, string) {}
