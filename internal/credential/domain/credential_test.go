package domain

import (
	"testing"
	"time"
)

func TestKindValid(t *testing.T) {
	if !KindAccess.Valid() || !KindRefresh.Valid() {
		t.Error("known kinds must be valid")
	}
	if Kind("session").Valid() {
		t.Error("unknown kind must be invalid")
	}
}

func TestCredentialExpiredAt(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &Credential{ExpiresAt: exp}

	if c.ExpiredAt(exp.Add(-time.Nanosecond)) {
		t.Error("one instant before expiry must still be valid")
	}
	if !c.ExpiredAt(exp) {
		t.Error("the expiry instant itself counts as expired")
	}
	if !c.ExpiredAt(exp.Add(time.Second)) {
		t.Error("past expiry must be expired")
	}
}
