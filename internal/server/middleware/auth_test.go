package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		name       string
		header     string
		wantToken  string
		wantReason string
	}{
		{"no header", "", "", "missing_credential"},
		{"lowercase scheme", "bearer tok-123", "tok-123", ""},
		{"canonical scheme", "Bearer tok-123", "tok-123", ""},
		{"empty token", "Bearer ", "", "malformed_credential"},
		{"wrong scheme", "Basic abc", "", "malformed_credential"},
		{"bare token", "tok-123", "", "malformed_credential"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			token, reason := ExtractBearer(r)
			if token != tc.wantToken {
				t.Errorf("token = %q, want %q", token, tc.wantToken)
			}
			if reason != tc.wantReason {
				t.Errorf("reason = %q, want %q", reason, tc.wantReason)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.7:51000"
	if ip := ClientIP(r); ip != "192.0.2.7" {
		t.Errorf("ClientIP = %q, want 192.0.2.7", ip)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := ClientIP(r); ip != "203.0.113.9" {
		t.Errorf("ClientIP with XFF = %q, want 203.0.113.9", ip)
	}
}

func TestIdentityContext(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	ctx := WithIdentity(r.Context(), "owner-1", "raw-token")

	owner, ok := GetOwnerID(ctx)
	if !ok || owner != "owner-1" {
		t.Errorf("GetOwnerID = %q/%v, want owner-1/true", owner, ok)
	}
	raw, ok := GetRawToken(ctx)
	if !ok || raw != "raw-token" {
		t.Errorf("GetRawToken = %q/%v, want raw-token/true", raw, ok)
	}

	if _, ok := GetOwnerID(r.Context()); ok {
		t.Error("GetOwnerID on bare context should report false")
	}
}
