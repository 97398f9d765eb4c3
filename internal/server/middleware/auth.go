package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"relay-chat/backend/internal/auth/service"
	credentialdomain "relay-chat/backend/internal/credential/domain"
	"relay-chat/backend/internal/telemetry"
)

const bearerPrefix = "bearer "

// RequireAuth validates the Bearer (access) token from the Authorization
// header and sets the owner identity in the request context. Rejections carry
// status 401 and a reason code from the taxonomy; a failing credential store
// answers 503 instead of masquerading as an auth failure.
func RequireAuth(verifier *service.Verifier, metrics *telemetry.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, reason := ExtractBearer(r)
		if reason != "" {
			metrics.VerifyRejected(r.Context(), reason)
			WriteError(w, http.StatusUnauthorized, reason)
			return
		}

		cred, err := verifier.Verify(r.Context(), raw, credentialdomain.KindAccess)
		if err != nil {
			reason := service.ReasonCode(err)
			metrics.VerifyRejected(r.Context(), reason)
			if errors.Is(err, service.ErrStoreUnavailable) {
				WriteError(w, http.StatusServiceUnavailable, reason)
				return
			}
			WriteError(w, http.StatusUnauthorized, reason)
			return
		}

		metrics.VerifyAccepted(r.Context())
		ctx := WithIdentity(r.Context(), cred.OwnerID, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractBearer returns the bearer token from r, or a non-empty rejection
// reason ("missing_credential" when the header is absent,
// "malformed_credential" when it has the wrong shape).
func ExtractBearer(r *http.Request) (token, reason string) {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if v == "" {
		return "", service.ReasonMissingCredential
	}
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return "", service.ReasonMalformedCredential
	}
	token = strings.TrimSpace(v[len(bearerPrefix):])
	if token == "" {
		return "", service.ReasonMalformedCredential
	}
	return token, ""
}

// ClientIP returns the caller's network address: the first X-Forwarded-For
// hop when present, else the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
