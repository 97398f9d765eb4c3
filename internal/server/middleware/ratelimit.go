package middleware

import (
	"errors"
	"net/http"

	"relay-chat/backend/internal/auth/service"
	"relay-chat/backend/internal/ratelimit"
	"relay-chat/backend/internal/security"
	"relay-chat/backend/internal/telemetry"
)

// IdentityFunc derives the rate-limit identity for a request. Unauthenticated
// route classes key on the source address; authenticated ones on the owner id
// set by RequireAuth.
type IdentityFunc func(r *http.Request) string

// BySourceAddress keys buckets on the caller's network address.
func BySourceAddress(r *http.Request) string {
	return ClientIP(r)
}

// ByOwner keys buckets on the caller's owner id. The limiter gate runs before
// token verification, so the id is read from the signed envelope without a
// store round trip; requests with no parseable token fall back to the source
// address and are rejected by the verifier right after anyway.
func ByOwner(tokens *security.TokenProvider) IdentityFunc {
	return func(r *http.Request) string {
		raw, reason := ExtractBearer(r)
		if reason != "" {
			return ClientIP(r)
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			return ClientIP(r)
		}
		return claims.Subject
	}
}

// RateLimit gates requests through the limiter under the given policy.
// Denials answer 429 rate_limited; an unreachable counter answers 503 rather
// than waving traffic through unmetered.
func RateLimit(limiter *ratelimit.Limiter, policy ratelimit.Policy, identity IdentityFunc, metrics *telemetry.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := limiter.Check(r.Context(), policy, identity(r))
		if err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				metrics.RateLimited(r.Context(), policy.Name)
				WriteError(w, http.StatusTooManyRequests, service.ReasonRateLimited)
				return
			}
			WriteError(w, http.StatusServiceUnavailable, service.ReasonStoreUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}
