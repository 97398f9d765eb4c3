package service

import (
	"errors"

	"relay-chat/backend/internal/ratelimit"
)

// Sentinel errors for the auth core; handlers map them to HTTP statuses and
// machine-readable reason codes. Every rejection is one of these, never an
// unhandled failure.
var (
	// ErrMissingCredential means no Authorization header was presented.
	ErrMissingCredential = errors.New("missing credential")
	// ErrMalformedCredential means the header or token envelope has the wrong shape.
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrNotFound means the token hash is unknown to the credential store.
	ErrNotFound = errors.New("credential not found")
	// ErrRevoked means the token hash is blacklisted or from a rotated epoch.
	ErrRevoked = errors.New("credential revoked")
	// ErrExpired means the credential's lifetime has elapsed.
	ErrExpired = errors.New("credential expired")
	// ErrWrongType means an access token was presented where a refresh token
	// is required, or vice versa.
	ErrWrongType = errors.New("credential kind mismatch")
	// ErrStoreUnavailable wraps backing-store failures. It must never be
	// silently collapsed into ErrNotFound.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidLogin covers unknown email and wrong password alike.
	ErrInvalidLogin = errors.New("invalid email or password")
	// ErrEmailTaken is returned by Register for an already registered email.
	ErrEmailTaken = errors.New("email already registered")
)

// Reason codes surfaced to clients in 401/429/503 bodies.
const (
	ReasonMissingCredential   = "missing_credential"
	ReasonMalformedCredential = "malformed_credential"
	ReasonNotFound            = "not_found"
	ReasonRevoked             = "revoked"
	ReasonExpired             = "expired"
	ReasonWrongType           = "wrong_type"
	ReasonRateLimited         = "rate_limited"
	ReasonStoreUnavailable    = "store_unavailable"
)

// ReasonCode classifies err into the rejection taxonomy. Unrecognized errors
// classify as store_unavailable: the caller could not be authenticated, but
// not through any fault of the presented token.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return ReasonMissingCredential
	case errors.Is(err, ErrMalformedCredential):
		return ReasonMalformedCredential
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrRevoked):
		return ReasonRevoked
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	case errors.Is(err, ErrWrongType):
		return ReasonWrongType
	case errors.Is(err, ratelimit.ErrRateLimited):
		return ReasonRateLimited
	default:
		return ReasonStoreUnavailable
	}
}
