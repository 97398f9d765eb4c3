package middleware

import "context"

type contextKey struct{ name string }

var (
	ownerIDKey  = contextKey{"owner_id"}
	rawTokenKey = contextKey{"raw_token"}
)

// WithIdentity returns a context carrying the authenticated owner id and the
// raw bearer token it was derived from. The raw token is kept only so logout
// can revoke the exact credential that was presented; it must never be logged.
func WithIdentity(ctx context.Context, ownerID, rawToken string) context.Context {
	ctx = context.WithValue(ctx, ownerIDKey, ownerID)
	ctx = context.WithValue(ctx, rawTokenKey, rawToken)
	return ctx
}

// GetOwnerID returns the owner id from ctx and true if set; otherwise "", false.
func GetOwnerID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ownerIDKey).(string)
	return v, ok
}

// GetRawToken returns the presented bearer token from ctx and true if set.
func GetRawToken(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(rawTokenKey).(string)
	return v, ok
}
