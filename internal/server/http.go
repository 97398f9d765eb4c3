// Package server wires the auth core's HTTP routes and middleware chain:
// rate-limit gate first, then bearer verification for credentialed routes.
package server

import (
	"net/http"

	"relay-chat/backend/internal/auth/handler"
	"relay-chat/backend/internal/auth/service"
	"relay-chat/backend/internal/ratelimit"
	"relay-chat/backend/internal/security"
	"relay-chat/backend/internal/server/middleware"
	"relay-chat/backend/internal/telemetry"
)

// Policies groups the per-route-class rate-limit policies.
type Policies struct {
	// Login gates the unauthenticated credential endpoints by source address.
	Login ratelimit.Policy
	// API gates authenticated routes by owner id.
	API ratelimit.Policy
	// Message gates the message-send route class by owner id. Exposed for the
	// chat handlers that mount on top of this router.
	Message ratelimit.Policy
}

// Router builds the auth routing surface. Downstream (chat) handlers wrap
// their own routes with Protect and ProtectMessages.
type Router struct {
	mux      *http.ServeMux
	limiter  *ratelimit.Limiter
	verifier *service.Verifier
	tokens   *security.TokenProvider
	policies Policies
	metrics  *telemetry.Metrics
}

// NewRouter returns a Router with the auth endpoints mounted.
func NewRouter(h *handler.Handler, verifier *service.Verifier, tokens *security.TokenProvider, limiter *ratelimit.Limiter, policies Policies, metrics *telemetry.Metrics) *Router {
	rt := &Router{
		mux:      http.NewServeMux(),
		limiter:  limiter,
		verifier: verifier,
		tokens:   tokens,
		policies: policies,
		metrics:  metrics,
	}

	// Unauthenticated credential endpoints share the strict login policy,
	// keyed by source address: the caller has no verified identity yet.
	rt.mux.Handle("POST /auth/register", rt.loginLimited(http.HandlerFunc(h.Register)))
	rt.mux.Handle("POST /auth/login", rt.loginLimited(http.HandlerFunc(h.Login)))
	rt.mux.Handle("POST /auth/refresh", rt.loginLimited(http.HandlerFunc(h.Refresh)))

	rt.mux.Handle("DELETE /auth/logout", rt.Protect(http.HandlerFunc(h.Logout)))
	rt.mux.Handle("GET /auth/sessions", rt.Protect(http.HandlerFunc(h.Sessions)))
	rt.mux.Handle("DELETE /auth/sessions/{id}", rt.Protect(http.HandlerFunc(h.DeleteSession)))

	rt.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return rt
}

// Handle mounts an additional route on the underlying mux.
func (rt *Router) Handle(pattern string, h http.Handler) {
	rt.mux.Handle(pattern, h)
}

// Protect chains the general API rate limit and bearer verification in front
// of next. The rate gate runs first so unauthenticated floods never reach the
// credential store.
func (rt *Router) Protect(next http.Handler) http.Handler {
	authed := middleware.RequireAuth(rt.verifier, rt.metrics, next)
	return middleware.RateLimit(rt.limiter, rt.policies.API, middleware.ByOwner(rt.tokens), rt.metrics, authed)
}

// ProtectMessages is Protect under the stricter messaging policy.
func (rt *Router) ProtectMessages(next http.Handler) http.Handler {
	authed := middleware.RequireAuth(rt.verifier, rt.metrics, next)
	return middleware.RateLimit(rt.limiter, rt.policies.Message, middleware.ByOwner(rt.tokens), rt.metrics, authed)
}

func (rt *Router) loginLimited(next http.Handler) http.Handler {
	return middleware.RateLimit(rt.limiter, rt.policies.Login, middleware.BySourceAddress, rt.metrics, next)
}

// ServeHTTP implements http.Handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}
