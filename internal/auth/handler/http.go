// Package handler exposes the auth core over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"relay-chat/backend/internal/auth/service"
	"relay-chat/backend/internal/server/middleware"
	"relay-chat/backend/internal/telemetry"
)

// Handler holds the HTTP endpoints for login, register, refresh, logout, and
// session management.
type Handler struct {
	auth    *service.AuthService
	metrics *telemetry.Metrics
}

// New returns a Handler backed by the given auth service.
func New(auth *service.AuthService, metrics *telemetry.Metrics) *Handler {
	return &Handler{auth: auth, metrics: metrics}
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DeviceLabel string `json:"device_label"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	DeviceLabel  string `json:"device_label"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func pairResponse(p *service.Pair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(p.AccessExpiresAt).Seconds()),
	}
}

func (h *Handler) meta(r *http.Request, deviceLabel string) service.RequestMeta {
	return service.RequestMeta{
		DeviceLabel:   deviceLabel,
		OriginAddress: middleware.ClientIP(r),
	}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	pair, err := h.auth.Register(r.Context(), req.Email, req.Password, h.meta(r, req.DeviceLabel))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			middleware.WriteError(w, http.StatusConflict, "email_taken")
		case errors.Is(err, service.ErrStoreUnavailable):
			middleware.WriteError(w, http.StatusServiceUnavailable, service.ReasonStoreUnavailable)
		default:
			middleware.WriteError(w, http.StatusBadRequest, "invalid_request")
		}
		return
	}
	h.metrics.PairIssued(r.Context())
	middleware.WriteJSON(w, http.StatusCreated, pairResponse(pair))
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	pair, err := h.auth.Login(r.Context(), req.Email, req.Password, h.meta(r, req.DeviceLabel))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidLogin):
			middleware.WriteError(w, http.StatusUnauthorized, "invalid_credentials")
		case errors.Is(err, service.ErrStoreUnavailable):
			middleware.WriteError(w, http.StatusServiceUnavailable, service.ReasonStoreUnavailable)
		default:
			middleware.WriteError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}
	h.metrics.PairIssued(r.Context())
	middleware.WriteJSON(w, http.StatusOK, pairResponse(pair))
}

// Refresh handles POST /auth/refresh. The presented token must verify as
// kind=refresh; on success a brand-new pair is issued and the old refresh
// token is revoked.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken, h.meta(r, req.DeviceLabel))
	if err != nil {
		h.writeRejection(w, r, err)
		return
	}
	h.metrics.PairIssued(r.Context())
	middleware.WriteJSON(w, http.StatusOK, pairResponse(pair))
}

// Logout handles DELETE /auth/logout. Requires auth middleware. With
// ?logout_all=true every credential of the caller is revoked.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r.Context())
	raw, rawOK := middleware.GetRawToken(r.Context())
	if !ok || !rawOK {
		middleware.WriteError(w, http.StatusUnauthorized, service.ReasonMissingCredential)
		return
	}
	all := r.URL.Query().Get("logout_all") == "true"
	if err := h.auth.Logout(r.Context(), raw, ownerID, all, h.meta(r, "")); err != nil {
		h.writeRejection(w, r, err)
		return
	}
	scope := "one"
	if all {
		scope = "owner"
	}
	h.metrics.Revoked(r.Context(), scope)
	w.WriteHeader(http.StatusNoContent)
}

// Sessions handles GET /auth/sessions: the caller's live credentials, hashes
// never included.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, service.ReasonMissingCredential)
		return
	}
	sessions, err := h.auth.Sessions(r.Context(), ownerID)
	if err != nil {
		h.writeRejection(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// DeleteSession handles DELETE /auth/sessions/{id}, scoped to the caller.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, service.ReasonMissingCredential)
		return
	}
	id := r.PathValue("id")
	if id == "" {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := h.auth.RevokeSession(r.Context(), ownerID, id, h.meta(r, "")); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, service.ReasonNotFound)
			return
		}
		h.writeRejection(w, r, err)
		return
	}
	h.metrics.Revoked(r.Context(), "one")
	w.WriteHeader(http.StatusNoContent)
}

// writeRejection maps a classified auth error to its HTTP shape: 503 for a
// failing store, 401 with the taxonomy reason for everything else.
func (h *Handler) writeRejection(w http.ResponseWriter, r *http.Request, err error) {
	reason := service.ReasonCode(err)
	if errors.Is(err, service.ErrStoreUnavailable) {
		middleware.WriteError(w, http.StatusServiceUnavailable, reason)
		return
	}
	h.metrics.VerifyRejected(r.Context(), reason)
	middleware.WriteError(w, http.StatusUnauthorized, reason)
}
