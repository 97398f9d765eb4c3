package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"relay-chat/backend/internal/audit"
	"relay-chat/backend/internal/auth/handler"
	"relay-chat/backend/internal/auth/service"
	blacklistdomain "relay-chat/backend/internal/blacklist/domain"
	credentialdomain "relay-chat/backend/internal/credential/domain"
	"relay-chat/backend/internal/logging"
	"relay-chat/backend/internal/ratelimit"
	"relay-chat/backend/internal/security"
)

type memStore struct {
	mu        sync.Mutex
	byHash    map[string]*credentialdomain.Credential
	byID      map[string]*credentialdomain.Credential
	blacklist map[string]struct{}
}

func newMemStore() *memStore {
	return &memStore{
		byHash:    make(map[string]*credentialdomain.Credential),
		byID:      make(map[string]*credentialdomain.Credential),
		blacklist: make(map[string]struct{}),
	}
}

func (s *memStore) CreatePair(ctx context.Context, access, refresh *credentialdomain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range []*credentialdomain.Credential{access, refresh} {
		c2 := *c
		s.byHash[c2.TokenHash] = &c2
		s.byID[c2.ID] = &c2
	}
	return nil
}

func (s *memStore) GetByHash(ctx context.Context, tokenHash string) (*credentialdomain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byHash[tokenHash], nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*credentialdomain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id], nil
}

func (s *memStore) ListLiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]*credentialdomain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*credentialdomain.Credential
	for _, c := range s.byHash {
		if c.OwnerID == ownerID && c.ExpiresAt.After(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) TouchLastUsed(ctx context.Context, tokenHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byHash[tokenHash]; ok {
		c.LastUsedAt = &at
	}
	return nil
}

func (s *memStore) IsBlacklisted(ctx context.Context, tokenHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklist[tokenHash]
	return ok, nil
}

func (s *memStore) RevokeOne(ctx context.Context, e *blacklistdomain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[e.TokenHash] = struct{}{}
	if c, ok := s.byHash[e.TokenHash]; ok {
		delete(s.byID, c.ID)
		delete(s.byHash, e.TokenHash)
	}
	return nil
}

func (s *memStore) RevokeOwner(ctx context.Context, ownerID string, entries []*blacklistdomain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.blacklist[e.TokenHash] = struct{}{}
	}
	for hash, c := range s.byHash {
		if c.OwnerID == ownerID {
			delete(s.byID, c.ID)
			delete(s.byHash, hash)
		}
	}
	return nil
}

type memEpochs struct {
	mu sync.Mutex
	m  map[string]int
}

func (e *memEpochs) Get(ctx context.Context, ownerID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.m[ownerID]; ok {
		return v, nil
	}
	return 1, nil
}

func (e *memEpochs) Bump(ctx context.Context, ownerID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.m[ownerID]
	if !ok {
		v = 1
	}
	v++
	e.m[ownerID] = v
	return v, nil
}

type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*service.User
}

func (d *memUsers) GetByEmail(ctx context.Context, email string) (*service.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byEmail[email], nil
}

func (d *memUsers) Create(ctx context.Context, u *service.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u2 := *u
	d.byEmail[u2.Email] = &u2
	return nil
}

func newTestRouter(t *testing.T, policies Policies) *Router {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	store := newMemStore()
	epochs := &memEpochs{m: make(map[string]int)}
	log := logging.NewNopLogger()

	issuer := service.NewIssuer(store, epochs, tokens, 15*time.Minute, 24*time.Hour)
	verifier := service.NewVerifier(store, epochs, tokens, log)
	revoker := service.NewRevoker(store, epochs, tokens)
	auth := service.NewAuthService(
		&memUsers{byEmail: make(map[string]*service.User)},
		store, issuer, verifier, revoker,
		security.NewHasher(4), audit.NopRecorder{},
	)

	limiter := ratelimit.New(ratelimit.NewMemoryCounter())
	return NewRouter(handler.New(auth, nil), verifier, tokens, limiter, policies, nil)
}

func defaultPolicies() Policies {
	return Policies{
		Login:   ratelimit.Policy{Name: "login", Limit: 100, Window: time.Minute},
		API:     ratelimit.Policy{Name: "api", Limit: 100, Window: time.Minute},
		Message: ratelimit.Policy{Name: "message", Limit: 100, Window: time.Minute},
	}
}

func doJSON(t *testing.T, rt *Router, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:4000"
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, rt *Router) (access, refresh string) {
	t.Helper()
	rec := doJSON(t, rt, http.MethodPost, "/auth/register", `{"email":"user@example.com","password":"password-123"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register body: %v", err)
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", resp.TokenType)
	}
	return resp.AccessToken, resp.RefreshToken
}

func errorReason(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestRouter_RegisterLoginSessions(t *testing.T) {
	rt := newTestRouter(t, defaultPolicies())
	access, _ := registerUser(t, rt)

	rec := doJSON(t, rt, http.MethodPost, "/auth/login", `{"email":"user@example.com","password":"password-123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, rt, http.MethodGet, "/auth/sessions", "", access)
	if rec.Code != http.StatusOK {
		t.Fatalf("sessions status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "token_hash") {
		t.Error("session list must not expose token hashes")
	}
}

func TestRouter_LoginWrongPassword(t *testing.T) {
	rt := newTestRouter(t, defaultPolicies())
	registerUser(t, rt)

	rec := doJSON(t, rt, http.MethodPost, "/auth/login", `{"email":"user@example.com","password":"wrong"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if reason := errorReason(t, rec); reason != "invalid_credentials" {
		t.Errorf("reason = %q, want invalid_credentials", reason)
	}
}

func TestRouter_AuthRejectionReasons(t *testing.T) {
	rt := newTestRouter(t, defaultPolicies())
	registerUser(t, rt)

	// No Authorization header.
	rec := doJSON(t, rt, http.MethodGet, "/auth/sessions", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header status = %d, want 401", rec.Code)
	}
	if reason := errorReason(t, rec); reason != "missing_credential" {
		t.Errorf("reason = %q, want missing_credential", reason)
	}

	// Wrong header shape.
	req := httptest.NewRequest(http.MethodGet, "/auth/sessions", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("malformed header status = %d, want 401", w.Code)
	}
	if reason := errorReason(t, w); reason != "malformed_credential" {
		t.Errorf("reason = %q, want malformed_credential", reason)
	}

	// Well-formed but unparseable token.
	rec = doJSON(t, rt, http.MethodGet, "/auth/sessions", "", "garbage-token")
	if reason := errorReason(t, rec); reason != "malformed_credential" {
		t.Errorf("reason = %q, want malformed_credential", reason)
	}
}

func TestRouter_LogoutRevokesToken(t *testing.T) {
	rt := newTestRouter(t, defaultPolicies())
	access, _ := registerUser(t, rt)

	rec := doJSON(t, rt, http.MethodDelete, "/auth/logout", "", access)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, rt, http.MethodGet, "/auth/sessions", "", access)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want 401", rec.Code)
	}
	if reason := errorReason(t, rec); reason != "revoked" {
		t.Errorf("reason = %q, want revoked", reason)
	}
}

func TestRouter_RefreshRotation(t *testing.T) {
	rt := newTestRouter(t, defaultPolicies())
	_, refresh := registerUser(t, rt)

	rec := doJSON(t, rt, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Replaying the spent refresh token fails closed.
	rec = doJSON(t, rt, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replay status = %d, want 401", rec.Code)
	}
	if reason := errorReason(t, rec); reason != "revoked" {
		t.Errorf("reason = %q, want revoked", reason)
	}
}

func TestRouter_RefreshRejectsAccessToken(t *testing.T) {
	rt := newTestRouter(t, defaultPolicies())
	access, _ := registerUser(t, rt)

	rec := doJSON(t, rt, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+access+`"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if reason := errorReason(t, rec); reason != "wrong_type" {
		t.Errorf("reason = %q, want wrong_type", reason)
	}
}

func TestRouter_LoginRateLimit(t *testing.T) {
	policies := defaultPolicies()
	policies.Login = ratelimit.Policy{Name: "login", Limit: 3, Window: time.Minute}
	rt := newTestRouter(t, policies)

	body := `{"email":"nobody@example.com","password":"whatever-123"}`
	for i := 0; i < 3; i++ {
		rec := doJSON(t, rt, http.MethodPost, "/auth/login", body, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}
	rec := doJSON(t, rt, http.MethodPost, "/auth/login", body, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("attempt 4 status = %d, want 429", rec.Code)
	}
	if reason := errorReason(t, rec); reason != "rate_limited" {
		t.Errorf("reason = %q, want rate_limited", reason)
	}
}

func TestRouter_APIRateLimitPerOwner(t *testing.T) {
	policies := defaultPolicies()
	policies.API = ratelimit.Policy{Name: "api", Limit: 2, Window: time.Minute}
	rt := newTestRouter(t, policies)
	access, _ := registerUser(t, rt)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, rt, http.MethodGet, "/auth/sessions", "", access)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, body %s", i+1, rec.Code, rec.Body.String())
		}
	}
	rec := doJSON(t, rt, http.MethodGet, "/auth/sessions", "", access)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("request 3 status = %d, want 429", rec.Code)
	}
	// The denied request never reached the verifier, so the reason is the
	// limiter's, not an auth classification.
	if reason := errorReason(t, rec); reason != "rate_limited" {
		t.Errorf("reason = %q, want rate_limited", reason)
	}
}

func TestRouter_DeleteSession(t *testing.T) {
	rt := newTestRouter(t, defaultPolicies())
	access, _ := registerUser(t, rt)

	rec := doJSON(t, rt, http.MethodGet, "/auth/sessions", "", access)
	if rec.Code != http.StatusOK {
		t.Fatalf("sessions status = %d", rec.Code)
	}
	var body struct {
		Sessions []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	var refreshID string
	for _, s := range body.Sessions {
		if s.Kind == "refresh" {
			refreshID = s.ID
		}
	}
	if refreshID == "" {
		t.Fatal("no refresh session listed")
	}

	rec = doJSON(t, rt, http.MethodDelete, "/auth/sessions/"+refreshID, "", access)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete session status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, rt, http.MethodDelete, "/auth/sessions/"+refreshID, "", access)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestRouter_Healthz(t *testing.T) {
	rt := newTestRouter(t, defaultPolicies())
	rec := doJSON(t, rt, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
}
