// Package service implements the session/token lifecycle core: issuing
// linked access/refresh pairs, verifying presented tokens, and revoking them
// one at a time or per owner.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"golang.org/x/crypto/bcrypt"

	"relay-chat/backend/internal/audit"
	credentialdomain "relay-chat/backend/internal/credential/domain"
	"relay-chat/backend/internal/security"
)

// User is the slice of a user record this core needs: an id to bind
// credentials to and a password hash to check at login. The user-profile
// store itself is an external collaborator.
type User struct {
	ID           string
	Email        string
	PasswordHash string
}

// UserDirectory is implemented by the external user-profile store.
type UserDirectory interface {
	// GetByEmail returns the user for email, or nil when unknown.
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Create persists a new user. Returns an error for duplicate emails.
	Create(ctx context.Context, u *User) error
}

// SessionInfo is the client-visible view of a live credential. The token hash
// is deliberately absent.
type SessionInfo struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	DeviceLabel   string     `json:"device_label"`
	OriginAddress string     `json:"origin_address"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
}

// RequestMeta carries per-request context recorded on issued credentials and
// audit events.
type RequestMeta struct {
	DeviceLabel   string
	OriginAddress string
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthService implements register, login, refresh, logout, and session
// management on top of the issuer, verifier, and revoker.
type AuthService struct {
	users    UserDirectory
	store    Store
	issuer   *Issuer
	verifier *Verifier
	revoker  *Revoker
	hasher   *security.Hasher
	audit    audit.Recorder
	nowF     func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	users UserDirectory,
	store Store,
	issuer *Issuer,
	verifier *Verifier,
	revoker *Revoker,
	hasher *security.Hasher,
	recorder audit.Recorder,
) *AuthService {
	return &AuthService{
		users:    users,
		store:    store,
		issuer:   issuer,
		verifier: verifier,
		revoker:  revoker,
		hasher:   hasher,
		audit:    recorder,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user with the given email and password and issues an
// initial token pair.
func (s *AuthService) Register(ctx context.Context, email, password string, meta RequestMeta) (*Pair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRe.MatchString(email) {
		return nil, errors.New("invalid email")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{ID: uuid.New().String(), Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	pair, err := s.issuer.Issue(ctx, u.ID, meta.DeviceLabel, meta.OriginAddress)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, u.ID, "register", meta.OriginAddress, "")
	return pair, nil
}

// Login checks the password for email and issues a token pair. Unknown email
// and wrong password both return ErrInvalidLogin.
func (s *AuthService) Login(ctx context.Context, email, password string, meta RequestMeta) (*Pair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if u == nil {
		s.audit.Record(ctx, "", "login_failure", meta.OriginAddress, email)
		return nil, ErrInvalidLogin
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.audit.Record(ctx, u.ID, "login_failure", meta.OriginAddress, "")
			return nil, ErrInvalidLogin
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	pair, err := s.issuer.Issue(ctx, u.ID, meta.DeviceLabel, meta.OriginAddress)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, u.ID, "login", meta.OriginAddress, "")
	return pair, nil
}

// Refresh verifies rawRefresh as a refresh token and issues a brand-new pair.
// The old refresh token is revoked so it cannot be replayed; its sibling
// access token is left to expire on its own.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string, meta RequestMeta) (*Pair, error) {
	cred, err := s.verifier.Verify(ctx, rawRefresh, credentialdomain.KindRefresh)
	if err != nil {
		return nil, err
	}

	if err := s.revoker.RevokeToken(ctx, rawRefresh, ReasonRotated); err != nil {
		return nil, err
	}

	pair, err := s.issuer.Issue(ctx, cred.OwnerID, meta.DeviceLabel, meta.OriginAddress)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, cred.OwnerID, "refresh", meta.OriginAddress, "")
	return pair, nil
}

// Logout revokes the presented access token; with all set it revokes every
// credential for the token's owner.
func (s *AuthService) Logout(ctx context.Context, rawAccess, ownerID string, all bool, meta RequestMeta) error {
	if all {
		if err := s.revoker.RevokeAll(ctx, ownerID, ReasonLogoutAll); err != nil {
			return err
		}
		s.audit.Record(ctx, ownerID, "logout_all", meta.OriginAddress, "")
		return nil
	}
	if err := s.revoker.RevokeToken(ctx, rawAccess, ReasonLogout); err != nil {
		return err
	}
	s.audit.Record(ctx, ownerID, "logout", meta.OriginAddress, "")
	return nil
}

// Sessions lists the owner's live credentials without exposing hashes.
func (s *AuthService) Sessions(ctx context.Context, ownerID string) ([]SessionInfo, error) {
	live, err := s.store.ListLiveByOwner(ctx, ownerID, s.nowF())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	out := make([]SessionInfo, 0, len(live))
	for _, c := range live {
		out = append(out, SessionInfo{
			ID:            c.ID,
			Kind:          string(c.Kind),
			DeviceLabel:   c.DeviceLabel,
			OriginAddress: c.OriginAddress,
			CreatedAt:     c.CreatedAt,
			LastUsedAt:    c.LastUsedAt,
			ExpiresAt:     c.ExpiresAt,
		})
	}
	return out, nil
}

// RevokeSession revokes one credential row, scoped to the caller's owner id.
func (s *AuthService) RevokeSession(ctx context.Context, ownerID, credentialID string, meta RequestMeta) error {
	if err := s.revoker.RevokeByID(ctx, ownerID, credentialID, ReasonLogout); err != nil {
		return err
	}
	s.audit.Record(ctx, ownerID, "session_revoked", meta.OriginAddress, credentialID)
	return nil
}
