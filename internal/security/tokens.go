package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token envelope is malformed, carries a
	// bad signature, or fails issuer/audience checks.
	ErrInvalidToken = errors.New("invalid token")
)

// EnvelopeClaims is the signed envelope carried by every issued token.
// Kind distinguishes access from refresh tokens; Version is the owner's
// token epoch at issuance time, used for mass invalidation.
type EnvelopeClaims struct {
	jwt.RegisteredClaims
	Kind    string `json:"kind"`
	Version int    `json:"ver"`
}

// TokenProvider issues and parses signed token envelopes using RS256 or ES256
// (private/public key). The envelope binds owner id, kind, and epoch version,
// but acceptance is always decided against the credential store: a valid
// signature alone never grants access.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
}

// NewTokenProvider returns a TokenProvider that signs with the given private key
// (RSA or ECDSA). issuer and audience are set on claims and checked on parse.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
	}
}

// Issue signs a new envelope for ownerID with the given kind, epoch version,
// and ttl. Returns the raw token string and its expiry time.
func (p *TokenProvider) Issue(ownerID, kind string, version int, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(ttl)
	claims := EnvelopeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   ownerID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Kind:    kind,
		Version: version,
	}
	token, err = p.sign(claims)
	return token, expiresAt, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

// Parse checks the signature, issuer, and audience of a raw token and returns
// its envelope claims. Expiry is deliberately not validated here: lifetime is
// decided against the stored credential row so that revoked or replayed tokens
// classify correctly even past their expiry instant.
func (p *TokenProvider) Parse(tokenString string) (*EnvelopeClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &EnvelopeClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return p.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*EnvelopeClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
