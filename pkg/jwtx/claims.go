package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. These provide sensible security defaults but
// are normally overridden from configuration.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 10 * 24 * time.Hour
)

// Kind separates access tokens from refresh tokens. It is written to both the
// "kid" header and the "typ" claim.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Subject is the identity data a token is minted for.
type Subject struct {
	ID       string
	Username string
	Email    string
	FullName string
}

// Claims are the JWT claims for both token kinds. Refresh tokens only carry
// the registered claims (sub, jti, iat, exp) and the kind.
type Claims struct {
	jwt.RegisteredClaims

	Kind Kind `json:"typ"`

	// Display data, access tokens only
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

func newAccessClaims(s Subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(s.ID, issuer, ttl, now),
		Kind:             KindAccess,
		Username:         s.Username,
		Email:            s.Email,
		FullName:         s.FullName,
	}
}

func newRefreshClaims(s Subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(s.ID, issuer, ttl, now),
		Kind:             KindRefresh,
	}
}

func registered(subject, issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two tokens
// minted for the same identity in the same second still differ because of it,
// which refresh rotation depends on.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
