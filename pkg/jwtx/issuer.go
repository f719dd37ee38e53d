package jwtx

import (
	"bytes"
	"fmt"
	"time"
)

// IssuerOptions configures an Issuer. Access and refresh tokens have
// independent secrets and lifetimes.
type IssuerOptions struct {
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Leeway allows small clock skew when validating exp/nbf/iat.
	Leeway time.Duration

	// Now overrides the clock (tests). Defaults to time.Now.
	Now func() time.Time
}

// Issuer mints and verifies access and refresh tokens. It is a pure function
// of its configuration and the clock; it never touches storage.
type Issuer struct {
	issuer     string
	access     *hmacKey
	refresh    *hmacKey
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
	now        func() time.Time
}

// Token is a signed token with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// NewIssuer validates opts and builds an Issuer.
func NewIssuer(opts IssuerOptions) (*Issuer, error) {
	if bytes.Equal(opts.AccessSecret, opts.RefreshSecret) {
		return nil, ErrSharedSecret
	}

	access, err := newHMACKey(KindAccess, opts.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("access secret: %w", err)
	}
	refresh, err := newHMACKey(KindRefresh, opts.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("refresh secret: %w", err)
	}

	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTokenTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = DefaultRefreshTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Issuer{
		issuer:     opts.Issuer,
		access:     access,
		refresh:    refresh,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		leeway:     opts.Leeway,
		now:        opts.Now,
	}, nil
}

// IssueAccess signs a short-lived access token carrying the display claims.
func (i *Issuer) IssueAccess(s Subject) (Token, error) {
	now := i.now()
	claims := newAccessClaims(s, i.issuer, i.accessTTL, now)
	v, err := i.access.Sign(claims)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: v, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// IssueRefresh signs a long-lived refresh token carrying only the subject id.
func (i *Issuer) IssueRefresh(s Subject) (Token, error) {
	now := i.now()
	claims := newRefreshClaims(s, i.issuer, i.refreshTTL, now)
	v, err := i.refresh.Sign(claims)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: v, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature, expiry, issuer and kind of token and returns its
// claims.
func (i *Issuer) Verify(token string, kind Kind) (Claims, error) {
	switch kind {
	case KindAccess:
		return i.access.verify(token, i.issuer, i.leeway, i.now)
	case KindRefresh:
		return i.refresh.verify(token, i.issuer, i.leeway, i.now)
	default:
		return Claims{}, fmt.Errorf("%w: unknown kind %q", ErrKindMismatch, kind)
	}
}
