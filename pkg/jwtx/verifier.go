package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrKindMismatch = errors.New("jwtx: token kind mismatch")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// verify parses tokenStr with key and returns its claims. Errors always wrap
// one of the sentinels above.
func (k *hmacKey) verify(tokenStr, issuer string, leeway time.Duration, now func() time.Time) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(now),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	var claims Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != k.KID() {
			return nil, ErrKindMismatch
		}
		return k.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	if claims.Kind != k.kind {
		return Claims{}, ErrKindMismatch
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidClaim)
	}

	return claims, nil
}

// classify maps golang-jwt errors onto our sentinels, keeping the original
// in the chain for logging.
func classify(err error) error {
	var kind error
	switch {
	case errors.Is(err, ErrKindMismatch):
		kind = ErrKindMismatch
	case errors.Is(err, jwt.ErrTokenMalformed):
		kind = ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		kind = ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		kind = ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		kind = ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		kind = ErrIssuer
	default:
		kind = ErrInvalidClaim
	}
	return fmt.Errorf("%w: %w", kind, err)
}
