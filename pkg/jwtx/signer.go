package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HS256 secret accepted (256 bits).
const MinSecretLength = 32

var (
	ErrWeakSecret   = errors.New("jwtx: secret shorter than 32 bytes")
	ErrSharedSecret = errors.New("jwtx: access and refresh secrets must differ")
)

// hmacKey is the signing key of exactly one token kind. An Issuer owns one
// per kind and never looks a key up by caller input, so signing a refresh
// token with the access secret cannot be expressed.
type hmacKey struct {
	kind   Kind
	secret []byte
}

func newHMACKey(kind Kind, secret []byte) (*hmacKey, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	buf := make([]byte, len(secret))
	copy(buf, secret)
	return &hmacKey{kind: kind, secret: buf}, nil
}

func (k *hmacKey) Alg() string { return jwt.SigningMethodHS256.Alg() }
func (k *hmacKey) KID() string { return string(k.kind) }

// Sign turns claims into a signed JWT string.
func (k *hmacKey) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = k.KID()
	return t.SignedString(k.secret)
}
