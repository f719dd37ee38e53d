package domain

import "time"

// TokenPair is the result of login and refresh. The raw refresh token only
// ever exists here and in the client's hands.
type TokenPair struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// Session is a successful login.
type Session struct {
	User   IdentityView
	Tokens TokenPair
}
