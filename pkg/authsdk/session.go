package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshBuffer is how long before expiry a token is already treated as
// expired, capped to a quarter of the token lifetime.
const refreshBuffer = 30 * time.Second

// ErrNoRefreshToken is returned when the access token expired and the session
// has nothing left to refresh with (after Logout, for example).
var ErrNoRefreshToken = errors.New("authsdk: access token expired and no refresh token available")

// Session represents an authenticated session with automatic token refresh.
// All Session methods automatically handle token expiration and refresh when needed.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time // zero when the token carries no readable exp
	user         User
}

// tokenExpiry reads the exp claim without verifying the signature. The SDK
// holds no secret; it only needs to know when to refresh.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}

	exp := claims.ExpiresAt.Time
	buffer := refreshBuffer
	if claims.IssuedAt != nil {
		if quarter := exp.Sub(claims.IssuedAt.Time) / 4; quarter < buffer {
			buffer = quarter
		}
	}
	return exp.Add(-buffer)
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.expiresAt.IsZero() || time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	stale := s.accessToken
	s.mu.RUnlock()

	return s.forceRefresh(ctx, stale)
}

// forceRefresh rotates the token pair unless another goroutine already
// replaced stale.
func (s *Session) forceRefresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if s.accessToken != stale {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	pair, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	s.expiresAt = tokenExpiry(pair.AccessToken)

	return s.accessToken, nil
}

func (s *Session) canRefresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken != ""
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// User returns the account the session was created for, as of login or the
// last CurrentUser call.
func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Logout revokes the session on the server and forgets the tokens locally.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, usersPath+"/logout", nil, nil)
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, nil, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
	return nil
}

// CurrentUser returns the authenticated account.
func (s *Session) CurrentUser(ctx context.Context) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, usersPath+"/current-user", nil, nil)
	if err != nil {
		return nil, err
	}

	var env Envelope[User]
	if err := decodeJSON(resp, &env, http.StatusOK); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.user = env.Data
	s.mu.Unlock()
	return &env.Data, nil
}

// ChangePassword replaces the account password. When the server revokes
// sessions on password change, the session's refresh token stops working and
// the caller should log in again once the access token expires.
func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body, err := json.Marshal(ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPost, usersPath+"/change-password", body, jsonHeaders)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// UpdateAccount changes the full name and email of the account.
func (s *Session) UpdateAccount(ctx context.Context, req UpdateAccountRequest) (*User, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPatch, usersPath+"/update-account", body, jsonHeaders)
	if err != nil {
		return nil, err
	}

	var env Envelope[User]
	if err := decodeJSON(resp, &env, http.StatusOK); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// UpdateAvatar replaces the avatar image.
func (s *Session) UpdateAvatar(ctx context.Context, f File) (*User, error) {
	return s.uploadImage(ctx, "/avatar", "avatar", f)
}

// UpdateCoverImage replaces the cover image.
func (s *Session) UpdateCoverImage(ctx context.Context, f File) (*User, error) {
	return s.uploadImage(ctx, "/cover-image", "coverImage", f)
}

func (s *Session) uploadImage(ctx context.Context, path, field string, f File) (*User, error) {
	body, contentType, err := encodeMultipart(nil, map[string]*File{field: &f})
	if err != nil {
		return nil, err
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPatch, usersPath+path, body, map[string]string{
		"Content-Type": contentType,
	})
	if err != nil {
		return nil, err
	}

	var env Envelope[User]
	if err := decodeJSON(resp, &env, http.StatusOK); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}
