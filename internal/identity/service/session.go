package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/vidtube/internal/identity/domain"
	"github.com/aussiebroadwan/vidtube/internal/identity/store"
	"github.com/aussiebroadwan/vidtube/pkg/assetx"
	"github.com/aussiebroadwan/vidtube/pkg/cryptox"
	"github.com/aussiebroadwan/vidtube/pkg/idx"
	"github.com/aussiebroadwan/vidtube/pkg/jwtx"
	"github.com/aussiebroadwan/vidtube/pkg/slogx"
)

// SessionService owns registration and the refresh-token lifecycle. Each
// identity has a single refresh slot: login overwrites it, refresh rotates it
// and logout clears it.
type SessionService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Issuer *jwtx.Issuer
	Assets assetx.Store

	// RevokeOnPasswordChange clears the refresh slot when the password
	// changes, ending every other session.
	RevokeOnPasswordChange bool
}

// Register creates a new identity and uploads its images.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (domain.IdentityView, error) {
	l := slogx.FromContext(ctx)

	in.normalize()
	if err := in.Validate(); err != nil {
		return domain.IdentityView{}, invalid(err)
	}

	exists, err := s.Store.Identities().ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return domain.IdentityView{}, internal(err)
	}
	if exists {
		return domain.IdentityView{}, fail(ErrConflict, "user with this username or email already exists")
	}

	if in.AvatarPath == "" {
		return domain.IdentityView{}, fail(ErrValidation, "avatar file is required")
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.IdentityView{}, internal(err)
	}

	avatar, err := s.Assets.Upload(ctx, in.AvatarPath)
	if err != nil {
		l.Warn("avatar upload failed", slog.Any("error", err))
		return domain.IdentityView{}, failWith(ErrUpstream, "avatar upload failed", err)
	}
	uploaded := []string{avatar.URL}

	var cover assetx.Asset
	if in.CoverImagePath != "" {
		cover, err = s.Assets.Upload(ctx, in.CoverImagePath)
		if err != nil {
			l.Warn("cover image upload failed", slog.Any("error", err))
			s.discard(ctx, uploaded...)
			return domain.IdentityView{}, failWith(ErrUpstream, "cover image upload failed", err)
		}
		uploaded = append(uploaded, cover.URL)
	}

	now := time.Now().UTC()
	identity := domain.Identity{
		ID:           idx.NewAt(now).String(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		Avatar:       avatar.URL,
		CoverImage:   cover.URL,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Identities().Create(ctx, identity); err != nil {
		s.discard(ctx, uploaded...)
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.IdentityView{}, fail(ErrConflict, "user with this username or email already exists")
		}
		return domain.IdentityView{}, internal(err)
	}

	l.Info("identity registered", slog.String("user_id", identity.ID))
	return identity.View(), nil
}

// Login verifies credentials and starts a new session. Any refresh token from
// an earlier session stops working.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (domain.Session, error) {
	l := slogx.FromContext(ctx)

	in.normalize()
	if err := in.Validate(); err != nil {
		return domain.Session{}, invalid(err)
	}

	identity, err := s.Store.Identities().GetByUsernameOrEmail(ctx, in.Username, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, fail(ErrNotFound, "user does not exist")
	}
	if err != nil {
		return domain.Session{}, internal(err)
	}

	if err := s.Hasher.Verify(in.Password, identity.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Info("login rejected", slog.String("user_id", identity.ID))
			return domain.Session{}, fail(ErrUnauthorized, "invalid user credentials")
		}
		return domain.Session{}, internal(err)
	}

	if s.Hasher.NeedsRehash(identity.PasswordHash) {
		s.rehash(ctx, identity.ID, in.Password)
	}

	tokens, err := s.issue(identity)
	if err != nil {
		return domain.Session{}, internal(err)
	}

	fp := cryptox.FingerprintToken(tokens.RefreshToken)
	if err := s.Store.Identities().SetRefreshToken(ctx, identity.ID, fp, tokens.RefreshTokenExpiresAt); err != nil {
		return domain.Session{}, internal(err)
	}

	l.Info("login succeeded", slog.String("user_id", identity.ID))
	return domain.Session{User: identity.View(), Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair and rotates the slot. A
// token that was already rotated, or superseded by a later login, is
// rejected.
func (s *SessionService) Refresh(ctx context.Context, presented string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	if presented == "" {
		return domain.TokenPair{}, fail(ErrUnauthorized, "unauthorized request")
	}

	claims, err := s.Issuer.Verify(presented, jwtx.KindRefresh)
	if err != nil {
		l.Debug("refresh token rejected", slog.Any("error", err))
		return domain.TokenPair{}, failWith(ErrUnauthorized, "invalid refresh token", err)
	}

	ids := s.Store.Identities()
	identity, err := ids.GetByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return domain.TokenPair{}, fail(ErrNotFound, "user does not exist")
	}
	if err != nil {
		return domain.TokenPair{}, internal(err)
	}

	if !cryptox.FingerprintMatches(presented, identity.RefreshToken) {
		l.Warn("stale refresh token presented", slog.String("user_id", identity.ID))
		return domain.TokenPair{}, fail(ErrUnauthorized, "refresh token is expired or used")
	}

	tokens, err := s.issue(identity)
	if err != nil {
		return domain.TokenPair{}, internal(err)
	}

	err = ids.RotateRefreshToken(ctx, identity.ID,
		cryptox.FingerprintToken(presented),
		cryptox.FingerprintToken(tokens.RefreshToken),
		tokens.RefreshTokenExpiresAt)
	switch {
	case errors.Is(err, store.ErrStaleToken):
		l.Warn("lost refresh rotation race", slog.String("user_id", identity.ID))
		return domain.TokenPair{}, fail(ErrUnauthorized, "refresh token is expired or used")
	case errors.Is(err, store.ErrNotFound):
		return domain.TokenPair{}, fail(ErrNotFound, "user does not exist")
	case err != nil:
		return domain.TokenPair{}, internal(err)
	}

	return tokens, nil
}

// Logout clears the refresh slot. Logging out twice is not an error.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	err := s.Store.Identities().ClearRefreshToken(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return internal(err)
	}
	slogx.FromContext(ctx).Info("logout", slog.String("user_id", userID))
	return nil
}

// ChangePassword replaces the password after checking the old one.
func (s *SessionService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if err := in.Validate(); err != nil {
		return invalid(err)
	}

	ids := s.Store.Identities()
	identity, err := ids.GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return fail(ErrNotFound, "user does not exist")
	}
	if err != nil {
		return internal(err)
	}

	if err := s.Hasher.Verify(in.OldPassword, identity.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return fail(ErrUnauthorized, "old password is incorrect")
		}
		return internal(err)
	}

	hash, err := s.Hasher.Hash(in.NewPassword)
	if err != nil {
		return internal(err)
	}
	if err := ids.UpdatePasswordHash(ctx, userID, hash, s.RevokeOnPasswordChange); err != nil {
		return internal(err)
	}

	slogx.FromContext(ctx).Info("password changed",
		slog.String("user_id", userID),
		slog.Bool("sessions_revoked", s.RevokeOnPasswordChange))
	return nil
}

func (s *SessionService) issue(identity domain.Identity) (domain.TokenPair, error) {
	subject := jwtx.Subject{
		ID:       identity.ID,
		Username: identity.Username,
		Email:    identity.Email,
		FullName: identity.FullName,
	}

	access, err := s.Issuer.IssueAccess(subject)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Issuer.IssueRefresh(subject)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:           access.Value,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshToken:          refresh.Value,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
	}, nil
}

// rehash upgrades a legacy or weak password hash. Failure only costs the
// upgrade, so it is logged and the login proceeds.
func (s *SessionService) rehash(ctx context.Context, userID, password string) {
	l := slogx.FromContext(ctx)

	hash, err := s.Hasher.Hash(password)
	if err == nil {
		err = s.Store.Identities().UpdatePasswordHash(ctx, userID, hash, false)
	}
	if err != nil {
		l.Warn("password rehash failed", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	l.Info("password hash upgraded", slog.String("user_id", userID))
}

// discard deletes assets uploaded for a request that then failed.
func (s *SessionService) discard(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if err := s.Assets.Delete(ctx, url); err != nil {
			slogx.FromContext(ctx).Warn("failed to delete orphaned asset",
				slog.String("url", url), slog.Any("error", err))
		}
	}
}
