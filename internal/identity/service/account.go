package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/vidtube/internal/identity/domain"
	"github.com/aussiebroadwan/vidtube/internal/identity/store"
	"github.com/aussiebroadwan/vidtube/pkg/assetx"
	"github.com/aussiebroadwan/vidtube/pkg/slogx"
)

// AccountService holds the profile operations of an authenticated identity.
type AccountService struct {
	Store  store.Store
	Assets assetx.Store
}

// UpdateAccountDetails sets full name and email.
func (s *AccountService) UpdateAccountDetails(ctx context.Context, userID string, in AccountDetailsInput) (domain.IdentityView, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return domain.IdentityView{}, invalid(err)
	}

	err := s.Store.Identities().UpdateProfile(ctx, userID, in.FullName, in.Email)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.IdentityView{}, fail(ErrConflict, "email is already in use")
	case errors.Is(err, store.ErrNotFound):
		return domain.IdentityView{}, fail(ErrNotFound, "user does not exist")
	case err != nil:
		return domain.IdentityView{}, internal(err)
	}

	return s.load(ctx, userID)
}

// UpdateAvatar uploads a new avatar and deletes the previous one.
func (s *AccountService) UpdateAvatar(ctx context.Context, userID, localPath string) (domain.IdentityView, error) {
	return s.replaceImage(ctx, userID, localPath, "avatar",
		func(i domain.Identity) string { return i.Avatar },
		s.Store.Identities().UpdateAvatar)
}

// UpdateCoverImage uploads a new cover image and deletes the previous one.
func (s *AccountService) UpdateCoverImage(ctx context.Context, userID, localPath string) (domain.IdentityView, error) {
	return s.replaceImage(ctx, userID, localPath, "cover image",
		func(i domain.Identity) string { return i.CoverImage },
		s.Store.Identities().UpdateCoverImage)
}

func (s *AccountService) replaceImage(
	ctx context.Context,
	userID, localPath, what string,
	current func(domain.Identity) string,
	save func(ctx context.Context, id, url string) error,
) (domain.IdentityView, error) {
	l := slogx.FromContext(ctx)

	if localPath == "" {
		return domain.IdentityView{}, fail(ErrValidation, what+" file is missing")
	}

	identity, err := s.Store.Identities().GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.IdentityView{}, fail(ErrNotFound, "user does not exist")
	}
	if err != nil {
		return domain.IdentityView{}, internal(err)
	}
	previous := current(identity)

	asset, err := s.Assets.Upload(ctx, localPath)
	if err != nil {
		l.Warn("upload failed", slog.String("asset", what), slog.Any("error", err))
		return domain.IdentityView{}, failWith(ErrUpstream, what+" upload failed", err)
	}

	if err := save(ctx, userID, asset.URL); err != nil {
		_ = s.Assets.Delete(ctx, asset.URL)
		if errors.Is(err, store.ErrNotFound) {
			return domain.IdentityView{}, fail(ErrNotFound, "user does not exist")
		}
		return domain.IdentityView{}, internal(err)
	}

	if previous != "" {
		if err := s.Assets.Delete(ctx, previous); err != nil {
			l.Warn("failed to delete previous asset",
				slog.String("asset", what), slog.String("url", previous), slog.Any("error", err))
		}
	}

	return s.load(ctx, userID)
}

func (s *AccountService) load(ctx context.Context, userID string) (domain.IdentityView, error) {
	identity, err := s.Store.Identities().GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.IdentityView{}, fail(ErrNotFound, "user does not exist")
	}
	if err != nil {
		return domain.IdentityView{}, internal(err)
	}
	return identity.View(), nil
}
