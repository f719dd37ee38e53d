package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/vidtube/internal/identity/domain"
	"github.com/aussiebroadwan/vidtube/internal/identity/store"
	"github.com/aussiebroadwan/vidtube/pkg/jwtx"
	"github.com/aussiebroadwan/vidtube/pkg/slogx"
)

// Gate authenticates access tokens. Trust is stateless: the refresh slot is
// never consulted, so an access token stays valid until it expires even after
// logout.
type Gate struct {
	Store  store.Store
	Issuer *jwtx.Issuer
}

// Authenticate verifies token and resolves the identity it was issued for.
// It performs no writes.
func (g *Gate) Authenticate(ctx context.Context, token string) (domain.IdentityView, error) {
	if token == "" {
		return domain.IdentityView{}, fail(ErrUnauthorized, "unauthorized request")
	}

	claims, err := g.Issuer.Verify(token, jwtx.KindAccess)
	if err != nil {
		slogx.FromContext(ctx).Debug("access token rejected", slog.Any("error", err))
		return domain.IdentityView{}, failWith(ErrUnauthorized, "invalid access token", err)
	}

	identity, err := g.Store.Identities().GetByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return domain.IdentityView{}, fail(ErrUnauthorized, "invalid access token")
	}
	if err != nil {
		return domain.IdentityView{}, internal(err)
	}

	return identity.View(), nil
}
