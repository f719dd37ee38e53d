package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/vidtube/internal/identity/domain"
	"github.com/aussiebroadwan/vidtube/internal/identity/store"
)

type identitiesRepo struct {
	db dbtx
}

const identityColumns = `id, username, email, full_name, avatar, cover_image, password_hash,
	refresh_token, refresh_token_expires_at, created_at, updated_at`

func scanIdentity(row *sql.Row) (domain.Identity, error) {
	var (
		i         domain.Identity
		expiresAt sql.NullTime
	)
	err := row.Scan(
		&i.ID, &i.Username, &i.Email, &i.FullName, &i.Avatar, &i.CoverImage, &i.PasswordHash,
		&i.RefreshToken, &expiresAt, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	if expiresAt.Valid {
		i.RefreshTokenExpiresAt = expiresAt.Time.UTC()
	}
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	return i, nil
}

func (r *identitiesRepo) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	return scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id))
}

func (r *identitiesRepo) GetByUsernameOrEmail(ctx context.Context, username, email string) (domain.Identity, error) {
	return scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities
		WHERE (username = ? AND ? <> '') OR (email = ? AND ? <> '')
		ORDER BY created_at LIMIT 1`,
		username, username, email, email))
}

func (r *identitiesRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM identities WHERE username = ? OR email = ?)`,
		username, email).Scan(&exists)
	return exists, err
}

func (r *identitiesRepo) Create(ctx context.Context, i domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.Username, i.Email, i.FullName, i.Avatar, i.CoverImage, i.PasswordHash,
		i.RefreshToken, timeOrNull(i.RefreshTokenExpiresAt), i.CreatedAt.UTC(), i.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *identitiesRepo) SetRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE identities SET refresh_token = ?, refresh_token_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		token, timeOrNull(expiresAt), now(), id))
}

func (r *identitiesRepo) RotateRefreshToken(ctx context.Context, id, presented, next string, expiresAt time.Time) error {
	if presented == "" {
		return store.ErrStaleToken
	}
	err := expectOne(r.db.ExecContext(ctx,
		`UPDATE identities SET refresh_token = ?, refresh_token_expires_at = ?, updated_at = ?
		WHERE id = ? AND refresh_token = ?`,
		next, timeOrNull(expiresAt), now(), id, presented))
	if errors.Is(err, store.ErrNotFound) {
		return store.ErrStaleToken
	}
	return err
}

func (r *identitiesRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE identities SET refresh_token = '', refresh_token_expires_at = NULL, updated_at = ?
		WHERE id = ?`,
		now(), id))
}

func (r *identitiesRepo) UpdatePasswordHash(ctx context.Context, id, hash string, clearRefresh bool) error {
	if clearRefresh {
		return expectOne(r.db.ExecContext(ctx,
			`UPDATE identities SET password_hash = ?, refresh_token = '', refresh_token_expires_at = NULL,
			updated_at = ? WHERE id = ?`,
			hash, now(), id))
	}
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE identities SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, now(), id))
}

func (r *identitiesRepo) UpdateProfile(ctx context.Context, id, fullName, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET full_name = ?, email = ?, updated_at = ? WHERE id = ?`,
		fullName, email, now(), id)
	return expectOne(res, mapConstraint(err))
}

func (r *identitiesRepo) UpdateAvatar(ctx context.Context, id, url string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE identities SET avatar = ?, updated_at = ? WHERE id = ?`,
		url, now(), id))
}

func (r *identitiesRepo) UpdateCoverImage(ctx context.Context, id, url string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE identities SET cover_image = ?, updated_at = ? WHERE id = ?`,
		url, now(), id))
}

func (r *identitiesRepo) ClearExpiredRefreshTokens(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET refresh_token = '', refresh_token_expires_at = NULL
		WHERE refresh_token <> '' AND refresh_token_expires_at < ?`,
		at.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func now() time.Time { return time.Now().UTC() }

func timeOrNull(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
