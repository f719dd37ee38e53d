package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/vidtube/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrStaleToken is returned by RotateRefreshToken when the stored refresh
	// token no longer matches the presented one (a concurrent refresh, logout
	// or login won).
	ErrStaleToken = errors.New("store: refresh token is stale")
)

// Store is the root data access interface. Concrete drivers (sqlite, mongo)
// implement this. Every mutation is a single-record atomic update, so the
// interface has no transactions.
type Store interface {
	Identities() Identities

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Identities interface {
	// GetByID returns an identity by id.
	GetByID(ctx context.Context, id string) (domain.Identity, error)

	// GetByUsernameOrEmail returns the identity whose username equals username
	// or whose email equals email. Both inputs must already be lower-case;
	// an empty input never matches.
	GetByUsernameOrEmail(ctx context.Context, username, email string) (domain.Identity, error)

	// ExistsByUsernameOrEmail reports whether username or email is taken.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// Create inserts a new identity (id is provided by the caller via ULID).
	// Returns ErrAlreadyExists when username or email is taken.
	Create(ctx context.Context, i domain.Identity) error

	// SetRefreshToken overwrites the refresh slot unconditionally (login).
	SetRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error

	// RotateRefreshToken replaces the slot with next only if it still holds
	// presented. Returns ErrStaleToken otherwise.
	RotateRefreshToken(ctx context.Context, id, presented, next string, expiresAt time.Time) error

	// ClearRefreshToken empties the slot (logout). Idempotent.
	ClearRefreshToken(ctx context.Context, id string) error

	// UpdatePasswordHash stores a new hash; with clearRefresh the refresh slot
	// is emptied in the same update.
	UpdatePasswordHash(ctx context.Context, id, hash string, clearRefresh bool) error

	// UpdateProfile sets full name and email. Returns ErrAlreadyExists when
	// the email belongs to another identity.
	UpdateProfile(ctx context.Context, id, fullName, email string) error

	UpdateAvatar(ctx context.Context, id, url string) error
	UpdateCoverImage(ctx context.Context, id, url string) error

	// ClearExpiredRefreshTokens empties every slot whose token expired before
	// now and returns how many were cleared.
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}
