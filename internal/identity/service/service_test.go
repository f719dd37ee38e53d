package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/vidtube/internal/identity/domain"
	"github.com/aussiebroadwan/vidtube/internal/identity/store"
	"github.com/aussiebroadwan/vidtube/internal/identity/store/drivers/sqlite"
	"github.com/aussiebroadwan/vidtube/pkg/assetx"
	"github.com/aussiebroadwan/vidtube/pkg/cryptox"
	"github.com/aussiebroadwan/vidtube/pkg/idx"
	"github.com/aussiebroadwan/vidtube/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessSecret  = "access-secret-access-secret-0123456789"
	testRefreshSecret = "refresh-secret-refresh-secret-0123456789"
)

var fastArgon = cryptox.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}

// fakeAssets is an in-memory asset store. Paths listed in fail make Upload
// return an error.
type fakeAssets struct {
	mu      sync.Mutex
	fail    map[string]bool
	stored  map[string]bool
	deleted []string
	seq     int
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{fail: map[string]bool{}, stored: map[string]bool{}}
}

func (f *fakeAssets) Upload(_ context.Context, localPath string) (assetx.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if localPath == "" {
		return assetx.Asset{}, assetx.ErrNoFile
	}
	if f.fail[localPath] {
		return assetx.Asset{}, errors.New("upstream unavailable")
	}
	f.seq++
	key := fmt.Sprintf("%d.png", f.seq)
	url := "/assets/" + key
	f.stored[url] = true
	return assetx.Asset{URL: url, Key: key}, nil
}

func (f *fakeAssets) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	delete(f.stored, url)
	return nil
}

func (f *fakeAssets) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store    *sqlite.Store
	assets   *fakeAssets
	clock    *clock
	issuer   *jwtx.Issuer
	hasher   *cryptox.Hasher
	sessions *SessionService
	accounts *AccountService
	gate     *Gate
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clk := &clock{now: time.Now()}
	issuer, err := jwtx.NewIssuer(jwtx.IssuerOptions{
		Issuer:        "vidtube",
		AccessSecret:  []byte(testAccessSecret),
		RefreshSecret: []byte(testRefreshSecret),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    240 * time.Hour,
		Now:           clk.Now,
	})
	require.NoError(t, err)

	h := &harness{
		store:  st,
		assets: newFakeAssets(),
		clock:  clk,
		issuer: issuer,
		hasher: cryptox.NewHasher(fastArgon, "pepper"),
	}
	h.sessions = &SessionService{
		Store:                  st,
		Hasher:                 h.hasher,
		Issuer:                 issuer,
		Assets:                 h.assets,
		RevokeOnPasswordChange: true,
	}
	h.accounts = &AccountService{Store: st, Assets: h.assets}
	h.gate = &Gate{Store: st, Issuer: issuer}
	return h
}

func anaInput() RegisterInput {
	return RegisterInput{
		Username:   "ana",
		Email:      "ana@x.com",
		Password:   "p1",
		FullName:   "Ana",
		AvatarPath: "/tmp/avatar.png",
	}
}

func (h *harness) register(t *testing.T, in RegisterInput) domain.IdentityView {
	t.Helper()
	view, err := h.sessions.Register(context.Background(), in)
	require.NoError(t, err)
	return view
}

func (h *harness) stored(t *testing.T, id string) domain.Identity {
	t.Helper()
	identity, err := h.store.Identities().GetByID(context.Background(), id)
	require.NoError(t, err)
	return identity
}

func TestEndToEndSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	user := h.register(t, anaInput())
	require.Equal(t, "ana", user.Username)
	require.NotEmpty(t, user.Avatar)

	login, err := h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
	require.NoError(t, err)
	r1 := login.Tokens.RefreshToken
	require.NotEmpty(t, login.Tokens.AccessToken)
	require.Equal(t, cryptox.FingerprintToken(r1), h.stored(t, user.ID).RefreshToken)

	pair, err := h.sessions.Refresh(ctx, r1)
	require.NoError(t, err)
	r2 := pair.RefreshToken
	require.NotEqual(t, r1, r2)
	require.Equal(t, cryptox.FingerprintToken(r2), h.stored(t, user.ID).RefreshToken)

	_, err = h.sessions.Refresh(ctx, r1)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, h.sessions.Logout(ctx, user.ID))
	require.Empty(t, h.stored(t, user.ID).RefreshToken)

	_, err = h.sessions.Refresh(ctx, r2)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a verifiable hash, never the plaintext", func(t *testing.T) {
		h := newHarness(t)
		user := h.register(t, anaInput())

		stored := h.stored(t, user.ID)
		require.NotEqual(t, "p1", stored.PasswordHash)
		require.NoError(t, h.hasher.Verify("p1", stored.PasswordHash))
		require.Empty(t, stored.RefreshToken)
	})

	t.Run("normalizes username and email", func(t *testing.T) {
		h := newHarness(t)
		in := anaInput()
		in.Username = "  Ana "
		in.Email = "ANA@X.com"
		user := h.register(t, in)
		require.Equal(t, "ana", user.Username)
		require.Equal(t, "ana@x.com", user.Email)
	})

	t.Run("duplicates conflict without partial records", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, anaInput())
		uploads := h.assets.count()

		tests := []struct {
			name     string
			username string
			email    string
		}{
			{"same username", "ana", "other@x.com"},
			{"same email", "other", "ana@x.com"},
			{"same username different case", "ANA", "third@x.com"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := anaInput()
				in.Username = tt.username
				in.Email = tt.email
				_, err := h.sessions.Register(ctx, in)
				require.ErrorIs(t, err, ErrConflict)

				_, err = h.store.Identities().GetByUsernameOrEmail(ctx, "", "other@x.com")
				require.ErrorIs(t, err, store.ErrNotFound)
			})
		}
		require.Equal(t, uploads, h.assets.count())
	})

	t.Run("blank fields are validation errors", func(t *testing.T) {
		h := newHarness(t)
		tests := []struct {
			name   string
			mutate func(*RegisterInput)
		}{
			{"username", func(in *RegisterInput) { in.Username = "   " }},
			{"email", func(in *RegisterInput) { in.Email = "" }},
			{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }},
			{"password", func(in *RegisterInput) { in.Password = "  " }},
			{"full name", func(in *RegisterInput) { in.FullName = "\t" }},
			{"avatar", func(in *RegisterInput) { in.AvatarPath = "" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := anaInput()
				tt.mutate(&in)
				_, err := h.sessions.Register(ctx, in)
				require.ErrorIs(t, err, ErrValidation)
			})
		}
	})

	t.Run("avatar upload failure creates nothing", func(t *testing.T) {
		h := newHarness(t)
		h.assets.fail["/tmp/avatar.png"] = true

		_, err := h.sessions.Register(ctx, anaInput())
		require.ErrorIs(t, err, ErrUpstream)

		exists, err := h.store.Identities().ExistsByUsernameOrEmail(ctx, "ana", "ana@x.com")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("cover upload failure removes the avatar", func(t *testing.T) {
		h := newHarness(t)
		h.assets.fail["/tmp/cover.png"] = true

		in := anaInput()
		in.CoverImagePath = "/tmp/cover.png"
		_, err := h.sessions.Register(ctx, in)
		require.ErrorIs(t, err, ErrUpstream)
		require.Zero(t, h.assets.count())
		require.Len(t, h.assets.deleted, 1)

		exists, err := h.store.Identities().ExistsByUsernameOrEmail(ctx, "ana", "ana@x.com")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("message is client safe", func(t *testing.T) {
		h := newHarness(t)
		h.assets.fail["/tmp/avatar.png"] = true

		_, err := h.sessions.Register(ctx, anaInput())
		require.Equal(t, "avatar upload failed", Message(err))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	user := h.register(t, anaInput())

	t.Run("by email", func(t *testing.T) {
		s, err := h.sessions.Login(ctx, LoginInput{Email: "ANA@x.com", Password: "p1"})
		require.NoError(t, err)
		require.Equal(t, user.ID, s.User.ID)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name string
			in   LoginInput
			want error
		}{
			{"no identifier", LoginInput{Password: "p1"}, ErrValidation},
			{"no password", LoginInput{Username: "ana"}, ErrValidation},
			{"unknown user", LoginInput{Username: "bob", Password: "p1"}, ErrNotFound},
			{"wrong password", LoginInput{Username: "ana", Password: "p2"}, ErrUnauthorized},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := h.sessions.Login(ctx, tt.in)
				require.ErrorIs(t, err, tt.want)
			})
		}
	})

	t.Run("second login invalidates the first session", func(t *testing.T) {
		first, err := h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
		require.NoError(t, err)
		second, err := h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
		require.NoError(t, err)

		_, err = h.sessions.Refresh(ctx, first.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrUnauthorized)

		_, err = h.sessions.Refresh(ctx, second.Tokens.RefreshToken)
		require.NoError(t, err)
	})
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	b, err := bcrypt.GenerateFromPassword([]byte("p1"), bcrypt.MinCost)
	require.NoError(t, err)
	legacy := string(b)

	now := time.Now().UTC()
	identity := domain.Identity{
		ID:           idx.New().String(),
		Username:     "old",
		Email:        "old@x.com",
		FullName:     "Old Timer",
		Avatar:       "/assets/old.png",
		PasswordHash: legacy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, h.store.Identities().Create(ctx, identity))

	_, err = h.sessions.Login(ctx, LoginInput{Username: "old", Password: "p1"})
	require.NoError(t, err)

	upgraded := h.stored(t, identity.ID).PasswordHash
	require.NotEqual(t, legacy, upgraded)
	require.False(t, h.hasher.NeedsRehash(upgraded))
	require.NoError(t, h.hasher.Verify("p1", upgraded))
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	user := h.register(t, anaInput())
	login, err := h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
	require.NoError(t, err)

	t.Run("rejections", func(t *testing.T) {
		foreign, err := jwtx.NewIssuer(jwtx.IssuerOptions{
			Issuer:        "vidtube",
			AccessSecret:  []byte("another-access-secret-0123456789abcdef"),
			RefreshSecret: []byte("another-refresh-secret-0123456789abcdef"),
		})
		require.NoError(t, err)
		forged, err := foreign.IssueRefresh(jwtx.Subject{ID: user.ID})
		require.NoError(t, err)

		tests := []struct {
			name  string
			token string
			want  error
		}{
			{"empty", "", ErrUnauthorized},
			{"garbage", "not.a.token", ErrUnauthorized},
			{"access token", login.Tokens.AccessToken, ErrUnauthorized},
			{"foreign secret", forged.Value, ErrUnauthorized},
			{"truncated", login.Tokens.RefreshToken[:len(login.Tokens.RefreshToken)-4], ErrUnauthorized},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := h.sessions.Refresh(ctx, tt.token)
				require.ErrorIs(t, err, tt.want)
			})
		}
	})

	t.Run("unknown identity", func(t *testing.T) {
		ghost, err := h.issuer.IssueRefresh(jwtx.Subject{ID: "01J00000000000000000000000"})
		require.NoError(t, err)
		_, err = h.sessions.Refresh(ctx, ghost.Value)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, anaInput())
		s, err := h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
		require.NoError(t, err)

		h.clock.Advance(241 * time.Hour)
		_, err = h.sessions.Refresh(ctx, s.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrUnauthorized)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("concurrent refresh has one winner", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, anaInput())
		s, err := h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
		require.NoError(t, err)

		const racers = 6
		errs := make([]error, racers)
		var wg sync.WaitGroup
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = h.sessions.Refresh(ctx, s.Tokens.RefreshToken)
			}()
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, ErrUnauthorized)
		}
		require.Equal(t, 1, wins)
	})
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	user := h.register(t, anaInput())

	require.NoError(t, h.sessions.Logout(ctx, user.ID))
	require.NoError(t, h.sessions.Logout(ctx, user.ID))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		revoke       bool
		refreshWorks bool
	}{
		{"revokes sessions", true, false},
		{"keeps sessions", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.sessions.RevokeOnPasswordChange = tt.revoke
			user := h.register(t, anaInput())
			s, err := h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
			require.NoError(t, err)

			err = h.sessions.ChangePassword(ctx, user.ID, ChangePasswordInput{OldPassword: "p1", NewPassword: "p2"})
			require.NoError(t, err)

			_, err = h.sessions.Refresh(ctx, s.Tokens.RefreshToken)
			if tt.refreshWorks {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrUnauthorized)
			}

			_, err = h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
			require.ErrorIs(t, err, ErrUnauthorized)
			_, err = h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p2"})
			require.NoError(t, err)
		})
	}

	t.Run("wrong old password", func(t *testing.T) {
		h := newHarness(t)
		user := h.register(t, anaInput())
		err := h.sessions.ChangePassword(ctx, user.ID, ChangePasswordInput{OldPassword: "nope", NewPassword: "p2"})
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("blank new password", func(t *testing.T) {
		h := newHarness(t)
		user := h.register(t, anaInput())
		err := h.sessions.ChangePassword(ctx, user.ID, ChangePasswordInput{OldPassword: "p1", NewPassword: " "})
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestGateAuthenticate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	user := h.register(t, anaInput())
	s, err := h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		view, err := h.gate.Authenticate(ctx, s.Tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, view.ID)
	})

	t.Run("still valid after logout", func(t *testing.T) {
		h := newHarness(t)
		user := h.register(t, anaInput())
		s, err := h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
		require.NoError(t, err)
		require.NoError(t, h.sessions.Logout(ctx, user.ID))

		_, err = h.gate.Authenticate(ctx, s.Tokens.AccessToken)
		require.NoError(t, err)
	})

	t.Run("rejections", func(t *testing.T) {
		foreign, err := jwtx.NewIssuer(jwtx.IssuerOptions{
			Issuer:        "vidtube",
			AccessSecret:  []byte("another-access-secret-0123456789abcdef"),
			RefreshSecret: []byte("another-refresh-secret-0123456789abcdef"),
		})
		require.NoError(t, err)
		forged, err := foreign.IssueAccess(jwtx.Subject{ID: user.ID})
		require.NoError(t, err)
		ghost, err := h.issuer.IssueAccess(jwtx.Subject{ID: "01J00000000000000000000000"})
		require.NoError(t, err)

		tests := []struct {
			name  string
			token string
		}{
			{"missing", ""},
			{"different secret", forged.Value},
			{"truncated", s.Tokens.AccessToken[:len(s.Tokens.AccessToken)/2]},
			{"refresh token", s.Tokens.RefreshToken},
			{"deleted subject", ghost.Value},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := h.gate.Authenticate(ctx, tt.token)
				require.ErrorIs(t, err, ErrUnauthorized)
			})
		}
	})

	t.Run("expired access token", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, anaInput())
		s, err := h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
		require.NoError(t, err)

		h.clock.Advance(16 * time.Minute)
		_, err = h.gate.Authenticate(ctx, s.Tokens.AccessToken)
		require.ErrorIs(t, err, ErrUnauthorized)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})
}

func TestAccountOperations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	user := h.register(t, anaInput())
	h.register(t, RegisterInput{
		Username: "bob", Email: "bob@x.com", Password: "p1", FullName: "Bob", AvatarPath: "/tmp/bob.png",
	})

	t.Run("update details", func(t *testing.T) {
		view, err := h.accounts.UpdateAccountDetails(ctx, user.ID, AccountDetailsInput{FullName: "Ana Maria", Email: "Ana.Maria@x.com"})
		require.NoError(t, err)
		require.Equal(t, "Ana Maria", view.FullName)
		require.Equal(t, "ana.maria@x.com", view.Email)

		_, err = h.accounts.UpdateAccountDetails(ctx, user.ID, AccountDetailsInput{FullName: "Ana", Email: "bob@x.com"})
		require.ErrorIs(t, err, ErrConflict)

		_, err = h.accounts.UpdateAccountDetails(ctx, user.ID, AccountDetailsInput{FullName: "", Email: "a@x.com"})
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("replace avatar deletes the old one", func(t *testing.T) {
		before := h.stored(t, user.ID).Avatar
		view, err := h.accounts.UpdateAvatar(ctx, user.ID, "/tmp/new.png")
		require.NoError(t, err)
		require.NotEqual(t, before, view.Avatar)
		require.Contains(t, h.assets.deleted, before)
	})

	t.Run("cover image", func(t *testing.T) {
		view, err := h.accounts.UpdateCoverImage(ctx, user.ID, "/tmp/cover.png")
		require.NoError(t, err)
		require.NotEmpty(t, view.CoverImage)
		avatar := view.Avatar

		next, err := h.accounts.UpdateCoverImage(ctx, user.ID, "/tmp/cover2.png")
		require.NoError(t, err)
		require.Equal(t, avatar, next.Avatar)
		require.Contains(t, h.assets.deleted, view.CoverImage)
		require.NotContains(t, h.assets.deleted, avatar)
	})

	t.Run("missing file and upload failure", func(t *testing.T) {
		_, err := h.accounts.UpdateAvatar(ctx, user.ID, "")
		require.ErrorIs(t, err, ErrValidation)

		h.assets.fail["/tmp/broken.png"] = true
		_, err = h.accounts.UpdateCoverImage(ctx, user.ID, "/tmp/broken.png")
		require.ErrorIs(t, err, ErrUpstream)
	})
}

func TestHousekeepingClearsExpiredSlots(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, anaInput())
	_, err := h.sessions.Login(ctx, LoginInput{Username: "ana", Password: "p1"})
	require.NoError(t, err)

	hk := NewHousekeepingService(h.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)
	require.Zero(t, hk.Cleanup(ctx))

	hk.Now = func() time.Time { return time.Now().Add(241 * time.Hour) }
	require.Equal(t, int64(1), hk.Cleanup(ctx))
}
