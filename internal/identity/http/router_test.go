package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	httpapi "github.com/aussiebroadwan/vidtube/internal/identity/http"
	"github.com/aussiebroadwan/vidtube/internal/identity/service"
	"github.com/aussiebroadwan/vidtube/internal/identity/store/drivers/sqlite"
	"github.com/aussiebroadwan/vidtube/pkg/assetx"
	"github.com/aussiebroadwan/vidtube/pkg/authsdk"
	"github.com/aussiebroadwan/vidtube/pkg/cryptox"
	"github.com/aussiebroadwan/vidtube/pkg/httpx"
	"github.com/aussiebroadwan/vidtube/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler   http.Handler
	store     *sqlite.Store
	assetDir  string
	uploadDir string
}

func newTestServer(t *testing.T, limits httpapi.RateLimits) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	root := t.TempDir()
	assetDir := filepath.Join(root, "assets")
	uploadDir := filepath.Join(root, "temp")
	assets, err := assetx.NewDiskStore(assetDir, "/assets")
	require.NoError(t, err)

	issuer, err := jwtx.NewIssuer(jwtx.IssuerOptions{
		Issuer:        "vidtube",
		AccessSecret:  []byte("access-secret-access-secret-0123456789"),
		RefreshSecret: []byte("refresh-secret-refresh-secret-0123456789"),
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := httpapi.NewRouter(httpapi.Options{
		BuildVersion: "test",
		Cookies:      httpx.CookieOptions{Secure: true},
		Limits:       limits,
		UploadDir:    uploadDir,
	}, st, assets, logger)

	router.SessionService = &service.SessionService{
		Store:                  st,
		Hasher:                 cryptox.NewHasher(cryptox.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}, "pepper"),
		Issuer:                 issuer,
		Assets:                 assets,
		RevokeOnPasswordChange: true,
	}
	router.AccountService = &service.AccountService{Store: st, Assets: assets}
	router.Gate = &service.Gate{Store: st, Issuer: issuer}
	router.ApplyRoutes()

	return &testServer{handler: router, store: st, assetDir: assetDir, uploadDir: uploadDir}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// multipartBody builds a form with text fields and files (field -> file name).
func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("\x89PNG fake image"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (s *testServer) register(t *testing.T, username, email string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{
		"username": username,
		"email":    email,
		"password": "p1",
		"fullName": "Ana",
	}, map[string]string{"avatar": "me.png"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", ct)
	return s.do(req)
}

func jsonRequest(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) authsdk.Envelope[T] {
	t.Helper()
	var env authsdk.Envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s *testServer) login(t *testing.T) (*httptest.ResponseRecorder, authsdk.LoginResponse) {
	t.Helper()
	rec := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login",
		authsdk.LoginRequest{Username: "ana", Password: "p1"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec, decode[authsdk.LoginResponse](t, rec).Data
}

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, httpapi.DefaultRateLimits())

	rec := s.register(t, "ana", "ana@x.com")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "password")
	require.NotContains(t, rec.Body.String(), "refreshToken")

	created := decode[authsdk.User](t, rec)
	require.True(t, created.Success)
	require.Equal(t, http.StatusCreated, created.StatusCode)
	require.Equal(t, "ana", created.Data.Username)
	require.True(t, strings.HasPrefix(created.Data.Avatar, "/assets/"))

	entries, err := os.ReadDir(s.assetDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entries, err = os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	require.Empty(t, entries, "temp uploads must be removed")

	loginRec, login := s.login(t)
	require.NotEmpty(t, login.AccessToken)
	require.NotContains(t, loginRec.Body.String(), "password")

	access := cookie(loginRec, httpx.AccessTokenCookie)
	require.NotNil(t, access)
	require.True(t, access.HttpOnly)
	require.True(t, access.Secure)
	require.Equal(t, login.AccessToken, access.Value)
	require.Equal(t, login.RefreshToken, cookie(loginRec, httpx.RefreshTokenCookie).Value)

	// Refresh via body
	rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token",
		authsdk.RefreshRequest{RefreshToken: login.RefreshToken}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pair := decode[authsdk.TokenPair](t, rec).Data
	require.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	// The used token is dead
	rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token",
		authsdk.RefreshRequest{RefreshToken: login.RefreshToken}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decode[struct{}](t, rec)
	require.False(t, env.Success)
	require.Equal(t, http.StatusUnauthorized, env.StatusCode)
	require.NotEmpty(t, env.Message)

	// Logout with cookie auth
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: pair.AccessToken})
	rec = s.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, name := range []string{httpx.AccessTokenCookie, httpx.RefreshTokenCookie} {
		c := cookie(rec, name)
		require.NotNil(t, c, name)
		require.Empty(t, c.Value)
		require.Negative(t, c.MaxAge)
		require.True(t, c.HttpOnly)
	}

	// Refresh via cookie after logout
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: httpx.RefreshTokenCookie, Value: pair.RefreshToken})
	rec = s.do(req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t, httpapi.DefaultRateLimits())
	require.Equal(t, http.StatusCreated, s.register(t, "ana", "ana@x.com").Code)

	t.Run("duplicate", func(t *testing.T) {
		rec := s.register(t, "ana", "other@x.com")
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing avatar", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{
			"username": "bob", "email": "bob@x.com", "password": "p1", "fullName": "Bob",
		}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
		req.Header.Set("Content-Type", ct)
		rec := s.do(req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported image", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{
			"username": "bob", "email": "bob@x.com", "password": "p1", "fullName": "Bob",
		}, map[string]string{"avatar": "script.exe"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
		req.Header.Set("Content-Type", ct)
		rec := s.do(req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/register", map[string]string{"username": "bob"}))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginErrors(t *testing.T) {
	s := newTestServer(t, httpapi.DefaultRateLimits())
	require.Equal(t, http.StatusCreated, s.register(t, "ana", "ana@x.com").Code)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"no identifier", authsdk.LoginRequest{Password: "p1"}, http.StatusBadRequest},
		{"unknown user", authsdk.LoginRequest{Username: "bob", Password: "p1"}, http.StatusNotFound},
		{"wrong password", authsdk.LoginRequest{Email: "ana@x.com", Password: "nope"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", tt.body))
			require.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader("{"))
		rec := s.do(req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProtectedRoutes(t *testing.T) {
	s := newTestServer(t, httpapi.DefaultRateLimits())
	require.Equal(t, http.StatusCreated, s.register(t, "ana", "ana@x.com").Code)
	require.Equal(t, http.StatusCreated, s.register(t, "bob", "bob@x.com").Code)
	_, login := s.login(t)

	t.Run("missing token", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := bearer(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), "abc.def.ghi")
		require.Equal(t, http.StatusUnauthorized, s.do(req).Code)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		req := bearer(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), login.RefreshToken)
		require.Equal(t, http.StatusUnauthorized, s.do(req).Code)
	})

	t.Run("cookie wins over header", func(t *testing.T) {
		req := bearer(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), "garbage")
		req.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: login.AccessToken})
		rec := s.do(req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "ana", decode[authsdk.User](t, rec).Data.Username)
	})

	t.Run("update account", func(t *testing.T) {
		req := bearer(jsonRequest(t, http.MethodPatch, "/api/v1/users/update-account",
			authsdk.UpdateAccountRequest{FullName: "Ana Maria", Email: "ana.maria@x.com"}), login.AccessToken)
		rec := s.do(req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, "ana.maria@x.com", decode[authsdk.User](t, rec).Data.Email)

		req = bearer(jsonRequest(t, http.MethodPatch, "/api/v1/users/update-account",
			authsdk.UpdateAccountRequest{FullName: "Ana", Email: "bob@x.com"}), login.AccessToken)
		require.Equal(t, http.StatusConflict, s.do(req).Code)
	})

	t.Run("avatar and cover image", func(t *testing.T) {
		for _, tc := range []struct{ path, field string }{
			{"/api/v1/users/avatar", "avatar"},
			{"/api/v1/users/cover-image", "coverImage"},
		} {
			body, ct := multipartBody(t, nil, map[string]string{tc.field: "new.jpg"})
			req := bearer(httptest.NewRequest(http.MethodPatch, tc.path, body), login.AccessToken)
			req.Header.Set("Content-Type", ct)
			rec := s.do(req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		}

		entries, err := os.ReadDir(s.assetDir)
		require.NoError(t, err)
		require.Len(t, entries, 3, "ana's old avatar is replaced, bob's stays")

		body, ct := multipartBody(t, nil, nil)
		req := bearer(httptest.NewRequest(http.MethodPatch, "/api/v1/users/avatar", body), login.AccessToken)
		req.Header.Set("Content-Type", ct)
		require.Equal(t, http.StatusBadRequest, s.do(req).Code)
	})

	t.Run("change password revokes the refresh cookie", func(t *testing.T) {
		req := bearer(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password",
			authsdk.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "p2"}), login.AccessToken)
		require.Equal(t, http.StatusUnauthorized, s.do(req).Code)

		req = bearer(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password",
			authsdk.ChangePasswordRequest{OldPassword: "p1", NewPassword: "p2"}), login.AccessToken)
		rec := s.do(req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotNil(t, cookie(rec, httpx.RefreshTokenCookie))

		rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token",
			authsdk.RefreshRequest{RefreshToken: login.RefreshToken}))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("previous API paths", func(t *testing.T) {
		for _, tc := range []struct{ path, field string }{
			{"/api/v1/users/update-avatar", "avatar"},
			{"/api/v1/users/update-cover-image", "coverImage"},
		} {
			body, ct := multipartBody(t, nil, map[string]string{tc.field: "newer.png"})
			req := bearer(httptest.NewRequest(http.MethodPatch, tc.path, body), login.AccessToken)
			req.Header.Set("Content-Type", ct)
			rec := s.do(req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		}

		entries, err := os.ReadDir(s.assetDir)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		req := bearer(jsonRequest(t, http.MethodPost, "/api/v1/users/update-password",
			authsdk.ChangePasswordRequest{OldPassword: "p2", NewPassword: "p3"}), login.AccessToken)
		rec := s.do(req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login",
			authsdk.LoginRequest{Username: "ana", Password: "p3"}))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCredentialRateLimit(t *testing.T) {
	limits := httpapi.DefaultRateLimits()
	limits.Credential = httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	s := newTestServer(t, limits)

	var last int
	for i := range 3 {
		req := jsonRequest(t, http.MethodPost, "/api/v1/users/login",
			authsdk.LoginRequest{Username: "ana", Password: "p1"})
		// Rotating forwarding headers from one socket must not reset the limit.
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		last = s.do(req).Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, httpapi.DefaultRateLimits())

	rec := s.do(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health authsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.Assets)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/healthcheck", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode[string](t, rec).Success)

	require.NoError(t, os.RemoveAll(s.assetDir))
	rec = s.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
