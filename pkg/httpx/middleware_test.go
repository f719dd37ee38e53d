package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/vidtube/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allowed origin", func(t *testing.T) {
		h := httpx.CORS("https://app.example", 600)(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("foreign origin gets no headers", func(t *testing.T) {
		h := httpx.CORS("https://app.example", 600)(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		h := httpx.CORS("https://app.example", 600)(ok)
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://app.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
		require.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("disabled when origin empty", func(t *testing.T) {
		h := httpx.CORS("", 0)(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{"cookie only", "from-cookie", "", "from-cookie"},
		{"bearer only", "", "Bearer from-header", "from-header"},
		{"cookie wins", "from-cookie", "Bearer from-header", "from-cookie"},
		{"lower-case scheme", "", "bearer from-header", "from-header"},
		{"other scheme", "", "Basic dXNlcjpwYXNz", ""},
		{"bare bearer", "", "Bearer", ""},
		{"nothing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			require.Equal(t, tt.want, httpx.ExtractToken(req, httpx.AccessTokenCookie))
		})
	}
}

func TestTokenCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	expires := time.Now().Add(time.Hour)
	httpx.SetTokenCookie(rec, httpx.AccessTokenCookie, "tok", expires, httpx.CookieOptions{Secure: true})
	httpx.ClearTokenCookie(rec, httpx.RefreshTokenCookie, httpx.CookieOptions{Secure: true})

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)

	set := cookies[0]
	require.Equal(t, httpx.AccessTokenCookie, set.Name)
	require.Equal(t, "tok", set.Value)
	require.Equal(t, "/", set.Path)
	require.True(t, set.HttpOnly)
	require.True(t, set.Secure)
	require.Equal(t, http.SameSiteLaxMode, set.SameSite)

	cleared := cookies[1]
	require.Equal(t, httpx.RefreshTokenCookie, cleared.Name)
	require.Empty(t, cleared.Value)
	require.True(t, cleared.MaxAge < 0)
	require.True(t, cleared.HttpOnly)
	require.True(t, cleared.Secure)
}

func TestWriteEnvelope(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.WriteSuccess(rec, http.StatusCreated, map[string]string{"id": "1"}, "created")

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, float64(201), body["statusCode"])
		require.Equal(t, "created", body["message"])
		require.Equal(t, true, body["success"])
		require.Equal(t, map[string]any{"id": "1"}, body["data"])
	})

	t.Run("error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.WriteError(rec, http.StatusConflict, "taken")

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, float64(409), body["statusCode"])
		require.Equal(t, "taken", body["message"])
		require.Equal(t, false, body["success"])
		require.NotContains(t, body, "data")
	})
}
