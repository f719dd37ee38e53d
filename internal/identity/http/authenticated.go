package http

import (
	"net/http"

	"github.com/aussiebroadwan/vidtube/internal/identity/domain"
	"github.com/aussiebroadwan/vidtube/internal/identity/service"
	"github.com/aussiebroadwan/vidtube/pkg/httpx"
	"github.com/aussiebroadwan/vidtube/pkg/slogx"
)

// AuthedHandlerFunc is a handler that runs after the gate accepted the
// request. The authenticated identity is passed in explicitly.
type AuthedHandlerFunc func(w http.ResponseWriter, r *http.Request, user domain.IdentityView)

// Authenticated resolves the access token of the request through gate and
// calls next with the identity, or answers 401.
func Authenticated(gate *service.Gate, next AuthedHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := httpx.ExtractToken(r, httpx.AccessTokenCookie)
		user, err := gate.Authenticate(r.Context(), token)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		ctx := slogx.With(r.Context(), "user_id", user.ID)
		next(w, r.WithContext(ctx), user)
	})
}
