package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/vidtube/internal/identity/service"
	"github.com/aussiebroadwan/vidtube/internal/identity/store"
	"github.com/aussiebroadwan/vidtube/pkg/assetx"
	"github.com/aussiebroadwan/vidtube/pkg/httpx"
	"github.com/aussiebroadwan/vidtube/pkg/slogx"

	_ "github.com/aussiebroadwan/vidtube/api/vidtube" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

const usersPrefix = "/api/v1/users"

// RateLimits holds the limiter profile of each endpoint group.
type RateLimits struct {
	Credential httpx.RateLimitConfig
	Account    httpx.RateLimitConfig
	Public     httpx.RateLimitConfig
}

// DefaultRateLimits returns the httpx default profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Credential: httpx.CredentialLimit,
		Account:    httpx.AccountLimit,
		Public:     httpx.PublicLimit,
	}
}

// Options configures the router.
type Options struct {
	BuildVersion string
	Cookies      httpx.CookieOptions
	CORSOrigin   string
	Limits       RateLimits

	// TrustedProxies are the peers whose forwarding headers identify the
	// client for rate limiting.
	TrustedProxies httpx.TrustedProxies

	// UploadDir receives multipart files before they are handed to the
	// asset store.
	UploadDir      string
	MaxUploadBytes int64
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	opts      Options
	startTime time.Time
	logger    *slog.Logger
	store     store.Store
	assets    assetx.Store

	SessionService *service.SessionService
	AccountService *service.AccountService
	Gate           *service.Gate
}

func NewRouter(opts Options, st store.Store, assets assetx.Store, logger *slog.Logger) *Router {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}

	r := &Router{
		Mux:       http.NewServeMux(),
		opts:      opts,
		startTime: time.Now(),
		logger:    logger,
		store:     st,
		assets:    assets,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(opts.CORSOrigin, 600),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			VidTube API
//	@version		0.1.0
//	@description	Identity and session service of the VidTube media platform.
//	@description
//	@description				Access tokens are short-lived HS256 JWTs; refresh tokens are rotated on every use.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/vidtube
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}". The accessToken cookie is accepted as well.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		Sessions:       r.SessionService,
		Accounts:       r.AccountService,
		Cookies:        r.opts.Cookies,
		UploadDir:      r.opts.UploadDir,
		MaxUploadBytes: r.opts.MaxUploadBytes,
	}

	// Credential endpoints - strict rate limit by IP (brute force prevention)
	credential := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, httpx.RateLimitByIP(r.opts.Limits.Credential, r.opts.TrustedProxies...))
	}

	r.Mux.Handle("POST "+usersPrefix+"/register", credential(h.HandleRegister))
	r.Mux.Handle("POST "+usersPrefix+"/login", credential(h.HandleLogin))
	r.Mux.Handle("POST "+usersPrefix+"/refresh-token", credential(h.HandleRefresh))

	// Password changes are credential checks too, keyed by session
	changePassword := httpx.Chain(Authenticated(r.Gate, h.HandleChangePassword),
		httpx.RateLimitBySession(r.opts.Limits.Credential, r.opts.TrustedProxies...),
	)
	r.Mux.Handle("POST "+usersPrefix+"/change-password", changePassword)

	// Authenticated account endpoints - moderate rate limit by session
	account := func(fn AuthedHandlerFunc) http.Handler {
		return httpx.Chain(Authenticated(r.Gate, fn),
			httpx.RateLimitBySession(r.opts.Limits.Account, r.opts.TrustedProxies...),
		)
	}

	avatar := account(h.HandleUpdateAvatar)
	coverImage := account(h.HandleUpdateCoverImage)

	r.Mux.Handle("POST "+usersPrefix+"/logout", account(h.HandleLogout))
	r.Mux.Handle("GET "+usersPrefix+"/current-user", account(h.HandleCurrentUser))
	r.Mux.Handle("PATCH "+usersPrefix+"/update-account", account(h.HandleUpdateAccount))
	r.Mux.Handle("PATCH "+usersPrefix+"/avatar", avatar)
	r.Mux.Handle("PATCH "+usersPrefix+"/cover-image", coverImage)

	// Paths of the previous API. They share the handler and its limiter.
	r.Mux.Handle("POST "+usersPrefix+"/update-password", changePassword)
	r.Mux.Handle("PATCH "+usersPrefix+"/update-avatar", avatar)
	r.Mux.Handle("PATCH "+usersPrefix+"/update-cover-image", coverImage)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	public := func(h http.Handler) http.Handler {
		return httpx.Chain(h, httpx.RateLimitByIP(r.opts.Limits.Public, r.opts.TrustedProxies...))
	}

	r.Mux.Handle("GET /livez", public(LivezHandler(r.startTime, r.opts.BuildVersion)))
	r.Mux.Handle("GET /readyz", public(ReadyzHandler(r.startTime, r.opts.BuildVersion, r.store, r.assets)))
	r.Mux.Handle("GET /api/v1/healthcheck", public(HealthcheckHandler()))
}
