package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/vidtube/internal/identity/http"
	"github.com/aussiebroadwan/vidtube/internal/identity/service"
	"github.com/aussiebroadwan/vidtube/internal/identity/store"
	"github.com/aussiebroadwan/vidtube/internal/identity/store/drivers/mongo"
	"github.com/aussiebroadwan/vidtube/internal/identity/store/drivers/sqlite"
	"github.com/aussiebroadwan/vidtube/pkg/assetx"
	"github.com/aussiebroadwan/vidtube/pkg/cryptox"
	"github.com/aussiebroadwan/vidtube/pkg/httpx"
	"github.com/aussiebroadwan/vidtube/pkg/jwtx"
	"github.com/aussiebroadwan/vidtube/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	assets assetx.Store
	issuer *jwtx.Issuer
	hasher *cryptox.Hasher

	// Services
	sessionService      *service.SessionService
	accountService      *service.AccountService
	gate                *service.Gate
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "vidtube",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()

	if err := app.initCrypto(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initAssets(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler returns the HTTP handler of the application.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("vidtube starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
		"assets", app.cfg.AssetStorage,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down vidtube...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("vidtube stopped")
	return nil
}

// initCrypto builds the password hasher and the token issuer
func (app *Application) initCrypto() error {
	pepper, err := cryptox.LoadOrGeneratePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	app.hasher = cryptox.NewHasher(cryptox.Argon2Params{
		Iterations: uint32(app.cfg.PasswordHashIterations), // #nosec G115 - validated positive
		Memory:     uint32(app.cfg.PasswordHashMemoryKiB),  // #nosec G115 - validated positive
	}, pepper)

	issuer, err := jwtx.NewIssuer(jwtx.IssuerOptions{
		Issuer:        app.cfg.TokenIssuer,
		AccessSecret:  []byte(app.cfg.AccessTokenSecret),
		RefreshSecret: []byte(app.cfg.RefreshTokenSecret),
		AccessTTL:     app.cfg.AccessTokenExpiry,
		RefreshTTL:    app.cfg.RefreshTokenExpiry,
		Leeway:        5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	app.issuer = issuer

	return nil
}

// initDatabase opens the configured credential store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.StoreDriver {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err = mongo.NewStore(connectCtx, app.cfg.MongoURL, app.cfg.MongoDatabase)
	default:
		if dir := filepath.Dir(app.cfg.DatabaseFile); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err = sqlite.NewStore("file:" + app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

// initAssets opens the configured asset store and the upload temp directory
func (app *Application) initAssets(ctx context.Context) error {
	if err := os.MkdirAll(app.cfg.UploadTempDir, 0o750); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	switch app.cfg.AssetStorage {
	case "s3":
		s3Store, err := assetx.NewS3Store(ctx, assetx.S3Options{
			Region:    app.cfg.S3Region,
			Endpoint:  app.cfg.S3Endpoint,
			Bucket:    app.cfg.S3Bucket,
			AccessKey: app.cfg.S3AccessKey,
			SecretKey: app.cfg.S3SecretKey,
			PublicURL: app.cfg.S3PublicURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize s3 asset store: %w", err)
		}
		app.assets = s3Store
	default:
		diskStore, err := assetx.NewDiskStore(app.cfg.AssetDir, app.cfg.AssetBaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize disk asset store: %w", err)
		}
		app.assets = diskStore
	}

	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Store:                  app.db,
		Hasher:                 app.hasher,
		Issuer:                 app.issuer,
		Assets:                 app.assets,
		RevokeOnPasswordChange: app.cfg.RevokeSessionsOnPasswordChange,
	}
	app.accountService = &service.AccountService{
		Store:  app.db,
		Assets: app.assets,
	}
	app.gate = &service.Gate{
		Store:  app.db,
		Issuer: app.issuer,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	// Validated in New.
	trusted, _ := httpx.ParseTrustedProxies(app.cfg.TrustedProxies)

	router := httpapi.NewRouter(httpapi.Options{
		BuildVersion:   BuildVersion,
		Cookies:        httpx.CookieOptions{Secure: app.cfg.CookieSecure},
		CORSOrigin:     app.cfg.CORSOrigin,
		TrustedProxies: trusted,
		Limits:         app.cfg.RateLimits,
		UploadDir:      app.cfg.UploadTempDir,
		MaxUploadBytes: int64(app.cfg.MaxUploadSizeMB) << 20,
	}, app.db, app.assets, app.logger)

	// Wire services to router
	router.SessionService = app.sessionService
	router.AccountService = app.accountService
	router.Gate = app.gate
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
