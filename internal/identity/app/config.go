package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	httpapi "github.com/aussiebroadwan/vidtube/internal/identity/http"
	"github.com/aussiebroadwan/vidtube/pkg/httpx"
	"github.com/aussiebroadwan/vidtube/pkg/jwtx"
	"github.com/joho/godotenv"
)

type Config struct {
	AccessTokenSecret  string        // Required: HS256 secret for access tokens
	AccessTokenExpiry  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTokenSecret string        // Required: HS256 secret for refresh tokens, distinct from the access secret
	RefreshTokenExpiry time.Duration // Optional: refresh token lifetime (default: 10d)
	TokenIssuer        string        // Optional: iss claim (default: vidtube)

	PasswordHashIterations         int    // Optional: Argon2id time cost (default: 2)
	PasswordHashMemoryKiB          int    // Optional: Argon2id memory in KiB (default: 19456)
	PepperFile                     string // Optional: path to the password pepper (default: ./pepper)
	RevokeSessionsOnPasswordChange bool   // Optional: clear the refresh token on password change (default: true)

	StoreDriver     string // Optional: sqlite or mongo (default: sqlite)
	DatabaseFile    string // Optional: SQLite file (default: ./vidtube.db)
	MongoURL        string // Optional: MongoDB connection string
	MongoDatabase   string // Optional: MongoDB database name (default: vidtube)
	AssetStorage    string // Optional: disk or s3 (default: disk)
	AssetDir        string // Optional: disk store directory (default: public/assets)
	AssetBaseURL    string // Optional: URL prefix for disk assets (default: /assets)
	S3Region        string
	S3Endpoint      string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicURL     string
	UploadTempDir   string // Optional: multipart temp directory (default: public/temp)
	MaxUploadSizeMB int    // Optional: request size limit for uploads (default: 10)

	CookieSecure   bool   // Optional: Secure attribute on token cookies (default: true)
	CORSOrigin     string // Optional: allowed cross-origin caller (default: disabled)
	TrustedProxies string // Optional: comma-separated IPs/CIDRs whose forwarding headers are believed (default: none)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8000)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	RateLimits httpapi.RateLimits
}

// LoadDotEnv loads path into the environment when the file exists. Variables
// already set win over the file.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func LoadConfig() Config {
	return Config{
		AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		AccessTokenExpiry:  getEnvDurationOrDefault("ACCESS_TOKEN_EXPIRY", jwtx.DefaultAccessTokenTTL),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		RefreshTokenExpiry: getEnvDurationOrDefault("REFRESH_TOKEN_EXPIRY", jwtx.DefaultRefreshTokenTTL),
		TokenIssuer:        getEnvOrDefault("TOKEN_ISSUER", "vidtube"),

		PasswordHashIterations:         getEnvIntOrDefault("PASSWORD_HASH_ITERATIONS", 2),
		PasswordHashMemoryKiB:          getEnvIntOrDefault("PASSWORD_HASH_MEMORY_KIB", 19*1024),
		PepperFile:                     getEnvOrDefault("PASSWORD_PEPPER_FILE", "pepper"),
		RevokeSessionsOnPasswordChange: getEnvBoolOrDefault("REVOKE_SESSIONS_ON_PASSWORD_CHANGE", true),

		StoreDriver:     strings.ToLower(getEnvOrDefault("STORE_DRIVER", "sqlite")),
		DatabaseFile:    getEnvOrDefault("DATABASE_FILE", "vidtube.db"),
		MongoURL:        getEnvOrDefault("MONGODB_URL", "mongodb://localhost:27017"),
		MongoDatabase:   getEnvOrDefault("MONGODB_DATABASE", "vidtube"),
		AssetStorage:    strings.ToLower(getEnvOrDefault("ASSET_STORAGE", "disk")),
		AssetDir:        getEnvOrDefault("ASSET_DIR", "public/assets"),
		AssetBaseURL:    getEnvOrDefault("ASSET_BASE_URL", "/assets"),
		S3Region:        getEnvOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3PublicURL:     os.Getenv("S3_PUBLIC_URL"),
		UploadTempDir:   getEnvOrDefault("UPLOAD_TEMP_DIR", "public/temp"),
		MaxUploadSizeMB: getEnvIntOrDefault("MAX_UPLOAD_SIZE_MB", 10),

		CookieSecure:   getEnvBoolOrDefault("COOKIE_SECURE", true),
		CORSOrigin:     os.Getenv("CORS_ORIGIN"),
		TrustedProxies: os.Getenv("TRUSTED_PROXIES"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8000),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		RateLimits: httpapi.RateLimits{
			Credential: httpx.ParseRateLimitFromEnv("CREDENTIAL", httpx.CredentialLimit),
			Account:    httpx.ParseRateLimitFromEnv("ACCOUNT", httpx.AccountLimit),
			Public:     httpx.ParseRateLimitFromEnv("PUBLIC", httpx.PublicLimit),
		},
	}
}

// Validate reports configuration the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET is required"))
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.AccessTokenExpiry >= c.RefreshTokenExpiry {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRY must be shorter than REFRESH_TOKEN_EXPIRY"))
	}

	switch c.StoreDriver {
	case "sqlite", "mongo":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of sqlite, mongo", c.StoreDriver))
	}

	switch c.AssetStorage {
	case "disk":
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when ASSET_STORAGE=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("ASSET_STORAGE %q is not one of disk, s3", c.AssetStorage))
	}

	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}

	if c.PasswordHashIterations < 1 || c.PasswordHashMemoryKiB < 1024 {
		errs = append(errs, errors.New("password hash work factor is too low"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Day suffix, as written by the previous deployment (e.g., "10d")
	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
