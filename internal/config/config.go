package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr            = ":8080"
	defaultDatabaseURL         = "advisoryhub.db"
	defaultJWTSecret           = "change-me-jwt-secret"
	defaultJWTAccessTTL        = "1h"
	defaultLogLevel            = "info"
	defaultBlobBaseDir         = "./blobs"
	defaultBlobPublicBase      = "/static/blobs"
	defaultMaxUploadSize       = 50 * 1024 * 1024
	defaultListLimit           = 500
	defaultPendingTTL          = "15m"
	defaultPendingMaxPerOwner  = 5
	defaultOrphanGrace         = "1h"
	defaultOrphanSweepInterval = "0"
	defaultChangefeedChannel   = "content_changes"
)

type Config struct {
	AppEnv              string
	HTTPAddr            string
	DatabaseURL         string
	JWTSecret           string
	JWTAccessTTL        time.Duration
	LogLevel            string
	BlobBaseDir         string
	BlobPublicBase      string
	MaxUploadSize       int64
	ListLimit           int
	PendingTTL          time.Duration
	PendingMaxPerOwner  int
	OrphanGrace         time.Duration
	OrphanSweepInterval time.Duration
	CORSAllowedOrigins  []string
	ChangefeedChannel   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real env vars take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))
	cfg.BlobBaseDir = strings.TrimSpace(getEnv("BLOB_BASE_DIR", defaultBlobBaseDir))
	cfg.BlobPublicBase = strings.TrimRight(strings.TrimSpace(getEnv("BLOB_PUBLIC_BASE", defaultBlobPublicBase)), "/")
	cfg.ChangefeedChannel = strings.TrimSpace(getEnv("CHANGEFEED_CHANNEL", defaultChangefeedChannel))
	cfg.CORSAllowedOrigins = parseListEnv("CORS_ALLOWED_ORIGINS")

	var err error
	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL); err != nil {
		return nil, err
	}
	if cfg.PendingTTL, err = parseDurationEnv("PENDING_TTL", defaultPendingTTL); err != nil {
		return nil, err
	}
	if cfg.OrphanGrace, err = parseDurationEnv("ORPHAN_GRACE", defaultOrphanGrace); err != nil {
		return nil, err
	}
	if cfg.OrphanSweepInterval, err = parseDurationEnv("ORPHAN_SWEEP_INTERVAL", defaultOrphanSweepInterval); err != nil {
		return nil, err
	}
	if cfg.MaxUploadSize, err = parseInt64Env("MAX_UPLOAD_SIZE", defaultMaxUploadSize); err != nil {
		return nil, err
	}
	listLimit, err := parseInt64Env("LIST_LIMIT", defaultListLimit)
	if err != nil {
		return nil, err
	}
	cfg.ListLimit = int(listLimit)
	pendingMax, err := parseInt64Env("PENDING_MAX_PER_OWNER", defaultPendingMaxPerOwner)
	if err != nil {
		return nil, err
	}
	cfg.PendingMaxPerOwner = int(pendingMax)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.PendingTTL <= 0 {
		return fmt.Errorf("PENDING_TTL must be > 0")
	}
	if cfg.OrphanGrace < 0 {
		return fmt.Errorf("ORPHAN_GRACE must be >= 0")
	}
	if cfg.OrphanSweepInterval < 0 {
		return fmt.Errorf("ORPHAN_SWEEP_INTERVAL must be >= 0")
	}
	if cfg.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be > 0")
	}
	if cfg.ListLimit <= 0 {
		return fmt.Errorf("LIST_LIMIT must be > 0")
	}
	if cfg.PendingMaxPerOwner <= 0 {
		return fmt.Errorf("PENDING_MAX_PER_OWNER must be > 0")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.BlobBaseDir == "" {
		return fmt.Errorf("BLOB_BASE_DIR must not be empty")
	}
	if cfg.ChangefeedChannel == "" {
		return fmt.Errorf("CHANGEFEED_CHANNEL must not be empty")
	}

	if IsProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}

	return nil
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

// IsPostgres reports whether the DSN points at PostgreSQL rather than a sqlite file.
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseInt64Env(name string, fallback int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseListEnv(name string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(name), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
