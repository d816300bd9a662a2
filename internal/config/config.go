// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Authorization cache backends accepted by AUTHZ_CACHE.
const (
	CacheLRU   = "lru"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the JSON API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC server (health + gated services) listens on.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file used to sign session tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// SessionTTL is the session lifetime (e.g. "12h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// StoreTimeout bounds every session/membership/credential store call (e.g. "2s").
	StoreTimeout string `mapstructure:"STORE_TIMEOUT"`

	// AuthzCache selects the authorization cache backend: lru, redis or none.
	AuthzCache     string `mapstructure:"AUTHZ_CACHE"`
	AuthzCacheSize int    `mapstructure:"AUTHZ_CACHE_SIZE"`
	AuthzCacheTTL  string `mapstructure:"AUTHZ_CACHE_TTL"`

	// Redis backs the redis authorization cache and the failed-login lockout counter. Empty disables both.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// LockoutMaxAttempts is the number of failed logins within LockoutWindow that locks an account.
	LockoutMaxAttempts int    `mapstructure:"LOCKOUT_MAX_ATTEMPTS"`
	LockoutWindow      string `mapstructure:"LOCKOUT_WINDOW"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// SessionPurgeSchedule is the cron spec the worker uses to purge dead sessions.
	SessionPurgeSchedule string `mapstructure:"SESSION_PURGE_SCHEDULE"`

	// Env is the application environment (e.g. "development", "production").
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "gym-auth")
	v.SetDefault("JWT_AUDIENCE", "gym-api")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("STORE_TIMEOUT", "2s")
	v.SetDefault("AUTHZ_CACHE", CacheLRU)
	v.SetDefault("AUTHZ_CACHE_SIZE", 4096)
	v.SetDefault("AUTHZ_CACHE_TTL", "5m")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOCKOUT_MAX_ATTEMPTS", 5)
	v.SetDefault("LOCKOUT_WINDOW", "15m")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("SESSION_PURGE_SCHEDULE", "@every 10m")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	cfg.AuthzCache = strings.ToLower(strings.TrimSpace(cfg.AuthzCache))
	switch cfg.AuthzCache {
	case "":
		cfg.AuthzCache = CacheLRU
	case CacheLRU, CacheNone:
	case CacheRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("config: AUTHZ_CACHE=redis requires REDIS_ADDR")
		}
	default:
		return nil, errors.New("config: AUTHZ_CACHE must be one of lru, redis, none")
	}

	if cfg.LockoutMaxAttempts < 0 {
		return nil, errors.New("config: LOCKOUT_MAX_ATTEMPTS must not be negative")
	}

	return &cfg, nil
}

// SessionLifetime parses SessionTTL. Returns 12h if unset or invalid.
func (c *Config) SessionLifetime() time.Duration {
	return parseDuration(c.SessionTTL, 12*time.Hour)
}

// StoreCallTimeout parses StoreTimeout. Returns 2s if unset or invalid.
func (c *Config) StoreCallTimeout() time.Duration {
	return parseDuration(c.StoreTimeout, 2*time.Second)
}

// AuthzCacheLifetime parses AuthzCacheTTL. Returns 5m if unset or invalid.
func (c *Config) AuthzCacheLifetime() time.Duration {
	return parseDuration(c.AuthzCacheTTL, 5*time.Minute)
}

// LockoutDuration parses LockoutWindow. Returns 15m if unset or invalid.
func (c *Config) LockoutDuration() time.Duration {
	return parseDuration(c.LockoutWindow, 15*time.Minute)
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
