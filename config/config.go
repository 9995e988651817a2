// Package config loads application settings from defaults, an optional TOML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the config file looked up when no --config flag is given.
const DefaultPath = "tasktracker.toml"

// DefaultSecretKey is the development signing key. Override it in production.
const DefaultSecretKey = "your-secret-key-change-in-production"

// Config is the complete application configuration.
type Config struct {
	HTTP            HTTPConfig      `toml:"http"`
	Database        DatabaseConfig  `toml:"database"`
	Auth            AuthConfig      `toml:"auth"`
	Redis           RedisConfig     `toml:"redis"`
	RateLimit       RateLimitConfig `toml:"rate_limit"`
	Activity        ActivityConfig  `toml:"activity"`
	Log             LogConfig       `toml:"log"`
	ShutdownTimeout time.Duration   `toml:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// DatabaseConfig configures the SQLite database shared by the auth and task modules.
type DatabaseConfig struct {
	Path  string `toml:"path"`
	Debug bool   `toml:"debug"`
}

// AuthConfig configures bearer credential issuance.
type AuthConfig struct {
	SecretKey       string        `toml:"secret_key"`
	Issuer          string        `toml:"issuer"`
	AccessTokenTTL  time.Duration `toml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `toml:"refresh_token_ttl"`
}

// RedisConfig configures the optional Redis connection. An empty Addr
// disables the list cache and rate limiting.
type RedisConfig struct {
	Addr        string        `toml:"addr"`
	Password    string        `toml:"password"`
	DB          int           `toml:"db"`
	CachePrefix string        `toml:"cache_prefix"`
	CacheTTL    time.Duration `toml:"cache_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// RateLimitConfig holds per-minute request budgets.
type RateLimitConfig struct {
	AuthPerMinute int `toml:"auth_per_minute"`
	UserPerMinute int `toml:"user_per_minute"`
}

// ActivityConfig configures the per-owner activity feed.
type ActivityConfig struct {
	FeedSize int `toml:"feed_size"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":3000"},
		Database: DatabaseConfig{
			Path: "task_tracker.db",
		},
		Auth: AuthConfig{
			SecretKey:       DefaultSecretKey,
			Issuer:          "task-tracker",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Redis: RedisConfig{
			CachePrefix: "tasks:",
			CacheTTL:    5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute: 20,
			UserPerMinute: 300,
		},
		Activity:        ActivityConfig{FeedSize: 50},
		Log:             LogConfig{Level: "info"},
		ShutdownTimeout: 30 * time.Second,
	}
}

// Load builds the configuration. A missing file at path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("parse config: unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)

	cfg.Database.Path = getEnv("DB_PATH", cfg.Database.Path)
	cfg.Database.Debug = getEnvBool("DB_DEBUG", cfg.Database.Debug)

	cfg.Auth.SecretKey = getEnv("JWT_SECRET_KEY", cfg.Auth.SecretKey)
	cfg.Auth.Issuer = getEnv("JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.AccessTokenTTL = getEnvDuration("JWT_ACCESS_TTL", cfg.Auth.AccessTokenTTL)
	cfg.Auth.RefreshTokenTTL = getEnvDuration("JWT_REFRESH_TTL", cfg.Auth.RefreshTokenTTL)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.CachePrefix = getEnv("CACHE_PREFIX", cfg.Redis.CachePrefix)
	cfg.Redis.CacheTTL = getEnvDuration("CACHE_TTL", cfg.Redis.CacheTTL)

	cfg.RateLimit.AuthPerMinute = getEnvInt("RATE_LIMIT_AUTH_PER_MINUTE", cfg.RateLimit.AuthPerMinute)
	cfg.RateLimit.UserPerMinute = getEnvInt("RATE_LIMIT_USER_PER_MINUTE", cfg.RateLimit.UserPerMinute)

	cfg.Activity.FeedSize = getEnvInt("ACTIVITY_FEED_SIZE", cfg.Activity.FeedSize)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Auth.SecretKey == "" {
		errs = append(errs, errors.New("auth.secret_key is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("auth token lifetimes must be positive"))
	}
	if c.Redis.Enabled() && c.Redis.CacheTTL <= 0 {
		errs = append(errs, errors.New("redis.cache_ttl must be positive"))
	}
	if c.RateLimit.AuthPerMinute < 1 || c.RateLimit.UserPerMinute < 1 {
		errs = append(errs, errors.New("rate limits must be at least 1 request per minute"))
	}
	if c.Activity.FeedSize < 1 {
		errs = append(errs, errors.New("activity.feed_size must be at least 1"))
	}
	switch c.Log.Level {
	case "info", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be info or error", c.Log.Level))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
