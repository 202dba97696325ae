package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvDBConnection   = "DB_CONNECTION"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvRedisPassword  = "REDIS_PASSWORD"
	EnvIdentityURL    = "IDENTITY_URL"
	EnvIdentityAPIKey = "IDENTITY_API_KEY"
)

// ErrMissingDatabaseDSN indicates no database DSN is present in config or env.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` in config file or DB_CONNECTION)")

// ErrMissingIdentityURL indicates no identity provider URL is configured.
var ErrMissingIdentityURL = errors.New("missing identity provider url (set `identity.url` in config file or IDENTITY_URL)")

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// RedisConfig holds quota store remote settings. Empty Addr selects the
// in-process store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// IdentityConfig holds identity provider settings.
type IdentityConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api-key"`
	ProjectRef string `yaml:"project-ref"`
}

// RateLimitConfig holds limiter settings.
type RateLimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// SessionConfig holds session store settings.
type SessionConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	StaleAfter time.Duration `yaml:"stale-after"`
}

// Config is the resolved application configuration.
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	DatabaseDSN string          `yaml:"database-dsn"`
	Redis       RedisConfig     `yaml:"redis"`
	Identity    IdentityConfig  `yaml:"identity"`
	RateLimit   RateLimitConfig `yaml:"rate-limit"`
	Session     SessionConfig   `yaml:"session"`
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads the YAML config file and applies env overrides and defaults.
// A missing file is not an error when env carries the required values.
func Load(configPath string) (Config, error) {
	var cfg Config

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := strings.TrimSpace(os.Getenv(EnvRedisPassword)); password != "" {
		cfg.Redis.Password = password
	}
	if url := strings.TrimSpace(os.Getenv(EnvIdentityURL)); url != "" {
		cfg.Identity.URL = url
	}
	if key := strings.TrimSpace(os.Getenv(EnvIdentityAPIKey)); key != "" {
		cfg.Identity.APIKey = key
	}

	applyDefaults(&cfg)

	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return Config{}, ErrMissingDatabaseDSN
	}
	if strings.TrimSpace(cfg.Identity.URL) == "" {
		return Config{}, ErrMissingIdentityURL
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8318
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "authgate"
	}
	if cfg.RateLimit.Limit <= 0 {
		cfg.RateLimit.Limit = 100
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = 15 * time.Minute
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Session.StaleAfter <= 0 {
		cfg.Session.StaleAfter = 24 * time.Hour
	}
}
