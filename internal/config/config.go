// Package config handles application configuration from environment variables
// and an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the query service.
type Config struct {
	ListenAddr    string        `yaml:"listen_addr"`    // HTTP listen address (default ":8080")
	MetaDBPath    string        `yaml:"meta_db_path"`   // SQLite metadata store path
	WarehousePath string        `yaml:"warehouse_path"` // SQLite warehouse holding materialized tables
	EncryptionKey string        `yaml:"encryption_key"` // 64-char hex string (32-byte AES key) for stored credentials
	LogLevel      string        `yaml:"log_level"`      // debug, info, warn, error (default "info")
	Env           string        `yaml:"env"`            // "development" (default) or "production"
	CacheTTL      time.Duration `yaml:"cache_ttl"`      // freshness window for cache entries (default 24h)
	QueryTimeout  time.Duration `yaml:"query_timeout"`  // per-execution backend timeout (default 60s)
	JWTSecret     string        `yaml:"jwt_secret"`     // HS256 shared secret for bearer auth

	// Rate limiting
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`   // sustained requests per second (default 100)
	RateLimitBurst int     `yaml:"rate_limit_burst"` // burst capacity (default 200)

	// Cache warming
	WarmSchedule string `yaml:"warm_schedule"` // cron spec for re-running cacheable queries ("" disables)
}

// LoadFromEnv reads configuration from environment variables, applying defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:     envOr("LISTEN_ADDR", ":8080"),
		MetaDBPath:     envOr("META_DB_PATH", "chartly.sqlite"),
		WarehousePath:  envOr("WAREHOUSE_PATH", "warehouse.sqlite"),
		EncryptionKey:  os.Getenv("ENCRYPTION_KEY"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		Env:            envOr("ENV", "development"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		WarmSchedule:   os.Getenv("WARM_SCHEDULE"),
		CacheTTL:       24 * time.Hour,
		QueryTimeout:   60 * time.Second,
		RateLimitRPS:   100,
		RateLimitBurst: 200,
	}

	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}
	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse QUERY_TIMEOUT: %w", err)
		}
		cfg.QueryTimeout = d
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimitBurst = n
	}

	return cfg, nil
}

// Load reads configuration from the environment, then overlays values from the
// YAML file at path when path is non-empty.
func Load(path string) (*Config, error) {
	cfg, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.MetaDBPath == "" {
		return fmt.Errorf("META_DB_PATH must be set")
	}
	if c.WarehousePath == "" {
		return fmt.Errorf("WAREHOUSE_PATH must be set")
	}
	if c.EncryptionKey != "" && len(c.EncryptionKey) != 64 {
		return fmt.Errorf("ENCRYPTION_KEY must be a 64-character hex string, got %d characters", len(c.EncryptionKey))
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive")
	}
	return nil
}

// SlogLevel translates the configured log level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
