// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

// MinAdminTokenLength is the minimum admin token length accepted in production.
const MinAdminTokenLength = 32

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"OCMS_DB_PATH" envDefault:"./data/ocms.db"`
	ServerHost string `env:"OCMS_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"OCMS_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"OCMS_ENV" envDefault:"development"`
	LogLevel   string `env:"OCMS_LOG_LEVEL" envDefault:"info"`

	// SiteURL is the home location used for permalinks, menu links and fallback redirects.
	SiteURL  string `env:"OCMS_SITE_URL" envDefault:"http://localhost:8080"`
	SiteName string `env:"OCMS_SITE_NAME" envDefault:"oCMS"`

	// Cache configuration
	RedisURL     string `env:"OCMS_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"OCMS_CACHE_PREFIX" envDefault:"ocms:"`   // Redis key prefix
	CacheTTL     int    `env:"OCMS_CACHE_TTL" envDefault:"3600"`       // Default cache TTL in seconds
	CacheMaxSize int    `env:"OCMS_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Event log housekeeping
	EventRetentionDays int    `env:"OCMS_EVENT_RETENTION_DAYS" envDefault:"30"`
	EventCleanupCron   string `env:"OCMS_EVENT_CLEANUP_CRON" envDefault:"@daily"`

	// Admin API
	AdminToken string `env:"OCMS_ADMIN_TOKEN"`

	// Per-IP rate limit for public redirect routes (requests/second and burst)
	RateLimit float64 `env:"OCMS_RATE_LIMIT" envDefault:"10"`
	RateBurst int     `env:"OCMS_RATE_BURST" envDefault:"20"`

	// Seeding configuration
	DoSeed bool `env:"OCMS_DO_SEED" envDefault:"false"` // Enable database seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// HomeURL returns the site URL without a trailing slash.
func (c Config) HomeURL() string {
	return strings.TrimRight(c.SiteURL, "/")
}

// AdminEnabled returns true if the admin API has a token configured.
func (c Config) AdminEnabled() bool {
	return c.AdminToken != ""
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.SiteURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("OCMS_SITE_URL must be an absolute URL, got %q", c.SiteURL)
	}

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("OCMS_SERVER_PORT out of range: %d", c.ServerPort)
	}

	if c.EventRetentionDays < 1 {
		return errors.New("OCMS_EVENT_RETENTION_DAYS must be at least 1")
	}

	if _, err := cron.ParseStandard(c.EventCleanupCron); err != nil {
		return fmt.Errorf("OCMS_EVENT_CLEANUP_CRON is invalid: %w", err)
	}

	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return errors.New("OCMS_RATE_LIMIT and OCMS_RATE_BURST must be positive")
	}

	if !c.IsDevelopment() && c.AdminEnabled() && len(c.AdminToken) < MinAdminTokenLength {
		return fmt.Errorf("OCMS_ADMIN_TOKEN must be at least %d bytes long in production, got %d bytes; "+
			"generate a secure token with: openssl rand -base64 32",
			MinAdminTokenLength, len(c.AdminToken))
	}

	return nil
}
