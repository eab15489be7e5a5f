// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the statsdash configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"github.com/olegiv/statsdash/internal/stats"
)

// AllEvents selects every event family in payload order.
const AllEvents = "*"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	BackendURL string `env:"STATSDASH_BACKEND_URL,required"`
	ServerHost string `env:"STATSDASH_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"STATSDASH_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"STATSDASH_ENV" envDefault:"development"`
	LogLevel   string `env:"STATSDASH_LOG_LEVEL" envDefault:"info"`

	// Dashboard configuration
	Timezone           string   `env:"STATSDASH_TIMEZONE" envDefault:"UTC"` // IANA name or "Local"
	Locale             string   `env:"STATSDASH_LOCALE" envDefault:"en"`    // BCP 47 tag for labels and UI default
	Granularity        string   `env:"STATSDASH_GRANULARITY" envDefault:"hourly"`
	TopN               int      `env:"STATSDASH_TOP_N" envDefault:"10"`
	TrackedEvents      []string `env:"STATSDASH_TRACKED_EVENTS" envSeparator:"," envDefault:"quick_sync,account_created"`
	LocalDayBoundaries bool     `env:"STATSDASH_LOCAL_DAY_BOUNDARIES" envDefault:"false"`

	// Backend client configuration
	FetchTimeout time.Duration `env:"STATSDASH_FETCH_TIMEOUT" envDefault:"8s"` // Per attempt
	FetchRetries uint64        `env:"STATSDASH_FETCH_RETRIES" envDefault:"2"`
	FetchBackoff time.Duration `env:"STATSDASH_FETCH_BACKOFF" envDefault:"500ms"` // First retry delay, doubled per retry
	FetchRPS     float64       `env:"STATSDASH_FETCH_RPS" envDefault:"2"`
	FetchBurst   int           `env:"STATSDASH_FETCH_BURST" envDefault:"4"`

	// Cache configuration
	RedisURL     string `env:"STATSDASH_REDIS_URL"`                            // Optional Redis URL for a shared payload cache
	CachePrefix  string `env:"STATSDASH_CACHE_PREFIX" envDefault:"statsdash:"` // Redis key prefix
	CacheTTL     int    `env:"STATSDASH_CACHE_TTL" envDefault:"60"`            // Payload cache TTL in seconds
	CacheMaxSize int    `env:"STATSDASH_CACHE_MAX_SIZE" envDefault:"256"`      // Max memory cache entries

	// Scheduler configuration
	RefreshSchedule string        `env:"STATSDASH_REFRESH_SCHEDULE" envDefault:"*/5 * * * *"` // Empty disables periodic refresh
	KeepSnapshots   int           `env:"STATSDASH_KEEP_SNAPSHOTS" envDefault:"100"`
	EventRetention  time.Duration `env:"STATSDASH_EVENT_RETENTION" envDefault:"720h"`

	// GeoIP configuration
	GeoIPDBPath string `env:"STATSDASH_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file

	// Persistence configuration
	DBPath string `env:"STATSDASH_DB_PATH" envDefault:"./data/statsdash.db"` // Empty disables snapshots and the event log

	// HTTP configuration
	CSRFTrustedOrigins []string      `env:"STATSDASH_CSRF_TRUSTED_ORIGINS" envSeparator:","`
	APIRateLimit       float64       `env:"STATSDASH_API_RATE_LIMIT" envDefault:"5"` // Requests per second per client
	APIRateBurst       int           `env:"STATSDASH_API_RATE_BURST" envDefault:"20"`
	RequestTimeout     time.Duration `env:"STATSDASH_REQUEST_TIMEOUT" envDefault:"30s"`

	loc         *time.Location
	locale      language.Tag
	granularity stats.Granularity
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

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// PersistenceEnabled returns true if snapshots and events are stored.
func (c Config) PersistenceEnabled() bool {
	return c.DBPath != ""
}

// Location returns the display time zone.
func (c Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// LocaleTag returns the parsed Locale.
func (c Config) LocaleTag() language.Tag {
	if c.locale == language.Und {
		return language.English
	}
	return c.locale
}

// DefaultGranularity returns the parsed Granularity.
func (c Config) DefaultGranularity() stats.Granularity {
	return c.granularity
}

// Events returns the tracked event names. Nil means all events.
func (c Config) Events() []string {
	var out []string
	for _, e := range c.TrackedEvents {
		e = strings.TrimSpace(e)
		if e == AllEvents {
			return nil
		}
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// FetchBudget is the longest a single load can take: every attempt timing
// out plus the exponential waits between them.
func (c Config) FetchBudget() time.Duration {
	budget := c.FetchTimeout * time.Duration(c.FetchRetries+1)
	wait := c.FetchBackoff
	for range min(c.FetchRetries, 32) {
		budget += wait
		wait *= 2
	}
	return budget
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("STATSDASH_BACKEND_URL must be an http or https URL, got %q", c.BackendURL)
	}

	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		c.loc = time.Local
	} else if c.loc, err = time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("STATSDASH_TIMEZONE: %w", err)
	}

	if c.locale, err = language.Parse(c.Locale); err != nil {
		return fmt.Errorf("STATSDASH_LOCALE: %w", err)
	}

	if c.granularity, err = stats.ParseGranularity(c.Granularity); err != nil {
		return fmt.Errorf("STATSDASH_GRANULARITY: %w", err)
	}

	if c.TopN <= 0 {
		return fmt.Errorf("STATSDASH_TOP_N must be positive, got %d", c.TopN)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("STATSDASH_SERVER_PORT out of range: %d", c.ServerPort)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("STATSDASH_FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	if c.FetchBackoff <= 0 {
		return fmt.Errorf("STATSDASH_FETCH_BACKOFF must be positive, got %s", c.FetchBackoff)
	}
	if c.RequestTimeout > 0 && c.FetchBudget() >= c.RequestTimeout {
		return fmt.Errorf("fetch budget %s (STATSDASH_FETCH_TIMEOUT, STATSDASH_FETCH_RETRIES, STATSDASH_FETCH_BACKOFF) must be below STATSDASH_REQUEST_TIMEOUT %s",
			c.FetchBudget(), c.RequestTimeout)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("STATSDASH_CACHE_TTL must not be negative, got %d", c.CacheTTL)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("STATSDASH_LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}

	if c.RefreshSchedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.RefreshSchedule); err != nil {
			return fmt.Errorf("STATSDASH_REFRESH_SCHEDULE: %w", err)
		}
	}

	return nil
}
