// Package config defines the top-level configuration for the market-grouping
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MARKETGROUP_* environment variables.
type Config struct {
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Grouping   GroupingConfig   `toml:"grouping"`
	Ordering   OrderingConfig   `toml:"ordering"`
	BetBuilder BetBuilderConfig `toml:"betbuilder"`
	Server     ServerConfig     `toml:"server"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// RedisConfig holds Redis connection parameters. Redis backs the snapshot
// cache, the signal bus and the rate limiter, so it is always required.
type RedisConfig struct {
	Addr        string   `toml:"addr"`
	Password    string   `toml:"password"`
	DB          int      `toml:"db"`
	PoolSize    int      `toml:"pool_size"`
	MaxRetries  int      `toml:"max_retries"`
	TLSEnabled  bool     `toml:"tls_enabled"`
	SnapshotTTL duration `toml:"snapshot_ttl"`
}

// PostgresConfig holds connection parameters for the operator settings store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// GroupingConfig tunes the grouping engine.
type GroupingConfig struct {
	// Operator selects the operator_settings row.
	Operator string `toml:"operator"`
	// UngroupedMarketTypeIDs is used when Postgres is disabled or has no row
	// for Operator.
	UngroupedMarketTypeIDs  []string `toml:"ungrouped_market_type_ids"`
	NamePolicy              string   `toml:"name_policy"`
	ColumnListedKeyPrefixes []string `toml:"column_listed_key_prefixes"`
	SettingsTTL             duration `toml:"settings_ttl"`
	RecomputeLockTTL        duration `toml:"recompute_lock_ttl"`
}

// OrderingConfig overrides entries of the built-in outcome code rank table.
type OrderingConfig struct {
	Ranks map[string]int `toml:"ranks"`
}

// BetBuilderConfig holds the operator's bet-builder endpoint.
type BetBuilderConfig struct {
	Enabled        bool     `toml:"enabled"`
	BaseURL        string   `toml:"base_url"`
	APIKey         string   `toml:"api_key"`
	Timeout        duration `toml:"timeout"`
	SessionIdleTTL duration `toml:"session_idle_ttl"`
	SweepInterval  duration `toml:"sweep_interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled            bool     `toml:"enabled"`
	Port               int      `toml:"port"`
	CORSOrigins        []string `toml:"cors_origins"`
	APIKey             string   `toml:"api_key"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
	Path      string `toml:"path"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PoolSize:    20,
			MaxRetries:  3,
			SnapshotTTL: duration{10 * time.Minute},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "marketgroups",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Grouping: GroupingConfig{
			Operator:                "default",
			UngroupedMarketTypeIDs:  []string{},
			NamePolicy:              "last",
			ColumnListedKeyPrefixes: []string{"3-163"},
			SettingsTTL:             duration{30 * time.Second},
			RecomputeLockTTL:        duration{10 * time.Second},
		},
		Ordering: OrderingConfig{
			Ranks: map[string]int{},
		},
		BetBuilder: BetBuilderConfig{
			Enabled:        false,
			Timeout:        duration{5 * time.Second},
			SessionIdleTTL: duration{30 * time.Minute},
			SweepInterval:  duration{time.Minute},
		},
		Server: ServerConfig{
			Enabled:            true,
			Port:               8080,
			CORSOrigins:        []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMinute: 600,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "marketgroups",
			Path:      "/metrics",
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":  true,
	"worker": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, worker, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.SnapshotTTL.Duration <= 0 {
		errs = append(errs, "redis: snapshot_ttl must be > 0")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Grouping
	if c.Grouping.Operator == "" {
		errs = append(errs, "grouping: operator must not be empty")
	}
	if p := c.Grouping.NamePolicy; p != "last" && p != "first" {
		errs = append(errs, fmt.Sprintf("grouping: unknown name_policy %q (valid: last, first)", p))
	}
	for _, prefix := range c.Grouping.ColumnListedKeyPrefixes {
		if strings.TrimSpace(prefix) == "" {
			errs = append(errs, "grouping: column_listed_key_prefixes must not contain empty entries")
			break
		}
	}
	if c.Grouping.SettingsTTL.Duration < 0 {
		errs = append(errs, "grouping: settings_ttl must be >= 0")
	}
	if c.Grouping.RecomputeLockTTL.Duration <= 0 {
		errs = append(errs, "grouping: recompute_lock_ttl must be > 0")
	}

	// Bet builder
	if c.BetBuilder.Enabled {
		if c.BetBuilder.BaseURL == "" {
			errs = append(errs, "betbuilder: base_url is required when enabled")
		}
		if c.BetBuilder.Timeout.Duration <= 0 {
			errs = append(errs, "betbuilder: timeout must be > 0")
		}
		if c.BetBuilder.SessionIdleTTL.Duration <= 0 {
			errs = append(errs, "betbuilder: session_idle_ttl must be > 0")
		}
		if c.BetBuilder.SweepInterval.Duration <= 0 {
			errs = append(errs, "betbuilder: sweep_interval must be > 0")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitPerMinute < 0 {
			errs = append(errs, "server: rate_limit_per_minute must be >= 0")
		}
	}

	// Metrics
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Sprintf("metrics: path must start with /, got %q", c.Metrics.Path))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
