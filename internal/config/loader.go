package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETGROUP_* environment variable overrides, and
// returns the final Config. A missing file is not an error when path is
// empty. The returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	// Load .env file if present.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETGROUP_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MARKETGROUP_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETGROUP_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETGROUP_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETGROUP_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETGROUP_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETGROUP_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.SnapshotTTL, "MARKETGROUP_REDIS_SNAPSHOT_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "MARKETGROUP_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MARKETGROUP_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "MARKETGROUP_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MARKETGROUP_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MARKETGROUP_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MARKETGROUP_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MARKETGROUP_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MARKETGROUP_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MARKETGROUP_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MARKETGROUP_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MARKETGROUP_POSTGRES_RUN_MIGRATIONS")

	// ── Grouping ──
	setStr(&cfg.Grouping.Operator, "MARKETGROUP_GROUPING_OPERATOR")
	setStringSlice(&cfg.Grouping.UngroupedMarketTypeIDs, "MARKETGROUP_GROUPING_UNGROUPED_MARKET_TYPE_IDS")
	setStr(&cfg.Grouping.NamePolicy, "MARKETGROUP_GROUPING_NAME_POLICY")
	setStringSlice(&cfg.Grouping.ColumnListedKeyPrefixes, "MARKETGROUP_GROUPING_COLUMN_LISTED_KEY_PREFIXES")
	setDuration(&cfg.Grouping.SettingsTTL, "MARKETGROUP_GROUPING_SETTINGS_TTL")
	setDuration(&cfg.Grouping.RecomputeLockTTL, "MARKETGROUP_GROUPING_RECOMPUTE_LOCK_TTL")

	// ── Bet builder ──
	setBool(&cfg.BetBuilder.Enabled, "MARKETGROUP_BETBUILDER_ENABLED")
	setStr(&cfg.BetBuilder.BaseURL, "MARKETGROUP_BETBUILDER_BASE_URL")
	setStr(&cfg.BetBuilder.APIKey, "MARKETGROUP_BETBUILDER_API_KEY")
	setDuration(&cfg.BetBuilder.Timeout, "MARKETGROUP_BETBUILDER_TIMEOUT")
	setDuration(&cfg.BetBuilder.SessionIdleTTL, "MARKETGROUP_BETBUILDER_SESSION_IDLE_TTL")
	setDuration(&cfg.BetBuilder.SweepInterval, "MARKETGROUP_BETBUILDER_SWEEP_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MARKETGROUP_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MARKETGROUP_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETGROUP_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MARKETGROUP_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "MARKETGROUP_SERVER_RATE_LIMIT_PER_MINUTE")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "MARKETGROUP_METRICS_ENABLED")
	setStr(&cfg.Metrics.Namespace, "MARKETGROUP_METRICS_NAMESPACE")
	setStr(&cfg.Metrics.Path, "MARKETGROUP_METRICS_PATH")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETGROUP_MODE")
	setStr(&cfg.LogLevel, "MARKETGROUP_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
