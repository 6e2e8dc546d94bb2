package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "last", cfg.Grouping.NamePolicy)
	assert.Equal(t, []string{"3-163"}, cfg.Grouping.ColumnListedKeyPrefixes)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "trade" }, `unknown mode "trade"`},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, "unknown log_level"},
		{"unknown name policy", func(c *Config) { c.Grouping.NamePolicy = "middle" }, "unknown name_policy"},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }, "redis: addr"},
		{"bad server port", func(c *Config) { c.Server.Port = 70000 }, "server: port"},
		{"betbuilder without url", func(c *Config) { c.BetBuilder.Enabled = true }, "betbuilder: base_url"},
		{"betbuilder zero idle ttl", func(c *Config) {
			c.BetBuilder.Enabled = true
			c.BetBuilder.BaseURL = "https://sportsbook.test"
			c.BetBuilder.SessionIdleTTL.Duration = 0
		}, "session_idle_ttl"},
		{"postgres pool bounds", func(c *Config) {
			c.Postgres.Enabled = true
			c.Postgres.PoolMinConns = 10
		}, "pool_min_conns"},
		{"empty prefix", func(c *Config) { c.Grouping.ColumnListedKeyPrefixes = []string{" "} }, "column_listed_key_prefixes"},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics: path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "nope"
	cfg.Redis.Addr = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "redis: addr")
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "worker"

[grouping]
operator = "acme"
ungrouped_market_type_ids = ["17", "42"]
name_policy = "first"

[ordering.ranks]
"home" = 5

[betbuilder]
enabled = true
base_url = "https://bb.example"
timeout = "750ms"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "worker", cfg.Mode)
	assert.Equal(t, "acme", cfg.Grouping.Operator)
	assert.Equal(t, []string{"17", "42"}, cfg.Grouping.UngroupedMarketTypeIDs)
	assert.Equal(t, "first", cfg.Grouping.NamePolicy)
	assert.Equal(t, map[string]int{"home": 5}, cfg.Ordering.Ranks)
	assert.Equal(t, 750*time.Millisecond, cfg.BetBuilder.Timeout.Duration)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr, "untouched sections keep defaults")
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, `
[grouping]
operater = "typo"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grouping.operater")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MARKETGROUP_MODE", "serve")
	t.Setenv("MARKETGROUP_REDIS_ADDR", "redis:6380")
	t.Setenv("MARKETGROUP_SERVER_PORT", "9090")
	t.Setenv("MARKETGROUP_GROUPING_UNGROUPED_MARKET_TYPE_IDS", " 7, ,8 ")
	t.Setenv("MARKETGROUP_BETBUILDER_TIMEOUT", "2s")
	t.Setenv("MARKETGROUP_POSTGRES_ENABLED", "true")
	t.Setenv("MARKETGROUP_SERVER_RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg, err := Load(writeConfig(t, `mode = "full"`))
	require.NoError(t, err)

	assert.Equal(t, "serve", cfg.Mode, "env wins over file")
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"7", "8"}, cfg.Grouping.UngroupedMarketTypeIDs)
	assert.Equal(t, 2*time.Second, cfg.BetBuilder.Timeout.Duration)
	assert.True(t, cfg.Postgres.Enabled)
	assert.Equal(t, 600, cfg.Server.RateLimitPerMinute, "unparsable values are ignored")
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server.Port, cfg.Server.Port)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Password = "redis-pw"
	cfg.Postgres.DSN = "postgres://u:p@h/db"
	cfg.BetBuilder.APIKey = "bb-key"
	cfg.Server.APIKey = "api-key"
	cfg.Ordering.Ranks["x"] = 1

	out := RedactedConfig(&cfg)

	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.Postgres.DSN)
	assert.Equal(t, "***", out.BetBuilder.APIKey)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Empty(t, out.Postgres.Password, "empty secrets stay empty")

	out.Server.CORSOrigins[0] = "mutated"
	out.Ordering.Ranks["x"] = 99
	assert.Equal(t, "http://localhost:3000", cfg.Server.CORSOrigins[0])
	assert.Equal(t, 1, cfg.Ordering.Ranks["x"])
	assert.Equal(t, "redis-pw", cfg.Redis.Password)
}
