package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"DUCKDB_PATH", "DUCKDB_THREADS", "DUCKDB_MEMORY_LIMIT", "DATASETS_FILE", "MOCK_DATA_DIR",
	"MOCK_SEED", "MOCK_ROWS", "MOCK_REFRESH_CRON", "META_DB_PATH", "LISTEN_ADDR", "LOG_LEVEL",
	"ENV", "QUERY_TIMEOUT", "SHUTDOWN_TIMEOUT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"CORS_ALLOWED_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.DuckDBPath)
	assert.Equal(t, 0, cfg.DuckDBThreads)
	assert.Equal(t, "data/mock", cfg.MockDataDir)
	assert.Equal(t, uint64(42), cfg.MockSeed)
	assert.Equal(t, 500, cfg.MockRows)
	assert.Equal(t, "tables_meta.sqlite", cfg.MetaDBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.InDelta(t, 100, cfg.RateLimitRPS, 0)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.UsesMockData())
	assert.Contains(t, cfg.Warnings, "DUCKDB_PATH not set, using an in-memory database")
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("DUCKDB_PATH", "/data/tables.duckdb")
	t.Setenv("DUCKDB_THREADS", "4")
	t.Setenv("DUCKDB_MEMORY_LIMIT", "2GB")
	t.Setenv("DATASETS_FILE", "/etc/tables/datasets.yaml")
	t.Setenv("MOCK_SEED", "7")
	t.Setenv("META_DB_PATH", "/tmp/meta.sqlite")
	t.Setenv("QUERY_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/data/tables.duckdb", cfg.DuckDBPath)
	assert.Equal(t, 4, cfg.DuckDBThreads)
	assert.Equal(t, "2GB", cfg.DuckDBMemoryLimit)
	assert.False(t, cfg.UsesMockData())
	assert.Equal(t, uint64(7), cfg.MockSeed)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 0)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_MalformedValuesWarn(t *testing.T) {
	clearEnv(t)
	t.Setenv("DUCKDB_PATH", "x.duckdb")
	t.Setenv("QUERY_TIMEOUT", "soon")
	t.Setenv("MOCK_SEED", "-1")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, uint64(42), cfg.MockSeed)
	assert.Len(t, cfg.Warnings, 2)
}

func TestLoadFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"negative_threads", map[string]string{"DUCKDB_THREADS": "-2"}},
		{"zero_rows", map[string]string{"MOCK_ROWS": "0"}},
		{"zero_burst", map[string]string{"RATE_LIMIT_BURST": "0"}},
		{"production_wildcard_cors", map[string]string{"ENV": "production"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadFromEnv_ProductionWithOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "Production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://tables.example")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadFromEnv_RefreshIgnoredWithManifest(t *testing.T) {
	clearEnv(t)
	t.Setenv("DUCKDB_PATH", "x.duckdb")
	t.Setenv("DATASETS_FILE", "datasets.yaml")
	t.Setenv("MOCK_REFRESH_CRON", "@hourly")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"MOCK_REFRESH_CRON is ignored because DATASETS_FILE is set"}, cfg.Warnings)
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	assert.NoError(t, LoadDotEnv("/nonexistent/.env"))
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("TABLES_TEST_PRECEDENCE", "from_env")
	for _, k := range []string{"TABLES_TEST_PLAIN", "TABLES_TEST_QUOTED", "TABLES_TEST_EXPORT"} {
		t.Cleanup(func() { _ = os.Unsetenv(k) })
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`# comment

TABLES_TEST_PLAIN=plain
TABLES_TEST_QUOTED="with spaces"
export TABLES_TEST_EXPORT='single'
TABLES_TEST_PRECEDENCE=from_file
not a pair
`), 0o644))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "plain", os.Getenv("TABLES_TEST_PLAIN"))
	assert.Equal(t, "with spaces", os.Getenv("TABLES_TEST_QUOTED"))
	assert.Equal(t, "single", os.Getenv("TABLES_TEST_EXPORT"))
	assert.Equal(t, "from_env", os.Getenv("TABLES_TEST_PRECEDENCE"))
}
