// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration of the table server.
type Config struct {
	DuckDBPath        string // DuckDB database file; empty means in-memory
	DuckDBThreads     int    // 0 keeps the DuckDB default
	DuckDBMemoryLimit string // e.g. "2GB"; empty keeps the DuckDB default

	DatasetsFile    string // YAML dataset manifest; empty serves generated mock data
	MockDataDir     string // where mock CSV files are written (default "data/mock")
	MockSeed        uint64 // seed of the first mock generation (default 42)
	MockRows        int    // rows per mock dataset (default 500)
	MockRefreshCron string // cron schedule for mock regeneration; empty disables it

	MetaDBPath string // SQLite preset metastore (default "tables_meta.sqlite")
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // debug, info, warn, error (default "info")
	Env        string // "development" (default) or "production"

	QueryTimeout    time.Duration // per-request engine deadline (default 30s)
	ShutdownTimeout time.Duration // graceful shutdown budget (default 15s)

	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	CORSAllowedOrigins []string // default ["*"]

	// Warnings collects non-fatal problems found while loading. They are
	// logged once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// UsesMockData reports whether datasets come from the mock generator.
func (c *Config) UsesMockData() bool {
	return c.DatasetsFile == ""
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DuckDBPath:        os.Getenv("DUCKDB_PATH"),
		DuckDBMemoryLimit: os.Getenv("DUCKDB_MEMORY_LIMIT"),
		DatasetsFile:      os.Getenv("DATASETS_FILE"),
		MockDataDir:       os.Getenv("MOCK_DATA_DIR"),
		MockRefreshCron:   strings.TrimSpace(os.Getenv("MOCK_REFRESH_CRON")),
		MetaDBPath:        os.Getenv("META_DB_PATH"),
		ListenAddr:        os.Getenv("LISTEN_ADDR"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		Env:               os.Getenv("ENV"),
	}

	cfg.DuckDBThreads = parseEnv(cfg, "DUCKDB_THREADS", 0, strconv.Atoi)
	cfg.MockSeed = parseEnv(cfg, "MOCK_SEED", 42, func(s string) (uint64, error) {
		return strconv.ParseUint(s, 10, 64)
	})
	cfg.MockRows = parseEnv(cfg, "MOCK_ROWS", 500, strconv.Atoi)
	cfg.QueryTimeout = parseEnv(cfg, "QUERY_TIMEOUT", 30*time.Second, time.ParseDuration)
	cfg.ShutdownTimeout = parseEnv(cfg, "SHUTDOWN_TIMEOUT", 15*time.Second, time.ParseDuration)
	cfg.RateLimitRPS = parseEnv(cfg, "RATE_LIMIT_RPS", 100, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
	cfg.RateLimitBurst = parseEnv(cfg, "RATE_LIMIT_BURST", 200, strconv.Atoi)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	// Defaults
	if cfg.MockDataDir == "" {
		cfg.MockDataDir = "data/mock"
	}
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "tables_meta.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if cfg.DuckDBThreads < 0 {
		return nil, fmt.Errorf("DUCKDB_THREADS must not be negative, got %d", cfg.DuckDBThreads)
	}
	if cfg.MockRows <= 0 {
		return nil, fmt.Errorf("MOCK_ROWS must be positive, got %d", cfg.MockRows)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if !cfg.UsesMockData() && cfg.MockRefreshCron != "" {
		cfg.Warnings = append(cfg.Warnings, "MOCK_REFRESH_CRON is ignored because DATASETS_FILE is set")
	}
	if cfg.DuckDBPath == "" {
		cfg.Warnings = append(cfg.Warnings, "DUCKDB_PATH not set, using an in-memory database")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

// parseEnv parses key with parse, falling back to def (with a warning) when
// the value is malformed.
func parseEnv[T any](cfg *Config, key string, def T, parse func(string) (T, error)) T {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid %s=%q, using default %v", key, v, def))
		return def
	}
	return out
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Environment variables win over the file.
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes one pair of matching surrounding quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
