// Package config handles client configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Token store backends.
const (
	TokenStoreProfile = "profile"
	TokenStoreSQLite  = "sqlite"
	TokenStoreMemory  = "memory"
)

// DefaultAPIURL is the API base used when nothing else is configured.
const DefaultAPIURL = "http://localhost:8000/api/v1"

// Config holds the configuration for the portal client.
type Config struct {
	APIURL         string        // REST base URL including the /api/v1 prefix
	RequestTimeout time.Duration // per-request timeout (default 30s)
	MaxRetries     int           // retries for idempotent reads after a network failure (default 1)

	// Client-side rate limiting; 0 RPS disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	CacheTTL        time.Duration // age after which a catalog is refreshed in the background
	RefreshSchedule string        // cron spec used by watch mode (default "@every 30s")

	TokenStore  string // profile, sqlite or memory
	StateDBPath string // SQLite file for the sqlite token store
	Profile     string // profile name override (HUB_PROFILE)

	LogLevel string // log level: debug, info, warn, error (default "info")
	Env      string // environment: "development" (default) or "production"

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
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

// IsProduction returns true when the client is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		APIURL:          strings.TrimRight(os.Getenv("HUB_API_URL"), "/"),
		TokenStore:      strings.ToLower(os.Getenv("HUB_TOKEN_STORE")),
		StateDBPath:     os.Getenv("HUB_STATE_DB"),
		Profile:         os.Getenv("HUB_PROFILE"),
		RefreshSchedule: os.Getenv("HUB_REFRESH_SCHEDULE"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		Env:             os.Getenv("ENV"),
		MaxRetries:      -1,
	}

	var err error
	if cfg.RequestTimeout, err = parseDurationEnv("HUB_REQUEST_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = parseDurationEnv("HUB_CACHE_TTL"); err != nil {
		return nil, err
	}
	if v := os.Getenv("HUB_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("HUB_MAX_RETRIES must be a non-negative integer, got %q", v)
		}
		cfg.MaxRetries = n
	}

	// Rate limiting
	if v := os.Getenv("HUB_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("HUB_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// Defaults
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 1
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 10
	}
	if cfg.RefreshSchedule == "" {
		cfg.RefreshSchedule = "@every 30s"
	}
	if cfg.TokenStore == "" {
		cfg.TokenStore = TokenStoreProfile
	}
	if cfg.StateDBPath == "" {
		cfg.StateDBPath = defaultStateDBPath()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("HUB_API_URL must be an absolute http(s) URL, got %q", c.APIURL)
	}
	switch c.TokenStore {
	case TokenStoreProfile, TokenStoreSQLite, TokenStoreMemory:
	default:
		return fmt.Errorf("HUB_TOKEN_STORE must be one of profile, sqlite, memory, got %q", c.TokenStore)
	}
	if u.Scheme == "http" && !isLoopback(u.Hostname()) {
		if c.IsProduction() {
			return fmt.Errorf("HUB_API_URL must use https in production (ENV=production)")
		}
		c.Warnings = append(c.Warnings, "HUB_API_URL is plain http: bearer tokens are sent unencrypted")
	}
	if c.TokenStore == TokenStoreMemory {
		c.Warnings = append(c.Warnings, "HUB_TOKEN_STORE=memory: the session will not survive a restart")
	}
	return nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func parseDurationEnv(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func defaultStateDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "hub_state.sqlite"
	}
	return filepath.Join(home, ".hub", "state.sqlite")
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
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
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
