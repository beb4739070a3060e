// Package config loads server settings from environment variables.
// Settings are read once at startup and treated as immutable.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port            int
	ShutdownTimeout time.Duration

	// Database
	DBDriver    string // "sqlite" or "postgres"
	DBPath      string // sqlite file path
	DatabaseURL string // postgres:// URL

	// Session tokens
	JWTSecret string
	JWTTTL    time.Duration

	// Passwords
	BcryptCost int

	// Google OAuth. Empty ClientID disables the OAuth routes.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string // used by the server-side login redirect flow

	// Rate limit for /auth/* per client IP
	AuthRatePerMin int

	// Logging
	LogFormat string // "text" or "json"
	LogLevel  string // debug, info, warn, error
}

// Load reads Config from the environment. Every missing or unparsable
// required value is reported in one error.
func Load() (*Config, error) {
	cfg := &Config{}
	var problems []string

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}

	cfg.DBDriver = getEnvString("DB_DRIVER", "sqlite")
	switch cfg.DBDriver {
	case "sqlite":
		cfg.DBPath = getEnvString("DB_PATH", "data/momo.db")
	case "postgres":
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER must be sqlite or postgres, got %q", cfg.DBDriver))
	}

	var err error
	if cfg.Port, err = getEnvInt("PORT", 8080); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.BcryptCost, err = getEnvInt("BCRYPT_COST", 12); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.AuthRatePerMin, err = getEnvInt("AUTH_RATE_PER_MIN", 30); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.JWTTTL, err = getEnvDuration("JWT_TTL", 7*24*time.Hour); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		problems = append(problems, err.Error())
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret == "" {
		problems = append(problems, "GOOGLE_CLIENT_SECRET is required when GOOGLE_CLIENT_ID is set")
	}
	cfg.GoogleRedirectURL = getEnvString("GOOGLE_REDIRECT_URL",
		fmt.Sprintf("http://localhost:%d/auth/oauth/google/callback", cfg.Port))

	cfg.LogFormat = strings.ToLower(getEnvString("LOG_FORMAT", "text"))
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))

	if len(problems) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// GoogleEnabled reports whether the OAuth routes should be registered.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

// DSN is the data source for DBDriver: the sqlite file path or the
// postgres URL.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DBPath
}

// NewLogger builds the process logger described by LogFormat and LogLevel.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return i, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}
