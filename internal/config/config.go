// Package config loads the server configuration from the environment,
// reading a .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the server configuration.
type Config struct {
	Port int

	// DBDriver selects the store: sqlite (DBPath) or postgres (DatabaseURL).
	DBDriver    string
	DBPath      string
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	LogLevel  string
	LogFormat string

	RequestTimeout time.Duration
	HubBuffer      int

	// ReminderSchedule is a cron spec for debt reminders; empty disables them.
	ReminderSchedule string

	// AllowedOrigins lists CORS and websocket origins. "*" allows any.
	AllowedOrigins []string
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (*Config, error) {
	var err error
	cfg := &Config{
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBPath:           getEnv("DB_PATH", "./data/settlewise.db"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "text")),
		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 9 * * *"),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.HubBuffer, err = getInt("HUB_BUFFER", 16); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
