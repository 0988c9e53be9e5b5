package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	ServerPort  string
	DBDriver    string
	DatabaseURL string
	SQLitePath  string

	Session struct {
		Secret string
		MaxAge int
		Secure bool
	}

	Log struct {
		Level  string
		Format string
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists (useful for local dev)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort: getenv("SERVER_PORT", "8080"),
		DBDriver:   strings.ToLower(getenv("DB_DRIVER", DriverPostgres)),
		SQLitePath: getenv("SQLITE_PATH", "customer_system.db"),
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set")
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.DBDriver)
	}

	cfg.Session.Secret = strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET must be set")
	}

	maxAge, err := strconv.Atoi(getenv("SESSION_MAX_AGE", "86400"))
	if err != nil || maxAge <= 0 {
		return nil, fmt.Errorf("SESSION_MAX_AGE must be a positive number of seconds")
	}
	cfg.Session.MaxAge = maxAge

	secure, err := strconv.ParseBool(getenv("SECURE_COOKIES", "false"))
	if err != nil {
		return nil, fmt.Errorf("SECURE_COOKIES must be a boolean: %w", err)
	}
	cfg.Session.Secure = secure

	cfg.Log.Level = getenv("LOG_LEVEL", "info")
	cfg.Log.Format = getenv("LOG_FORMAT", "json")

	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
