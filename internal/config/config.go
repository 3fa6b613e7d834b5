// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	HTTPAddr               string
	LogLevel               string
	ServiceName            string
	OTelEnabled            bool
	MCPEnabled             bool
	SessionTTL             time.Duration
	SessionCleanupInterval time.Duration
	ShutdownTimeout        time.Duration
}

// LoadDotEnv loads environment variables from .env when present.
// Existing process environment variables are not overridden.
func LoadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err == nil {
		return nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load .env: %w", err)
}

// Load builds a Config from the process environment, falling back to
// defaults for unset variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    lookup("HTTP_ADDR", ":8080"),
		LogLevel:    lookup("LOG_LEVEL", "info"),
		ServiceName: lookup("OTEL_SERVICE_NAME", "pocket-calc"),
	}

	var err error

	if cfg.OTelEnabled, err = cast.ToBoolE(lookup("OTEL_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("OTEL_ENABLED: %w", err)
	}
	if cfg.MCPEnabled, err = cast.ToBoolE(lookup("MCP_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("MCP_ENABLED: %w", err)
	}
	if cfg.SessionTTL, err = duration("SESSION_TTL", "20m"); err != nil {
		return nil, err
	}
	if cfg.SessionCleanupInterval, err = duration("SESSION_CLEANUP_INTERVAL", "1m"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = duration("SHUTDOWN_TIMEOUT", "5s"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func lookup(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func duration(key, fallback string) (time.Duration, error) {
	d, err := cast.ToDurationE(lookup(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, d)
	}
	return d, nil
}
