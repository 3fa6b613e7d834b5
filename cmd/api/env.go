package main

import (
	"pocket-calc/internal/config"
)

// loadConfig reads .env when present and then the process environment.
// Existing process environment variables win over .env entries.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	return config.Load()
}
