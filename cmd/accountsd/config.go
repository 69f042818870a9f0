package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration, loaded from the environment.
type Config struct {
	Addr  string `env:"ACCOUNTS_ADDR" envDefault:":8080"`
	DSN   string `env:"ACCOUNTS_DSN" envDefault:"file::memory:?cache=shared"`
	Debug bool   `env:"ACCOUNTS_DEBUG" envDefault:"false"`

	StorageEnabled   bool   `env:"ACCOUNTS_STORAGE_ENABLED" envDefault:"false"`
	StorageBucket    string `env:"ACCOUNTS_STORAGE_BUCKET"`
	StorageRegion    string `env:"ACCOUNTS_STORAGE_REGION" envDefault:"us-east-1"`
	StorageAccessKey string `env:"ACCOUNTS_STORAGE_ACCESS_KEY"`
	StorageSecretKey string `env:"ACCOUNTS_STORAGE_SECRET_KEY"`
	StorageMaxSize   int64  `env:"ACCOUNTS_STORAGE_MAX_SIZE" envDefault:"10485760"`
}

// LoadConfig parses the environment into a Config.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.StorageEnabled && cfg.StorageBucket == "" {
		return Config{}, fmt.Errorf("storage enabled but ACCOUNTS_STORAGE_BUCKET is empty")
	}

	return cfg, nil
}
