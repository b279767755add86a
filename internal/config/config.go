package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Discord configuration
	Token   string `env:"DISCORD_TOKEN"`
	AppID   string `env:"APP_ID"`
	GuildID string `env:"GUILD_ID"`

	// Storage
	DataDir     string `env:"DATA_DIR"`
	StorageType string `env:"STORAGE_TYPE" envDefault:"memory"` // "memory" or "sqlite"

	// Optional match archive indexing
	ElasticsearchURL         string `env:"ELASTICSEARCH_URL"`
	ElasticsearchUsername    string `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword    string `env:"ELASTICSEARCH_PASSWORD"`
	ElasticsearchIndexPrefix string `env:"ELASTICSEARCH_INDEX_PREFIX" envDefault:"rpsarena"`
	ElasticsearchRetention   int    `env:"ELASTICSEARCH_RETENTION_MONTHS" envDefault:"12"` // 0 keeps every index

	// Arena rules
	StartingTokens     int64         `env:"STARTING_TOKENS" envDefault:"100"`
	StakeTiers         []int64       `env:"STAKE_TIERS" envDefault:"50,100,200,500" envSeparator:","`
	TournamentEntryFee int64         `env:"TOURNAMENT_ENTRY_FEE" envDefault:"100"`
	MoveTimeout        time.Duration `env:"MOVE_TIMEOUT" envDefault:"10m"`
	SweepInterval      time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development" or "production"
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Only return error if file exists but couldn't be loaded
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	if cfg.StorageType == "sqlite" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// Parse builds a Config from the current environment without touching .env
// or the filesystem.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DataDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.DataDir = filepath.Join(wd, "data")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks if all required configuration is present
func (c *Config) validate() error {
	if c.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.AppID == "" {
		return fmt.Errorf("APP_ID is required")
	}
	if c.StorageType != "memory" && c.StorageType != "sqlite" {
		return fmt.Errorf("STORAGE_TYPE must be memory or sqlite, got %q", c.StorageType)
	}
	if len(c.StakeTiers) == 0 {
		return fmt.Errorf("STAKE_TIERS must list at least one stake")
	}
	for _, stake := range c.StakeTiers {
		if stake <= 0 {
			return fmt.Errorf("STAKE_TIERS must be positive, got %d", stake)
		}
	}
	if c.TournamentEntryFee <= 0 {
		return fmt.Errorf("TOURNAMENT_ENTRY_FEE must be positive")
	}
	if c.ElasticsearchRetention < 0 {
		return fmt.Errorf("ELASTICSEARCH_RETENTION_MONTHS cannot be negative")
	}
	if c.MoveTimeout <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("MOVE_TIMEOUT and SWEEP_INTERVAL must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// SearchEnabled reports whether match results are indexed into Elasticsearch
func (c *Config) SearchEnabled() bool {
	return c.ElasticsearchURL != ""
}

// SQLitePath returns the database file used when StorageType is sqlite
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "rpsarena.db")
}
