// Package common provides shared utilities for KI7MT Space Lab tools.
package common

import (
	"fmt"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SPACELAB"

// Config holds common configuration for all tools. Command-line flags
// override these per run.
type Config struct {
	ClickHouseHost     string `envconfig:"CLICKHOUSE_HOST" default:"127.0.0.1:9000"`
	ClickHouseDatabase string `envconfig:"CLICKHOUSE_DATABASE" default:"omni"`
	ClickHouseUser     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	ClickHousePassword string `envconfig:"CLICKHOUSE_PASSWORD"`
	DataDir            string `envconfig:"DATA_DIR" default:"/var/lib/ki7mt-space-lab"`
	SQLitePath         string `envconfig:"SQLITE_PATH"`
	MetricsTextfile    string `envconfig:"METRICS_TEXTFILE"`
	Workers            int    `envconfig:"WORKERS" default:"4"`
}

// Load reads SPACELAB_* environment variables over the defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("load config from env: %s_WORKERS must be positive, got %d", EnvPrefix, cfg.Workers)
	}
	return &cfg, nil
}

// OMNIDataDir returns the OMNI data directory path.
func (c *Config) OMNIDataDir() string {
	return filepath.Join(c.DataDir, "omni")
}

// ProfileDataDir returns the density and field-line profile directory path.
func (c *Config) ProfileDataDir() string {
	return filepath.Join(c.DataDir, "profiles")
}

// DatabasePath returns the SQLite archive path.
func (c *Config) DatabasePath() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(c.DataDir, "space-lab.db")
}
