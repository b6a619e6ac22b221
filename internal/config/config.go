// Package config provides configuration management for tablekit.
//
// The config file selects the storage backend and sizes the connection
// pool. Table definitions are code, not configuration.
//
// Config file locations (priority order):
//  1. $TABLEKIT_CONFIG
//  2. ./tablekit.yaml
//  3. ~/.config/tablekit/config.yaml
//  4. /etc/tablekit/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"tablekit/internal/dberr"
)

const (
	defaultPath     = "./tablekit.db"
	defaultPoolSize = 4
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			Path:     defaultPath,
			PoolSize: defaultPoolSize,
		},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	c.Database.Driver = ParseDriver(string(c.Database.Driver))
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = defaultPath
	}
	if c.Database.PoolSize == 0 {
		c.Database.PoolSize = defaultPoolSize
	}
}

// Validate reports every setting the engine cannot start with
func (c *Config) Validate() error {
	var errs error
	db := c.Database
	if !db.Driver.Known() {
		errs = multierr.Append(errs, fmt.Errorf("unknown driver %q", db.Driver))
	}
	if db.Driver == DriverPostgres && db.DSN == "" {
		errs = multierr.Append(errs, errors.New("postgres driver needs database.dsn"))
	}
	if db.PoolSize < 0 {
		errs = multierr.Append(errs, fmt.Errorf("pool_size %d is negative", db.PoolSize))
	}
	if db.Timeout() < 0 {
		errs = multierr.Append(errs, fmt.Errorf("statement_timeout %s is negative", db.Timeout()))
	}
	if errs != nil {
		return &dberr.ConfigurationError{Subject: "config", Err: errs}
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	db := c.Database
	summary := fmt.Sprintf("Driver: %s, Pool: %d", db.Driver, db.PoolSize)
	if db.Driver == DriverSQLite {
		summary += fmt.Sprintf(", Path: %s", db.Path)
	}
	if t := db.Timeout(); t > 0 {
		summary += fmt.Sprintf(", Statement timeout: %s", t)
	}
	if c.Log.Debug {
		summary += ", Debug logging"
	}
	return summary
}
