package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds backend and pool settings
type DatabaseConfig struct {
	Driver           Driver    `yaml:"driver"`
	Path             string    `yaml:"path,omitempty"` // sqlite file
	DSN              string    `yaml:"dsn,omitempty"`  // postgres connection string
	PoolSize         int       `yaml:"pool_size"`
	StatementTimeout *Duration `yaml:"statement_timeout,omitempty"` // nil = no bound
}

// LogConfig holds logger settings
type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// Source returns the connection source for the configured driver
func (d DatabaseConfig) Source() string {
	if d.Driver == DriverPostgres {
		return d.DSN
	}
	return d.Path
}

// Timeout returns the statement timeout, zero when unbounded
func (d DatabaseConfig) Timeout() time.Duration {
	if d.StatementTimeout == nil {
		return 0
	}
	return d.StatementTimeout.Duration()
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
