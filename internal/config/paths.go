package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "TABLEKIT_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "tablekit.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "tablekit"
)

// FindConfigPath searches for config file in priority order:
// 1. $TABLEKIT_CONFIG (explicit path)
// 2. ./tablekit.yaml (working directory)
// 3. $XDG_CONFIG_HOME/tablekit/config.yaml
// 4. ~/.config/tablekit/config.yaml
// 5. /etc/tablekit/config.yaml
//
// Returns empty string if no config file found
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if fileExists(path) {
			return path
		}
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		path := filepath.Join(xdgHome, ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	if home := os.Getenv("HOME"); home != "" {
		path := filepath.Join(home, ".config", ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	systemPath := filepath.Join("/etc", ConfigDirName, "config.yaml")
	if fileExists(systemPath) {
		return systemPath
	}

	return ""
}

// DefaultConfigPath returns the preferred location for a new config file
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// WriteDefault saves DefaultConfig to path, or to DefaultConfigPath when
// path is empty, and returns where it wrote. An existing file is left alone.
func WriteDefault(path string) (string, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	if fileExists(path) {
		return path, fmt.Errorf("config already exists at %s", path)
	}
	if err := DefaultConfig().Save(path); err != nil {
		return path, err
	}
	return path, nil
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0755)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
