// Package config handles loading and managing inboxd configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// BackendConfig holds the remote message backend settings.
type BackendConfig struct {
	BaseURL  string `toml:"base_url"` // Backend API base URL
	Token    string `toml:"token"`    // Bearer token for authentication
	PageSize int    `toml:"page_size"`
}

// DataConfig holds data storage configuration.
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	APIPort int    `toml:"api_port"` // HTTP server port (default: 8080)
	APIKey  string `toml:"api_key"`  // API authentication key
}

// RefreshConfig holds background reconciliation settings.
type RefreshConfig struct {
	Schedule    string `toml:"schedule"` // Cron expression (e.g., "*/5 * * * *")
	Enabled     bool   `toml:"enabled"`
	Concurrency int    `toml:"concurrency"` // Per-item fetch fan-out
}

type Config struct {
	Backend BackendConfig `toml:"backend"`
	Data    DataConfig    `toml:"data"`
	Server  ServerConfig  `toml:"server"`
	Refresh RefreshConfig `toml:"refresh"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DefaultHome returns the default inboxd home directory.
// Respects INBOXD_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("INBOXD_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".inboxd"
	}
	return filepath.Join(home, ".inboxd")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.inboxd/config.toml).
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		// Defaults
		Backend: BackendConfig{
			PageSize: 100,
		},
		Data: DataConfig{
			DataDir: homeDir,
		},
		Server: ServerConfig{
			APIPort: 8080,
		},
		Refresh: RefreshConfig{
			Schedule:    "*/5 * * * *",
			Concurrency: 8,
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Expand ~ in paths
	cfg.Data.DataDir = expandPath(cfg.Data.DataDir)

	return cfg, nil
}

// DatabasePath returns the path to the SQLite status database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.DataDir, "inboxd.db")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
