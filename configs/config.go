// Package config loads the engine's startup configuration from YAML
// (spec §6): the store backend selection, its connection parameters,
// and the optional fingerprint-extraction duration limit.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mdobak/go-xerrors"
)

// ConfigError wraps a missing or unparseable configuration file.
// Fatal at startup (spec §7).
type ConfigError struct {
	Path string
	err  error
}

func newConfigError(path string, cause error) *ConfigError {
	return &ConfigError{Path: path, err: xerrors.New(cause)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.err)
}

func (e *ConfigError) Unwrap() error {
	return e.err
}

// DatabaseConfig is the nested `database` map passed through to the
// selected store backend.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// Config is the engine's full startup configuration.
type Config struct {
	// DatabaseType selects the store backend: "mysql" or "postgresql".
	DatabaseType string         `yaml:"database_type"`
	Database     DatabaseConfig `yaml:"database"`

	// FingerprintLimit is the optional duration limit, in seconds,
	// applied by the decoder. -1 or absent means "no limit".
	FingerprintLimit int `yaml:"fingerprint_limit"`

	// Extensions lists the file suffixes IngestDirectory matches.
	Extensions []string `yaml:"extensions"`

	// WorkerCount bounds the ingest worker pool size; 0, or a value
	// above the CPU count, is replaced by the CPU count at call time.
	WorkerCount int `yaml:"worker_count"`
}

// Load reads and parses a YAML configuration file at path. A missing
// file or invalid YAML is a *ConfigError.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, newConfigError(path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, newConfigError(path, err)
	}

	if cfg.DatabaseType != "mysql" && cfg.DatabaseType != "postgresql" {
		return nil, newConfigError(path, fmt.Errorf("unsupported database_type %q", cfg.DatabaseType))
	}
	if cfg.FingerprintLimit == 0 {
		cfg.FingerprintLimit = -1
	}

	return &cfg, nil
}
