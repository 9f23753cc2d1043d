package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_type: postgresql
database:
  host: db.internal
  port: 5432
  user: u
  password: p
  database: eureka
fingerprint_limit: 30
extensions: [".wav", ".mp3"]
worker_count: 8
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgresql", cfg.DatabaseType)
	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, 30, cfg.FingerprintLimit)
	require.Equal(t, []string{".wav", ".mp3"}, cfg.Extensions)
	require.Equal(t, 8, cfg.WorkerCount)
}

func TestLoadMissingFingerprintLimitDefaultsToNoLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_type: mysql
database:
  host: localhost
  user: u
  password: p
  database: eureka
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, -1, cfg.FingerprintLimit)
}

func TestLoadRejectsUnknownDatabaseType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`database_type: sqlite`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFileIsConfigError(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
