package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "US", cfg.Region)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "contactscan.db", cfg.Store.Path)
	assert.Equal(t, 1000, cfg.Scan.BatchSize)
	assert.InDelta(t, 0.82, cfg.Dedupe.SimilarityThreshold, 1e-9)
	assert.Equal(t, 7, cfg.Backup.MaxAgeDays)
	assert.Equal(t, 50, cfg.Backup.MaxCount)
	assert.InDelta(t, 200, cfg.Cleanup.MutationsPerSecond, 1e-9)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONTACTSCAN_REGION", "NG")
	t.Setenv("CONTACTSCAN_STORE_DRIVER", "postgres")
	t.Setenv("CONTACTSCAN_STORE_DATABASE_URL", "postgres://localhost/contacts")
	t.Setenv("CONTACTSCAN_STORE_POOL_MAX_CONNS", "8")
	t.Setenv("CONTACTSCAN_SCAN_BATCH_SIZE", "250")
	t.Setenv("CONTACTSCAN_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "NG", cfg.Region)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/contacts", cfg.Store.DatabaseURL)
	require.NotNil(t, cfg.Store.Pool)
	assert.Equal(t, int32(8), cfg.Store.Pool.MaxConns)
	assert.Equal(t, 250, cfg.Scan.BatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestBackupConfig_MaxAge(t *testing.T) {
	cfg := BackupConfig{MaxAgeDays: 7}
	assert.Equal(t, 7*24.0, cfg.MaxAge().Hours())
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, "US", cfg.Region)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 50, cfg.Backup.MaxCount)

	// Refuses to clobber an existing file.
	err = WriteDefault(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))

	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	require.Error(t, err)
}
