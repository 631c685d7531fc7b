package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500000, cfg.Store.MemoPrefixMax)
	assert.Greater(t, cfg.Dispatch.Workers, 0)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yamlContent := []byte("store:\n  data_dir: /tmp/custom-store\ndispatch:\n  workers: 3\nlogging:\n  level: debug\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".geocache.yaml"), yamlContent, 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-store", cfg.Store.DataDir)
	assert.Equal(t, 3, cfg.Dispatch.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadNoFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Dispatch.Workers, cfg.Dispatch.Workers)
}

func TestEnvOverridesTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GEOCACHE_WORKERS", "7")
	t.Setenv("GEOCACHE_LOG_LEVEL", "warn")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Dispatch.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := NewConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveWorkers(t *testing.T) {
	cfg := NewConfig()
	cfg.Dispatch.Workers = 0
	assert.Error(t, cfg.Validate())
}
