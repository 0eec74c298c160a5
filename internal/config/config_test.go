package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	content := `
miner:
  base_url: "http://localhost:9000"
  authority: "MinerAuthority111"
  poll_interval: 2
ledger:
  path: "/tmp/reward.json"
database:
  dsn: "file:rounds.db"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.Miner.BaseURL)
	assert.Equal(t, "MinerAuthority111", cfg.Miner.Authority)
	assert.Equal(t, 2, cfg.Miner.PollInterval)
	assert.Equal(t, "/tmp/reward.json", cfg.Ledger.Path)
	assert.Equal(t, "file:rounds.db", cfg.Database.DSN)

	// Defaults
	assert.Equal(t, 5.0, cfg.Miner.RateLimit)
	assert.Equal(t, 1, cfg.Miner.RateLimitBurst)
	assert.True(t, cfg.Ledger.Report)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("ledger:\n  path: a.json\n"), 0o644))
	t.Setenv("LEDGER_PATH", "b.json")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "b.json", cfg.Ledger.Path)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
