package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoadAppliesDefaults fills unspecified keys from defaults.
func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  api_id: 42
  api_hash: "hash"
database:
  host: "localhost"
  username: "u"
  password: "p"
  dbname: "d"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Telegram.APIID)
	assert.Equal(t, time.Minute, cfg.Telegram.SyncInterval())
	assert.Equal(t, 30*time.Minute, cfg.Telegram.FullSyncInterval())
	assert.Equal(t, 5*time.Second, cfg.Telegram.FloodPauseInterval())
	assert.Equal(t, "Core", cfg.Telegram.Folders.Core)
	assert.Equal(t, "Electives", cfg.Telegram.Folders.Electives)
	assert.Equal(t, "Other", cfg.Telegram.Folders.Other)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "utf8mb4", cfg.Database.Charset)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "INFO", cfg.Logger.Level)
}

// TestLoadOverridesDefaults prefers values from the file over defaults.
func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  sync_period: 120
  folders:
    core: "Mandatory"
server:
  listen_addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Telegram.SyncInterval())
	assert.Equal(t, "Mandatory", cfg.Telegram.Folders.Core)
	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
}

// TestLoadMissingFile fails loudly instead of running on defaults alone.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}
