package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rental-engine/config"
)

func TestLoad_MissingFile_UsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "rental.db", cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Inventory.LowStockThreshold)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
storage:
  driver: memory
logging:
  level: debug
inventory:
  low_stock_threshold: 5
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Inventory.LowStockThreshold)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	t.Setenv("RENTAL_PORT", "7070")
	t.Setenv("RENTAL_DB_DRIVER", "postgres")
	t.Setenv("RENTAL_DB_DSN", "postgres://localhost/rental")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/rental", cfg.Storage.DSN)
}

func TestLoad_BadDriver_Rejected(t *testing.T) {
	t.Setenv("RENTAL_DB_DRIVER", "oracle")

	_, err := config.Load("")
	assert.Error(t, err)
}

func TestLoad_BadPort_Rejected(t *testing.T) {
	t.Setenv("RENTAL_PORT", "99999")

	_, err := config.Load("")
	assert.Error(t, err)
}
