package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stencil.json")
	content := `{
		"server": {"port": 9090},
		"store": {"ttl_minutes": 5},
		"logging": {"level": "debug"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Store.TTLMinutes)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unspecified values keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stencil.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))

	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stencil.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"store": {"ttl_minutes": -1}}`), 0o644))

	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttl_minutes")
}
