package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Empty(t, cfg.EnabledPlugins)
	require.Equal(t, ".animachat/cache", cfg.CacheDir)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
enabledPlugins:
  - notes
  - inject
pluginConfig:
  notes:
    state_scope: epic
cacheDir: /var/lib/animachat
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"notes", "inject"}, cfg.EnabledPlugins)
	require.Equal(t, "epic", cfg.ForPlugin("notes").StateScopeOrDefault())
	require.Equal(t, "channel", cfg.ForPlugin("inject").StateScopeOrDefault())
	require.Equal(t, "/var/lib/animachat", cfg.CacheDir)
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.EnabledPlugins = []string{"notes"}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.EnabledPlugins, loaded.EnabledPlugins)
}
