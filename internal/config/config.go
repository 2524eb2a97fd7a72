// Package config loads the plugin runtime's configuration surface.
//
// The core (internal/pluginrt) never parses YAML itself — it
// consumes an already-parsed Config value. This package is the ambient
// layer that produces one.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the plugin runtime's top-level configuration surface.
type Config struct {
	// EnabledPlugins selects the subset of registered plugins to activate.
	EnabledPlugins []string `yaml:"enabledPlugins"`

	// PluginConfig holds per-plugin settings keyed by plugin short name.
	PluginConfig map[string]PluginConfig `yaml:"pluginConfig"`

	// CacheDir is the root of the on-disk state tree.
	CacheDir string `yaml:"cacheDir"`
}

// PluginConfig holds one plugin's settings.
type PluginConfig struct {
	// StateScope names the consistency model configured for a plugin; the
	// plugin sees it as PluginInterface.ConfiguredScope. GetState/SetState
	// still take an explicit scope. Defaults to "channel".
	StateScope string `yaml:"state_scope"`

	// Injections holds InjectionConfig entries for the "inject" plugin.
	Injections []InjectionConfig `yaml:"injections"`

	// Extra carries plugin-specific keys the core does not interpret.
	Extra map[string]any `yaml:",inline"`
}

// InjectionConfig mirrors the wire shape of a statically configured
// context injection.
type InjectionConfig struct {
	ID       string `yaml:"id"`
	Content  string `yaml:"content"`
	Depth    int    `yaml:"depth"`
	Anchor   string `yaml:"anchor"`
	Priority int    `yaml:"priority"`
}

// DefaultConfig returns a configuration with no plugins enabled.
func DefaultConfig() *Config {
	return &Config{
		EnabledPlugins: []string{},
		PluginConfig:   map[string]PluginConfig{},
		CacheDir:       ".animachat/cache",
	}
}

// Load reads and parses a YAML configuration file. A missing file is not
// an error — it yields DefaultConfig() instead.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.PluginConfig == nil {
		cfg.PluginConfig = map[string]PluginConfig{}
	}

	return cfg, nil
}

// Save writes the configuration back out as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// applyEnvOverrides lets the cache directory be pinned via the environment
// without editing the file on disk.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("ANIMACHAT_CACHE_DIR"); dir != "" {
		c.CacheDir = dir
	}
}

// ForPlugin returns the configuration for a plugin, or a zero-value
// PluginConfig (StateScope defaults to "channel" downstream) if none was
// configured.
func (c *Config) ForPlugin(name string) PluginConfig {
	if c.PluginConfig == nil {
		return PluginConfig{}
	}
	return c.PluginConfig[name]
}

// StateScopeOrDefault returns the configured state scope, defaulting to
// "channel".
func (p PluginConfig) StateScopeOrDefault() string {
	if p.StateScope == "" {
		return "channel"
	}
	return p.StateScope
}
