// Package config loads and saves nxbridge's application-level settings: the
// Nexus API key, MO2 install directory, default download pool size, and
// other knobs that don't belong in a per-collection invocation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds global application settings, persisted as YAML.
type Config struct {
	APIKey        string `yaml:"api_key"`
	MO2Path       string `yaml:"mo2_path"`
	DownloadPool  int    `yaml:"download_pool"`
	SevenZipPath  string `yaml:"seven_zip_path"`
	LowSpeedAbort bool   `yaml:"low_speed_abort"`
	PreferTUI     bool   `yaml:"prefer_tui"`
}

const defaultDownloadPool = 4

// Load reads config.yaml from configDir, returning sensible defaults if the
// file doesn't exist yet.
func Load(configDir string) (*Config, error) {
	cfg := &Config{
		DownloadPool:  defaultDownloadPool,
		LowSpeedAbort: true,
	}

	path := filepath.Join(configDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DownloadPool <= 0 {
		cfg.DownloadPool = defaultDownloadPool
	}
	return cfg, nil
}

// Save writes the config back to configDir/config.yaml.
func (c *Config) Save(configDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	path := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ResolveAPIKey returns the configured API key, preferring the
// NEXUS_API_KEY environment variable so it never needs to touch disk in CI
// or scripted use.
func (c *Config) ResolveAPIKey() string {
	if key := os.Getenv("NEXUS_API_KEY"); key != "" {
		return key
	}
	return c.APIKey
}
