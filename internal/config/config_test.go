package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"nexusbridge/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.DownloadPool)
	assert.True(t, cfg.LowSpeedAbort)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := "api_key: test-key\nmo2_path: /home/user/MO2\ndownload_pool: 8\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "/home/user/MO2", cfg.MO2Path)
	assert.Equal(t, 8, cfg.DownloadPool)
}

func TestLoad_InvalidPoolSizeFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("download_pool: 0\n"), 0o644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.DownloadPool)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{APIKey: "roundtrip-key", DownloadPool: 6}
	require.NoError(t, cfg.Save(dir))

	loaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip-key", loaded.APIKey)
	assert.Equal(t, 6, loaded.DownloadPool)
}

func TestResolveAPIKey_EnvOverridesFile(t *testing.T) {
	t.Setenv("NEXUS_API_KEY", "env-key")
	cfg := &config.Config{APIKey: "file-key"}
	assert.Equal(t, "env-key", cfg.ResolveAPIKey())
}

func TestResolveAPIKey_FallsBackToFile(t *testing.T) {
	t.Setenv("NEXUS_API_KEY", "")
	cfg := &config.Config{APIKey: "file-key"}
	assert.Equal(t, "file-key", cfg.ResolveAPIKey())
}
