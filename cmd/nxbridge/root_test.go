package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorEnabled_RespectsNoColorFlag(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()
	assert.False(t, colorEnabled())
}

func TestColorEnabled_RespectsNoColorEnvVar(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	noColor = false
	assert.False(t, colorEnabled())
}

func TestColorEnabled_DefaultsOn(t *testing.T) {
	noColor = false
	t.Setenv("NO_COLOR", "")
	assert.True(t, colorEnabled())
}

func TestColorGreen_WrapsOnlyWhenEnabled(t *testing.T) {
	noColor = false
	t.Setenv("NO_COLOR", "")
	assert.Contains(t, colorGreen("ok"), "ok")
	assert.NotEqual(t, "ok", colorGreen("ok"))

	noColor = true
	defer func() { noColor = false }()
	assert.Equal(t, "ok", colorGreen("ok"))
}

func TestResolvedConfigDir_DefaultsUnderHome(t *testing.T) {
	configDir = ""
	defer func() { configDir = "" }()

	dir, err := resolvedConfigDir()
	require.NoError(t, err)
	assert.Contains(t, dir, filepath.Join(".config", "nxbridge"))
}

func TestResolvedConfigDir_HonorsOverride(t *testing.T) {
	configDir = "/tmp/custom-nxbridge-config"
	defer func() { configDir = "" }()

	dir, err := resolvedConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-nxbridge-config", dir)
}

func TestLoadAppConfig_AppliesMO2Override(t *testing.T) {
	configDir = t.TempDir()
	mo2Path = "/tmp/some-mo2-instance"
	defer func() { configDir = ""; mo2Path = "" }()

	cfg, dir, err := loadAppConfig()
	require.NoError(t, err)
	assert.Equal(t, configDir, dir)
	assert.Equal(t, "/tmp/some-mo2-instance", cfg.MO2Path)
}

func TestOpenHistory_CreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	db, err := openHistory(dir)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Join(dir, "history.db"))
	assert.NoError(t, err)
}

func TestConfirm_AutoYesSkipsPrompt(t *testing.T) {
	autoYes = true
	defer func() { autoYes = false }()
	assert.True(t, confirm("proceed?"))
}
