package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "startups.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.perplexity.ai", cfg.Perplexity.BaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, 4, cfg.Scrape.MaxConcurrent)
	assert.InDelta(t, 2.0, cfg.Scrape.RatePerSecond, 0.001)
	assert.Equal(t, 30, cfg.Collect.TargetCount)
	assert.Equal(t, 300, cfg.Collect.AdapterTimeoutS)
	assert.Equal(t, 2000, cfg.Render.SettleMs)
	assert.NotEmpty(t, cfg.Scrape.Sources)
	assert.NotEmpty(t, cfg.Scrape.Sources[0].Name)
	assert.NotEmpty(t, cfg.Scrape.Sources[0].URL)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/startups
log:
  level: debug
  format: console
server:
  port: 9090
scrape:
  max_concurrent: 8
  sources:
    - name: Custom News
      url: https://custom.example.com/funding
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/startups", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Scrape.MaxConcurrent)
	require.Len(t, cfg.Scrape.Sources, 1)
	assert.Equal(t, "Custom News", cfg.Scrape.Sources[0].Name)
	assert.Equal(t, "https://custom.example.com/funding", cfg.Scrape.Sources[0].URL)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Collect.TargetCount)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("STARTUPFINDER_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
