package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tayloree/bhtscan/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GOOGLE_VISION_API_KEY", "")
	t.Setenv("BHTSCAN_OCR_API_KEY", "")
	return home
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.File)
	assert.Equal(t, "https://vision.googleapis.com/v1/images:annotate", cfg.OCR.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.OCR.Timeout)
	assert.Equal(t, uint(3), cfg.OCR.Retries)
	assert.Equal(t, filepath.Join(home, ".bhtscan", "history.db"), cfg.History.Path)
	assert.False(t, cfg.History.AutoSave)
	assert.False(t, cfg.Detect.Extended)
	assert.Equal(t, "127.0.0.1:8080", cfg.Serve.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_HomeConfigFile(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".bhtscan", "config.yaml"), `
ocr:
  timeout: 5s
  retries: 1
history:
  path: ~/scans.db
  auto_save: true
detect:
  extended: true
`)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".bhtscan", "config.yaml"), cfg.File)
	assert.Equal(t, 5*time.Second, cfg.OCR.Timeout)
	assert.Equal(t, uint(1), cfg.OCR.Retries)
	assert.Equal(t, filepath.Join(home, "scans.db"), cfg.History.Path)
	assert.True(t, cfg.History.AutoSave)
	assert.True(t, cfg.Detect.Extended)
}

func TestLoad_ExplicitFileAndEnvOverride(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "serve:\n  addr: 0.0.0.0:9000\nocr:\n  api_key: ${MY_VISION_KEY}\n")
	t.Setenv("MY_VISION_KEY", "from-file-ref")
	t.Setenv("BHTSCAN_SERVE_ADDR", ":7070")
	t.Setenv("BHTSCAN_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, ":7070", cfg.Serve.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "from-file-ref", cfg.OCR.APIKey)
}

func TestLoad_GoogleVisionKeyEnv(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_VISION_API_KEY", "vision-key")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "vision-key", cfg.OCR.APIKey)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "log:\n  level: chatty\n")

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "log.level")

	writeFile(t, path, "ocr:\n  retries: 0\n")
	_, err = config.Load(path)
	assert.ErrorContains(t, err, "ocr.retries")
}

func TestParseLevel(t *testing.T) {
	lvl, err := config.ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = config.ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("BHT_TEST_VAR", "value")
	assert.Equal(t, "prefix-value", config.ResolveEnvVars("prefix-${BHT_TEST_VAR}"))
	assert.Equal(t, "", config.ResolveEnvVars(""))
	assert.Equal(t, "plain", config.ResolveEnvVars("plain"))
}
