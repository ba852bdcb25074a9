package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exchangetower/tower/internal/model"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Daemon.Workers)
	assert.Equal(t, 10, cfg.Daemon.ScanIntervalSec)
	assert.Equal(t, float64(200), cfg.RateLimit.PerMinute)
	assert.Equal(t, 1024, cfg.Dedupe.CacheSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_PartialFileKeepsOtherDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
daemon:
  workers: 8
rate_limit:
  per_minute: 50
  burst: 10
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Daemon.Workers)
	assert.Equal(t, float64(50), cfg.RateLimit.PerMinute)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, 30, cfg.Daemon.ShutdownTimeoutSec)
	assert.Equal(t, 5, cfg.Retry.RateLimitMaxAttempts)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  format: xml\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("daemon:\n  workers: 100\n"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadCredentials_FromEnvFile(t *testing.T) {
	// Guard against ambient credentials leaking into the test.
	for _, v := range []string{EnvPaperKey, EnvPaperSecret, EnvLiveKey, EnvLiveSecret} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		EnvPaperKey+"=pk-test\n"+EnvPaperSecret+"=ps-test\n"), 0600))

	creds, err := LoadCredentials(envFile)
	require.NoError(t, err)
	require.Contains(t, creds, model.ModePaper)
	assert.Equal(t, "pk-test", creds[model.ModePaper].APIKey)
	assert.Equal(t, "ps-test", creds[model.ModePaper].APISecret)
	assert.NotContains(t, creds, model.ModeLive, "unset mode stays absent")
}

func TestLoadCredentials_HalfSetPairFails(t *testing.T) {
	for _, v := range []string{EnvPaperKey, EnvPaperSecret, EnvLiveKey, EnvLiveSecret} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
	t.Setenv(EnvLiveKey, "lk-test")

	_, err := LoadCredentials("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvLiveSecret)
}
