package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Telemetry config
	assert.Equal(t, time.Second, cfg.Telemetry.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.TableTimeout)
	assert.Equal(t, "apps/system/customdata/casdk-", cfg.Telemetry.DataPath)
	assert.Empty(t, cfg.Telemetry.SnapshotURL)

	// Apps config
	assert.Equal(t, "apps/system/custom/apps/", cfg.Apps.Path)
	assert.Equal(t, 2*time.Second, cfg.Apps.ScriptTimeout)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Telemetry, cfg.Telemetry)
	assert.Equal(t, Default().Apps, cfg.Apps)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":             "9000",
		"HOST":             "127.0.0.1",
		"LOG_LEVEL":        "debug",
		"LOG_DEV":          "true",
		"POLL_INTERVAL":    "250ms",
		"TABLE_TIMEOUT":    "2s",
		"DATA_PATH":        "/tmp/casdk-",
		"SNAPSHOT_URL":     "http://unit:9000/data/",
		"APPS_PATH":        "/opt/apps",
		"SCRIPT_TIMEOUT":   "500ms",
		"SHELL_URL":        "http://unit:9001/shell",
		"RATE_LIMIT_BURST": "1000",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 250*time.Millisecond, cfg.Telemetry.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Telemetry.TableTimeout)
	assert.Equal(t, "/tmp/casdk-", cfg.Telemetry.DataPath)
	assert.Equal(t, "http://unit:9000/data/", cfg.Telemetry.SnapshotURL)
	assert.Equal(t, "/opt/apps", cfg.Apps.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.Apps.ScriptTimeout)
	assert.Equal(t, "http://unit:9001/shell", cfg.Shell.URL)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "often")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, time.Second, cfg.Telemetry.PollInterval)
}
