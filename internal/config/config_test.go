package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/sharethrift/searchindex/internal/errors"
)

// isolate points the user config lookup at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 50, cfg.Search.DefaultTop)
	assert.Equal(t, 1000, cfg.Search.MaxTop)
	assert.Equal(t, 1, cfg.Search.FuzzyDistance)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, time.Duration(0), cfg.Retry.MaxDelay)
	assert.Equal(t, 4, cfg.Retry.Concurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.File)
	assert.Equal(t, 100, cfg.Telemetry.TopQueries)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ExplicitFileOverridesDefaults(t *testing.T) {
	// Given: a partial config file
	isolate(t)
	path := filepath.Join(t.TempDir(), "searchindex.yaml")
	writeFile(t, path, `
search:
  default_top: 20
retry:
  base_delay: 250ms
  max_delay: 2s
logging:
  level: debug
`)

	// When: loading it
	cfg, err := Load(path)

	// Then: set keys override, the rest keep their defaults
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Search.DefaultTop)
	assert.Equal(t, 1000, cfg.Search.MaxTop)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 2*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_UserConfigIsPickedUp(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "searchindex", "config.yaml"), "retry:\n  max_attempts: 7\n")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.ErrCodeConfigNotFound))
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "search: [unclosed\n")

	_, err := Load(path)

	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.ErrCodeConfigInvalid))
}

func TestLoad_EnvOverridesTakePrecedence(t *testing.T) {
	// Given: a file and env vars that disagree
	isolate(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "logging:\n  level: error\nretry:\n  max_attempts: 2\n")
	t.Setenv("SEARCHINDEX_LOG_LEVEL", "warn")
	t.Setenv("SEARCHINDEX_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("SEARCHINDEX_RETRY_BASE_DELAY", "1s")
	t.Setenv("SEARCHINDEX_DEFAULT_TOP", "10")

	// When: loading
	cfg, err := Load(path)

	// Then: env wins
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 10, cfg.Search.DefaultTop)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"max attempts not int", "SEARCHINDEX_RETRY_MAX_ATTEMPTS", "three"},
		{"base delay not duration", "SEARCHINDEX_RETRY_BASE_DELAY", "fast"},
		{"default top not int", "SEARCHINDEX_DEFAULT_TOP", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")

			require.Error(t, err)
			assert.True(t, serrors.IsCode(err, serrors.ErrCodeConfigInvalid))
		})
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"negative default top", func(c *Config) { c.Search.DefaultTop = -1 }, "default_top"},
		{"default above max", func(c *Config) { c.Search.DefaultTop = 2000 }, "exceeds"},
		{"fuzzy too far", func(c *Config) { c.Search.FuzzyDistance = 3 }, "fuzzy_distance"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max_attempts"},
		{"negative delay", func(c *Config) { c.Retry.BaseDelay = -time.Second }, "base_delay"},
		{"zero concurrency", func(c *Config) { c.Retry.Concurrency = 0 }, "concurrency"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"zero top queries", func(c *Config) { c.Telemetry.TopQueries = 0 }, "top_queries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, serrors.ErrCodeConfigInvalid, serrors.GetCode(err))
		})
	}
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := NewConfig()
	cfg.Retry.BaseDelay = 300 * time.Millisecond

	require.NoError(t, cfg.WriteYAML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "base_delay: 300ms")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoggingSetup_MapsSection(t *testing.T) {
	cfg := NewConfig()
	cfg.Logging.Level = "DEBUG"
	cfg.Logging.File = "/tmp/x.log"
	cfg.Logging.MaxFiles = 2

	lc := cfg.LoggingSetup()

	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "/tmp/x.log", lc.FilePath)
	assert.Equal(t, 2, lc.MaxFiles)
	assert.Equal(t, 10, lc.MaxSizeMB)
	assert.True(t, lc.WriteToStderr)
}

func TestRetrySetup_MapsSection(t *testing.T) {
	cfg := NewConfig()
	cfg.Retry.MaxAttempts = 4
	cfg.Retry.MaxDelay = time.Second

	rc := cfg.RetrySetup()

	assert.Equal(t, 4, rc.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, rc.BaseDelay)
	assert.Equal(t, time.Second, rc.MaxDelay)
	assert.Equal(t, 2.0, rc.Multiplier)
}
