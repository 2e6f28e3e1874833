// Package config loads searchindex configuration.
//
// Values are applied in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. YAML config file (explicit path, or ~/.config/searchindex/config.yaml)
//  3. Environment variables (SEARCHINDEX_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/logging"
)

// Config represents the complete searchindex configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// SearchConfig configures query defaults.
type SearchConfig struct {
	// DefaultTop is the page size used when a search does not set top.
	DefaultTop int `yaml:"default_top" json:"default_top"`

	// MaxTop caps the page size a caller may request.
	MaxTop int `yaml:"max_top" json:"max_top"`

	// FuzzyDistance is the edit distance for "term~" without an explicit N (0-2).
	FuzzyDistance int `yaml:"fuzzy_distance" json:"fuzzy_distance"`
}

// RetryConfig configures index write retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	// MaxDelay caps the backoff delay. Zero means uncapped.
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
	// Concurrency bounds the number of entities reconciled in parallel.
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// TelemetryConfig configures query telemetry.
type TelemetryConfig struct {
	// TopQueries bounds the number of distinct queries tracked for frequency.
	TopQueries int `yaml:"top_queries" json:"top_queries"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			DefaultTop:    50,
			MaxTop:        1000,
			FuzzyDistance: 1,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    0,
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Telemetry: TelemetryConfig{
			TopQueries: 100,
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory layout:
//   - $XDG_CONFIG_HOME/searchindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/searchindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "searchindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "searchindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "searchindex", "config.yaml")
}

// Load loads configuration from path.
// An empty path falls back to the user config file, which may be absent.
// An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if p := GetUserConfigPath(); fileExists(p) {
			path = p
		}
	} else if !fileExists(path) {
		return nil, serrors.New(serrors.ErrCodeConfigNotFound,
			fmt.Sprintf("config file not found: %s", path), nil).
			WithSuggestion("run 'searchindex config init' to write the defaults")
	}

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadYAML decodes path over the current values. Keys absent from the file
// keep their defaults.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return serrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return serrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

// applyEnvOverrides applies SEARCHINDEX_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("SEARCHINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SEARCHINDEX_RETRY_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return serrors.ConfigError("SEARCHINDEX_RETRY_MAX_ATTEMPTS must be an integer", err)
		}
		c.Retry.MaxAttempts = n
	}
	if v := os.Getenv("SEARCHINDEX_RETRY_BASE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return serrors.ConfigError("SEARCHINDEX_RETRY_BASE_DELAY must be a duration", err)
		}
		c.Retry.BaseDelay = d
	}
	if v := os.Getenv("SEARCHINDEX_DEFAULT_TOP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return serrors.ConfigError("SEARCHINDEX_DEFAULT_TOP must be an integer", err)
		}
		c.Search.DefaultTop = n
	}
	return nil
}

// Validate validates the configuration and returns an ERR_102 error if invalid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return serrors.New(serrors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...), nil)
	}

	if c.Search.DefaultTop < 0 {
		return invalid("search.default_top must be non-negative, got %d", c.Search.DefaultTop)
	}
	if c.Search.MaxTop < 1 {
		return invalid("search.max_top must be positive, got %d", c.Search.MaxTop)
	}
	if c.Search.DefaultTop > c.Search.MaxTop {
		return invalid("search.default_top (%d) exceeds search.max_top (%d)", c.Search.DefaultTop, c.Search.MaxTop)
	}
	if c.Search.FuzzyDistance < 0 || c.Search.FuzzyDistance > 2 {
		return invalid("search.fuzzy_distance must be between 0 and 2, got %d", c.Search.FuzzyDistance)
	}

	if c.Retry.MaxAttempts < 1 {
		return invalid("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 {
		return invalid("retry.base_delay must be non-negative, got %s", c.Retry.BaseDelay)
	}
	if c.Retry.MaxDelay < 0 {
		return invalid("retry.max_delay must be non-negative, got %s", c.Retry.MaxDelay)
	}
	if c.Retry.Concurrency < 1 {
		return invalid("retry.concurrency must be at least 1, got %d", c.Retry.Concurrency)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return invalid("logging.max_size_mb and logging.max_files must be non-negative")
	}

	if c.Telemetry.TopQueries < 1 {
		return invalid("telemetry.top_queries must be positive, got %d", c.Telemetry.TopQueries)
	}

	return nil
}

// LoggingSetup converts the logging section to a logging.Config.
func (c *Config) LoggingSetup() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = strings.ToLower(c.Logging.Level)
	cfg.FilePath = c.Logging.File
	if c.Logging.MaxSizeMB > 0 {
		cfg.MaxSizeMB = c.Logging.MaxSizeMB
	}
	if c.Logging.MaxFiles > 0 {
		cfg.MaxFiles = c.Logging.MaxFiles
	}
	return cfg
}

// RetrySetup converts the retry section to an errors.RetryConfig.
func (c *Config) RetrySetup() serrors.RetryConfig {
	rc := serrors.DefaultRetryConfig()
	rc.MaxAttempts = c.Retry.MaxAttempts
	rc.BaseDelay = c.Retry.BaseDelay
	rc.MaxDelay = c.Retry.MaxDelay
	return rc
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.MarshalYAMLBytes()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MarshalYAMLBytes encodes the configuration as YAML.
func (c *Config) MarshalYAMLBytes() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
