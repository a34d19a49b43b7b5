// Package config loads memoryd's configuration from defaults, a YAML file,
// environment variables, and CLI flags, in that order of increasing
// precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
)

// Config is memoryd's complete runtime configuration.
type Config struct {
	DataDir     string        `yaml:"data_dir" json:"data_dir"`
	Model       string        `yaml:"model" json:"model"`
	MRLDim      int           `yaml:"mrl_dim" json:"mrl_dim"`
	CacheSize   int           `yaml:"cache_size" json:"cache_size"`
	BatchSize   int           `yaml:"batch_size" json:"batch_size"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	LogLevel    string        `yaml:"log_level" json:"log_level"`
	ForceModel  bool          `yaml:"force_model" json:"force_model"`
	ResetMemory bool          `yaml:"reset_memory" json:"reset_memory"`
	ListModels  bool          `yaml:"-" json:"-"` // CLI-only, never persisted
}

// Default returns the hardcoded baseline configuration.
func Default() *Config {
	return &Config{
		DataDir:   defaultDataDir(),
		Model:     "e5_multi",
		MRLDim:    0,
		CacheSize: 10000,
		BatchSize: 32,
		Timeout:   30 * time.Second,
		LogLevel:  "info",
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".memoryd")
	}
	return filepath.Join(home, ".memoryd")
}

// DefaultConfigPath returns the conventional location of the user's config
// file: <data_dir>/config.yaml under the default data directory.
func DefaultConfigPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Load builds a Config by layering, in increasing precedence: hardcoded
// defaults, the YAML file at path (if it exists), then MEMORYD_* environment
// variables. CLI flags are applied afterward by the caller, which assigns
// the flag values onto the returned Config, since cobra owns flag parsing.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperr.Wrap(apperr.Validation, "config_read_failed", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return apperr.Wrap(apperr.Validation, "config_parse_failed", err)
	}
	return nil
}

// applyEnvOverrides applies MEMORYD_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MEMORYD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("MEMORYD_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("MEMORYD_MRL_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MRLDim = n
		}
	}
	if v := os.Getenv("MEMORYD_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheSize = n
		}
	}
	if v := os.Getenv("MEMORYD_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BatchSize = n
		}
	}
	if v := os.Getenv("MEMORYD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := os.Getenv("MEMORYD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MEMORYD_FORCE_MODEL"); v != "" {
		c.ForceModel = parseBool(v)
	}
	if v := os.Getenv("MEMORYD_RESET_MEMORY"); v != "" {
		c.ResetMemory = parseBool(v)
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return b
}

// Validate checks invariants that cut across individual fields.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return apperr.Validationf("config_data_dir_empty", "data_dir must not be empty")
	}
	if c.BatchSize <= 0 {
		return apperr.Validationf("config_batch_size_invalid", "batch_size must be positive, got %d", c.BatchSize)
	}
	if c.CacheSize < 0 {
		return apperr.Validationf("config_cache_size_invalid", "cache_size must be non-negative, got %d", c.CacheSize)
	}
	if c.MRLDim < 0 {
		return apperr.Validationf("config_mrl_dim_invalid", "mrl_dim must be non-negative, got %d", c.MRLDim)
	}
	if c.Timeout <= 0 {
		return apperr.Validationf("config_timeout_invalid", "timeout must be positive, got %s", c.Timeout)
	}
	if c.ForceModel && c.ResetMemory {
		return apperr.Validationf("config_conflicting_policy", "force_model and reset_memory are mutually exclusive dimension-mismatch policies")
	}
	return nil
}

// StoreDir returns the directory the storage layer should open.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, "store")
}

// ModelCacheDir returns the directory the embedding subsystem caches
// downloaded model artifacts in.
func (c *Config) ModelCacheDir() string {
	return filepath.Join(c.DataDir, "cache", "models")
}

// LogDir returns the directory rotating log files are written to.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// WriteYAML persists the configuration to path, creating parent directories
// as needed.
func (c *Config) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.Internal, "config_mkdir_failed", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "config_marshal_failed", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.Wrap(apperr.Internal, "config_write_failed", err)
	}
	return nil
}

// String renders the configuration for diagnostic output (doctor command).
func (c *Config) String() string {
	return fmt.Sprintf(
		"data_dir=%s model=%s mrl_dim=%d cache_size=%d batch_size=%d timeout=%s log_level=%s force_model=%v reset_memory=%v",
		c.DataDir, c.Model, c.MRLDim, c.CacheSize, c.BatchSize, c.Timeout, c.LogLevel, c.ForceModel, c.ResetMemory,
	)
}
