package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_HasSaneBaseline(t *testing.T) {
	cfg := Default()
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, "e5_multi", cfg.Model)
	assert.Equal(t, 0, cfg.MRLDim)
	assert.Equal(t, 10000, cfg.CacheSize)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.ForceModel)
	assert.False(t, cfg.ResetMemory)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Model, cfg.Model)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := "model: bge-m3\nbatch_size: 64\ncache_size: 500\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bge-m3", cfg.Model)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, 500, cfg.CacheSize)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnvOverrides_TakesPrecedenceOverYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: bge-m3\n"), 0o644))

	t.Setenv("MEMORYD_MODEL", "qwen3-0.6b")
	t.Setenv("MEMORYD_BATCH_SIZE", "128")
	t.Setenv("MEMORYD_FORCE_MODEL", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "qwen3-0.6b", cfg.Model)
	assert.Equal(t, 128, cfg.BatchSize)
	assert.True(t, cfg.ForceModel)
}

func TestApplyEnvOverrides_IgnoresUnparsableValues(t *testing.T) {
	t.Setenv("MEMORYD_BATCH_SIZE", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().BatchSize, cfg.BatchSize)
}

func TestValidate_RejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"negative cache size", func(c *Config) { c.CacheSize = -1 }},
		{"negative mrl dim", func(c *Config) { c.MRLDim = -1 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"conflicting policy", func(c *Config) {
			c.ForceModel = true
			c.ResetMemory = true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/memoryd-test"

	assert.Equal(t, "/tmp/memoryd-test/store", cfg.StoreDir())
	assert.Equal(t, "/tmp/memoryd-test/cache/models", cfg.ModelCacheDir())
	assert.Equal(t, "/tmp/memoryd-test/logs", cfg.LogDir())
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Model = "nomic-embed-text-v1.5"
	require.NoError(t, cfg.WriteYAML(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text-v1.5", reloaded.Model)
}

func TestString_IncludesAllFields(t *testing.T) {
	s := Default().String()
	assert.Contains(t, s, "data_dir=")
	assert.Contains(t, s, "model=")
	assert.Contains(t, s, "batch_size=")
}
