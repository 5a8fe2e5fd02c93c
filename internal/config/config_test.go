// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, 87, cfg.Automation().ChromeOffset)
	assert.Equal(t, "osascript", cfg.Automation().OsascriptPath)
	assert.Equal(t, 30*time.Second, cfg.Automation().DefaultTimeout)
	assert.Equal(t, 30*time.Second, cfg.Caches().CoordinateTTL)
	assert.Equal(t, 3, cfg.Engine().Concurrency)
	assert.Equal(t, 5, cfg.Engine().ChunkSize)
	assert.Equal(t, 1048576, cfg.Screenshot().MaxSizeBytes)
	assert.Equal(t, 80, cfg.Screenshot().BaselineQuality)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	valid := NewDefaultConfig()
	require.NoError(t, valid.Validate(), "defaults must always validate")

	cases := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{
			name:    "negative chrome offset",
			mutate:  func(c *Config) { c.s.Automation.ChromeOffset = -1 },
			message: "chrome_offset must not be negative",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.s.Automation.DefaultTimeout = 0 },
			message: "default_timeout must be a positive duration",
		},
		{
			name:    "zero spawn rate",
			mutate:  func(c *Config) { c.s.Automation.SpawnRatePerSecond = 0 },
			message: "spawn_rate_per_second must be positive",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.s.Engine.Concurrency = 0 },
			message: "engine.concurrency must be a positive integer",
		},
		{
			name:    "negative chunk size",
			mutate:  func(c *Config) { c.s.Engine.ChunkSize = -2 },
			message: "engine.chunk_size must be a positive integer",
		},
		{
			name:    "min quality above baseline",
			mutate:  func(c *Config) { c.s.Screenshot.MinQuality = 90 },
			message: "screenshot quality bounds",
		},
		{
			name:    "zero quality step",
			mutate:  func(c *Config) { c.s.Screenshot.QualityStep = 0 },
			message: "quality_step must be positive",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
automation:
  chrome_offset: 92
  default_timeout: 10s
engine:
  concurrency: 2
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		err := v.ReadConfig(bytes.NewBuffer(yamlBytes))
		require.NoError(t, err)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, 92, cfg.Automation().ChromeOffset)
		assert.Equal(t, 10*time.Second, cfg.Automation().DefaultTimeout)
		assert.Equal(t, 2, cfg.Engine().Concurrency)
		// Untouched keys keep their defaults.
		assert.Equal(t, 5, cfg.Engine().ChunkSize)
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("engine.concurrency", 0) // Intentionally invalid

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "engine.concurrency must be a positive integer")
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/macpilot.log
automation:
  cliclick_path: /opt/homebrew/bin/cliclick
  connection_ttl: 45s
caches:
  coordinate_ttl: 5s
screenshot:
  max_width: 1920
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	err := v.ReadConfig(bytes.NewBufferString(yamlInput))
	require.NoError(t, err)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/var/log/macpilot.log", cfg.Logger().LogFile)
	assert.Equal(t, "/opt/homebrew/bin/cliclick", cfg.Automation().CliclickPath)
	assert.Equal(t, 45*time.Second, cfg.Automation().ConnectionTTL)
	assert.Equal(t, 5*time.Second, cfg.Caches().CoordinateTTL)
	assert.Equal(t, 1920, cfg.Screenshot().MaxWidth)
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()

	cfg.SetAutomationChromeOffset(100)
	cfg.SetAutomationDefaultTimeout(3 * time.Second)
	cfg.SetEngineConcurrency(1)
	cfg.SetEngineChunkSize(10)

	assert.Equal(t, 100, cfg.Automation().ChromeOffset)
	assert.Equal(t, 3*time.Second, cfg.Automation().DefaultTimeout)
	assert.Equal(t, 1, cfg.Engine().Concurrency)
	assert.Equal(t, 10, cfg.Engine().ChunkSize)
}
