// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Automation() AutomationConfig
	Caches() CachesConfig
	Screenshot() ScreenshotConfig
	Engine() EngineConfig

	// Automation Setters
	SetAutomationChromeOffset(px int)
	SetAutomationDefaultTimeout(d time.Duration)

	// Engine Setters
	SetEngineConcurrency(int)
	SetEngineChunkSize(int)
}

// settings is the raw decode target. Fields must stay exported for
// mapstructure; access from outside the package goes through Config's
// getter methods instead.
type settings struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Automation AutomationConfig `mapstructure:"automation" yaml:"automation"`
	Caches     CachesConfig     `mapstructure:"caches" yaml:"caches"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot" yaml:"screenshot"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
}

// Config holds the entire application configuration. The decoded settings
// are private to enforce access through the Interface's getter methods.
type Config struct {
	s settings
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig         { return c.s.Logger }
func (c *Config) Automation() AutomationConfig { return c.s.Automation }
func (c *Config) Caches() CachesConfig         { return c.s.Caches }
func (c *Config) Screenshot() ScreenshotConfig { return c.s.Screenshot }
func (c *Config) Engine() EngineConfig         { return c.s.Engine }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetAutomationChromeOffset(px int)            { c.s.Automation.ChromeOffset = px }
func (c *Config) SetAutomationDefaultTimeout(d time.Duration) { c.s.Automation.DefaultTimeout = d }
func (c *Config) SetEngineConcurrency(n int)                  { c.s.Engine.Concurrency = n }
func (c *Config) SetEngineChunkSize(n int)                    { c.s.Engine.ChunkSize = n }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// AutomationConfig tunes the OS automation bridge: the osascript scripting
// channel and the cliclick input-injection binary.
type AutomationConfig struct {
	// ChromeOffset is the vertical distance in pixels between a Chrome
	// window's top-left corner and the page viewport's top-left corner
	// (title bar plus toolbars). Chrome does not expose this, so it is an
	// empirical constant; recalibrate per OS version if clicks land high.
	ChromeOffset int `mapstructure:"chrome_offset" yaml:"chrome_offset"`

	// OsascriptPath and CliclickPath locate the external binaries. Bare
	// names resolve through PATH.
	OsascriptPath string `mapstructure:"osascript_path" yaml:"osascript_path"`
	CliclickPath  string `mapstructure:"cliclick_path" yaml:"cliclick_path"`

	// DefaultTimeout bounds every external process invocation. On expiry
	// the process is killed and the call fails; nothing blocks forever.
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`

	// SpawnRatePerSecond throttles subprocess creation so bursts cannot
	// overwhelm the automation bridge or the target application.
	SpawnRatePerSecond float64 `mapstructure:"spawn_rate_per_second" yaml:"spawn_rate_per_second"`

	// ConnectionPoolSize and ConnectionTTL bound the table of recently
	// addressed window indices.
	ConnectionPoolSize int           `mapstructure:"connection_pool_size" yaml:"connection_pool_size"`
	ConnectionTTL      time.Duration `mapstructure:"connection_ttl" yaml:"connection_ttl"`
}

// CachesConfig bounds the in-memory caches. Every cache is capacity-limited
// with LRU eviction and an independent TTL.
type CachesConfig struct {
	ScriptCapacity int           `mapstructure:"script_capacity" yaml:"script_capacity"`
	ScriptTTL      time.Duration `mapstructure:"script_ttl" yaml:"script_ttl"`

	// CoordinateTTL must stay short: page layout can shift between calls.
	CoordinateCapacity int           `mapstructure:"coordinate_capacity" yaml:"coordinate_capacity"`
	CoordinateTTL      time.Duration `mapstructure:"coordinate_ttl" yaml:"coordinate_ttl"`

	ImageCapacity int           `mapstructure:"image_capacity" yaml:"image_capacity"`
	ImageTTL      time.Duration `mapstructure:"image_ttl" yaml:"image_ttl"`

	// BenchmarkHistory caps the benchmark table; the oldest entry is
	// evicted past this count.
	BenchmarkHistory int `mapstructure:"benchmark_history" yaml:"benchmark_history"`
}

// ScreenshotConfig drives the adaptive image encoder.
type ScreenshotConfig struct {
	MaxSizeBytes    int `mapstructure:"max_size_bytes" yaml:"max_size_bytes"`
	MaxWidth        int `mapstructure:"max_width" yaml:"max_width"`
	BaselineQuality int `mapstructure:"baseline_quality" yaml:"baseline_quality"`
	MinQuality      int `mapstructure:"min_quality" yaml:"min_quality"`
	QualityStep     int `mapstructure:"quality_step" yaml:"quality_step"`
}

// EngineConfig configures the batch/concurrency processor.
type EngineConfig struct {
	// Concurrency bounds operations in flight within a chunk. The OS
	// automation bridge is serialized per application, so this stays small.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// ChunkSize partitions queued operations; chunks run sequentially to
	// bound peak resource usage.
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size"`
	// RetryDelay is the backoff applied before retrying a failure whose
	// recovery hint asks for a delay.
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg.s); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "macpilot-cli")
	v.SetDefault("logger.log_file", "macpilot.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Automation --
	v.SetDefault("automation.chrome_offset", 87)
	v.SetDefault("automation.osascript_path", "osascript")
	v.SetDefault("automation.cliclick_path", "cliclick")
	v.SetDefault("automation.default_timeout", "30s")
	v.SetDefault("automation.spawn_rate_per_second", 10.0)
	v.SetDefault("automation.connection_pool_size", 8)
	v.SetDefault("automation.connection_ttl", "60s")

	// -- Caches --
	v.SetDefault("caches.script_capacity", 128)
	v.SetDefault("caches.script_ttl", "10m")
	v.SetDefault("caches.coordinate_capacity", 64)
	v.SetDefault("caches.coordinate_ttl", "30s")
	v.SetDefault("caches.image_capacity", 16)
	v.SetDefault("caches.image_ttl", "5m")
	v.SetDefault("caches.benchmark_history", 256)

	// -- Screenshot --
	v.SetDefault("screenshot.max_size_bytes", 1048576)
	v.SetDefault("screenshot.max_width", 1440)
	v.SetDefault("screenshot.baseline_quality", 80)
	v.SetDefault("screenshot.min_quality", 30)
	v.SetDefault("screenshot.quality_step", 10)

	// -- Engine --
	v.SetDefault("engine.concurrency", 3)
	v.SetDefault("engine.chunk_size", 5)
	v.SetDefault("engine.retry_delay", "500ms")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg.s); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.s.Automation.ChromeOffset < 0 {
		return fmt.Errorf("automation.chrome_offset must not be negative")
	}
	if c.s.Automation.DefaultTimeout <= 0 {
		return fmt.Errorf("automation.default_timeout must be a positive duration")
	}
	if c.s.Automation.SpawnRatePerSecond <= 0 {
		return fmt.Errorf("automation.spawn_rate_per_second must be positive")
	}
	if c.s.Engine.Concurrency <= 0 {
		return fmt.Errorf("engine.concurrency must be a positive integer")
	}
	if c.s.Engine.ChunkSize <= 0 {
		return fmt.Errorf("engine.chunk_size must be a positive integer")
	}
	if c.s.Screenshot.MinQuality <= 0 || c.s.Screenshot.BaselineQuality > 100 ||
		c.s.Screenshot.MinQuality > c.s.Screenshot.BaselineQuality {
		return fmt.Errorf("screenshot quality bounds must satisfy 0 < min <= baseline <= 100")
	}
	if c.s.Screenshot.QualityStep <= 0 {
		return fmt.Errorf("screenshot.quality_step must be positive")
	}
	return nil
}
