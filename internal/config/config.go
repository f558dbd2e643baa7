// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/talosconf/pkg/talosconfig"
)

// Interface defines the contract for accessing the CLI's own settings.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Loader() LoaderConfig
	Report() ReportConfig
	Watch() WatchConfig

	// Loader Setters
	SetLoaderKind(string)
	SetLoaderCheckURDF(bool)
	SetLoaderSearchPaths([]string)
	SetLoaderConcurrency(int)

	// Report Setters
	SetReportFormat(string)
	SetReportOutput(string)

	// Watch Setters
	SetWatchDebounce(time.Duration)
}

// Config holds the CLI settings. These are separate from the training
// documents the tool validates, which never pass through viper.
type Config struct {
	LoggerCfg LoggerConfig `mapstructure:"logger" yaml:"logger"`
	LoaderCfg LoaderConfig `mapstructure:"loader" yaml:"loader"`
	ReportCfg ReportConfig `mapstructure:"report" yaml:"report"`
	WatchCfg  WatchConfig  `mapstructure:"watch" yaml:"watch"`
}

func (c *Config) Logger() LoggerConfig { return c.LoggerCfg }
func (c *Config) Loader() LoaderConfig { return c.LoaderCfg }
func (c *Config) Report() ReportConfig { return c.ReportCfg }
func (c *Config) Watch() WatchConfig   { return c.WatchCfg }

// -- Loader Setters --
func (c *Config) SetLoaderKind(k string)          { c.LoaderCfg.Kind = k }
func (c *Config) SetLoaderCheckURDF(b bool)       { c.LoaderCfg.CheckURDF = b }
func (c *Config) SetLoaderSearchPaths(p []string) { c.LoaderCfg.SearchPaths = p }
func (c *Config) SetLoaderConcurrency(n int)      { c.LoaderCfg.Concurrency = n }

// -- Report Setters --
func (c *Config) SetReportFormat(f string) { c.ReportCfg.Format = f }
func (c *Config) SetReportOutput(o string) { c.ReportCfg.Output = o }

// -- Watch Setters --
func (c *Config) SetWatchDebounce(d time.Duration) { c.WatchCfg.Debounce = d }

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

// LoaderConfig controls how training documents are loaded and checked.
type LoaderConfig struct {
	// Kind is "auto", "sac" or "mpc-rl".
	Kind string `mapstructure:"kind" yaml:"kind"`
	// CheckURDF enables the cross-check against the referenced URDF/SRDF.
	CheckURDF bool `mapstructure:"check_urdf" yaml:"check_urdf"`
	// SearchPaths are model directories tried in order when resolving URDF/SRDF paths.
	SearchPaths []string `mapstructure:"search_paths" yaml:"search_paths"`
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency"`
}

// ReportConfig selects the validation report format and destination.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// WatchConfig tunes the file watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for the CLI settings.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "talosconf")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Loader --
	v.SetDefault("loader.kind", "auto")
	v.SetDefault("loader.check_urdf", false)
	v.SetDefault("loader.search_paths", []string{"/opt/openrobots/share/example-robot-data/robots"})
	v.SetDefault("loader.concurrency", 4)

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "stdout")

	// -- Watch --
	v.SetDefault("watch.debounce", "250ms")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// TALOSCONF_MODEL_PATH holds a comma separated list of model directories.
	if err := v.BindEnv("loader.search_paths", "TALOSCONF_MODEL_PATH"); err != nil {
		return nil, fmt.Errorf("failed to bind model path environment variable: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LoggerCfg.Level); err != nil {
		return fmt.Errorf("logger.level: %w", err)
	}
	if err := c.LoaderCfg.Validate(); err != nil {
		return fmt.Errorf("loader configuration invalid: %w", err)
	}
	switch c.ReportCfg.Format {
	case "text", "json", "sarif":
	default:
		return fmt.Errorf("report.format must be one of text, json, sarif (got %q)", c.ReportCfg.Format)
	}
	if c.WatchCfg.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be a positive duration")
	}
	return nil
}

// Validate checks the loader settings.
func (l *LoaderConfig) Validate() error {
	if _, err := talosconfig.ParseKind(l.Kind); err != nil {
		return fmt.Errorf("kind: %w", err)
	}
	if l.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be a positive integer")
	}
	return nil
}

// DocumentKind returns the parsed loader kind. Validate must have succeeded.
func (l LoaderConfig) DocumentKind() talosconfig.Kind {
	k, _ := talosconfig.ParseKind(l.Kind)
	return k
}
