// Package config loads and validates analyzer configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Supported trace exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Policy  PolicyConfig  `mapstructure:"policy"`
	Content ContentConfig `mapstructure:"content"`
	Render  RenderConfig  `mapstructure:"render"`
	Feed    FeedConfig    `mapstructure:"feed"`
	API     APIConfig     `mapstructure:"api"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HTTPConfig holds settings shared by every plain HTTP fetch.
type HTTPConfig struct {
	UserAgent string `mapstructure:"user_agent"`
	// MaxRPS caps requests per second to one host; 0 disables the limit.
	MaxRPS float64 `mapstructure:"max_rps"`
	Burst  int     `mapstructure:"burst"`
}

// PolicyConfig configures the robots.txt probe.
type PolicyConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ContentConfig configures page extraction and its retry loop.
type ContentConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
}

// RenderConfig configures the headless browser comparison.
type RenderConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Ratio       float64       `mapstructure:"ratio"`
	MaxParallel int           `mapstructure:"max_parallel"`
	ExecPath    string        `mapstructure:"exec_path"`
}

// FeedConfig configures the syndication feed check.
type FeedConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// APIConfig configures the API endpoint check.
type APIConfig struct {
	Paths   []string      `mapstructure:"paths"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects and configures the result store.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("http.user_agent", "siteprobe/0.1")
	v.SetDefault("http.max_rps", 0)
	v.SetDefault("http.burst", 3)
	v.SetDefault("policy.timeout", 10*time.Second)
	v.SetDefault("content.timeout", 10*time.Second)
	v.SetDefault("content.max_attempts", 3)
	v.SetDefault("content.backoff_base", time.Second)
	v.SetDefault("render.enabled", true)
	v.SetDefault("render.timeout", 30*time.Second)
	v.SetDefault("render.ratio", 1.5)
	v.SetDefault("render.max_parallel", 1)
	v.SetDefault("feed.path", "/rss")
	v.SetDefault("feed.timeout", 10*time.Second)
	v.SetDefault("api.paths", []string{"/api", "/v1/api", "/json"})
	v.SetDefault("api.timeout", 5*time.Second)
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.path", "crawled_data.db")
	v.SetDefault("store.table", "crawl_results")
	v.SetDefault("logging.development", true)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", ExporterNone)
	v.SetDefault("tracing.service_name", "siteprobe")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	if c.HTTP.MaxRPS < 0 {
		return fmt.Errorf("http.max_rps must be >= 0")
	}
	if c.Policy.Timeout <= 0 {
		return fmt.Errorf("policy.timeout must be > 0")
	}
	if c.Content.Timeout <= 0 {
		return fmt.Errorf("content.timeout must be > 0")
	}
	if c.Content.MaxAttempts < 1 {
		return fmt.Errorf("content.max_attempts must be >= 1")
	}
	if c.Content.BackoffBase < 0 {
		return fmt.Errorf("content.backoff_base must be >= 0")
	}
	if c.Render.Enabled && c.Render.Timeout <= 0 {
		return fmt.Errorf("render.timeout must be > 0 when rendering is enabled")
	}
	if c.Render.Ratio <= 0 {
		return fmt.Errorf("render.ratio must be > 0")
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be > 0")
	}
	if len(c.API.Paths) == 0 {
		return fmt.Errorf("api.paths must not be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0")
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path must be set for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}
	switch c.Tracing.Exporter {
	case ExporterNone, ExporterStdout:
	default:
		return fmt.Errorf("tracing.exporter %q is not supported", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}
	return nil
}
