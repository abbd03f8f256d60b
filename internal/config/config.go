package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Meraki     MerakiConfig     `yaml:"meraki"`
	Selent     SelentConfig     `yaml:"selent"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int       `yaml:"port"`
	Host string    `yaml:"host"`
	TLS  TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

// MerakiConfig holds dashboard API settings
type MerakiConfig struct {
	APIKeys     string `yaml:"apiKeys"` // "name:key,name2:key2" or a single bare key
	BaseURL     string `yaml:"baseURL"`
	UserAgent   string `yaml:"userAgent"`
	CatalogFile string `yaml:"catalogFile"` // optional YAML catalog or OpenAPI document merged into the builtin one
}

// SelentConfig holds backup and compliance backend settings
type SelentConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
}

// DispatcherConfig holds outbound call behaviour
type DispatcherConfig struct {
	MaxAttempts       int           `yaml:"maxAttempts"`
	InitialBackoff    time.Duration `yaml:"initialBackoff"`
	MaxBackoff        time.Duration `yaml:"maxBackoff"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	CacheTTL          time.Duration `yaml:"cacheTTL"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
	MaxParallel       int           `yaml:"maxParallel"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	MaxTraces int           `yaml:"maxTraces"`
	Retention time.Duration `yaml:"retention"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Meraki: MerakiConfig{
			BaseURL:   "https://api.meraki.com/api/v1",
			UserAgent: "SelentMCP/1.0 SelentAI",
		},
		Selent: SelentConfig{
			BaseURL: "https://backend.selent.ai",
		},
		Dispatcher: DispatcherConfig{
			MaxAttempts:       3,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        8 * time.Second,
			RequestsPerSecond: 10,
			Burst:             10,
			CacheTTL:          300 * time.Second,
			RequestTimeout:    90 * time.Second,
			MaxParallel:       8,
		},
		Tracing: TracingConfig{
			MaxTraces: 1000,
			Retention: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// FromViper builds a Config from the keys bound in v.
// Keys use the same camelCase names as the YAML file.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("server.port"),
			Host: v.GetString("server.host"),
			TLS: TLSConfig{
				Enabled:  v.GetBool("server.tls.enabled"),
				CertFile: v.GetString("server.tls.certFile"),
				KeyFile:  v.GetString("server.tls.keyFile"),
			},
		},
		Meraki: MerakiConfig{
			APIKeys:     v.GetString("meraki.apiKeys"),
			BaseURL:     v.GetString("meraki.baseURL"),
			UserAgent:   v.GetString("meraki.userAgent"),
			CatalogFile: v.GetString("meraki.catalogFile"),
		},
		Selent: SelentConfig{
			APIKey:  v.GetString("selent.apiKey"),
			BaseURL: v.GetString("selent.baseURL"),
		},
		Dispatcher: DispatcherConfig{
			MaxAttempts:       v.GetInt("dispatcher.maxAttempts"),
			InitialBackoff:    v.GetDuration("dispatcher.initialBackoff"),
			MaxBackoff:        v.GetDuration("dispatcher.maxBackoff"),
			RequestsPerSecond: v.GetFloat64("dispatcher.requestsPerSecond"),
			Burst:             v.GetInt("dispatcher.burst"),
			CacheTTL:          v.GetDuration("dispatcher.cacheTTL"),
			RequestTimeout:    v.GetDuration("dispatcher.requestTimeout"),
			MaxParallel:       v.GetInt("dispatcher.maxParallel"),
		},
		Tracing: TracingConfig{
			MaxTraces: v.GetInt("tracing.maxTraces"),
			Retention: v.GetDuration("tracing.retention"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}
	return cfg, cfg.Validate()
}

// SetDefaults registers every default value on v
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.tls.enabled", d.Server.TLS.Enabled)
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")

	v.SetDefault("meraki.apiKeys", "")
	v.SetDefault("meraki.baseURL", d.Meraki.BaseURL)
	v.SetDefault("meraki.userAgent", d.Meraki.UserAgent)
	v.SetDefault("meraki.catalogFile", "")

	v.SetDefault("selent.apiKey", "")
	v.SetDefault("selent.baseURL", d.Selent.BaseURL)

	v.SetDefault("dispatcher.maxAttempts", d.Dispatcher.MaxAttempts)
	v.SetDefault("dispatcher.initialBackoff", d.Dispatcher.InitialBackoff)
	v.SetDefault("dispatcher.maxBackoff", d.Dispatcher.MaxBackoff)
	v.SetDefault("dispatcher.requestsPerSecond", d.Dispatcher.RequestsPerSecond)
	v.SetDefault("dispatcher.burst", d.Dispatcher.Burst)
	v.SetDefault("dispatcher.cacheTTL", d.Dispatcher.CacheTTL)
	v.SetDefault("dispatcher.requestTimeout", d.Dispatcher.RequestTimeout)
	v.SetDefault("dispatcher.maxParallel", d.Dispatcher.MaxParallel)

	v.SetDefault("tracing.maxTraces", d.Tracing.MaxTraces)
	v.SetDefault("tracing.retention", d.Tracing.Retention)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate checks values that would make the server misbehave
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("tls enabled but certFile or keyFile is missing")
	}
	if c.Dispatcher.MaxAttempts < 0 {
		return fmt.Errorf("dispatcher.maxAttempts must not be negative")
	}
	if c.Dispatcher.RequestsPerSecond < 0 {
		return fmt.Errorf("dispatcher.requestsPerSecond must not be negative")
	}
	if c.Tracing.MaxTraces < 0 {
		return fmt.Errorf("tracing.maxTraces must not be negative")
	}
	switch c.Logging.Format {
	case "", "json", "text", "console":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	return nil
}
