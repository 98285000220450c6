// Package config defines the typed configuration tree and its loading
// pipeline: provider bytes, env expansion, mapstructure decode, defaults,
// validation.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Cache   CacheConfig   `yaml:"cache"`
	Agents  AgentsConfig  `yaml:"agents"`
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
	Sources SourcesConfig `yaml:"sources"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type ModelConfig struct {
	// DefaultID is used for the heavier reasoning agents.
	DefaultID string `yaml:"default_id"`
	// FastID is used where latency matters more than depth.
	FastID string `yaml:"fast_id"`
	APIKey string `yaml:"api_key"`
	// MaxToolTurns bounds the tool-calling loop per model conversation.
	MaxToolTurns int `yaml:"max_tool_turns"`
}

type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

type AgentsConfig struct {
	Intelligence AgentConfig        `yaml:"intelligence"`
	Insight      AgentConfig        `yaml:"insight"`
	Summary      SummaryAgentConfig `yaml:"summary"`
}

type AgentConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	RetryAttempts   int           `yaml:"retry_attempts"`
	Temperature     float64       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`

	// Cacheable opts the agent into response caching. Defaults to true;
	// a pointer so an explicit false survives default filling.
	Cacheable *bool `yaml:"cacheable"`
}

type SummaryAgentConfig struct {
	AgentConfig `yaml:",squash"`
	MaxBullets  int `yaml:"max_bullets"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"`
	EndpointURL  string  `yaml:"endpoint_url"`
	SamplingRate float64 `yaml:"sampling_rate"`
	ServiceName  string  `yaml:"service_name"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type SourcesConfig struct {
	// Type selects the data-source backend: "fixture" or "http".
	Type    string        `yaml:"type"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SetDefaults fills zero values with working defaults.
func (c *Config) SetDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}

	if c.Model.DefaultID == "" {
		c.Model.DefaultID = "gemini-2.0-flash"
	}
	if c.Model.FastID == "" {
		c.Model.FastID = c.Model.DefaultID
	}
	if c.Model.MaxToolTurns == 0 {
		c.Model.MaxToolTurns = 10
	}

	if c.Cache.Addr == "" {
		c.Cache.Addr = "localhost:6379"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "agent"
	}

	c.Agents.Intelligence.setDefaults(30*time.Second, 2, 0.1, 2048)
	c.Agents.Insight.setDefaults(30*time.Second, 2, 0.1, 2048)
	c.Agents.Summary.AgentConfig.setDefaults(20*time.Second, 2, 0.3, 4096)
	if c.Agents.Summary.MaxBullets == 0 {
		c.Agents.Summary.MaxBullets = 3
	}

	if c.Tracing.ExporterType == "" {
		c.Tracing.ExporterType = "otlp"
	}
	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = 1.0
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "marketpulse"
	}
	if c.Tracing.EndpointURL == "" {
		c.Tracing.EndpointURL = "localhost:4317"
	}

	if c.Sources.Type == "" {
		c.Sources.Type = "fixture"
	}
	if c.Sources.Timeout == 0 {
		c.Sources.Timeout = 10 * time.Second
	}
}

func (a *AgentConfig) setDefaults(timeout time.Duration, retries int, temperature float64, maxTokens int) {
	if a.Timeout == 0 {
		a.Timeout = timeout
	}
	if a.RetryAttempts == 0 {
		a.RetryAttempts = retries
	}
	if a.Temperature == 0 {
		a.Temperature = temperature
	}
	if a.MaxOutputTokens == 0 {
		a.MaxOutputTokens = maxTokens
	}
	if a.Cacheable == nil {
		cacheable := true
		a.Cacheable = &cacheable
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", c.Logging.Format)
	}

	if c.Model.MaxToolTurns < 1 {
		return fmt.Errorf("model.max_tool_turns must be positive, got %d", c.Model.MaxToolTurns)
	}

	for name, a := range map[string]AgentConfig{
		"intelligence": c.Agents.Intelligence,
		"insight":      c.Agents.Insight,
		"summary":      c.Agents.Summary.AgentConfig,
	} {
		if a.Timeout <= 0 {
			return fmt.Errorf("agents.%s.timeout must be positive", name)
		}
		if a.RetryAttempts < 0 {
			return fmt.Errorf("agents.%s.retry_attempts must not be negative", name)
		}
		if a.Temperature < 0 || a.Temperature > 2 {
			return fmt.Errorf("agents.%s.temperature must be in [0, 2], got %v", name, a.Temperature)
		}
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when cache is enabled")
	}

	switch c.Sources.Type {
	case "fixture", "http":
	default:
		return fmt.Errorf("sources.type must be 'fixture' or 'http', got %q", c.Sources.Type)
	}
	if c.Sources.Type == "http" && c.Sources.BaseURL == "" {
		return fmt.Errorf("sources.base_url is required for http sources")
	}

	if c.Tracing.Enabled {
		if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
			return fmt.Errorf("tracing.sampling_rate must be in [0, 1], got %v", c.Tracing.SamplingRate)
		}
	}

	return nil
}

// Default returns a fully-defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
