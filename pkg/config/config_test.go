package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulselabs/marketpulse/pkg/config/provider"
)

func loadFromYAML(t *testing.T, data string) (*Config, error) {
	t.Helper()
	l := NewLoader(&provider.Static{Data: []byte(data)})
	return l.Load(context.Background())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadFromYAML(t, "{}")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model.DefaultID)
	assert.Equal(t, cfg.Model.DefaultID, cfg.Model.FastID)
	assert.Equal(t, 10, cfg.Model.MaxToolTurns)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Agents.Intelligence.Timeout)
	assert.Equal(t, 2, cfg.Agents.Insight.RetryAttempts)
	assert.Equal(t, 3, cfg.Agents.Summary.MaxBullets)
	assert.Equal(t, 0.3, cfg.Agents.Summary.Temperature)
	assert.Equal(t, "fixture", cfg.Sources.Type)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := loadFromYAML(t, `
model:
  default_id: gemini-1.5-pro
  max_tool_turns: 4
cache:
  enabled: true
  addr: redis:6379
  ttl: 90s
agents:
  intelligence:
    timeout: 45s
    retry_attempts: 1
  summary:
    max_bullets: 5
`)
	require.NoError(t, err)

	assert.Equal(t, "gemini-1.5-pro", cfg.Model.DefaultID)
	assert.Equal(t, 4, cfg.Model.MaxToolTurns)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 45*time.Second, cfg.Agents.Intelligence.Timeout)
	assert.Equal(t, 1, cfg.Agents.Intelligence.RetryAttempts)
	assert.Equal(t, 5, cfg.Agents.Summary.MaxBullets)
}

func TestLoad_AgentCacheable(t *testing.T) {
	cfg, err := loadFromYAML(t, `
agents:
  insight:
    cacheable: false
`)
	require.NoError(t, err)

	require.NotNil(t, cfg.Agents.Insight.Cacheable)
	assert.False(t, *cfg.Agents.Insight.Cacheable)

	// Unset agents default to cacheable.
	require.NotNil(t, cfg.Agents.Intelligence.Cacheable)
	assert.True(t, *cfg.Agents.Intelligence.Cacheable)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("MP_MODEL_ID", "gemini-2.0-flash-exp")

	cfg, err := loadFromYAML(t, `
model:
  default_id: ${MP_MODEL_ID}
  api_key: ${MP_MISSING_KEY:-fallback-key}
`)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash-exp", cfg.Model.DefaultID)
	assert.Equal(t, "fallback-key", cfg.Model.APIKey)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := loadFromYAML(t, ":\n  - not: [valid")
	assert.Error(t, err)
}

func TestValidate_BadSourceType(t *testing.T) {
	cfg := Default()
	cfg.Sources.Type = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}

func TestValidate_HTTPSourceNeedsBaseURL(t *testing.T) {
	cfg := Default()
	cfg.Sources.Type = "http"
	assert.Error(t, cfg.Validate())

	cfg.Sources.BaseURL = "http://data.internal"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_TemperatureRange(t *testing.T) {
	cfg := Default()
	cfg.Agents.Insight.Temperature = 2.5
	assert.Error(t, cfg.Validate())
}

func TestValidate_MaxToolTurns(t *testing.T) {
	cfg := Default()
	cfg.Model.MaxToolTurns = 0
	assert.Error(t, cfg.Validate())
}

func TestLoad_JSONFallback(t *testing.T) {
	cfg, err := loadFromYAML(t, `{"logging": {"level": "debug", "format": "json"}}`)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}
