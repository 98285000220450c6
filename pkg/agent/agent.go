// Package agent defines the agent contract and the runtime that wraps every
// execution with validation, caching, timeouts, and retries.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pulselabs/marketpulse/pkg/llms"
)

// Config carries an agent's execution settings.
type Config struct {
	// Name identifies the agent in logs, metrics, and cache keys.
	Name string

	// Model names the model this agent reasons with.
	Model string

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// Cacheable opts the agent's responses into the content-addressed
	// cache. Agents whose output depends on per-request state beyond their
	// input should leave this false.
	Cacheable bool

	// Temperature for model calls.
	Temperature float64

	// MaxOutputTokens for model calls.
	MaxOutputTokens int
}

// GenerateConfig renders the agent's model settings for a gateway call.
func (c Config) GenerateConfig() llms.GenerateConfig {
	temp := c.Temperature
	return llms.GenerateConfig{
		Model:           c.Model,
		Temperature:     &temp,
		MaxOutputTokens: c.MaxOutputTokens,
	}
}

// ExecutionContext carries per-request state into an agent execution.
type ExecutionContext struct {
	RequestID    string
	UserID       string
	StartTime    time.Time
	ForceRefresh bool
	Logger       *slog.Logger
}

// Log returns the request-scoped logger, falling back to the default.
func (ec *ExecutionContext) Log() *slog.Logger {
	if ec != nil && ec.Logger != nil {
		return ec.Logger
	}
	return slog.Default()
}

// Agent is a single reasoning step: typed output, schema-validated on both
// sides, executed under the runtime's timeout and retry policy.
type Agent[T any] interface {
	Config() Config
	InputSchema() *jsonschema.Schema
	OutputSchema() *jsonschema.Schema
	Execute(ctx context.Context, input map[string]any, ec *ExecutionContext) (T, error)
}

// Gateway is the model surface agents reason through.
type Gateway interface {
	Generate(ctx context.Context, prompt string, cfg llms.GenerateConfig) (string, error)
	ChatWithTools(ctx context.Context, prompt string, invoker llms.Invoker, cfg llms.GenerateConfig) (string, error)
}
