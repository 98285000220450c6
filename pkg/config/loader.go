package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/pulselabs/marketpulse/pkg/config/provider"
)

// Loader turns provider bytes into validated Config values and can follow
// the provider's change signals.
type Loader struct {
	provider provider.Provider
	onChange func(*Config)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithOnChange sets a callback invoked with each successfully reloaded
// config.
func WithOnChange(fn func(*Config)) LoaderOption {
	return func(l *Loader) { l.onChange = fn }
}

// NewLoader creates a Loader reading from p.
func NewLoader(p provider.Provider, opts ...LoaderOption) *Loader {
	l := &Loader{provider: p}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load runs the full pipeline: provider bytes, parse, env expansion,
// decode, defaults, validation.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	data, err := l.provider.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	raw, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := &Config{}
	if err := decode(expandEnv(raw).(map[string]any), cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Watch follows provider change signals, reloading on each and invoking
// the onChange callback. A reload that fails keeps the previous config and
// logs the error. Blocks until ctx is cancelled.
func (l *Loader) Watch(ctx context.Context) error {
	changes, err := l.provider.Watch(ctx)
	if err != nil {
		return fmt.Errorf("starting config watch: %w", err)
	}
	if changes == nil {
		slog.Info("config provider does not support watching")
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			cfg, err := l.Load(ctx)
			if err != nil {
				slog.Error("config reload failed, keeping previous config", "error", err)
				continue
			}
			slog.Info("config reloaded")
			if l.onChange != nil {
				l.onChange(cfg)
			}
		}
	}
}

// Close releases the underlying provider.
func (l *Loader) Close() error {
	return l.provider.Close()
}

// LoadFile loads path and returns the config together with a Loader that
// can watch the file.
func LoadFile(ctx context.Context, path string) (*Config, *Loader, error) {
	p, err := provider.NewFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating config provider: %w", err)
	}

	loader := NewLoader(p)
	cfg, err := loader.Load(ctx)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return cfg, loader, nil
}

// parseDocument accepts YAML (which subsumes JSON) and falls back to a
// strict JSON parse for clearer errors on malformed JSON input. An empty
// document yields an empty map so defaults alone produce a working config.
func parseDocument(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		if jerr := json.Unmarshal(data, &doc); jerr != nil {
			return nil, fmt.Errorf("not valid YAML or JSON: %w", err)
		}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// decode maps the parsed document onto the Config tree. Weak typing plus
// the duration hook let YAML carry "30s" for time.Duration fields.
func decode(doc map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(doc)
}

// envPattern matches ${VAR}, ${VAR:-default}, and bare $VAR references.
var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnv walks the parsed document and substitutes environment
// variables inside every string value.
func expandEnv(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = expandEnv(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandEnv(item)
		}
		return out
	case string:
		return envPattern.ReplaceAllStringFunc(val, substituteEnv)
	default:
		return v
	}
}

func substituteEnv(ref string) string {
	if !strings.HasPrefix(ref, "${") {
		return os.Getenv(ref[1:])
	}

	inner := ref[2 : len(ref)-1]
	name, fallback, hasFallback := strings.Cut(inner, ":-")
	value := os.Getenv(name)
	if value == "" && hasFallback {
		return fallback
	}
	return value
}
