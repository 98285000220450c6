// Command marketpulse runs the market pulse service.
//
// Usage:
//
//	marketpulse serve --config config.yaml
//	marketpulse generate --user-id user-42 --indices NIFTY,SENSEX
//	marketpulse validate --config config.yaml
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/pulselabs/marketpulse/pkg/agent"
	"github.com/pulselabs/marketpulse/pkg/agents"
	"github.com/pulselabs/marketpulse/pkg/cache"
	"github.com/pulselabs/marketpulse/pkg/config"
	"github.com/pulselabs/marketpulse/pkg/datasource"
	"github.com/pulselabs/marketpulse/pkg/httpclient"
	"github.com/pulselabs/marketpulse/pkg/llms"
	"github.com/pulselabs/marketpulse/pkg/logger"
	"github.com/pulselabs/marketpulse/pkg/market"
	"github.com/pulselabs/marketpulse/pkg/observability"
	"github.com/pulselabs/marketpulse/pkg/orchestrator"
	"github.com/pulselabs/marketpulse/pkg/server"
	"github.com/pulselabs/marketpulse/pkg/tools"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP server."`
	Generate GenerateCmd `cmd:"" help:"Generate one report and print it."`
	Validate ValidateCmd `cmd:"" help:"Validate the configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (text or json)." default:"text"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("marketpulse version %s\n", version)
	return nil
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Addr  string `help:"Listen address (overrides config)."`
	Watch bool   `help:"Watch config file for changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.GetLogger().Info("shutting down")
		cancel()
	}()

	cfg, loader, err := loadConfig(ctx, cli)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
		if c.Watch {
			go func() {
				if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
					logger.GetLogger().Error("config watch stopped", "error", err)
				}
			}()
		}
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}

	pipeline, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer pipeline.close()

	srv := server.New(pipeline.orch, pipeline.cache, server.Options{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, logger.New("server"))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// GenerateCmd runs one orchestration and prints the report as JSON.
type GenerateCmd struct {
	UserID       string   `name:"user-id" help:"User to generate the report for." required:""`
	Indices      []string `help:"Indices of interest." default:"NIFTY,SENSEX"`
	Timestamp    string   `help:"Request timestamp (RFC3339, default now)."`
	ForceRefresh bool     `name:"force-refresh" help:"Bypass the response cache."`
}

func (c *GenerateCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, loader, err := loadConfig(ctx, cli)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	ts := time.Now()
	if c.Timestamp != "" {
		ts, err = time.Parse(time.RFC3339, c.Timestamp)
		if err != nil {
			return fmt.Errorf("invalid --timestamp: %w", err)
		}
	}

	pipeline, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer pipeline.close()

	report, err := pipeline.orch.Generate(ctx, market.Request{
		UserID:          c.UserID,
		SelectedIndices: c.Indices,
		Timestamp:       ts,
		ForceRefresh:    c.ForceRefresh,
	}, uuid.NewString())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// ValidateCmd checks the configuration file.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for validate")
	}
	_, loader, err := config.LoadFile(context.Background(), cli.Config)
	if err != nil {
		return err
	}
	loader.Close()
	fmt.Println("configuration is valid")
	return nil
}

func loadConfig(ctx context.Context, cli *CLI) (*config.Config, *config.Loader, error) {
	if cli.Config == "" {
		return config.Default(), nil, nil
	}
	return config.LoadFile(ctx, cli.Config)
}

// pipeline bundles everything one orchestration needs.
type pipeline struct {
	orch  *orchestrator.Orchestrator
	cache *cache.ResponseCache
}

func (p *pipeline) close() {
	if p.cache != nil {
		p.cache.Close()
	}
}

func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	metrics, err := observability.InitMetrics(ctx, observability.MetricsConfig{Enabled: cfg.Metrics.Enabled})
	if err != nil {
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}
	if cfg.Metrics.Enabled {
		observability.SetGlobalMetrics(metrics)
	}

	if _, err := observability.InitGlobalTracer(ctx, observability.TracerConfig{
		Enabled:      cfg.Tracing.Enabled,
		ExporterType: cfg.Tracing.ExporterType,
		EndpointURL:  cfg.Tracing.EndpointURL,
		SamplingRate: cfg.Tracing.SamplingRate,
		ServiceName:  cfg.Tracing.ServiceName,
	}); err != nil {
		return nil, fmt.Errorf("initializing tracer: %w", err)
	}

	responseCache := cache.Disabled()
	if cfg.Cache.Enabled {
		store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting response cache: %w", err)
		}
		responseCache = cache.New(store, cache.Options{
			Prefix: cfg.Cache.KeyPrefix,
			TTL:    cfg.Cache.TTL,
		}, logger.New("cache"))
	}

	var md datasource.MarketData
	var ud datasource.UserData
	switch cfg.Sources.Type {
	case "http":
		src := datasource.NewHTTPSource(cfg.Sources.BaseURL,
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Sources.Timeout}),
			httpclient.WithLogger(logger.New("datasource")))
		md, ud = src, src
	default:
		src := datasource.NewFixtureSource()
		md, ud = src, src
	}

	registry := tools.NewRegistry()
	if err := datasource.RegisterAll(registry, md, ud); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	gateway, err := llms.NewGeminiGateway(ctx, llms.GeminiOptions{
		APIKey:       cfg.Model.APIKey,
		DefaultModel: cfg.Model.DefaultID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model gateway: %w", err)
	}

	intel := agents.NewIntelligenceAgent(gateway, registry, agentConfig(cfg.Agents.Intelligence, cfg.Model.DefaultID), cfg.Model.MaxToolTurns)
	insight := agents.NewInsightAgent(gateway, registry, agentConfig(cfg.Agents.Insight, cfg.Model.DefaultID), cfg.Model.MaxToolTurns)
	summary := agents.NewSummaryAgent(agentConfig(cfg.Agents.Summary.AgentConfig, cfg.Model.FastID))

	runtime := agent.NewRuntime(responseCache)
	orch := orchestrator.New(runtime, orchestrator.Agents{
		Intelligence: intel,
		Insight:      insight,
		Summary:      summary,
	}, orchestrator.Options{MaxBullets: cfg.Agents.Summary.MaxBullets}, logger.New("orchestrator"))

	return &pipeline{orch: orch, cache: responseCache}, nil
}

func agentConfig(a config.AgentConfig, model string) agent.Config {
	return agent.Config{
		Model:           model,
		Timeout:         a.Timeout,
		MaxRetries:      a.RetryAttempts,
		Temperature:     a.Temperature,
		MaxOutputTokens: a.MaxOutputTokens,
		Cacheable:       a.Cacheable == nil || *a.Cacheable,
	}
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("marketpulse"),
		kong.Description("Per-user market pulse reports from coordinated reasoning agents"),
		kong.UsageOnError(),
	)

	level, _ := logger.ParseLevel(cli.LogLevel)
	logger.Init(logger.Config{Level: level, Format: cli.LogFormat})

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
