// Package marketpulse generates per-user market pulse reports by
// coordinating three reasoning agents over a shared tool registry.
//
// A report request flows through three phases. Market intelligence runs
// first and establishes the market phase, index levels, classified news,
// and preliminary themes. Portfolio insight and summary generation then
// run in parallel: insight grounds the news in the user's watchlist and
// holdings, while summary distills causal bullets and an executive
// summary. Assembly projects the results into the response shape, with
// degraded-mode fallbacks whenever an agent fails.
//
// # Quick start
//
// Install the CLI:
//
//	go install github.com/pulselabs/marketpulse/cmd/marketpulse@latest
//
// Generate a single report against the built-in fixture data:
//
//	marketpulse generate --user-id user-42 --indices NIFTY,SENSEX
//
// Run the HTTP server:
//
//	marketpulse serve --config config.yaml
//
// A minimal configuration:
//
//	model:
//	  default_id: "gemini-2.0-flash"
//	  api_key: "${GEMINI_API_KEY}"
//
//	cache:
//	  enabled: true
//	  addr: "localhost:6379"
//	  ttl: 5m
//
//	agents:
//	  intelligence:
//	    timeout: 30s
//	  insight:
//	    timeout: 30s
//	  summary:
//	    timeout: 20s
//	    max_bullets: 3
//
// Every field has a working default; an empty file (or no file at all)
// yields a fixture-backed, cache-disabled service.
//
// # Packages
//
//   - pkg/market: domain types, market phase windows, theme catalog
//   - pkg/tools: tool registry with JSON Schema argument validation
//   - pkg/datasource: fixture and HTTP data sources behind the registry
//   - pkg/llms: Gemini gateway with the bounded tool-calling loop
//   - pkg/agent: agent contract, runtime (validation, timeout, retry, cache)
//   - pkg/agents: the three reasoning agents
//   - pkg/orchestrator: three-phase coordination and report assembly
//   - pkg/cache: content-addressed response cache over Redis
//   - pkg/server: chi HTTP surface
//   - pkg/config: typed configuration with env expansion and hot reload
package marketpulse
