package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulselabs/marketpulse/pkg/agent"
	"github.com/pulselabs/marketpulse/pkg/market"
	"github.com/pulselabs/marketpulse/pkg/tools"
)

// Tool name groups, used by agents to select their declarations.
var (
	MarketToolNames = []string{
		"fetch_market_indices",
		"fetch_market_news",
		"fetch_stock_specific_news",
		"get_market_phase",
		"rank_news_by_importance",
		"cluster_news_by_topic",
	}
	UserToolNames = []string{
		"fetch_user_watchlist",
		"fetch_user_portfolio",
		"calculate_sector_exposure",
		"get_user_preferences",
	}
	AnalysisToolNames = []string{
		"identify_sector_from_stocks",
		"analyze_supply_chain_impact",
		"get_company_fundamentals",
	}
)

// RegisterAll binds every data-source tool into the registry.
func RegisterAll(reg *tools.Registry, md MarketData, ud UserData) error {
	all := []tools.Tool{}
	all = append(all, marketTools(md)...)
	all = append(all, userTools(ud)...)
	all = append(all, analysisTools()...)

	for _, t := range all {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func marketTools(md MarketData) []tools.Tool {
	return []tools.Tool{
		tools.NewFuncTool(tools.Definition{
			Name:        "fetch_market_indices",
			Description: "Fetches current value and change for the named market indices.",
			Parameters: []tools.Parameter{
				{Name: "indices", Type: "array", Description: "Index names, e.g. NIFTY, SENSEX",
					Required: true, Items: map[string]any{"type": "string"}},
			},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			names := stringSlice(args["indices"])
			indices, err := md.Indices(ctx, names)
			if err != nil {
				return nil, &agent.DataFetchError{Source: "market_data", Message: "indices fetch failed", Err: err}
			}
			return indices, nil
		}),

		tools.NewFuncTool(tools.Definition{
			Name:        "fetch_market_news",
			Description: "Fetches recent market news, newest first.",
			Parameters: []tools.Parameter{
				{Name: "window_hours", Type: "integer", Description: "Lookback window in hours, default 24"},
				{Name: "limit", Type: "integer", Description: "Maximum items to return, default 20"},
			},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			window := time.Duration(intArg(args, "window_hours", 24)) * time.Hour
			items, err := md.News(ctx, window, intArg(args, "limit", 20))
			if err != nil {
				return nil, &agent.DataFetchError{Source: "market_data", Message: "news fetch failed", Err: err}
			}
			return items, nil
		}),

		tools.NewFuncTool(tools.Definition{
			Name:        "fetch_stock_specific_news",
			Description: "Fetches recent news mentioning one stock.",
			Parameters: []tools.Parameter{
				{Name: "ticker", Type: "string", Required: true},
				{Name: "limit", Type: "integer", Description: "Maximum items to return, default 5"},
			},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			ticker, _ := args["ticker"].(string)
			items, err := md.StockNews(ctx, ticker, intArg(args, "limit", 5))
			if err != nil {
				return nil, &agent.DataFetchError{Source: "market_data", Message: "stock news fetch failed", Err: err}
			}
			return items, nil
		}),

		tools.NewFuncTool(tools.Definition{
			Name:        "get_market_phase",
			Description: "Derives the market phase (pre, mid, post) for a timestamp, default now.",
			Parameters: []tools.Parameter{
				{Name: "timestamp", Type: "string", Description: "RFC3339 timestamp"},
			},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			at := time.Now()
			if raw, ok := args["timestamp"].(string); ok && raw != "" {
				parsed, err := time.Parse(time.RFC3339, raw)
				if err != nil {
					return nil, fmt.Errorf("invalid timestamp %q: %w", raw, err)
				}
				at = parsed
			}
			return string(market.PhaseAt(at)), nil
		}),

		tools.NewFuncTool(tools.Definition{
			Name:        "rank_news_by_importance",
			Description: "Orders news items by importance: breaking first, then relevance, then recency.",
			Parameters: []tools.Parameter{
				{Name: "news_items", Type: "array", Required: true,
					Items: map[string]any{"type": "object"}},
			},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			items, err := newsItemsArg(args["news_items"])
			if err != nil {
				return nil, err
			}
			return RankNews(items), nil
		}),

		tools.NewFuncTool(tools.Definition{
			Name:        "cluster_news_by_topic",
			Description: "Groups news item ids by their shared sectors.",
			Parameters: []tools.Parameter{
				{Name: "news_items", Type: "array", Required: true,
					Items: map[string]any{"type": "object"}},
			},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			items, err := newsItemsArg(args["news_items"])
			if err != nil {
				return nil, err
			}
			return ClusterByTopic(items), nil
		}),
	}
}

func userTools(ud UserData) []tools.Tool {
	userIDParam := tools.Parameter{Name: "user_id", Type: "string", Required: true}

	return []tools.Tool{
		tools.NewFuncTool(tools.Definition{
			Name:        "fetch_user_watchlist",
			Description: "Fetches the user's watchlist tickers.",
			Parameters:  []tools.Parameter{userIDParam},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			watchlist, err := ud.Watchlist(ctx, args["user_id"].(string))
			if err != nil {
				return nil, &agent.DataFetchError{Source: "user_data", Message: "watchlist fetch failed", Err: err}
			}
			return watchlist, nil
		}),

		tools.NewFuncTool(tools.Definition{
			Name:        "fetch_user_portfolio",
			Description: "Fetches the user's portfolio holdings.",
			Parameters:  []tools.Parameter{userIDParam},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			holdings, err := ud.Portfolio(ctx, args["user_id"].(string))
			if err != nil {
				return nil, &agent.DataFetchError{Source: "user_data", Message: "portfolio fetch failed", Err: err}
			}
			return holdings, nil
		}),

		tools.NewFuncTool(tools.Definition{
			Name:        "calculate_sector_exposure",
			Description: "Computes each sector's percent share of the user's portfolio value.",
			Parameters:  []tools.Parameter{userIDParam},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			holdings, err := ud.Portfolio(ctx, args["user_id"].(string))
			if err != nil {
				return nil, &agent.DataFetchError{Source: "user_data", Message: "portfolio fetch failed", Err: err}
			}
			return SectorExposure(holdings), nil
		}),

		tools.NewFuncTool(tools.Definition{
			Name:        "get_user_preferences",
			Description: "Fetches the user's report preferences.",
			Parameters:  []tools.Parameter{userIDParam},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			prefs, err := ud.Preferences(ctx, args["user_id"].(string))
			if err != nil {
				return nil, &agent.DataFetchError{Source: "user_data", Message: "preferences fetch failed", Err: err}
			}
			return prefs, nil
		}),
	}
}

func analysisTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFuncTool(tools.Definition{
			Name:        "identify_sector_from_stocks",
			Description: "Maps stock tickers to their sectors.",
			Parameters: []tools.Parameter{
				{Name: "stocks", Type: "array", Required: true,
					Items: map[string]any{"type": "string"}},
			},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			return SectorOf(stringSlice(args["stocks"])), nil
		}),

		tools.NewFuncTool(tools.Definition{
			Name:        "analyze_supply_chain_impact",
			Description: "Lists sectors affected downstream when the given sector moves.",
			Parameters: []tools.Parameter{
				{Name: "sector", Type: "string", Required: true},
				{Name: "direction", Type: "string",
					Enum: []string{"positive", "negative", "neutral"}},
			},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			direction, _ := args["direction"].(string)
			return SupplyChainImpact(args["sector"].(string), direction), nil
		}),

		tools.NewFuncTool(tools.Definition{
			Name:        "get_company_fundamentals",
			Description: "Returns key financial ratios for a ticker.",
			Parameters: []tools.Parameter{
				{Name: "ticker", Type: "string", Required: true},
			},
		}, func(ctx context.Context, args map[string]any) (any, error) {
			ticker, _ := args["ticker"].(string)
			f, ok := Fundamentals(ticker)
			if !ok {
				return nil, fmt.Errorf("no fundamentals for ticker %s", ticker)
			}
			return f, nil
		}),
	}
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

// newsItemsArg decodes a wire-shaped news list into typed items.
func newsItemsArg(v any) ([]market.NewsItem, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("invalid news_items: %w", err)
	}
	var items []market.NewsItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("invalid news_items: %w", err)
	}
	return items, nil
}
