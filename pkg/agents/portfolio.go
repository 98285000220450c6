package agents

import (
	"context"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pulselabs/marketpulse/pkg/agent"
	"github.com/pulselabs/marketpulse/pkg/llms"
	"github.com/pulselabs/marketpulse/pkg/market"
	"github.com/pulselabs/marketpulse/pkg/tools"
)

// InsightInput is the portfolio insight agent's input.
type InsightInput struct {
	UserID            string                `json:"user_id"`
	NewsItems         []market.NewsItem     `json:"news_items"`
	PreliminaryThemes []market.ThemeGroup   `json:"preliminary_themes"`
	MarketOutlook     *market.MarketOutlook `json:"market_outlook,omitempty"`
}

// InsightOutput is the personalized analysis for one user.
type InsightOutput struct {
	Watchlist         []string                  `json:"watchlist"`
	PortfolioHoldings []market.PortfolioHolding `json:"portfolio_holdings"`
	SectorExposure    map[string]float64        `json:"sector_exposure"`
	NewsWithImpacts   []market.NewsWithImpact   `json:"news_with_impacts"`
	RefinedThemes     []market.ThemeGroup       `json:"refined_themes"`
	PortfolioImpact   market.PortfolioImpact    `json:"portfolio_impact"`
	WatchlistAlerts   []market.WatchlistAlert   `json:"watchlist_alerts"`
}

// insightModelOutput is the JSON shape the model must return.
type insightModelOutput struct {
	NewsWithImpacts []modelNewsImpact `json:"news_with_impacts"`
	RefinedThemes   []modelTheme      `json:"refined_themes"`
}

type modelNewsImpact struct {
	NewsID           string                   `json:"news_id"`
	ImpactedStocks   []market.ImpactedStock   `json:"impacted_stocks"`
	SectorImpacts    map[string]market.Impact `json:"sector_impacts"`
	CausalChain      string                   `json:"causal_chain"`
	ImpactConfidence float64                  `json:"impact_confidence"`
}

// InsightAgent connects the news flow to the user's holdings and watchlist.
type InsightAgent struct {
	cfg          agent.Config
	gateway      agent.Gateway
	registry     *tools.Registry
	maxToolTurns int

	inSchema       *jsonschema.Schema
	outSchema      *jsonschema.Schema
	modelOutSchema *jsonschema.Schema
}

// NewInsightAgent wires the agent to its gateway and tool registry.
func NewInsightAgent(gateway agent.Gateway, registry *tools.Registry, cfg agent.Config, maxToolTurns int) *InsightAgent {
	cfg.Name = "portfolio_insight"
	return &InsightAgent{
		cfg:            cfg,
		gateway:        gateway,
		registry:       registry,
		maxToolTurns:   maxToolTurns,
		inSchema:       agent.MustSchema(&InsightInput{}),
		outSchema:      agent.MustSchema(&InsightOutput{}),
		modelOutSchema: agent.MustSchema(&insightModelOutput{}),
	}
}

func (a *InsightAgent) Config() agent.Config             { return a.cfg }
func (a *InsightAgent) InputSchema() *jsonschema.Schema  { return a.inSchema }
func (a *InsightAgent) OutputSchema() *jsonschema.Schema { return a.outSchema }

func (a *InsightAgent) Execute(ctx context.Context, input map[string]any, ec *agent.ExecutionContext) (InsightOutput, error) {
	var in InsightInput
	if err := decodeInput(input, &in); err != nil {
		return InsightOutput{}, err
	}

	watchlist, holdings, exposure, err := a.fetchUserContext(ctx, in.UserID)
	if err != nil {
		return InsightOutput{}, err
	}

	modelOut, err := a.analyze(ctx, in, watchlist, holdings)
	if err != nil {
		return InsightOutput{}, err
	}

	impacts := resolveImpacts(modelOut.NewsWithImpacts, in.NewsItems)
	themes := refineThemes(modelOut.RefinedThemes, in.NewsItems, impacts, holdings, ec)

	out := InsightOutput{
		Watchlist:         watchlist,
		PortfolioHoldings: holdings,
		SectorExposure:    exposure,
		NewsWithImpacts:   impacts,
		RefinedThemes:     themes,
		PortfolioImpact:   computePortfolioImpact(impacts, holdings),
		WatchlistAlerts:   buildWatchlistAlerts(watchlist, impacts, in.NewsItems),
	}

	ec.Log().Info("portfolio insight complete",
		"impacts", len(out.NewsWithImpacts),
		"themes", len(out.RefinedThemes),
		"alerts", len(out.WatchlistAlerts))

	return out, nil
}

func (a *InsightAgent) fetchUserContext(ctx context.Context, userID string) ([]string, []market.PortfolioHolding, map[string]float64, error) {
	args := map[string]any{"user_id": userID}

	reply := a.registry.Invoke(ctx, "fetch_user_watchlist", args)
	watchlist, ok := reply["result"].([]string)
	if !ok {
		return nil, nil, nil, fetchFailure("fetch_user_watchlist", reply)
	}

	reply = a.registry.Invoke(ctx, "fetch_user_portfolio", args)
	holdings, ok := reply["result"].([]market.PortfolioHolding)
	if !ok {
		return nil, nil, nil, fetchFailure("fetch_user_portfolio", reply)
	}

	reply = a.registry.Invoke(ctx, "calculate_sector_exposure", args)
	exposure, ok := reply["result"].(map[string]float64)
	if !ok {
		return nil, nil, nil, fetchFailure("calculate_sector_exposure", reply)
	}

	return watchlist, holdings, exposure, nil
}

func fetchFailure(tool string, reply map[string]any) error {
	if msg, ok := reply["error"].(string); ok {
		return &agent.DataFetchError{Source: tool, Message: msg}
	}
	return &agent.DataFetchError{Source: tool,
		Message: fmt.Sprintf("unexpected result type %T", reply["result"])}
}

// analyze asks the model for per-news impacts and refined themes.
func (a *InsightAgent) analyze(ctx context.Context, in InsightInput, watchlist []string, holdings []market.PortfolioHolding) (insightModelOutput, error) {
	var out insightModelOutput

	prompt, err := renderPrompt(map[string]any{
		"news":               compactNews(in.NewsItems),
		"preliminary_themes": in.PreliminaryThemes,
		"market_outlook":     in.MarketOutlook,
		"watchlist":          watchlist,
		"holdings":           holdings,
	})
	if err != nil {
		return out, err
	}

	genCfg := a.cfg.GenerateConfig()
	genCfg.SystemInstruction = insightSystemPrompt
	genCfg.Tools = a.registry.Declarations(
		"identify_sector_from_stocks",
		"analyze_supply_chain_impact",
		"get_company_fundamentals",
		"fetch_stock_specific_news",
	)
	genCfg.MaxToolTurns = a.maxToolTurns

	text, err := a.gateway.ChatWithTools(ctx, prompt, a.registry, genCfg)
	if err != nil {
		return out, err
	}
	if err := llms.ParseStructured(text, a.modelOutSchema, &out); err != nil {
		return out, err
	}
	return out, nil
}

// resolveImpacts joins model impacts to their news items, synthesizing a
// causal chain when the model left one empty. Impacts for unknown news ids
// are dropped.
func resolveImpacts(impacts []modelNewsImpact, news []market.NewsItem) []market.NewsWithImpact {
	byID := make(map[string]market.NewsItem, len(news))
	for _, item := range news {
		byID[item.ID] = item
	}

	var out []market.NewsWithImpact
	for _, mi := range impacts {
		item, ok := byID[mi.NewsID]
		if !ok {
			continue
		}

		chain := mi.CausalChain
		if chain == "" {
			chain = synthesizeCausalChain(item, mi.ImpactedStocks)
		}

		confidence := mi.ImpactConfidence
		if confidence < 0 {
			confidence = 0
		} else if confidence > 1 {
			confidence = 1
		}

		out = append(out, market.NewsWithImpact{
			NewsID:           mi.NewsID,
			NewsItem:         item,
			ImpactedStocks:   mi.ImpactedStocks,
			SectorImpacts:    mi.SectorImpacts,
			CausalChain:      chain,
			ImpactConfidence: confidence,
		})
	}
	return out
}

// synthesizeCausalChain builds a minimal causal explanation from the news
// item when the model omitted one.
func synthesizeCausalChain(item market.NewsItem, impacted []market.ImpactedStock) string {
	connector := market.CausalConnectors(item.Sentiment)[0]
	subject := "Broader market"
	if len(impacted) > 0 {
		subject = impacted[0].Ticker
	} else if len(item.MentionedSectors) > 0 {
		subject = item.MentionedSectors[0] + " sector"
	}
	return fmt.Sprintf("%s affected %s %s", subject, connector, item.Headline)
}

// refineThemes normalizes theme names against the allowed catalog, dropping
// the ones that do not normalize, then ranks and caps them. Themes covering
// held stocks come first, ties broken by the theme's aggregate impact
// confidence, then by catalog order.
func refineThemes(themes []modelTheme, news []market.NewsItem, impacts []market.NewsWithImpact, holdings []market.PortfolioHolding, ec *agent.ExecutionContext) []market.ThemeGroup {
	held := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		held[h.Ticker] = true
	}

	byID := make(map[string]market.NewsItem, len(news))
	for _, item := range news {
		byID[item.ID] = item
	}

	confByID := make(map[string]float64, len(impacts))
	for _, imp := range impacts {
		confByID[imp.NewsID] = imp.ImpactConfidence
	}

	type rankedTheme struct {
		group         market.ThemeGroup
		heldCount     int
		aggConfidence float64
	}

	var ranked []rankedTheme
	for _, t := range themes {
		normalized, ok := market.NormalizeTheme(t.ThemeName)
		if !ok {
			ec.Log().Warn("dropping unrecognized theme", "theme", t.ThemeName)
			continue
		}

		group := market.ThemeGroup{
			ThemeName:        normalized,
			OverallSentiment: t.OverallSentiment,
			ImpactedStocks:   t.ImpactedStocks,
			Reason:           t.Reason,
		}
		for _, id := range t.NewsIDs {
			if item, ok := byID[id]; ok {
				group.NewsItems = append(group.NewsItems, item)
			}
		}

		heldCount := 0
		for _, ticker := range t.ImpactedStocks {
			if held[ticker] {
				heldCount++
			}
		}

		var agg float64
		for _, id := range t.NewsIDs {
			agg += confByID[id]
		}

		ranked = append(ranked, rankedTheme{group: group, heldCount: heldCount, aggConfidence: agg})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.heldCount != b.heldCount {
			return a.heldCount > b.heldCount
		}
		if a.aggConfidence != b.aggConfidence {
			return a.aggConfidence > b.aggConfidence
		}
		return market.ThemeRank(a.group.ThemeName) < market.ThemeRank(b.group.ThemeName)
	})

	if len(ranked) > market.MaxThemedNews {
		ranked = ranked[:market.MaxThemedNews]
	}

	out := make([]market.ThemeGroup, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.group)
	}
	return out
}

// magnitudeWeight grades impact sizes for aggregation.
func magnitudeWeight(m market.Magnitude) float64 {
	switch m {
	case market.MagnitudeHigh:
		return 3
	case market.MagnitudeMedium:
		return 2
	default:
		return 1
	}
}

// computePortfolioImpact aggregates weighted stock impacts over the user's
// holdings. Sentiment is mixed when both sides carry at least 20% of total
// magnitude.
func computePortfolioImpact(impacts []market.NewsWithImpact, holdings []market.PortfolioHolding) market.PortfolioImpact {
	held := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		held[h.Ticker] = true
	}

	var positive, negative float64
	weightByTicker := make(map[string]float64)

	for _, nwi := range impacts {
		for _, stock := range nwi.ImpactedStocks {
			if !held[stock.Ticker] {
				continue
			}
			w := magnitudeWeight(stock.Magnitude)
			weightByTicker[stock.Ticker] += w
			switch stock.Impact {
			case market.ImpactPositive:
				positive += w
			case market.ImpactNegative:
				negative += w
			}
		}
	}

	total := positive + negative
	sentiment := market.ImpactNeutral
	reasoning := "No significant news impact on portfolio holdings."
	switch {
	case total == 0:
	case positive >= 0.2*total && negative >= 0.2*total:
		sentiment = market.ImpactMixed
		reasoning = "Portfolio faces both positive and negative drivers from current news flow."
	case positive > negative:
		sentiment = market.ImpactPositive
		reasoning = "Positive news drivers outweigh negatives across portfolio holdings."
	default:
		sentiment = market.ImpactNegative
		reasoning = "Negative news drivers outweigh positives across portfolio holdings."
	}

	tickers := make([]string, 0, len(weightByTicker))
	for t := range weightByTicker {
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool {
		if weightByTicker[tickers[i]] != weightByTicker[tickers[j]] {
			return weightByTicker[tickers[i]] > weightByTicker[tickers[j]]
		}
		return tickers[i] < tickers[j]
	})
	if len(tickers) > 3 {
		tickers = tickers[:3]
	}

	return market.PortfolioImpact{
		OverallSentiment:    sentiment,
		TopAffectedHoldings: tickers,
		Reasoning:           reasoning,
	}
}

// buildWatchlistAlerts emits one alert per watchlist ticker referenced by
// the news flow, directly or through impact analysis.
func buildWatchlistAlerts(watchlist []string, impacts []market.NewsWithImpact, news []market.NewsItem) []market.WatchlistAlert {
	type reference struct {
		newsIDs []string
		impact  market.Impact
		reason  string
	}
	refs := make(map[string]*reference)

	track := func(ticker string, newsID string, impact market.Impact, reason string) {
		ref, ok := refs[ticker]
		if !ok {
			ref = &reference{impact: impact, reason: reason}
			refs[ticker] = ref
		}
		ref.newsIDs = append(ref.newsIDs, newsID)
		// A directional impact overrides a neutral first sighting.
		if ref.impact == market.ImpactNeutral && impact != market.ImpactNeutral {
			ref.impact = impact
			ref.reason = reason
		}
	}

	watched := make(map[string]bool, len(watchlist))
	for _, t := range watchlist {
		watched[t] = true
	}

	for _, nwi := range impacts {
		for _, stock := range nwi.ImpactedStocks {
			if watched[stock.Ticker] {
				track(stock.Ticker, nwi.NewsID, stock.Impact, stock.CausalChain)
			}
		}
	}
	for _, item := range news {
		for _, ticker := range item.MentionedStocks {
			if watched[ticker] {
				track(ticker, item.ID, sentimentToImpact(item.Sentiment), item.Headline)
			}
		}
	}

	var alerts []market.WatchlistAlert
	for _, ticker := range watchlist {
		ref, ok := refs[ticker]
		if !ok {
			continue
		}
		alerts = append(alerts, market.WatchlistAlert{
			Ticker:            ticker,
			Kind:              alertKind(ref.impact),
			Reason:            ref.reason,
			ReferencedNewsIDs: dedupeStrings(ref.newsIDs),
		})
	}
	return alerts
}

func sentimentToImpact(s market.Sentiment) market.Impact {
	switch s {
	case market.SentimentBullish:
		return market.ImpactPositive
	case market.SentimentBearish:
		return market.ImpactNegative
	}
	return market.ImpactNeutral
}

func alertKind(impact market.Impact) market.AlertKind {
	switch impact {
	case market.ImpactPositive:
		return market.AlertOpportunity
	case market.ImpactNegative:
		return market.AlertRisk
	}
	return market.AlertInformational
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
