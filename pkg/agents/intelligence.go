// Package agents implements the three reasoning agents: market
// intelligence, portfolio insight, and summary generation.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pulselabs/marketpulse/pkg/agent"
	"github.com/pulselabs/marketpulse/pkg/llms"
	"github.com/pulselabs/marketpulse/pkg/market"
	"github.com/pulselabs/marketpulse/pkg/tools"
)

// IntelligenceInput is the market intelligence agent's input.
type IntelligenceInput struct {
	SelectedIndices []string `json:"selected_indices"`
	Timestamp       string   `json:"timestamp"`
	ForceRefresh    bool     `json:"force_refresh,omitempty"`
}

// IntelligenceOutput is the shared intelligence blob Phase B consumes.
type IntelligenceOutput struct {
	MarketPhase       market.Phase                `json:"market_phase"`
	IndicesData       map[string]market.IndexData `json:"indices_data"`
	MarketOutlook     *market.MarketOutlook       `json:"market_outlook,omitempty"`
	NewsItems         []market.NewsItem           `json:"news_items"`
	PreliminaryThemes []market.ThemeGroup         `json:"preliminary_themes"`
}

// intelligenceModelOutput is the JSON shape the model must return.
type intelligenceModelOutput struct {
	NewsSentiments    map[string]market.Sentiment `json:"news_sentiments"`
	PreliminaryThemes []modelTheme                `json:"preliminary_themes"`
}

type modelTheme struct {
	ThemeName        string           `json:"theme_name"`
	NewsIDs          []string         `json:"news_ids"`
	OverallSentiment market.Sentiment `json:"overall_sentiment"`
	ImpactedStocks   []string         `json:"impacted_stocks,omitempty"`
	Reason           string           `json:"reason"`
}

// IntelligenceAgent gathers indices and news, derives the deterministic
// phase and outlook, and uses the model for sentiment and theme clustering.
type IntelligenceAgent struct {
	cfg          agent.Config
	gateway      agent.Gateway
	registry     *tools.Registry
	maxToolTurns int

	inSchema       *jsonschema.Schema
	outSchema      *jsonschema.Schema
	modelOutSchema *jsonschema.Schema
}

// NewIntelligenceAgent wires the agent to its gateway and tool registry.
func NewIntelligenceAgent(gateway agent.Gateway, registry *tools.Registry, cfg agent.Config, maxToolTurns int) *IntelligenceAgent {
	cfg.Name = "market_intelligence"
	return &IntelligenceAgent{
		cfg:            cfg,
		gateway:        gateway,
		registry:       registry,
		maxToolTurns:   maxToolTurns,
		inSchema:       agent.MustSchema(&IntelligenceInput{}),
		outSchema:      agent.MustSchema(&IntelligenceOutput{}),
		modelOutSchema: agent.MustSchema(&intelligenceModelOutput{}),
	}
}

func (a *IntelligenceAgent) Config() agent.Config             { return a.cfg }
func (a *IntelligenceAgent) InputSchema() *jsonschema.Schema  { return a.inSchema }
func (a *IntelligenceAgent) OutputSchema() *jsonschema.Schema { return a.outSchema }

func (a *IntelligenceAgent) Execute(ctx context.Context, input map[string]any, ec *agent.ExecutionContext) (IntelligenceOutput, error) {
	var in IntelligenceInput
	if err := decodeInput(input, &in); err != nil {
		return IntelligenceOutput{}, err
	}

	timestamp, err := parseTimestamp(in.Timestamp)
	if err != nil {
		return IntelligenceOutput{}, &agent.ValidationError{Agent: a.cfg.Name, Message: err.Error(), Err: err}
	}
	phase := market.PhaseAt(timestamp)

	indices, err := a.fetchIndices(ctx, in.SelectedIndices)
	if err != nil {
		return IntelligenceOutput{}, err
	}
	news, err := a.fetchNews(ctx)
	if err != nil {
		return IntelligenceOutput{}, err
	}
	news = dedupeNews(news)

	modelOut, err := a.classify(ctx, indices, news)
	if err != nil {
		return IntelligenceOutput{}, err
	}

	for i := range news {
		if s, ok := modelOut.NewsSentiments[news[i].ID]; ok && validSentiment(s) {
			news[i].Sentiment = s
		}
	}

	out := IntelligenceOutput{
		MarketPhase:       phase,
		IndicesData:       indices,
		NewsItems:         news,
		PreliminaryThemes: resolveThemes(modelOut.PreliminaryThemes, news),
	}

	if bench, ok := indices[market.BenchmarkIndex]; ok {
		out.MarketOutlook = market.OutlookFrom(phase, bench.ChangePercent, keyDrivers(out.PreliminaryThemes))
	}

	ec.Log().Info("intelligence gathered",
		"phase", phase,
		"indices", len(indices),
		"news", len(news),
		"themes", len(out.PreliminaryThemes))

	return out, nil
}

// fetchIndices fetches the selected indices plus the benchmark, which the
// outlook needs even when the user did not select it.
func (a *IntelligenceAgent) fetchIndices(ctx context.Context, names []string) (map[string]market.IndexData, error) {
	names = withBenchmark(names)
	reply := a.registry.Invoke(ctx, "fetch_market_indices", map[string]any{"indices": names})
	if msg, ok := reply["error"].(string); ok {
		return nil, &agent.DataFetchError{Source: "fetch_market_indices", Message: msg}
	}
	indices, ok := reply["result"].(map[string]market.IndexData)
	if !ok {
		return nil, &agent.DataFetchError{Source: "fetch_market_indices",
			Message: fmt.Sprintf("unexpected result type %T", reply["result"])}
	}
	return indices, nil
}

func withBenchmark(names []string) []string {
	for _, n := range names {
		if n == market.BenchmarkIndex {
			return names
		}
	}
	out := make([]string, 0, len(names)+1)
	out = append(out, names...)
	return append(out, market.BenchmarkIndex)
}

func (a *IntelligenceAgent) fetchNews(ctx context.Context) ([]market.NewsItem, error) {
	reply := a.registry.Invoke(ctx, "fetch_market_news", map[string]any{"window_hours": 24, "limit": 20})
	if msg, ok := reply["error"].(string); ok {
		return nil, &agent.DataFetchError{Source: "fetch_market_news", Message: msg}
	}
	news, ok := reply["result"].([]market.NewsItem)
	if !ok {
		return nil, &agent.DataFetchError{Source: "fetch_market_news",
			Message: fmt.Sprintf("unexpected result type %T", reply["result"])}
	}
	return news, nil
}

// classify asks the model for per-item sentiment and preliminary themes.
func (a *IntelligenceAgent) classify(ctx context.Context, indices map[string]market.IndexData, news []market.NewsItem) (intelligenceModelOutput, error) {
	var out intelligenceModelOutput

	prompt, err := renderPrompt(map[string]any{
		"indices": indices,
		"news":    compactNews(news),
	})
	if err != nil {
		return out, err
	}

	genCfg := a.cfg.GenerateConfig()
	genCfg.SystemInstruction = intelligenceSystemPrompt
	genCfg.Tools = a.registry.Declarations("rank_news_by_importance", "cluster_news_by_topic")
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

// resolveThemes joins the model's theme clusters back to full news items.
// Unknown ids are skipped; themes left without news are dropped.
func resolveThemes(themes []modelTheme, news []market.NewsItem) []market.ThemeGroup {
	byID := make(map[string]market.NewsItem, len(news))
	for _, item := range news {
		byID[item.ID] = item
	}

	var out []market.ThemeGroup
	for _, t := range themes {
		group := market.ThemeGroup{
			ThemeName:        t.ThemeName,
			OverallSentiment: t.OverallSentiment,
			ImpactedStocks:   t.ImpactedStocks,
			Reason:           t.Reason,
		}
		for _, id := range t.NewsIDs {
			if item, ok := byID[id]; ok {
				group.NewsItems = append(group.NewsItems, item)
			}
		}
		if len(group.NewsItems) > 0 {
			out = append(out, group)
		}
	}
	return out
}

// keyDrivers lists the top theme names as outlook drivers.
func keyDrivers(themes []market.ThemeGroup) []string {
	drivers := make([]string, 0, 3)
	for _, t := range themes {
		drivers = append(drivers, t.ThemeName)
		if len(drivers) == 3 {
			break
		}
	}
	return drivers
}

// dedupeNews removes duplicate ids, keeping first occurrence order.
func dedupeNews(items []market.NewsItem) []market.NewsItem {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		out = append(out, item)
	}
	return out
}

// compactNews strips news to the fields the model needs for classification.
func compactNews(items []market.NewsItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{
			"id":                item.ID,
			"headline":          item.Headline,
			"summary":           item.Summary,
			"published_at":      item.PublishedAt,
			"mentioned_stocks":  item.MentionedStocks,
			"mentioned_sectors": item.MentionedSectors,
			"is_breaking":       item.IsBreaking,
		})
	}
	return out
}

func validSentiment(s market.Sentiment) bool {
	switch s {
	case market.SentimentBullish, market.SentimentBearish, market.SentimentNeutral:
		return true
	}
	return false
}

// renderPrompt serializes structured input into the compact textual form
// sent to the model.
func renderPrompt(payload map[string]any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return string(raw), nil
}

// parseTimestamp accepts RFC3339; empty means the zero time.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("timestamp is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t, nil
}

// decodeInput maps wire-shaped input into a typed struct.
func decodeInput(input map[string]any, out any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encoding input: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding input: %w", err)
	}
	return nil
}
