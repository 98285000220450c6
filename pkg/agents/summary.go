package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pulselabs/marketpulse/pkg/agent"
	"github.com/pulselabs/marketpulse/pkg/market"
)

// DefaultMaxBullets caps the causal summary when the caller does not set one.
const DefaultMaxBullets = 3

// SummaryInput is the summary generation agent's input.
type SummaryInput struct {
	MarketPhase     market.Phase                `json:"market_phase"`
	NewsWithImpacts []market.NewsWithImpact     `json:"news_with_impacts"`
	RefinedThemes   []market.ThemeGroup         `json:"refined_themes"`
	MarketOutlook   *market.MarketOutlook       `json:"market_outlook,omitempty"`
	PortfolioImpact *market.PortfolioImpact     `json:"portfolio_impact,omitempty"`
	IndicesData     map[string]market.IndexData `json:"indices_data"`
	MaxBullets      int                         `json:"max_bullets"`
}

// SummaryOutput carries either causal bullets (pre/post market) or the
// trending feed (mid market), plus the executive summary.
type SummaryOutput struct {
	MarketSummaryBullets []market.MarketSummaryBullet `json:"market_summary_bullets,omitempty"`
	TrendingNowSection   []market.NewsItem            `json:"trending_now_section,omitempty"`
	ExecutiveSummary     string                       `json:"executive_summary"`
	KeyTakeaways         []string                     `json:"key_takeaways"`
	GenerationMetadata   map[string]any               `json:"generation_metadata"`
}

// SummaryAgent renders the user-facing narrative. It is fully deterministic:
// every sentence is assembled from the structured inputs, so causal-language
// and length guarantees hold by construction.
type SummaryAgent struct {
	cfg agent.Config

	inSchema  *jsonschema.Schema
	outSchema *jsonschema.Schema
}

func NewSummaryAgent(cfg agent.Config) *SummaryAgent {
	cfg.Name = "summary_generation"
	return &SummaryAgent{
		cfg:       cfg,
		inSchema:  agent.MustSchema(&SummaryInput{}),
		outSchema: agent.MustSchema(&SummaryOutput{}),
	}
}

func (a *SummaryAgent) Config() agent.Config             { return a.cfg }
func (a *SummaryAgent) InputSchema() *jsonschema.Schema  { return a.inSchema }
func (a *SummaryAgent) OutputSchema() *jsonschema.Schema { return a.outSchema }

func (a *SummaryAgent) Execute(ctx context.Context, input map[string]any, ec *agent.ExecutionContext) (SummaryOutput, error) {
	var in SummaryInput
	if err := decodeInput(input, &in); err != nil {
		return SummaryOutput{}, err
	}
	if in.MaxBullets <= 0 {
		in.MaxBullets = DefaultMaxBullets
	}

	out := SummaryOutput{
		KeyTakeaways: keyTakeaways(in),
	}

	bulletsGenerated := 0
	if in.MarketPhase == market.PhaseMid {
		out.TrendingNowSection = trendingNow(in.NewsWithImpacts)
	} else {
		out.MarketSummaryBullets = causalBullets(in)
		bulletsGenerated = len(out.MarketSummaryBullets)
	}

	out.ExecutiveSummary = executiveSummary(in)
	out.GenerationMetadata = map[string]any{
		"bullets_generated": bulletsGenerated,
		"market_phase":      string(in.MarketPhase),
		"news_analyzed":     len(in.NewsWithImpacts),
		"themes_used":       len(in.RefinedThemes),
	}

	ec.Log().Info("summary generated",
		"phase", in.MarketPhase,
		"bullets", bulletsGenerated,
		"trending", len(out.TrendingNowSection))

	return out, nil
}

// causalBullets builds at most MaxBullets bullets from the highest-confidence
// news impacts, filling from themes when the news flow comes up short. Every
// bullet carries a causal connector.
func causalBullets(in SummaryInput) []market.MarketSummaryBullet {
	sorted := make([]market.NewsWithImpact, len(in.NewsWithImpacts))
	copy(sorted, in.NewsWithImpacts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ImpactConfidence > sorted[j].ImpactConfidence
	})
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}

	usedThemes := make(map[string]bool)
	var bullets []market.MarketSummaryBullet

	for _, nwi := range sorted {
		if len(bullets) >= in.MaxBullets {
			break
		}
		for _, theme := range in.RefinedThemes {
			if themeContains(theme, nwi.NewsID) {
				if !usedThemes[theme.ThemeName] {
					usedThemes[theme.ThemeName] = true
				}
				break
			}
		}

		text := newsBullet(nwi)
		if text == "" || !market.HasCausalLanguage(text) {
			continue
		}
		bullets = append(bullets, market.MarketSummaryBullet{
			Text:              text,
			SupportingNewsIDs: []string{nwi.NewsID},
			Confidence:        nwi.ImpactConfidence,
			Sentiment:         bulletSentiment(nwi.NewsItem.Sentiment),
		})
	}

	for _, theme := range in.RefinedThemes {
		if len(bullets) >= in.MaxBullets {
			break
		}
		if usedThemes[theme.ThemeName] {
			continue
		}
		text := themeBullet(theme)
		if text == "" || !market.HasCausalLanguage(text) {
			continue
		}
		ids := make([]string, 0, 2)
		for _, item := range theme.NewsItems {
			ids = append(ids, item.ID)
			if len(ids) == 2 {
				break
			}
		}
		bullets = append(bullets, market.MarketSummaryBullet{
			Text:              text,
			SupportingNewsIDs: ids,
			Confidence:        0.75,
			Sentiment:         theme.OverallSentiment,
		})
	}

	sort.SliceStable(bullets, func(i, j int) bool {
		return bullets[i].Confidence > bullets[j].Confidence
	})
	return bullets
}

func themeContains(theme market.ThemeGroup, newsID string) bool {
	for _, item := range theme.NewsItems {
		if item.ID == newsID {
			return true
		}
	}
	return false
}

// newsBullet phrases one impact as a causal sentence, stock-level when
// impacted stocks are known, otherwise sector-level.
func newsBullet(nwi market.NewsWithImpact) string {
	news := nwi.NewsItem
	connector := market.CausalConnectors(news.Sentiment)[0]

	if len(nwi.ImpactedStocks) > 0 {
		tickers := make([]string, 0, 3)
		for _, s := range nwi.ImpactedStocks {
			tickers = append(tickers, s.Ticker)
			if len(tickers) == 3 {
				break
			}
		}
		verb := "faced pressure"
		if news.Sentiment == market.SentimentBullish {
			verb = "gained"
		}
		return fmt.Sprintf("%s %s %s %s.",
			strings.Join(tickers, ", "), verb, connector, truncateLower(news.Headline, 60))
	}

	if len(nwi.SectorImpacts) > 0 {
		sectors := make([]string, 0, len(nwi.SectorImpacts))
		for sector := range nwi.SectorImpacts {
			sectors = append(sectors, sector)
		}
		sort.Strings(sectors)
		sector := sectors[0]
		return fmt.Sprintf("%s sector shows %s momentum %s %s.",
			sector, nwi.SectorImpacts[sector], connector, truncateLower(news.Headline, 50))
	}

	return ""
}

// themeBullet phrases one theme as a causal sentence.
func themeBullet(theme market.ThemeGroup) string {
	descriptions := map[market.Sentiment]string{
		market.SentimentBullish: "positive momentum",
		market.SentimentBearish: "headwinds",
		market.SentimentNeutral: "consolidation",
		market.SentimentMixed:   "mixed signals",
	}
	desc, ok := descriptions[theme.OverallSentiment]
	if !ok {
		desc = "movement"
	}

	if len(theme.ImpactedStocks) > 0 {
		stocks := theme.ImpactedStocks
		if len(stocks) > 3 {
			stocks = stocks[:3]
		}
		return fmt.Sprintf("%s showing %s driven by %s developments.",
			strings.Join(stocks, ", "), desc, strings.ToLower(theme.ThemeName))
	}
	return fmt.Sprintf("%s sector seeing %s on the back of recent news flow.",
		theme.ThemeName, desc)
}

func bulletSentiment(s market.Sentiment) market.Sentiment {
	switch s {
	case market.SentimentBullish, market.SentimentBearish:
		return s
	}
	return market.SentimentNeutral
}

// trendingNow returns the five most recent news items.
func trendingNow(impacts []market.NewsWithImpact) []market.NewsItem {
	items := make([]market.NewsItem, 0, len(impacts))
	for _, nwi := range impacts {
		items = append(items, nwi.NewsItem)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if len(items) > 5 {
		items = items[:5]
	}
	return items
}

// executiveSummary assembles a 1-3 sentence overview from the outlook, the
// leading theme, and the portfolio impact.
func executiveSummary(in SummaryInput) string {
	var parts []string

	if o := in.MarketOutlook; o != nil {
		change := o.NiftyChangePercent
		switch o.Sentiment {
		case market.SentimentBullish:
			parts = append(parts, fmt.Sprintf("Markets trading higher with NIFTY up %.1f%%.", change))
		case market.SentimentBearish:
			parts = append(parts, fmt.Sprintf("Markets under pressure with NIFTY down %.1f%%.", absFloat(change)))
		default:
			parts = append(parts, fmt.Sprintf("Markets trading flat with NIFTY at %.1f%%.", change))
		}
	}

	if len(in.RefinedThemes) > 0 {
		top := in.RefinedThemes[0]
		switch top.OverallSentiment {
		case market.SentimentBullish:
			parts = append(parts, fmt.Sprintf("Key driver: %s providing support.", top.ThemeName))
		case market.SentimentBearish:
			parts = append(parts, fmt.Sprintf("Pressure from: %s weighing on sentiment.", top.ThemeName))
		}
	}

	if p := in.PortfolioImpact; p != nil {
		switch p.OverallSentiment {
		case market.ImpactPositive:
			parts = append(parts, "Your portfolio positioned to benefit from current trends.")
		case market.ImpactNegative:
			parts = append(parts, "Monitor portfolio exposure to current headwinds.")
		}
	}

	if len(parts) == 0 {
		return "Market activity ongoing. Key developments being monitored."
	}
	return strings.Join(parts, " ")
}

// keyTakeaways extracts at most four short action items.
func keyTakeaways(in SummaryInput) []string {
	var takeaways []string

	if in.MarketOutlook != nil {
		takeaways = append(takeaways, fmt.Sprintf("Market sentiment is %s", in.MarketOutlook.Sentiment))
	}

	themes := in.RefinedThemes
	if len(themes) > 2 {
		themes = themes[:2]
	}
	for _, theme := range themes {
		switch theme.OverallSentiment {
		case market.SentimentBullish:
			takeaways = append(takeaways, fmt.Sprintf("%s showing strength", theme.ThemeName))
		case market.SentimentBearish:
			takeaways = append(takeaways, fmt.Sprintf("Caution in %s", theme.ThemeName))
		}
	}

	if in.PortfolioImpact != nil && len(in.PortfolioImpact.TopAffectedHoldings) > 0 {
		takeaways = append(takeaways,
			fmt.Sprintf("Watch %s for near-term movement", in.PortfolioImpact.TopAffectedHoldings[0]))
	}

	if len(takeaways) > 4 {
		takeaways = takeaways[:4]
	}
	return takeaways
}

// truncateLower lowercases and caps to max runes. Headlines carry rupee
// signs and other multi-byte runes, so the cut is on runes, not bytes.
func truncateLower(s string, max int) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) > max {
		return string(runes[:max])
	}
	return string(runes)
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
