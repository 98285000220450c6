package orchestrator

import (
	"time"

	"github.com/pulselabs/marketpulse/pkg/agents"
	"github.com/pulselabs/marketpulse/pkg/market"
)

// maxSummaryBullets caps the market summary on the response boundary.
const maxSummaryBullets = 5

// NewsItemResponse is the boundary projection of a news item. Internal
// scoring fields and the source URL never cross the boundary.
type NewsItemResponse struct {
	ID               string           `json:"id"`
	Headline         string           `json:"headline"`
	Summary          string           `json:"summary"`
	Source           string           `json:"source"`
	PublishedAt      time.Time        `json:"published_at"`
	Sentiment        market.Sentiment `json:"sentiment"`
	MentionedStocks  []string         `json:"mentioned_stocks"`
	MentionedSectors []string         `json:"mentioned_sectors"`
	IsBreaking       bool             `json:"is_breaking"`
}

// NewsWithImpactResponse flattens a news item and its impact analysis into
// one layer, dropping impact_confidence and the internal scores.
type NewsWithImpactResponse struct {
	NewsID           string                   `json:"news_id"`
	Headline         string                   `json:"headline"`
	Summary          string                   `json:"summary"`
	Source           string                   `json:"source"`
	PublishedAt      time.Time                `json:"published_at"`
	Sentiment        market.Sentiment         `json:"sentiment"`
	MentionedStocks  []string                 `json:"mentioned_stocks"`
	MentionedSectors []string                 `json:"mentioned_sectors"`
	IsBreaking       bool                     `json:"is_breaking"`
	ImpactedStocks   []market.ImpactedStock   `json:"impacted_stocks"`
	SectorImpacts    map[string]market.Impact `json:"sector_impacts"`
	CausalChain      string                   `json:"causal_chain"`
}

// ThemedNewsItem is one themed entry on the response boundary. Theme and
// ThemeName carry the same canonical catalog name.
type ThemedNewsItem struct {
	ThemeName string           `json:"theme_name"`
	Sentiment market.Sentiment `json:"sentiment"`
	Theme     string           `json:"theme"`
	Reason    string           `json:"reason"`
}

// Report is the composite market pulse response.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	RequestID   string    `json:"request_id,omitempty"`

	MarketPhase   market.Phase                `json:"market_phase"`
	MarketOutlook *market.MarketOutlook       `json:"market_outlook,omitempty"`
	IndicesData   map[string]market.IndexData `json:"indices_data"`

	MarketSummary    []market.MarketSummaryBullet `json:"market_summary,omitempty"`
	ExecutiveSummary string                       `json:"executive_summary,omitempty"`
	KeyTakeaways     []string                     `json:"key_takeaways,omitempty"`
	TrendingNow      []NewsItemResponse           `json:"trending_now,omitempty"`

	ThemedNews []ThemedNewsItem         `json:"themed_news"`
	AllNews    []NewsWithImpactResponse `json:"all_news"`

	WatchlistImpacted      []string                `json:"watchlist_impacted"`
	WatchlistAlerts        []market.WatchlistAlert `json:"watchlist_alerts"`
	PortfolioImpactSummary string                  `json:"portfolio_impact_summary,omitempty"`
	PortfolioSentiment     market.Impact           `json:"portfolio_sentiment,omitempty"`

	DegradedMode bool     `json:"degraded_mode"`
	Warnings     []string `json:"warnings"`
}

// assembleReport projects the agent outputs onto the response boundary.
func assembleReport(requestID string, intel agents.IntelligenceOutput, insight agents.InsightOutput, summary agents.SummaryOutput, degraded bool, warnings []string) *Report {
	r := &Report{
		GeneratedAt:     time.Now().UTC(),
		RequestID:       requestID,
		MarketPhase:     intel.MarketPhase,
		MarketOutlook:   intel.MarketOutlook,
		IndicesData:     intel.IndicesData,
		ThemedNews:      projectThemes(insight.RefinedThemes),
		AllNews:         projectImpacts(insight.NewsWithImpacts),
		WatchlistAlerts: insight.WatchlistAlerts,
		DegradedMode:    degraded,
		Warnings:        warnings,
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}

	if intel.MarketPhase == market.PhaseMid {
		r.TrendingNow = projectNews(summary.TrendingNowSection)
	} else {
		bullets := summary.MarketSummaryBullets
		if len(bullets) > maxSummaryBullets {
			bullets = bullets[:maxSummaryBullets]
		}
		r.MarketSummary = bullets
	}
	r.ExecutiveSummary = summary.ExecutiveSummary
	r.KeyTakeaways = summary.KeyTakeaways

	for _, alert := range insight.WatchlistAlerts {
		r.WatchlistImpacted = append(r.WatchlistImpacted, alert.Ticker)
	}
	if r.WatchlistImpacted == nil {
		r.WatchlistImpacted = []string{}
	}

	r.PortfolioImpactSummary = insight.PortfolioImpact.Reasoning
	r.PortfolioSentiment = insight.PortfolioImpact.OverallSentiment

	return r
}

// projectThemes admits only catalog themes, at most five.
func projectThemes(themes []market.ThemeGroup) []ThemedNewsItem {
	out := make([]ThemedNewsItem, 0, len(themes))
	for _, t := range themes {
		name, ok := market.NormalizeTheme(t.ThemeName)
		if !ok {
			continue
		}
		out = append(out, ThemedNewsItem{
			ThemeName: name,
			Sentiment: t.OverallSentiment,
			Theme:     name,
			Reason:    t.Reason,
		})
		if len(out) == market.MaxThemedNews {
			break
		}
	}
	return out
}

func projectNews(items []market.NewsItem) []NewsItemResponse {
	out := make([]NewsItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewsItemResponse{
			ID:               item.ID,
			Headline:         item.Headline,
			Summary:          item.Summary,
			Source:           item.Source,
			PublishedAt:      item.PublishedAt,
			Sentiment:        item.Sentiment,
			MentionedStocks:  item.MentionedStocks,
			MentionedSectors: item.MentionedSectors,
			IsBreaking:       item.IsBreaking,
		})
	}
	return out
}

func projectImpacts(impacts []market.NewsWithImpact) []NewsWithImpactResponse {
	out := make([]NewsWithImpactResponse, 0, len(impacts))
	for _, nwi := range impacts {
		n := nwi.NewsItem
		out = append(out, NewsWithImpactResponse{
			NewsID:           nwi.NewsID,
			Headline:         n.Headline,
			Summary:          n.Summary,
			Source:           n.Source,
			PublishedAt:      n.PublishedAt,
			Sentiment:        n.Sentiment,
			MentionedStocks:  n.MentionedStocks,
			MentionedSectors: n.MentionedSectors,
			IsBreaking:       n.IsBreaking,
			ImpactedStocks:   nwi.ImpactedStocks,
			SectorImpacts:    nwi.SectorImpacts,
			CausalChain:      nwi.CausalChain,
		})
	}
	return out
}
