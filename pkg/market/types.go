// Package market holds the domain model and the deterministic market rules:
// phase derivation, outlook classification, the theme catalog, and the
// causal-language check.
package market

import "time"

// Sentiment labels directional views on news, themes and the market.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
	SentimentMixed   Sentiment = "mixed"
)

// Impact labels the effect of news on a stock or sector.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
	ImpactMixed    Impact = "mixed"
)

// Magnitude grades how strongly a stock is affected.
type Magnitude string

const (
	MagnitudeHigh   Magnitude = "high"
	MagnitudeMedium Magnitude = "medium"
	MagnitudeLow    Magnitude = "low"
)

// AlertKind classifies watchlist alerts.
type AlertKind string

const (
	AlertOpportunity   AlertKind = "opportunity"
	AlertRisk          AlertKind = "risk"
	AlertInformational AlertKind = "informational"
)

// Request is the inbound report request.
type Request struct {
	UserID          string         `json:"user_id"`
	SelectedIndices []string       `json:"selected_indices"`
	Timestamp       time.Time      `json:"timestamp"`
	ForceRefresh    bool           `json:"force_refresh"`
	Preferences     map[string]any `json:"preferences,omitempty"`
}

// IndexData is a snapshot of one market index.
// ChangeAbs carries the same sign as ChangePercent.
type IndexData struct {
	Name          string    `json:"name"`
	Value         float64   `json:"value"`
	ChangePercent float64   `json:"change_percent"`
	ChangeAbs     float64   `json:"change_abs"`
	AsOf          time.Time `json:"as_of"`
}

// MarketOutlook summarizes benchmark direction. Nil during mid-market.
type MarketOutlook struct {
	Sentiment          Sentiment `json:"sentiment"`
	Confidence         float64   `json:"confidence"`
	Reasoning          string    `json:"reasoning"`
	NiftyChangePercent float64   `json:"nifty_change_percent"`
	KeyDrivers         []string  `json:"key_drivers"`
}

// NewsItem is a single market news entry. ID is unique within a request.
// URL, SentimentScore and RelevanceScore are internal; the response
// projection strips them.
type NewsItem struct {
	ID               string    `json:"id"`
	Headline         string    `json:"headline"`
	Summary          string    `json:"summary"`
	Source           string    `json:"source"`
	URL              string    `json:"url,omitempty"`
	PublishedAt      time.Time `json:"published_at"`
	Sentiment        Sentiment `json:"sentiment"`
	SentimentScore   float64   `json:"sentiment_score,omitempty"`
	RelevanceScore   float64   `json:"relevance_score,omitempty"`
	NewsType         string    `json:"news_type,omitempty"`
	MentionedStocks  []string  `json:"mentioned_stocks"`
	MentionedSectors []string  `json:"mentioned_sectors"`
	IsBreaking       bool      `json:"is_breaking"`
}

// ThemeGroup clusters news under one theme.
type ThemeGroup struct {
	ThemeName        string     `json:"theme_name"`
	NewsItems        []NewsItem `json:"news_items"`
	OverallSentiment Sentiment  `json:"overall_sentiment"`
	ImpactedStocks   []string   `json:"impacted_stocks"`
	Reason           string     `json:"reason"`
}

// ImpactedStock links a ticker to the direction and size of an impact.
type ImpactedStock struct {
	Ticker      string    `json:"ticker"`
	Impact      Impact    `json:"impact"`
	Magnitude   Magnitude `json:"magnitude"`
	CausalChain string    `json:"causal_chain"`
}

// NewsWithImpact is a news item annotated with its market impact.
type NewsWithImpact struct {
	NewsID           string            `json:"news_id"`
	NewsItem         NewsItem          `json:"news_item"`
	ImpactedStocks   []ImpactedStock   `json:"impacted_stocks"`
	SectorImpacts    map[string]Impact `json:"sector_impacts"`
	CausalChain      string            `json:"causal_chain"`
	ImpactConfidence float64           `json:"impact_confidence"`
}

// MarketSummaryBullet is one causal summary line.
// Text always carries at least one causal keyword.
type MarketSummaryBullet struct {
	Text              string    `json:"text"`
	SupportingNewsIDs []string  `json:"supporting_news_ids"`
	Confidence        float64   `json:"confidence"`
	Sentiment         Sentiment `json:"sentiment"`
}

// PortfolioHolding is one position in the user's portfolio.
type PortfolioHolding struct {
	Ticker       string  `json:"ticker"`
	Quantity     float64 `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	CurrentPrice float64 `json:"current_price"`
	Sector       string  `json:"sector"`
}

// PortfolioImpact aggregates news impact over the user's holdings.
type PortfolioImpact struct {
	OverallSentiment    Impact   `json:"overall_sentiment"`
	TopAffectedHoldings []string `json:"top_affected_holdings"`
	Reasoning           string   `json:"reasoning"`
}

// WatchlistAlert flags a watchlist ticker referenced by the news flow.
type WatchlistAlert struct {
	Ticker            string    `json:"ticker"`
	Kind              AlertKind `json:"kind"`
	Reason            string    `json:"reason"`
	ReferencedNewsIDs []string  `json:"referenced_news_ids"`
}
