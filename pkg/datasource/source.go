// Package datasource defines the pluggable market- and user-data
// collaborators and their tool bindings. Two implementations ship: a
// deterministic fixture source and an HTTP source for real backends.
package datasource

import (
	"context"
	"sort"
	"time"

	"github.com/pulselabs/marketpulse/pkg/market"
)

// MarketData serves index snapshots and news flow.
type MarketData interface {
	// Indices returns snapshots for the named indices. Unknown names are
	// omitted from the result.
	Indices(ctx context.Context, names []string) (map[string]market.IndexData, error)

	// News returns items published within the window, newest first.
	News(ctx context.Context, window time.Duration, limit int) ([]market.NewsItem, error)

	// StockNews returns items mentioning the ticker, newest first.
	StockNews(ctx context.Context, ticker string, limit int) ([]market.NewsItem, error)
}

// UserData serves per-user watchlist, portfolio, and preferences.
type UserData interface {
	Watchlist(ctx context.Context, userID string) ([]string, error)
	Portfolio(ctx context.Context, userID string) ([]market.PortfolioHolding, error)
	Preferences(ctx context.Context, userID string) (map[string]any, error)
}

// SectorExposure computes each sector's share of portfolio value, in
// percent, from current prices.
func SectorExposure(holdings []market.PortfolioHolding) map[string]float64 {
	var total float64
	bySector := make(map[string]float64)
	for _, h := range holdings {
		value := h.Quantity * h.CurrentPrice
		bySector[h.Sector] += value
		total += value
	}
	if total == 0 {
		return map[string]float64{}
	}

	exposure := make(map[string]float64, len(bySector))
	for sector, value := range bySector {
		exposure[sector] = value / total * 100
	}
	return exposure
}

// RankNews orders news for importance: breaking first, then relevance
// score, then recency. The input is not modified.
func RankNews(items []market.NewsItem) []market.NewsItem {
	ranked := make([]market.NewsItem, len(items))
	copy(ranked, items)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.IsBreaking != b.IsBreaking {
			return a.IsBreaking
		}
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		return a.PublishedAt.After(b.PublishedAt)
	})
	return ranked
}

// ClusterByTopic groups news by shared mentioned sectors. Items without a
// sector go under "General".
func ClusterByTopic(items []market.NewsItem) map[string][]string {
	clusters := make(map[string][]string)
	for _, item := range items {
		if len(item.MentionedSectors) == 0 {
			clusters["General"] = append(clusters["General"], item.ID)
			continue
		}
		for _, sector := range item.MentionedSectors {
			clusters[sector] = append(clusters[sector], item.ID)
		}
	}
	return clusters
}
