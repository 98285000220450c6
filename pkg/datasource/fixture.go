package datasource

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/pulselabs/marketpulse/pkg/market"
)

// FixtureSource serves deterministic data for development and tests. The
// same user always gets the same watchlist and portfolio; news timestamps
// are offsets from the injected clock.
type FixtureSource struct {
	now func() time.Time
}

// NewFixtureSource creates a fixture source on the wall clock.
func NewFixtureSource() *FixtureSource {
	return &FixtureSource{now: time.Now}
}

var _ MarketData = (*FixtureSource)(nil)
var _ UserData = (*FixtureSource)(nil)

type fixtureIndex struct {
	value         float64
	changePercent float64
}

var fixtureIndices = map[string]fixtureIndex{
	"NIFTY":     {value: 22450.35, changePercent: 0.85},
	"SENSEX":    {value: 74019.96, changePercent: 0.72},
	"BANKNIFTY": {value: 48230.10, changePercent: -0.34},
}

type fixtureNews struct {
	id         string
	headline   string
	summary    string
	source     string
	ageMinutes int
	sentiment  market.Sentiment
	score      float64
	relevance  float64
	newsType   string
	stocks     []string
	sectors    []string
	breaking   bool
}

var fixtureNewsItems = []fixtureNews{
	{
		id:        "news-001",
		headline:  "RBI holds repo rate steady, signals prolonged pause",
		summary:   "The central bank kept the policy rate unchanged amid sticky core inflation.",
		source:    "MoneyWire",
		sentiment: market.SentimentNeutral, score: 0.05, relevance: 0.9,
		newsType: "economy",
		sectors:  []string{"Banking"},
		stocks:   []string{"HDFCBANK", "ICICIBANK"},
	},
	{
		id:        "news-002",
		headline:  "IT majors rally after strong US tech earnings",
		summary:   "Large-cap IT stocks gained following upbeat guidance from US peers.",
		source:    "MarketDesk",
		sentiment: market.SentimentBullish, score: 0.7, relevance: 0.8,
		newsType: "foreign markets", ageMinutes: 35,
		sectors: []string{"IT"},
		stocks:  []string{"TCS", "INFY"},
	},
	{
		id:        "news-003",
		headline:  "Crude spikes 3% on supply disruption fears",
		summary:   "Brent crude jumped after fresh supply concerns, pressuring oil importers.",
		source:    "EnergyLine",
		sentiment: market.SentimentBearish, score: -0.6, relevance: 0.85,
		newsType: "commodities & forex", ageMinutes: 60, breaking: true,
		sectors: []string{"Energy"},
		stocks:  []string{"RELIANCE", "ONGC"},
	},
	{
		id:        "news-004",
		headline:  "Auto sales beat estimates driven by festive demand",
		summary:   "Passenger vehicle registrations rose on the back of festive-season buying.",
		source:    "AutoTrack",
		sentiment: market.SentimentBullish, score: 0.55, relevance: 0.7,
		newsType: "sector", ageMinutes: 95,
		sectors: []string{"Automobile"},
		stocks:  []string{"TATAMOTORS", "MARUTI"},
	},
	{
		id:        "news-005",
		headline:  "Pharma exports face fresh regulatory scrutiny",
		summary:   "Exporters slipped after a US regulator flagged compliance gaps at two plants.",
		source:    "HealthWatch",
		sentiment: market.SentimentBearish, score: -0.45, relevance: 0.6,
		newsType: "sector", ageMinutes: 140,
		sectors: []string{"Pharmaceutical"},
		stocks:  []string{"SUNPHARMA"},
	},
	{
		id:        "news-006",
		headline:  "FIIs turn net buyers after six sessions of selling",
		summary:   "Foreign institutional flows reversed amid improving global risk appetite.",
		source:    "FlowDesk",
		sentiment: market.SentimentBullish, score: 0.4, relevance: 0.75,
		newsType: "economy", ageMinutes: 190,
		sectors: []string{"Banking", "IT"},
	},
	{
		id:        "news-007",
		headline:  "Global markets mixed ahead of US inflation print",
		summary:   "Asian indices traded sideways as investors await the CPI release.",
		source:    "WorldMarkets",
		sentiment: market.SentimentNeutral, score: 0.0, relevance: 0.5,
		newsType: "foreign markets", ageMinutes: 240,
	},
	{
		id:        "news-008",
		headline:  "Steel prices soften, weighed by weak Chinese demand",
		summary:   "Domestic steelmakers eased as Chinese construction activity slowed.",
		source:    "MetalsDaily",
		sentiment: market.SentimentBearish, score: -0.3, relevance: 0.55,
		newsType: "sector", ageMinutes: 300,
		sectors: []string{"Metals"},
		stocks:  []string{"TATASTEEL", "JSWSTEEL"},
	},
}

var fixtureTickerPool = []string{
	"RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK",
	"TATAMOTORS", "SUNPHARMA", "TATASTEEL", "MARUTI", "ONGC",
}

var fixtureHoldings = []market.PortfolioHolding{
	{Ticker: "RELIANCE", Quantity: 24, AveragePrice: 2450.00, CurrentPrice: 2587.50, Sector: "Energy"},
	{Ticker: "TCS", Quantity: 15, AveragePrice: 3620.00, CurrentPrice: 3845.20, Sector: "IT"},
	{Ticker: "HDFCBANK", Quantity: 40, AveragePrice: 1510.00, CurrentPrice: 1482.30, Sector: "Banking"},
	{Ticker: "TATAMOTORS", Quantity: 60, AveragePrice: 710.00, CurrentPrice: 792.40, Sector: "Automobile"},
	{Ticker: "SUNPHARMA", Quantity: 30, AveragePrice: 1180.00, CurrentPrice: 1124.60, Sector: "Pharmaceutical"},
	{Ticker: "INFY", Quantity: 22, AveragePrice: 1460.00, CurrentPrice: 1538.90, Sector: "IT"},
}

func (s *FixtureSource) Indices(ctx context.Context, names []string) (map[string]market.IndexData, error) {
	asOf := s.now()
	out := make(map[string]market.IndexData, len(names))
	for _, name := range names {
		fi, ok := fixtureIndices[name]
		if !ok {
			continue
		}
		out[name] = market.IndexData{
			Name:          name,
			Value:         fi.value,
			ChangePercent: fi.changePercent,
			ChangeAbs:     fi.value * fi.changePercent / 100,
			AsOf:          asOf,
		}
	}
	return out, nil
}

func (s *FixtureSource) News(ctx context.Context, window time.Duration, limit int) ([]market.NewsItem, error) {
	now := s.now()
	var out []market.NewsItem
	for _, fn := range fixtureNewsItems {
		age := time.Duration(fn.ageMinutes) * time.Minute
		if window > 0 && age > window {
			continue
		}
		out = append(out, fn.toItem(now))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *FixtureSource) StockNews(ctx context.Context, ticker string, limit int) ([]market.NewsItem, error) {
	now := s.now()
	var out []market.NewsItem
	for _, fn := range fixtureNewsItems {
		for _, stock := range fn.stocks {
			if stock == ticker {
				out = append(out, fn.toItem(now))
				break
			}
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *FixtureSource) Watchlist(ctx context.Context, userID string) ([]string, error) {
	start := int(userHash(userID) % uint32(len(fixtureTickerPool)))
	watchlist := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		watchlist = append(watchlist, fixtureTickerPool[(start+i)%len(fixtureTickerPool)])
	}
	return watchlist, nil
}

func (s *FixtureSource) Portfolio(ctx context.Context, userID string) ([]market.PortfolioHolding, error) {
	start := int(userHash(userID) % uint32(len(fixtureHoldings)))
	holdings := make([]market.PortfolioHolding, 0, 3)
	for i := 0; i < 3; i++ {
		holdings = append(holdings, fixtureHoldings[(start+i)%len(fixtureHoldings)])
	}
	return holdings, nil
}

func (s *FixtureSource) Preferences(ctx context.Context, userID string) (map[string]any, error) {
	profiles := []string{"conservative", "balanced", "aggressive"}
	return map[string]any{
		"risk_profile": profiles[userHash(userID)%3],
		"max_bullets":  3,
	}, nil
}

func (fn fixtureNews) toItem(now time.Time) market.NewsItem {
	return market.NewsItem{
		ID:               fn.id,
		Headline:         fn.headline,
		Summary:          fn.summary,
		Source:           fn.source,
		PublishedAt:      now.Add(-time.Duration(fn.ageMinutes) * time.Minute),
		Sentiment:        fn.sentiment,
		SentimentScore:   fn.score,
		RelevanceScore:   fn.relevance,
		NewsType:         fn.newsType,
		MentionedStocks:  fn.stocks,
		MentionedSectors: fn.sectors,
		IsBreaking:       fn.breaking,
	}
}

func userHash(userID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return h.Sum32()
}
