package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pulselabs/marketpulse/pkg/agent"
	"github.com/pulselabs/marketpulse/pkg/agents"
	"github.com/pulselabs/marketpulse/pkg/cache"
	"github.com/pulselabs/marketpulse/pkg/market"
)

// stubAgent returns a canned output or error and records its inputs.
type stubAgent[T any] struct {
	cfg agent.Config
	out T
	err error

	mu     sync.Mutex
	calls  int
	inputs []map[string]any
}

func (s *stubAgent[T]) Config() agent.Config             { return s.cfg }
func (s *stubAgent[T]) InputSchema() *jsonschema.Schema  { return nil }
func (s *stubAgent[T]) OutputSchema() *jsonschema.Schema { return nil }

func (s *stubAgent[T]) Execute(ctx context.Context, input map[string]any, ec *agent.ExecutionContext) (T, error) {
	s.mu.Lock()
	s.calls++
	s.inputs = append(s.inputs, input)
	s.mu.Unlock()
	return s.out, s.err
}

func (s *stubAgent[T]) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func stubConfig(name string) agent.Config {
	return agent.Config{Name: name, Timeout: 5 * time.Second, MaxRetries: 0, Cacheable: true}
}

func preMarketIntel() agents.IntelligenceOutput {
	ts := time.Date(2025, 3, 10, 8, 30, 0, 0, time.FixedZone("IST", 19800))
	return agents.IntelligenceOutput{
		MarketPhase: market.PhasePre,
		IndicesData: map[string]market.IndexData{
			"NIFTY": {Name: "NIFTY", Value: 22450.35, ChangePercent: 0.85, ChangeAbs: 190.83},
		},
		MarketOutlook: &market.MarketOutlook{
			Sentiment:          market.SentimentBullish,
			Confidence:         0.425,
			NiftyChangePercent: 0.85,
		},
		NewsItems: []market.NewsItem{
			{ID: "n1", Headline: "IT majors rally", Sentiment: market.SentimentBullish,
				MentionedSectors: []string{"IT"}, PublishedAt: ts.Add(-20 * time.Minute)},
			{ID: "n2", Headline: "Crude spikes", Sentiment: market.SentimentBearish,
				MentionedSectors: []string{"Energy"}, PublishedAt: ts.Add(-40 * time.Minute)},
			{ID: "n3", Headline: "Global cues mixed", Sentiment: market.SentimentNeutral,
				PublishedAt: ts.Add(-5 * time.Minute)},
		},
		PreliminaryThemes: []market.ThemeGroup{
			{ThemeName: "IT Earnings", OverallSentiment: market.SentimentBullish,
				NewsItems: []market.NewsItem{{ID: "n1"}}},
		},
	}
}

func testInsight() agents.InsightOutput {
	return agents.InsightOutput{
		Watchlist: []string{"TCS", "INFY"},
		NewsWithImpacts: []market.NewsWithImpact{
			{NewsID: "n1", NewsItem: market.NewsItem{ID: "n1", Headline: "IT majors rally",
				URL: "https://example.com/n1", RelevanceScore: 0.8, SentimentScore: 0.7},
				CausalChain: "US earnings beat driven by cloud demand", ImpactConfidence: 0.9},
		},
		RefinedThemes: []market.ThemeGroup{
			{ThemeName: "Information Technology (IT)", OverallSentiment: market.SentimentBullish,
				Reason: "Earnings strength"},
		},
		PortfolioImpact: market.PortfolioImpact{
			OverallSentiment: market.ImpactPositive,
			Reasoning:        "Positive news drivers outweigh negatives across portfolio holdings.",
		},
		WatchlistAlerts: []market.WatchlistAlert{
			{Ticker: "TCS", Kind: market.AlertOpportunity, Reason: "US earnings beat"},
		},
	}
}

func testSummary() agents.SummaryOutput {
	return agents.SummaryOutput{
		MarketSummaryBullets: []market.MarketSummaryBullet{
			{Text: "TCS gained driven by strong US tech earnings.", Confidence: 0.9,
				SupportingNewsIDs: []string{"n1"}, Sentiment: market.SentimentBullish},
		},
		ExecutiveSummary: "Markets trading higher with NIFTY up 0.9%.",
		KeyTakeaways:     []string{"Market sentiment is bullish"},
	}
}

type fixture struct {
	orch    *Orchestrator
	intel   *stubAgent[agents.IntelligenceOutput]
	insight *stubAgent[agents.InsightOutput]
	summary *stubAgent[agents.SummaryOutput]
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	f := &fixture{
		intel:   &stubAgent[agents.IntelligenceOutput]{cfg: stubConfig("market_intelligence"), out: preMarketIntel()},
		insight: &stubAgent[agents.InsightOutput]{cfg: stubConfig("portfolio_insight"), out: testInsight()},
		summary: &stubAgent[agents.SummaryOutput]{cfg: stubConfig("summary_generation"), out: testSummary()},
	}

	var rt *agent.Runtime
	if withCache {
		rt = agent.NewRuntime(cache.New(cache.NewMemoryStore(), cache.Options{}, nil))
	} else {
		rt = agent.NewRuntime(nil)
	}

	f.orch = New(rt, Agents{
		Intelligence: f.intel,
		Insight:      f.insight,
		Summary:      f.summary,
	}, Options{MaxBullets: 3}, nil)
	return f
}

func testRequest() market.Request {
	return market.Request{
		UserID:          "user-42",
		SelectedIndices: []string{"NIFTY"},
		Timestamp:       time.Date(2025, 3, 10, 8, 30, 0, 0, time.FixedZone("IST", 19800)),
	}
}

func TestGenerate_PreMarket(t *testing.T) {
	f := newFixture(t, false)

	report, err := f.orch.Generate(context.Background(), testRequest(), "req-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if report.MarketPhase != market.PhasePre {
		t.Errorf("phase = %s, want pre", report.MarketPhase)
	}
	if report.MarketOutlook == nil || report.MarketOutlook.Sentiment != market.SentimentBullish {
		t.Errorf("outlook = %+v", report.MarketOutlook)
	}
	if len(report.MarketSummary) == 0 {
		t.Error("market summary empty before open")
	}
	for _, b := range report.MarketSummary {
		if !market.HasCausalLanguage(b.Text) {
			t.Errorf("bullet lacks causal language: %q", b.Text)
		}
	}
	if report.TrendingNow != nil {
		t.Errorf("trending = %v, want nil before open", report.TrendingNow)
	}
	if report.DegradedMode || len(report.Warnings) != 0 {
		t.Errorf("degraded=%v warnings=%v on a clean run", report.DegradedMode, report.Warnings)
	}
	if report.RequestID != "req-1" {
		t.Errorf("request id = %s", report.RequestID)
	}

	// Themed news is allowed-catalog only.
	for _, tn := range report.ThemedNews {
		if _, ok := market.NormalizeTheme(tn.ThemeName); !ok {
			t.Errorf("theme %q not in catalog", tn.ThemeName)
		}
		if tn.Theme != tn.ThemeName {
			t.Errorf("theme fields diverge: %q vs %q", tn.Theme, tn.ThemeName)
		}
	}
	if len(report.ThemedNews) > market.MaxThemedNews {
		t.Errorf("themed news = %d, want at most %d", len(report.ThemedNews), market.MaxThemedNews)
	}

	if report.WatchlistImpacted[0] != "TCS" {
		t.Errorf("watchlist impacted = %v", report.WatchlistImpacted)
	}
	if report.PortfolioSentiment != market.ImpactPositive {
		t.Errorf("portfolio sentiment = %s", report.PortfolioSentiment)
	}
}

func TestGenerate_MidMarketTrending(t *testing.T) {
	f := newFixture(t, false)

	intel := preMarketIntel()
	intel.MarketPhase = market.PhaseMid
	intel.MarketOutlook = nil
	f.intel.out = intel

	now := time.Now()
	f.summary.out = agents.SummaryOutput{
		TrendingNowSection: []market.NewsItem{
			{ID: "n3", PublishedAt: now},
			{ID: "n1", PublishedAt: now.Add(-20 * time.Minute)},
		},
		ExecutiveSummary: "Market activity ongoing. Key developments being monitored.",
	}

	report, err := f.orch.Generate(context.Background(), testRequest(), "req-2")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if report.MarketOutlook != nil {
		t.Errorf("outlook = %+v, want nil during mid-market", report.MarketOutlook)
	}
	if report.MarketSummary != nil {
		t.Errorf("bullets = %v, want nil during mid-market", report.MarketSummary)
	}
	if len(report.TrendingNow) != 2 || report.TrendingNow[0].ID != "n3" {
		t.Errorf("trending = %v", report.TrendingNow)
	}
	// Non-increasing published_at.
	for i := 1; i < len(report.TrendingNow); i++ {
		if report.TrendingNow[i].PublishedAt.After(report.TrendingNow[i-1].PublishedAt) {
			t.Error("trending not ordered by published_at descending")
		}
	}
}

func TestGenerate_InsightTimeoutDegrades(t *testing.T) {
	f := newFixture(t, false)
	f.insight.err = &agent.TimeoutError{Agent: "portfolio_insight", Timeout: 5 * time.Second}
	f.insight.cfg.MaxRetries = 0

	report, err := f.orch.Generate(context.Background(), testRequest(), "req-3")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !report.DegradedMode {
		t.Error("degraded mode not set after insight failure")
	}
	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "portfolio_insight timeout") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want portfolio_insight timeout entry", report.Warnings)
	}

	// Summary still delivers.
	if len(report.MarketSummary) == 0 {
		t.Error("summary bullets lost to the insight failure")
	}
	if f.summary.callCount() != 1 {
		t.Errorf("summary calls = %d, want 1", f.summary.callCount())
	}

	// Insight fields fall back to empty defaults.
	if len(report.WatchlistAlerts) != 0 || len(report.ThemedNews) != 0 {
		t.Errorf("insight output leaked into degraded report: %v %v",
			report.WatchlistAlerts, report.ThemedNews)
	}
	if len(report.WatchlistImpacted) != 0 {
		t.Errorf("watchlist impacted = %v, want empty", report.WatchlistImpacted)
	}
}

func TestGenerate_IntelligenceFailurePlaceholder(t *testing.T) {
	f := newFixture(t, false)
	f.intel.err = &agent.DataFetchError{Source: "fetch_market_indices", Message: "backend down"}

	report, err := f.orch.Generate(context.Background(), testRequest(), "req-4")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !report.DegradedMode {
		t.Error("degraded mode not set after intelligence failure")
	}
	// Phase still derives from the request timestamp (08:30 IST = pre).
	if report.MarketPhase != market.PhasePre {
		t.Errorf("phase = %s, want pre from request timestamp", report.MarketPhase)
	}
	if report.MarketOutlook != nil {
		t.Errorf("outlook = %+v, want nil in placeholder", report.MarketOutlook)
	}
	if len(report.IndicesData) != 0 {
		t.Errorf("indices = %v, want empty placeholder", report.IndicesData)
	}
	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "market_intelligence failed") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want market_intelligence entry", report.Warnings)
	}
}

func TestGenerate_AllAgentsFailedIsFatal(t *testing.T) {
	f := newFixture(t, false)
	f.intel.err = errors.New("model unreachable")
	f.insight.err = errors.New("model unreachable")
	f.summary.err = errors.New("model unreachable")

	_, err := f.orch.Generate(context.Background(), testRequest(), "req-5")
	var oe *agent.OrchestrationError
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want *agent.OrchestrationError", err)
	}
}

func TestGenerate_SecondRunServedFromCache(t *testing.T) {
	f := newFixture(t, true)
	req := testRequest()

	first, err := f.orch.Generate(context.Background(), req, "req-6")
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	second, err := f.orch.Generate(context.Background(), req, "req-7")
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	for name, calls := range map[string]int{
		"intelligence": f.intel.callCount(),
		"insight":      f.insight.callCount(),
		"summary":      f.summary.callCount(),
	} {
		if calls != 1 {
			t.Errorf("%s executed %d times, want 1 (second run cached)", name, calls)
		}
	}

	// Structurally equal modulo request id and generated_at.
	if len(second.MarketSummary) != len(first.MarketSummary) ||
		second.MarketPhase != first.MarketPhase ||
		second.PortfolioSentiment != first.PortfolioSentiment {
		t.Errorf("cached run diverged: %+v vs %+v", second, first)
	}
}

func TestGenerate_ForceRefreshBypassesCache(t *testing.T) {
	f := newFixture(t, true)
	req := testRequest()

	if _, err := f.orch.Generate(context.Background(), req, "req-8"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	req.ForceRefresh = true
	if _, err := f.orch.Generate(context.Background(), req, "req-9"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if f.intel.callCount() != 2 {
		t.Errorf("intelligence calls = %d, want 2 with force_refresh", f.intel.callCount())
	}
}

// The maps Generate hands to Phase B must pass the concrete agents' input
// schemas in every phase, including mid-market and degraded runs where no
// outlook exists. The schemas type market_outlook as an object, so a nil
// outlook has to leave the key out entirely rather than carry a null.
func TestPhaseBInputs_MatchAgentSchemas(t *testing.T) {
	insightSchema := agent.MustSchema(&agents.InsightInput{})
	summarySchema := agent.MustSchema(&agents.SummaryInput{})

	midIntel := preMarketIntel()
	midIntel.MarketPhase = market.PhaseMid
	midIntel.MarketOutlook = nil

	for name, intel := range map[string]agents.IntelligenceOutput{
		"pre-market":  preMarketIntel(),
		"mid-market":  midIntel,
		"placeholder": placeholderIntelligence(time.Date(2025, 3, 10, 12, 0, 0, 0, time.FixedZone("IST", 19800))),
	} {
		if err := agent.ValidateValue(insightSchema, insightInput("user-42", intel)); err != nil {
			t.Errorf("%s: insight input rejected by schema: %v", name, err)
		}
		if err := agent.ValidateValue(summarySchema, summaryInput(intel, 3)); err != nil {
			t.Errorf("%s: summary input rejected by schema: %v", name, err)
		}
	}

	if _, ok := insightInput("user-42", midIntel)["market_outlook"]; ok {
		t.Error("insight input carries market_outlook when intelligence produced none")
	}
	if _, ok := summaryInput(midIntel, 3)["market_outlook"]; ok {
		t.Error("summary input carries market_outlook when intelligence produced none")
	}
	if _, ok := insightInput("user-42", preMarketIntel())["market_outlook"]; !ok {
		t.Error("insight input missing market_outlook when intelligence produced one")
	}
}

func TestHardCeiling(t *testing.T) {
	f := newFixture(t, false)
	f.intel.cfg.Timeout = 30 * time.Second
	f.insight.cfg.Timeout = 30 * time.Second
	f.summary.cfg.Timeout = 20 * time.Second

	want := 30*time.Second + 30*time.Second + assemblyGrace
	if got := f.orch.HardCeiling(); got != want {
		t.Errorf("HardCeiling() = %s, want %s", got, want)
	}
}

func TestFallbackImpacts(t *testing.T) {
	items := []market.NewsItem{
		{ID: "a", IsBreaking: true, Sentiment: market.SentimentBearish, MentionedSectors: []string{"Energy"}},
		{ID: "b", Sentiment: market.SentimentBullish},
	}

	got := fallbackImpacts(items)
	if got[0].ImpactConfidence != 0.9 {
		t.Errorf("breaking confidence = %f, want 0.9", got[0].ImpactConfidence)
	}
	if got[1].ImpactConfidence != 0.6 {
		t.Errorf("regular confidence = %f, want 0.6", got[1].ImpactConfidence)
	}
	if got[0].SectorImpacts["Energy"] != market.ImpactNegative {
		t.Errorf("sector impact = %v", got[0].SectorImpacts)
	}
	for _, nwi := range got {
		if nwi.CausalChain == "" {
			t.Errorf("empty causal chain for %s", nwi.NewsID)
		}
	}
}

func TestNormalizedThemes(t *testing.T) {
	themes := []market.ThemeGroup{
		{ThemeName: "Banking & Financials News"},
		{ThemeName: "Totally Unknown"},
		{ThemeName: "IT"},
	}

	got := normalizedThemes(themes)
	if len(got) != 2 {
		t.Fatalf("themes = %v, want 2", got)
	}
	if got[0].ThemeName != "Banking & Financials" {
		t.Errorf("suffix not stripped: %s", got[0].ThemeName)
	}
	if got[1].ThemeName != "Information Technology (IT)" {
		t.Errorf("IT not normalized: %s", got[1].ThemeName)
	}
}
