// Package orchestrator runs the three-phase pipeline: market intelligence,
// the parallel insight/summary fan-out, and report assembly.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pulselabs/marketpulse/pkg/agent"
	"github.com/pulselabs/marketpulse/pkg/agents"
	"github.com/pulselabs/marketpulse/pkg/market"
)

// assemblyGrace covers Phase C and scheduling overhead on top of the agent
// timeouts when computing the hard ceiling.
const assemblyGrace = 2 * time.Second

// Agents groups the three pipeline agents.
type Agents struct {
	Intelligence agent.Agent[agents.IntelligenceOutput]
	Insight      agent.Agent[agents.InsightOutput]
	Summary      agent.Agent[agents.SummaryOutput]
}

// Options tune per-request behavior.
type Options struct {
	// MaxBullets caps the causal summary. Zero means the agent default.
	MaxBullets int
}

// Orchestrator coordinates one report generation per call. It is safe for
// concurrent use; all per-request state lives in the ExecutionContext.
type Orchestrator struct {
	runtime *agent.Runtime
	agents  Agents
	opts    Options
	logger  *slog.Logger
}

func New(runtime *agent.Runtime, ag Agents, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{runtime: runtime, agents: ag, opts: opts, logger: logger}
}

// HardCeiling is the wall-clock bound on one orchestration: Phase A's
// timeout plus the slower Phase B timeout plus assembly grace.
func (o *Orchestrator) HardCeiling() time.Duration {
	phaseB := o.agents.Insight.Config().Timeout
	if t := o.agents.Summary.Config().Timeout; t > phaseB {
		phaseB = t
	}
	return o.agents.Intelligence.Config().Timeout + phaseB + assemblyGrace
}

// Generate runs the full pipeline for one request and assembles the report.
// Phase B failures degrade the report; only a total failure of all three
// agents is fatal.
func (o *Orchestrator) Generate(ctx context.Context, req market.Request, requestID string) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, o.HardCeiling())
	defer cancel()

	log := o.logger.With("request_id", requestID, "user_id", req.UserID)
	ec := &agent.ExecutionContext{
		RequestID:    requestID,
		UserID:       req.UserID,
		StartTime:    time.Now(),
		ForceRefresh: req.ForceRefresh,
		Logger:       log,
	}

	var (
		degraded bool
		warnings []string
	)

	// Phase A: market intelligence, blocking.
	intel, intelErr := agent.Run(ctx, o.runtime, o.agents.Intelligence, map[string]any{
		"selected_indices": req.SelectedIndices,
		"timestamp":        req.Timestamp.Format(time.RFC3339),
		"force_refresh":    req.ForceRefresh,
	}, ec)
	if intelErr != nil {
		degraded = true
		warnings = append(warnings, agentWarning(o.agents.Intelligence.Config().Name, intelErr))
		intel = placeholderIntelligence(req.Timestamp)
		log.Warn("entering degraded mode after intelligence failure", "error", intelErr)
	}

	// Phase B: insight and summary in parallel. Errors are captured per
	// agent so one failure never cancels the other.
	var (
		insight    agents.InsightOutput
		insightErr error
		summary    agents.SummaryOutput
		summaryErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		insight, insightErr = agent.Run(ctx, o.runtime, o.agents.Insight, insightInput(req.UserID, intel), ec)
		return nil
	})
	g.Go(func() error {
		summary, summaryErr = agent.Run(ctx, o.runtime, o.agents.Summary, summaryInput(intel, o.maxBullets(req)), ec)
		return nil
	})
	_ = g.Wait()

	if insightErr != nil {
		degraded = true
		warnings = append(warnings, agentWarning(o.agents.Insight.Config().Name, insightErr))
		insight = agents.InsightOutput{}
	}
	if summaryErr != nil {
		degraded = true
		warnings = append(warnings, agentWarning(o.agents.Summary.Config().Name, summaryErr))
		summary = agents.SummaryOutput{
			ExecutiveSummary: "Market activity ongoing. Key developments being monitored.",
		}
	}

	if intelErr != nil && insightErr != nil && summaryErr != nil {
		return nil, &agent.OrchestrationError{
			Message: "all agents failed within the orchestration ceiling",
			Err:     errors.Join(intelErr, insightErr, summaryErr),
		}
	}

	report := assembleReport(requestID, intel, insight, summary, degraded, warnings)
	log.Info("report assembled",
		"phase", report.MarketPhase,
		"degraded", report.DegradedMode,
		"warnings", len(report.Warnings),
		"duration", time.Since(ec.StartTime))
	return report, nil
}

// insightInput builds the portfolio insight payload from Phase A output.
// The outlook key is omitted when intelligence produced none (mid-market or
// degraded runs); the insight schema accepts an absent key but not a null.
func insightInput(userID string, intel agents.IntelligenceOutput) map[string]any {
	in := map[string]any{
		"user_id":            userID,
		"news_items":         intel.NewsItems,
		"preliminary_themes": intel.PreliminaryThemes,
	}
	if intel.MarketOutlook != nil {
		in["market_outlook"] = intel.MarketOutlook
	}
	return in
}

// summaryInput builds the summary payload from Phase A output, with the
// same absent-not-null treatment of the outlook.
func summaryInput(intel agents.IntelligenceOutput, maxBullets int) map[string]any {
	in := map[string]any{
		"market_phase":      string(intel.MarketPhase),
		"news_with_impacts": fallbackImpacts(intel.NewsItems),
		"refined_themes":    normalizedThemes(intel.PreliminaryThemes),
		"indices_data":      intel.IndicesData,
		"max_bullets":       maxBullets,
	}
	if intel.MarketOutlook != nil {
		in["market_outlook"] = intel.MarketOutlook
	}
	return in
}

func (o *Orchestrator) maxBullets(req market.Request) int {
	if n, ok := req.Preferences["max_bullets"].(float64); ok && n > 0 {
		return int(n)
	}
	if o.opts.MaxBullets > 0 {
		return o.opts.MaxBullets
	}
	return agents.DefaultMaxBullets
}

// agentWarning formats one warnings entry for a failed agent.
func agentWarning(name string, err error) string {
	var te *agent.TimeoutError
	if errors.As(err, &te) {
		return fmt.Sprintf("%s timeout after %s", name, te.Timeout)
	}
	return fmt.Sprintf("%s failed: %v", name, err)
}

// placeholderIntelligence is the empty blob Phase B runs against when
// Phase A fails. The phase still derives from the request timestamp.
func placeholderIntelligence(ts time.Time) agents.IntelligenceOutput {
	return agents.IntelligenceOutput{
		MarketPhase:       market.PhaseAt(ts),
		IndicesData:       map[string]market.IndexData{},
		NewsItems:         []market.NewsItem{},
		PreliminaryThemes: []market.ThemeGroup{},
	}
}

// fallbackImpacts wraps plain news items as impact records so the summary
// agent can run in parallel with portfolio insight. Breaking news carries
// higher confidence; sector impacts follow the item's sentiment.
func fallbackImpacts(items []market.NewsItem) []market.NewsWithImpact {
	out := make([]market.NewsWithImpact, 0, len(items))
	for _, item := range items {
		confidence := 0.6
		if item.IsBreaking {
			confidence = 0.9
		}

		sectorImpacts := make(map[string]market.Impact, len(item.MentionedSectors))
		for _, sector := range item.MentionedSectors {
			sectorImpacts[sector] = sentimentImpact(item.Sentiment)
		}

		out = append(out, market.NewsWithImpact{
			NewsID:           item.ID,
			NewsItem:         item,
			SectorImpacts:    sectorImpacts,
			CausalChain:      fmt.Sprintf("Market moved %s %s", market.CausalConnectors(item.Sentiment)[0], item.Headline),
			ImpactConfidence: confidence,
		})
	}
	return out
}

func sentimentImpact(s market.Sentiment) market.Impact {
	switch s {
	case market.SentimentBullish:
		return market.ImpactPositive
	case market.SentimentBearish:
		return market.ImpactNegative
	}
	return market.ImpactNeutral
}

// normalizedThemes maps preliminary theme names into the allowed catalog,
// dropping the ones that do not normalize, capped at the response limit.
func normalizedThemes(themes []market.ThemeGroup) []market.ThemeGroup {
	out := make([]market.ThemeGroup, 0, len(themes))
	for _, t := range themes {
		name, ok := market.NormalizeTheme(t.ThemeName)
		if !ok {
			continue
		}
		t.ThemeName = name
		out = append(out, t)
		if len(out) == market.MaxThemedNews {
			break
		}
	}
	return out
}
