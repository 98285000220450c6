package market

import "fmt"

// BenchmarkIndex is the index the market outlook derives from. It is
// fetched on every run whether or not the user selected it.
const BenchmarkIndex = "NIFTY"

// Outlook thresholds on the benchmark percent change.
const (
	bullishThreshold = 0.5
	bearishThreshold = -0.5
)

// OutlookFrom classifies the benchmark change into a market outlook.
// Returns nil during mid-market: an intraday outlook would be stale the
// moment it is produced.
func OutlookFrom(phase Phase, niftyChangePercent float64, keyDrivers []string) *MarketOutlook {
	if phase == PhaseMid {
		return nil
	}

	sentiment := SentimentNeutral
	switch {
	case niftyChangePercent > bullishThreshold:
		sentiment = SentimentBullish
	case niftyChangePercent < bearishThreshold:
		sentiment = SentimentBearish
	}

	confidence := abs(niftyChangePercent) / 2
	if confidence > 1 {
		confidence = 1
	}

	return &MarketOutlook{
		Sentiment:          sentiment,
		Confidence:         confidence,
		Reasoning:          outlookReasoning(sentiment, niftyChangePercent),
		NiftyChangePercent: niftyChangePercent,
		KeyDrivers:         keyDrivers,
	}
}

func outlookReasoning(sentiment Sentiment, change float64) string {
	switch sentiment {
	case SentimentBullish:
		return fmt.Sprintf("NIFTY up %.2f%%, broad positive momentum", change)
	case SentimentBearish:
		return fmt.Sprintf("NIFTY down %.2f%%, broad selling pressure", abs(change))
	default:
		return fmt.Sprintf("NIFTY flat at %.2f%%, no clear direction", change)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
