package market

import "strings"

// CausalKeywords is the fixed catalog of tokens at least one of which must
// appear in every market summary bullet.
var CausalKeywords = []string{
	"due to",
	"after",
	"following",
	"driven by",
	"as",
	"because",
	"on account of",
	"amid",
	"on the back of",
	"triggered by",
	"led by",
	"supported by",
	"weighed by",
}

// HasCausalLanguage reports whether text contains at least one causal
// keyword, case-insensitively.
func HasCausalLanguage(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range CausalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CausalConnectors returns connector phrases matching a sentiment, strongest
// first. The first entry is used when composing bullets so reports stay
// reproducible.
func CausalConnectors(sentiment Sentiment) []string {
	switch sentiment {
	case SentimentBullish:
		return []string{"driven by", "supported by", "on the back of"}
	case SentimentBearish:
		return []string{"weighed by", "pressured by", "following"}
	default:
		return []string{"amid", "following", "as"}
	}
}
