package market

import "testing"

func TestHasCausalLanguage(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"IT stocks gained driven by strong earnings.", true},
		{"Markets fell due to global selloff.", true},
		{"Banks rallied AMID rate cut hopes.", true},
		{"Metals weighed by weak China demand.", true},
		{"NIFTY rose 1.2%. Tech stocks performed well.", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := HasCausalLanguage(tt.text); got != tt.want {
			t.Errorf("HasCausalLanguage(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestCausalKeywords_Count(t *testing.T) {
	if len(CausalKeywords) != 13 {
		t.Errorf("catalog size = %d, want 13", len(CausalKeywords))
	}
}

func TestCausalConnectors_FirstEntryIsCausal(t *testing.T) {
	for _, s := range []Sentiment{SentimentBullish, SentimentBearish, SentimentNeutral, SentimentMixed} {
		connectors := CausalConnectors(s)
		if len(connectors) == 0 {
			t.Fatalf("CausalConnectors(%q) is empty", s)
		}
		if !HasCausalLanguage("x " + connectors[0] + " y") {
			t.Errorf("first connector %q for %q is not a causal keyword", connectors[0], s)
		}
	}
}
