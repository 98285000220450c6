package market

import "strings"

// MaxThemedNews caps the themed entries exposed on the response boundary.
const MaxThemedNews = 5

// AllowedThemes is the closed, ordered catalog of theme names permitted to
// cross the response boundary.
var AllowedThemes = []string{
	// Sector-driven (core)
	"Banking & Financials",
	"Information Technology (IT)",
	"Oil, Gas & Energy",
	"FMCG & Consumer Staples",
	"Consumer Discretionary",
	"Automobiles & Auto Ancillaries",
	"Pharma & Healthcare",
	"Metals & Mining",
	"Infrastructure & Capital Goods",
	"Real Estate",
	// Macro / flow-driven
	"Global Market Cues",
	"RBI & Interest Rates",
	"Commodities & Crude Prices",
	"FII & DII Flows",
	// Structural / emerging
	"EV, Green Energy & New-Age Themes",
}

// newsTypeToTheme maps internal news types to theme names. Keys lowercased.
var newsTypeToTheme = map[string]string{
	"economy":                   "RBI & Interest Rates",
	"economic & policy updates": "RBI & Interest Rates",
	"foreign markets":           "Global Market Cues",
	"global market updates":     "Global Market Cues",
	"other markets":             "Commodities & Crude Prices",
	"commodities & forex":       "Commodities & Crude Prices",
	"general":                   "Global Market Cues",
}

// sectorKeywordsToTheme maps sector keywords to themes.
// Match is case-insensitive substring, in catalog order.
var sectorKeywordsToTheme = []struct {
	keywords []string
	theme    string
}{
	{[]string{"banking", "banks", "nbfc", "financials", "insurer", "lending"}, "Banking & Financials"},
	{[]string{"it", "information technology", "software", "tech", "export"}, "Information Technology (IT)"},
	{[]string{"oil", "gas", "energy", "power", "utilities", "upstream", "downstream"}, "Oil, Gas & Energy"},
	{[]string{"fmcg", "consumer staples", "staples", "defensive"}, "FMCG & Consumer Staples"},
	{[]string{"consumer discretionary", "retail", "durables"}, "Consumer Discretionary"},
	{[]string{"auto", "automobile", "oem", "ancillar"}, "Automobiles & Auto Ancillaries"},
	{[]string{"pharma", "healthcare", "diagnostic", "hospital"}, "Pharma & Healthcare"},
	{[]string{"metals", "mining", "steel", "aluminium"}, "Metals & Mining"},
	{[]string{"infrastructure", "capital goods", "construction", "engineering"}, "Infrastructure & Capital Goods"},
	{[]string{"real estate", "realty", "housing"}, "Real Estate"},
	{[]string{"global", "us ", "europe", "asia", "overnight", "cues"}, "Global Market Cues"},
	{[]string{"rbi", "interest rate", "monetary", "liquidity", "yield"}, "RBI & Interest Rates"},
	{[]string{"commodit", "crude", "agri"}, "Commodities & Crude Prices"},
	{[]string{"fii", "dii", "flow", "institutional"}, "FII & DII Flows"},
	{[]string{"ev", "green energy", "renewable", "energy transition", "new-age"}, "EV, Green Energy & New-Age Themes"},
}

// NormalizeTheme maps a free-form theme name into the allowed catalog.
// Resolution order: exact match (case-insensitive), news-type map, sector
// keyword substring, then a retry with " news"/" update" suffixes stripped.
// Returns ("", false) when nothing matches. Idempotent on catalog names.
func NormalizeTheme(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	key := strings.ToLower(name)
	if theme, ok := matchTheme(key); ok {
		return theme, true
	}

	for _, suffix := range []string{" news", " update"} {
		if strings.HasSuffix(key, suffix) {
			base := strings.TrimSpace(strings.TrimSuffix(key, suffix))
			if theme, ok := matchTheme(base); ok {
				return theme, true
			}
		}
	}

	return "", false
}

// matchTheme resolves a lowercased candidate against the catalog.
func matchTheme(key string) (string, bool) {
	for _, allowed := range AllowedThemes {
		if key == strings.ToLower(allowed) {
			return allowed, true
		}
	}

	if theme, ok := newsTypeToTheme[key]; ok {
		return theme, true
	}

	for _, entry := range sectorKeywordsToTheme {
		for _, kw := range entry.keywords {
			if strings.Contains(key, kw) {
				return entry.theme, true
			}
		}
	}

	return "", false
}

// ThemeRank returns the catalog position of a canonical theme name, used as
// a stable tie-breaker when ranking themes. Unknown names sort last.
func ThemeRank(theme string) int {
	for i, allowed := range AllowedThemes {
		if theme == allowed {
			return i
		}
	}
	return len(AllowedThemes)
}
