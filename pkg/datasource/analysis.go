package datasource

// Deterministic analysis helpers behind the analysis tools: sector lookup,
// supply-chain adjacency, and company fundamentals.

var tickerSectors = map[string]string{
	"RELIANCE":   "Energy",
	"ONGC":       "Energy",
	"TCS":        "IT",
	"INFY":       "IT",
	"WIPRO":      "IT",
	"HDFCBANK":   "Banking",
	"ICICIBANK":  "Banking",
	"SBIN":       "Banking",
	"TATAMOTORS": "Automobile",
	"MARUTI":     "Automobile",
	"SUNPHARMA":  "Pharmaceutical",
	"CIPLA":      "Pharmaceutical",
	"TATASTEEL":  "Metals",
	"JSWSTEEL":   "Metals",
	"ITC":        "FMCG",
	"HINDUNILVR": "FMCG",
}

// SectorOf maps tickers to sectors. Unknown tickers map to "Unknown".
func SectorOf(tickers []string) map[string]string {
	out := make(map[string]string, len(tickers))
	for _, t := range tickers {
		if sector, ok := tickerSectors[t]; ok {
			out[t] = sector
		} else {
			out[t] = "Unknown"
		}
	}
	return out
}

// supplyChain lists the sectors downstream of each sector: a shock to the
// key propagates to the values.
var supplyChain = map[string][]string{
	"Energy":     {"Automobile", "Metals", "FMCG"},
	"Metals":     {"Automobile", "Infrastructure"},
	"Banking":    {"Automobile", "Infrastructure", "FMCG"},
	"IT":         {"Banking"},
	"Automobile": {"Metals"},
}

// SupplyChainImpact returns the sectors affected when the given sector
// moves, with a short explanation per sector.
func SupplyChainImpact(sector string, direction string) map[string]string {
	downstream, ok := supplyChain[sector]
	if !ok {
		return map[string]string{}
	}

	verb := "affected by"
	switch direction {
	case "positive":
		verb = "supported by strength in"
	case "negative":
		verb = "pressured by weakness in"
	}

	out := make(map[string]string, len(downstream))
	for _, d := range downstream {
		out[d] = d + " " + verb + " " + sector
	}
	return out
}

type fundamentals struct {
	MarketCapCr float64 `json:"market_cap_cr"`
	PERatio     float64 `json:"pe_ratio"`
	ROEPercent  float64 `json:"roe_percent"`
	DebtEquity  float64 `json:"debt_to_equity"`
}

var companyFundamentals = map[string]fundamentals{
	"RELIANCE":   {MarketCapCr: 1750000, PERatio: 27.4, ROEPercent: 9.8, DebtEquity: 0.44},
	"TCS":        {MarketCapCr: 1400000, PERatio: 30.1, ROEPercent: 46.9, DebtEquity: 0.08},
	"INFY":       {MarketCapCr: 640000, PERatio: 24.6, ROEPercent: 31.8, DebtEquity: 0.09},
	"HDFCBANK":   {MarketCapCr: 1130000, PERatio: 18.9, ROEPercent: 17.1, DebtEquity: 1.20},
	"ICICIBANK":  {MarketCapCr: 770000, PERatio: 17.5, ROEPercent: 17.7, DebtEquity: 1.05},
	"TATAMOTORS": {MarketCapCr: 290000, PERatio: 16.2, ROEPercent: 23.4, DebtEquity: 1.10},
	"SUNPHARMA":  {MarketCapCr: 380000, PERatio: 34.8, ROEPercent: 16.5, DebtEquity: 0.05},
	"TATASTEEL":  {MarketCapCr: 175000, PERatio: 48.0, ROEPercent: 6.2, DebtEquity: 0.79},
}

// Fundamentals returns static key ratios for a ticker, and whether the
// ticker is covered.
func Fundamentals(ticker string) (fundamentals, bool) {
	f, ok := companyFundamentals[ticker]
	return f, ok
}
