package datasource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pulselabs/marketpulse/pkg/market"
	"github.com/pulselabs/marketpulse/pkg/tools"
)

func newTestRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	src := NewFixtureSource()
	if err := RegisterAll(reg, src, src); err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}
	return reg
}

func TestRegisterAll_BindsEveryTool(t *testing.T) {
	reg := newTestRegistry(t)

	var want []string
	want = append(want, MarketToolNames...)
	want = append(want, UserToolNames...)
	want = append(want, AnalysisToolNames...)

	if reg.Count() != len(want) {
		t.Errorf("registered = %d, want %d", reg.Count(), len(want))
	}
	for _, name := range want {
		if len(reg.Declarations(name)) != 1 {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestInvoke_FetchMarketIndices(t *testing.T) {
	reg := newTestRegistry(t)

	reply := reg.Invoke(context.Background(), "fetch_market_indices",
		map[string]any{"indices": []any{"NIFTY"}})

	result, ok := reply["result"].(map[string]market.IndexData)
	if !ok {
		t.Fatalf("reply = %v", reply)
	}
	if _, ok := result["NIFTY"]; !ok {
		t.Errorf("NIFTY missing: %v", result)
	}
}

func TestInvoke_GetMarketPhase(t *testing.T) {
	reg := newTestRegistry(t)

	// 11:30 IST is mid-market
	reply := reg.Invoke(context.Background(), "get_market_phase",
		map[string]any{"timestamp": "2025-03-10T11:30:00+05:30"})
	if reply["result"] != "mid" {
		t.Errorf("phase = %v, want mid", reply["result"])
	}

	reply = reg.Invoke(context.Background(), "get_market_phase",
		map[string]any{"timestamp": "not a time"})
	if _, ok := reply["error"].(string); !ok {
		t.Errorf("bad timestamp reply = %v, want error payload", reply)
	}
}

func TestInvoke_CalculateSectorExposure(t *testing.T) {
	reg := newTestRegistry(t)

	reply := reg.Invoke(context.Background(), "calculate_sector_exposure",
		map[string]any{"user_id": "user-42"})

	exposure, ok := reply["result"].(map[string]float64)
	if !ok {
		t.Fatalf("reply = %v", reply)
	}
	var total float64
	for _, pct := range exposure {
		total += pct
	}
	if total < 99.9 || total > 100.1 {
		t.Errorf("exposure total = %f, want ~100", total)
	}
}

func TestInvoke_UnknownFundamentalsBecomesErrorPayload(t *testing.T) {
	reg := newTestRegistry(t)

	reply := reg.Invoke(context.Background(), "get_company_fundamentals",
		map[string]any{"ticker": "UNLISTED"})
	msg, ok := reply["error"].(string)
	if !ok || !strings.Contains(msg, "UNLISTED") {
		t.Errorf("reply = %v, want error naming the ticker", reply)
	}
}

func TestInvoke_RankNewsByImportance(t *testing.T) {
	reg := newTestRegistry(t)

	reply := reg.Invoke(context.Background(), "rank_news_by_importance", map[string]any{
		"news_items": []any{
			map[string]any{"id": "a", "relevance_score": 0.2},
			map[string]any{"id": "b", "is_breaking": true},
		},
	})

	ranked, ok := reply["result"].([]market.NewsItem)
	if !ok {
		t.Fatalf("reply = %v", reply)
	}
	if ranked[0].ID != "b" {
		t.Errorf("first ranked = %s, want breaking item", ranked[0].ID)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/indices":
			json.NewEncoder(w).Encode(map[string]market.IndexData{
				"NIFTY": {Name: "NIFTY", Value: 22000, ChangePercent: 1.1, ChangeAbs: 242},
			})
		case r.URL.Path == "/users/u1/watchlist":
			json.NewEncoder(w).Encode([]string{"TCS", "INFY"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	ctx := context.Background()

	indices, err := src.Indices(ctx, []string{"NIFTY"})
	if err != nil {
		t.Fatalf("Indices() error = %v", err)
	}
	if indices["NIFTY"].Value != 22000 {
		t.Errorf("NIFTY = %+v", indices["NIFTY"])
	}

	watchlist, err := src.Watchlist(ctx, "u1")
	if err != nil {
		t.Fatalf("Watchlist() error = %v", err)
	}
	if len(watchlist) != 2 || watchlist[0] != "TCS" {
		t.Errorf("watchlist = %v", watchlist)
	}

	if _, err := src.Portfolio(ctx, "u1"); err == nil {
		t.Error("expected error for 404 endpoint")
	}
}
