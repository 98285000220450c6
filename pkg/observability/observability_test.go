package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInitGlobalTracer_Disabled(t *testing.T) {
	tp, err := InitGlobalTracer(context.Background(), TracerConfig{Enabled: false})
	if err != nil {
		t.Fatalf("InitGlobalTracer() error = %v", err)
	}
	if tp == nil {
		t.Fatal("expected noop tracer provider, got nil")
	}

	// Spans from the noop provider must be safe to use
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.End()
}

func TestPrometheusMetrics_NilSafe(t *testing.T) {
	var m *PrometheusMetrics

	ctx := context.Background()
	m.RecordAgentExecution(ctx, "market_intelligence", time.Second, nil)
	m.RecordCacheHit(ctx, "market_intelligence")
	m.RecordToolInvocation(ctx, "fetch_market_news", time.Millisecond, errors.New("boom"))
	m.RecordLLMCall(ctx, "gemini-2.0-flash", time.Second, 10, 20, nil)
}

func TestPrometheusMetrics_ZeroValueSafe(t *testing.T) {
	m := &PrometheusMetrics{}

	ctx := context.Background()
	m.RecordAgentExecution(ctx, "portfolio_insight", time.Second, errors.New("boom"))
	m.RecordCacheHit(ctx, "portfolio_insight")
	m.RecordToolInvocation(ctx, "fetch_user_watchlist", time.Millisecond, nil)
	m.RecordLLMCall(ctx, "gemini-2.0-flash", time.Second, 1, 2, errors.New("boom"))
}

func TestGlobalMetrics(t *testing.T) {
	defer SetGlobalMetrics(nil)

	if GetGlobalMetrics() != nil {
		SetGlobalMetrics(nil)
	}

	m := &PrometheusMetrics{}
	SetGlobalMetrics(m)

	if GetGlobalMetrics() != Metrics(m) {
		t.Error("GetGlobalMetrics() did not return the metrics that were set")
	}
}

func TestInitMetrics_Disabled(t *testing.T) {
	m, err := InitMetrics(context.Background(), MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("InitMetrics() error = %v", err)
	}

	// Disabled metrics still record without panicking
	m.RecordAgentExecution(context.Background(), "summary_generation", time.Second, nil)
}
