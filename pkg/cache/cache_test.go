package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestResponseCache_RoundTrip(t *testing.T) {
	c := New(NewMemoryStore(), Options{TTL: time.Minute}, nil)
	ctx := context.Background()

	input := map[string]any{"user_id": "u1", "indices": []string{"NIFTY"}}
	stored := []byte(`{"market_phase":"pre"}`)

	if _, hit := c.Get(ctx, "market_intelligence", input); hit {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Set(ctx, "market_intelligence", input, stored)

	got, hit := c.Get(ctx, "market_intelligence", input)
	if !hit {
		t.Fatal("expected hit after Set")
	}
	if !bytes.Equal(got, stored) {
		t.Errorf("Get() = %s, want stored bytes %s", got, stored)
	}
}

func TestResponseCache_HitRequiresSameCanonicalInput(t *testing.T) {
	c := New(NewMemoryStore(), Options{}, nil)
	ctx := context.Background()

	c.Set(ctx, "market_intelligence", map[string]any{"a": 1, "b": 2}, []byte("v"))

	// Same canonical input, different key order
	if _, hit := c.Get(ctx, "market_intelligence", map[string]any{"b": 2, "a": 1}); !hit {
		t.Error("expected hit for canonically equal input")
	}

	if _, hit := c.Get(ctx, "market_intelligence", map[string]any{"a": 1, "b": 3}); hit {
		t.Error("unexpected hit for different input")
	}
	if _, hit := c.Get(ctx, "portfolio_insight", map[string]any{"a": 1, "b": 2}); hit {
		t.Error("unexpected hit for different agent")
	}
}

func TestResponseCache_TTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	c := New(store, Options{TTL: time.Minute}, nil)
	ctx := context.Background()

	c.Set(ctx, "market_intelligence", "in", []byte("v"))
	if _, hit := c.Get(ctx, "market_intelligence", "in"); !hit {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, hit := c.Get(ctx, "market_intelligence", "in"); hit {
		t.Error("expected miss after TTL expiry")
	}
}

func TestResponseCache_InvalidateOne(t *testing.T) {
	c := New(NewMemoryStore(), Options{}, nil)
	ctx := context.Background()

	c.Set(ctx, "market_intelligence", "a", []byte("1"))
	c.Set(ctx, "market_intelligence", "b", []byte("2"))

	c.Invalidate(ctx, "market_intelligence", "a")

	if _, hit := c.Get(ctx, "market_intelligence", "a"); hit {
		t.Error("expected invalidated entry to miss")
	}
	if _, hit := c.Get(ctx, "market_intelligence", "b"); !hit {
		t.Error("other entry should survive single invalidation")
	}
}

func TestResponseCache_InvalidateAllForAgent(t *testing.T) {
	c := New(NewMemoryStore(), Options{}, nil)
	ctx := context.Background()

	c.Set(ctx, "market_intelligence", "a", []byte("1"))
	c.Set(ctx, "market_intelligence", "b", []byte("2"))
	c.Set(ctx, "portfolio_insight", "a", []byte("3"))

	c.Invalidate(ctx, "market_intelligence", nil)

	if _, hit := c.Get(ctx, "market_intelligence", "a"); hit {
		t.Error("expected all market_intelligence entries gone")
	}
	if _, hit := c.Get(ctx, "market_intelligence", "b"); hit {
		t.Error("expected all market_intelligence entries gone")
	}
	if _, hit := c.Get(ctx, "portfolio_insight", "a"); !hit {
		t.Error("other agent's entries should survive")
	}
}

func TestResponseCache_Disabled(t *testing.T) {
	c := Disabled()
	ctx := context.Background()

	c.Set(ctx, "market_intelligence", "in", []byte("v"))
	if _, hit := c.Get(ctx, "market_intelligence", "in"); hit {
		t.Error("disabled cache must always miss")
	}
	if c.Enabled() {
		t.Error("Enabled() = true for disabled cache")
	}
	if err := c.Ping(ctx); err != nil {
		t.Errorf("disabled Ping() = %v, want nil", err)
	}
}

// failingStore simulates an unreachable backend.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errStoreDown
}
func (failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errStoreDown
}
func (failingStore) Delete(ctx context.Context, key string) error { return errStoreDown }
func (failingStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	return 0, errStoreDown
}
func (failingStore) Ping(ctx context.Context) error { return errStoreDown }
func (failingStore) Close() error                   { return nil }

func TestResponseCache_StoreFailureDegradesToMiss(t *testing.T) {
	c := New(failingStore{}, Options{}, nil)
	ctx := context.Background()

	// Neither call may panic or surface the store error
	c.Set(ctx, "market_intelligence", "in", []byte("v"))
	if _, hit := c.Get(ctx, "market_intelligence", "in"); hit {
		t.Error("failing store must read as a miss")
	}
}
