package cache

import (
	"testing"
	"time"

	"github.com/sgericke98/beacon-l2c-sub000/internal/clock"
)

func TestTTLCacheExpiresWithClock(t *testing.T) {
	clk := &clock.Fixed{Instant: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewTTLCache[string, int](clk)

	c.Set("rate:EUR:USD", 42, 30*time.Minute)

	if got, ok := c.Get("rate:EUR:USD"); !ok || got != 42 {
		t.Fatalf("expected hit with 42, got %v ok=%v", got, ok)
	}

	clk.Advance(29 * time.Minute)
	if _, ok := c.Get("rate:EUR:USD"); !ok {
		t.Fatalf("expected entry to still be live before TTL")
	}

	clk.Advance(2 * time.Minute)
	if _, ok := c.Get("rate:EUR:USD"); ok {
		t.Fatalf("expected entry to expire after TTL")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	clk := &clock.Fixed{Instant: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewTTLCache[string, string](clk)

	c.Set("key", "value", 0)
	clk.Advance(1000 * time.Hour)

	if got, ok := c.Get("key"); !ok || got != "value" {
		t.Fatalf("expected permanent entry, got %v ok=%v", got, ok)
	}
}

func TestTTLCacheDelete(t *testing.T) {
	c := NewTTLCache[string, int](nil)
	c.Set("key", 1, time.Minute)
	c.Delete("key")
	if _, ok := c.Get("key"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	var c NoopCache[string, int]
	c.Set("key", 1, time.Minute)
	if _, ok := c.Get("key"); ok {
		t.Fatalf("expected noop cache to miss")
	}
}
