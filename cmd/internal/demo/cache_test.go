package demo

import (
	"testing"
	"time"
)

func TestCountCache_TTL(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	c := NewCountCache(2 * time.Minute)
	c.now = func() time.Time { return now }

	if _, ok := c.Get("a@example.com"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	c.Set("a@example.com", 3)
	if got, ok := c.Get("a@example.com"); !ok || got != 3 {
		t.Fatalf("expected fresh hit of 3, got %d ok=%v", got, ok)
	}

	now = now.Add(3 * time.Minute)
	if _, ok := c.Get("a@example.com"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestCountCache_Evict(t *testing.T) {
	c := NewCountCache(time.Hour)
	c.Set("a@example.com", 3)
	c.Evict("a@example.com")
	if _, ok := c.Get("a@example.com"); ok {
		t.Fatalf("expected eviction to drop the entry")
	}
}
