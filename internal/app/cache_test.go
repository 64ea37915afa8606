package app

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache()

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("empty cache returned a hit")
	}

	c.Set("featured", []int{1, 2, 3}, time.Minute)
	got, ok := c.Get("featured")
	if !ok {
		t.Fatalf("expected a hit")
	}
	if v := got.([]int); len(v) != 3 {
		t.Fatalf("value mangled: %v", v)
	}

	c.Delete("featured")
	if _, ok := c.Get("featured"); ok {
		t.Fatalf("deleted key still present")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	c.Set("short", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Fatalf("expired entry still served")
	}
	// Expired-on-read entries are also removed.
	if c.Len() != 0 {
		t.Fatalf("len = %d after expiry read, want 0", c.Len())
	}
}

func TestTTLCacheCleanup(t *testing.T) {
	c := NewTTLCache()
	c.Set("dead1", 1, 5*time.Millisecond)
	c.Set("dead2", 2, 5*time.Millisecond)
	c.Set("alive", 3, time.Minute)
	time.Sleep(20 * time.Millisecond)

	if removed := c.CleanupExpired(); removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
	if _, ok := c.Get("alive"); !ok {
		t.Fatalf("live entry swept")
	}
}

func TestTTLCacheDefaultTTL(t *testing.T) {
	c := NewTTLCache()
	// Non-positive TTL falls back to a minute, not instant expiry.
	c.Set("k", "v", 0)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("zero-ttl entry expired immediately")
	}
}
