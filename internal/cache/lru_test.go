package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](2, time.Minute)
	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set(ctx, "c", 3) // evicts b, a was touched

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get(ctx, "a"); !ok || v != 1 {
		t.Errorf("a = %v,%v", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("size = %d, want 2", c.Len())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", "v")
	c.Set(ctx, "k2", "v2")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("entry should still be fresh")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry should have expired")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("CleanExpired removed %d, want 1", removed)
	}
	if c.Len() != 0 {
		t.Fatalf("size = %d", c.Len())
	}
}

func TestGenerationKeys(t *testing.T) {
	ctx := context.Background()
	var g LocalGeneration
	before := Key(ctx, &g, "dashboard", "2025-06")
	if before != "g0:dashboard:2025-06" {
		t.Fatalf("unexpected key %s", before)
	}
	g.Bump(ctx)
	if after := Key(ctx, &g, "dashboard", "2025-06"); after == before {
		t.Fatal("bump must change keys")
	}
}

func TestManagerSweepsAndStops(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	lru := NewLRUCache[int](4, time.Second)
	lru.now = func() time.Time { return now }
	lru.Set(ctx, "old", 1)
	now = now.Add(2 * time.Second)
	lru.Set(ctx, "new", 2)

	m := NewManager(lru)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if _, ok := lru.Get(ctx, "new"); !ok {
		t.Fatal("fresh entry swept")
	}

	m.Start(ctx, time.Millisecond)
	m.Start(ctx, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop()

	NewManager().Stop()
}
