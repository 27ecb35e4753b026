package cache

import (
	"fmt"
	"testing"
	"time"
)

// TestLRUCacheEviction tests size-based eviction
func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Set("key4", "value4") // Should evict key1

	if _, found := c.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	for _, k := range []string{"key2", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Errorf("%s should exist", k)
		}
	}
}

func TestLRUCacheRecentlyUsedSurvives(t *testing.T) {
	c := NewLRUCache[[]byte](2, time.Hour)
	c.Set("Total|", []byte("root"))
	c.Set("Total|Food", []byte("food"))

	// Touch the root panel so Food becomes the eviction candidate.
	c.Get("Total|")
	c.Set("Total|Transport", []byte("transport"))

	if _, found := c.Get("Total|"); !found {
		t.Error("recently used entry should survive")
	}
	if _, found := c.Get("Total|Food"); found {
		t.Error("least recently used entry should be evicted")
	}
}

// TestLRUCacheTTLExpiration tests time-based expiration
func TestLRUCacheTTLExpiration(t *testing.T) {
	c := NewLRUCache[string](100, 50*time.Millisecond)

	c.Set("key1", "value1")

	if _, found := c.Get("key1"); !found {
		t.Error("key1 should exist immediately")
	}

	time.Sleep(60 * time.Millisecond)

	if _, found := c.Get("key1"); found {
		t.Error("key1 should have expired")
	}
}

// TestLRUCacheCleanExpired tests the cleanup mechanism
func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[string](100, 50*time.Millisecond)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")

	time.Sleep(60 * time.Millisecond)

	if removed := c.CleanExpired(); removed != 3 {
		t.Errorf("Expected 3 items cleaned, got %d", removed)
	}
	if c.Size() != 0 {
		t.Errorf("Expected empty cache, got %d", c.Size())
	}
}

func TestLRUCachePurgeAndStats(t *testing.T) {
	c := NewLRUCache[int](10, time.Hour)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	c.Get("k1")
	c.Get("missing")

	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("Purge left %d items", c.Size())
	}
	if _, found := c.Get("k1"); found {
		t.Error("purged key should be gone")
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 2 || st.Size != 0 {
		t.Errorf("unexpected stats %+v", st)
	}

	// The cache keeps working after a purge.
	c.Set("k1", 1)
	if v, found := c.Get("k1"); !found || v != 1 {
		t.Error("cache should accept new entries after purge")
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	c := NewLRUCache[string](10, time.Millisecond)
	c.Set("key", "value")

	m := NewManager()
	m.Register(c)
	m.StartCleanup(5 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for c.Size() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("manager never cleaned expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()
}

// BenchmarkLRUCache benchmarks cache performance
func BenchmarkLRUCache(b *testing.B) {
	c := NewLRUCache[[]byte](1000, time.Hour)
	panel := []byte("<section class=\"panel\"></section>")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		key := "Total|Food"
		if i%10 == 0 {
			c.Set(key, panel)
		} else {
			c.Get(key)
		}
	}
}
