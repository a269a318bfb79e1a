package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// withClock pins the cache's clock for expiry tests.
func withClock(c *Cache) *time.Time {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return &now
}

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", "value")
	got, ok := c.Get("key")
	if !ok || got != "value" {
		t.Errorf("Get = (%v, %v), want (value, true)", got, ok)
	}

	if _, ok := c.Get("absent"); ok {
		t.Error("Get returned true for an absent key")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(time.Minute)
	now := withClock(c)

	c.Set("key", 42)
	*now = now.Add(59 * time.Second)
	if _, ok := c.Get("key"); !ok {
		t.Error("entry expired before its TTL")
	}

	*now = now.Add(2 * time.Second)
	if _, ok := c.Get("key"); ok {
		t.Error("entry survived past its TTL")
	}
	if c.Len() != 0 {
		t.Error("expired entry not removed on read")
	}
}

func TestCacheSetRefreshesTTL(t *testing.T) {
	c := New(time.Minute)
	now := withClock(c)

	c.Set("key", 1)
	*now = now.Add(50 * time.Second)
	c.Set("key", 2)
	*now = now.Add(50 * time.Second)

	got, ok := c.Get("key")
	if !ok || got != 2 {
		t.Errorf("Get after refresh = (%v, %v), want (2, true)", got, ok)
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := New(time.Minute)
	c.Set("key", 1)
	c.Invalidate("key")
	if _, ok := c.Get("key"); ok {
		t.Error("Get returned true after Invalidate")
	}
}

func TestCacheClear(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}

func TestCacheWriteSweep(t *testing.T) {
	c := New(time.Minute)
	now := withClock(c)

	for i := 0; i < sweepWatermark; i++ {
		c.Set(fmt.Sprintf("old-%d", i), i)
	}
	*now = now.Add(2 * time.Minute)

	// This write crosses the watermark and sweeps out the expired entries.
	c.Set("fresh", 1)
	if c.Len() != 1 {
		t.Errorf("Len after sweep = %d, want 1", c.Len())
	}
}

func TestCacheDefaultTTL(t *testing.T) {
	c := New(0)
	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want default %v", c.ttl, DefaultTTL)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%4)
			for j := 0; j < 200; j++ {
				c.Set(key, j)
				c.Get(key)
				if j%50 == 0 {
					c.Invalidate(key)
				}
			}
		}(i)
	}
	wg.Wait()
}
