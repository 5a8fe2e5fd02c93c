// internal/cache/cache_test.go
package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheBasicGetSet(t *testing.T) {
	c := New[string, int](4, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok, "empty cache should miss")

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// Overwriting the same key replaces the value without growing the cache.
	c.Set("a", 2)
	v, ok = c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestCacheLRUEviction(t *testing.T) {
	c := New[string, int](3, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" becomes the least recently used entry.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", 4)
	assert.Equal(t, 3, c.Len())

	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "key %q should survive eviction", key)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New[string, string](8, 30*time.Second)

	now := time.Unix(1000, 0)
	c.SetClock(func() time.Time { return now })

	c.Set("k", "v")

	now = now.Add(29 * time.Second)
	v, ok := c.Get("k")
	require.True(t, ok, "entry within TTL should hit")
	assert.Equal(t, "v", v)

	// A hit refreshes recency but not the expiry clock.
	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry past TTL should miss")
	assert.Equal(t, 0, c.Len(), "expired entry should be purged on lookup")

	// Re-setting after expiry starts a fresh TTL.
	c.Set("k", "v2")
	now = now.Add(15 * time.Second)
	v, ok = c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := New[int, string](4, time.Minute)
	c.Set(1, "one")
	c.Set(2, "two")

	c.Delete(1)
	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	// Deleting an absent key is a no-op.
	c.Delete(99)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok = c.Get(2)
	assert.False(t, ok)
}

func TestCacheDefaultsOnBadArguments(t *testing.T) {
	c := New[string, int](0, 0)
	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int, int](32, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := (seed + i) % 40
				c.Set(key, key*2)
				if v, ok := c.Get(key); ok {
					if v != key*2 {
						panic(fmt.Sprintf("cache returned %d for key %d", v, key))
					}
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 32, "capacity bound must hold under concurrency")
}
