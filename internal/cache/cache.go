// internal/cache/cache.go
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a bounded key/value store with least-recently-used eviction and a
// per-entry time-to-live. It backs the script template cache, the coordinate
// cache and the screenshot cache. Stale entries are never returned: a lookup
// that finds an expired entry removes it and reports a miss.
//
// Clearing a cache at any point is always safe. It only costs recomputation,
// never correctness, because every cached value can be rebuilt from source.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[K]*list.Element
	order    *list.List // front = most recently used

	// now is swappable so tests can control expiry deterministically.
	now func() time.Time
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// New creates a cache holding at most capacity entries, each valid for ttl.
// A non-positive capacity defaults to 64; a non-positive ttl defaults to a
// minute.
func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 64
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[K]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached value for key if present and not expired. A hit
// refreshes the entry's recency, not its expiry clock.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[K, V])
	if c.now().Sub(ent.storedAt) > c.ttl {
		c.removeElement(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return ent.value, true
}

// Set stores value under key, resetting its TTL. When the cache is full the
// least recently used entry is evicted first.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry[K, V])
		ent.value = value
		ent.storedAt = c.now()
		c.order.MoveToFront(el)
		return
	}

	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
	}

	el := c.order.PushFront(&entry[K, V]{key: key, value: value, storedAt: c.now()})
	c.entries[key] = el
}

// Delete removes key if present.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*list.Element, c.capacity)
	c.order.Init()
}

// Len reports the number of live entries, expired ones included until their
// next lookup or eviction.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// SetClock overrides the cache's time source. Tests only.
func (c *Cache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Cache[K, V]) removeElement(el *list.Element) {
	ent := el.Value.(*entry[K, V])
	delete(c.entries, ent.key)
	c.order.Remove(el)
}
