package services

import (
	"sync"
	"time"
)

// cacheEntry stores one value with its expiry
type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL cache safe for concurrent use. Expiry is lazy: an expired
// entry counts as a miss on Get and stays in the map until overwritten or
// cleared, trading a little stale memory for not running a sweeper.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]cacheEntry[V]
}

// NewCache creates an empty cache
func NewCache[V any]() *Cache[V] {
	return &Cache[V]{items: make(map[string]cacheEntry[V])}
}

// Get returns the value for key, or a miss if absent or expired
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key for ttl. The cache is TTL-agnostic: each call
// site supplies its own ttl.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = cacheEntry[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes key if present
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear drops all entries
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]cacheEntry[V])
	c.mu.Unlock()
}

// Len returns the number of physically present entries, expired included
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
