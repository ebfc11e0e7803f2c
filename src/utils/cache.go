package utils

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value      V
	expiration time.Time
}

// Cache is a keyed in-memory cache whose entries expire after a fixed TTL.
// A zero or negative TTL keeps entries until Clear is called.
type Cache[K comparable, V any] struct {
	ttl     time.Duration
	entries map[K]cacheEntry[V]
	now     func() time.Time
	mutex   sync.RWMutex
}

// NewCache initializes an empty cache.
func NewCache[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:     ttl,
		entries: make(map[K]cacheEntry[V]),
		now:     time.Now,
	}
}

// Set stores value under key.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry := cacheEntry[V]{value: value}
	if c.ttl > 0 {
		entry.expiration = c.now().Add(c.ttl)
	}
	c.entries[key] = entry
}

// Get retrieves the cached value for key if present and not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, ok := c.entries[key]
	if !ok || (!entry.expiration.IsZero() && c.now().After(entry.expiration)) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Clear removes every cached value.
func (c *Cache[K, V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[K]cacheEntry[V])
}
