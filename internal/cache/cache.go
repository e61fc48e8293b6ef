// Package cache is a small TTL cache for API responses, grouped by resource
// so that writes can invalidate everything read from the same collection.
package cache

import (
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// Cache stores values under resource:key with a shared TTL.
type Cache struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewCache creates a new Cache whose entries live for ttl (30s if zero).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{
		items: make(map[string]cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func makeKey(resource, key string) string {
	return resource + ":" + key
}

// Set stores a value with expiration.
func (c *Cache) Set(resource, key string, value any) {
	expires := c.now().Add(c.ttl)
	c.mu.Lock()
	c.items[makeKey(resource, key)] = cacheEntry{value: value, expiresAt: expires}
	c.mu.Unlock()
}

// Get retrieves a value if present and not expired.
func (c *Cache) Get(resource, key string) (any, bool) {
	k := makeKey(resource, key)
	c.mu.RLock()
	entry, ok := c.items[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.items, k)
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

// Invalidate drops every entry of resource.
func (c *Cache) Invalidate(resource string) {
	prefix := resource + ":"
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// PurgeExpired removes all expired entries.
func (c *Cache) PurgeExpired() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Lookup returns the cached value of type T, if present.
func Lookup[T any](c *Cache, resource, key string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.Get(resource, key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
