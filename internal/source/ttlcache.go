package source

import (
	"sync"
	"time"
)

// DefaultTTL is the expiry applied to upstream response caches.
const DefaultTTL = 24 * time.Hour

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a small read-mostly cache with per-entry expiry. It never
// evicts proactively; stale entries are dropped on the next Set or skipped
// on Get, which is fine for the handful of upstream keys this service holds.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]ttlEntry[V]
}

func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache[V]{
		ttl:     ttl,
		entries: make(map[string]ttlEntry[V]),
	}
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if time.Now().After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = ttlEntry[V]{value: value, expiresAt: time.Now().Add(c.ttl)}
}
