package metadata

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// CacheEntry is a cached lookup result. Absent keys are cached too, so a
// filter over many series does not hit the source once per series.
type CacheEntry struct {
	Value     string
	Found     bool
	ExpiresAt time.Time
}

// KVCache is a TTL cache in front of a metadata Source.
type KVCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	ttl     time.Duration
	stopCh  chan struct{}
	once    sync.Once

	hits   atomic.Int64
	misses atomic.Int64
}

// NewKVCache creates a cache and starts its cleanup goroutine.
func NewKVCache(ttl time.Duration) *KVCache {
	cache := &KVCache{
		entries: make(map[string]*CacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup(cleanupInterval(ttl))

	return cache
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > time.Minute {
		return time.Minute
	}
	return ttl
}

// Get returns the cached entry for key. ok is false on a miss or when the
// entry has expired.
func (c *KVCache) Get(key string) (value string, found bool, ok bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists || time.Now().After(entry.ExpiresAt) {
		c.misses.Add(1)
		return "", false, false
	}
	c.hits.Add(1)
	return entry.Value, entry.Found, true
}

// Set caches a found value.
func (c *KVCache) Set(key, value string) {
	c.put(key, &CacheEntry{Value: value, Found: true})
}

// SetMissing caches the absence of key.
func (c *KVCache) SetMissing(key string) {
	c.put(key, &CacheEntry{})
}

func (c *KVCache) put(key string, entry *CacheEntry) {
	entry.ExpiresAt = time.Now().Add(c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

// Delete removes a key.
func (c *KVCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeletePrefix removes all keys with the given prefix.
func (c *KVCache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Clear removes all entries.
func (c *KVCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
}

func (c *KVCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictExpired(time.Now())
		case <-c.stopCh:
			return
		}
	}
}

func (c *KVCache) evictExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (c *KVCache) Stop() {
	c.once.Do(func() { close(c.stopCh) })
}

// Stats returns cache statistics.
func (c *KVCache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expired := 0
	now := time.Now()
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expired++
		}
	}

	return map[string]interface{}{
		"total_entries":   len(c.entries),
		"expired_entries": expired,
		"active_entries":  len(c.entries) - expired,
		"hits":            c.hits.Load(),
		"misses":          c.misses.Load(),
		"ttl_seconds":     c.ttl.Seconds(),
	}
}
