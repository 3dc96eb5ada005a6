// Package cache provides short-lived credential caching for external
// provider integrations.
package cache

import (
	"context"
	"sync"
	"time"
)

// TokenCache stores short-lived credentials keyed by name. Implementations
// must be safe for concurrent use.
type TokenCache interface {
	// Get returns the cached value for key, or ok=false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key for the given TTL. A non-positive TTL
	// removes the key.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the key if present.
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// InMemoryTokenCache is a process-local TokenCache. Suitable for single
// instance deployments and tests.
type InMemoryTokenCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewInMemoryTokenCache creates an empty in-memory token cache.
func NewInMemoryTokenCache() *InMemoryTokenCache {
	return &InMemoryTokenCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock overrides the time source. Used in tests to control expiry.
func (c *InMemoryTokenCache) WithClock(now func() time.Time) *InMemoryTokenCache {
	c.now = now
	return c
}

func (c *InMemoryTokenCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock, another goroutine may have refreshed
		if cur, still := c.entries[key]; still && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *InMemoryTokenCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl <= 0 {
		delete(c.entries, key)
		return nil
	}
	c.entries[key] = memoryEntry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *InMemoryTokenCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

var _ TokenCache = (*InMemoryTokenCache)(nil)
