// Package memory provides in-process fallbacks for the Redis-backed
// caches, used when no Redis address is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dtflabs/zapper/internal/domain"
)

type quoteEntry struct {
	result    domain.QuoteResult
	expiresAt time.Time
}

// QuoteCache is a TTL map keyed by the full request signature. It is safe
// for concurrent use.
type QuoteCache struct {
	mu      sync.Mutex
	entries map[string]quoteEntry
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{entries: make(map[string]quoteEntry)}
}

func (c *QuoteCache) Get(_ context.Context, key string) (domain.QuoteResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return domain.QuoteResult{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return domain.QuoteResult{}, false
	}
	return entry.result, true
}

func (c *QuoteCache) Set(_ context.Context, key string, result domain.QuoteResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = quoteEntry{result: result, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *QuoteCache) Evict(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Cleanup removes expired entries. Call periodically to bound memory on
// long-lived instances.
func (c *QuoteCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}
