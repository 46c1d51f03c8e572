package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dtflabs/zapper/internal/domain"
)

// QuoteCache implements domain.QuoteCache over Redis string keys. Each
// quote is stored as JSON at "quote:{signature}" with the TTL applied by
// Redis itself, so expiry needs no sweeping.
type QuoteCache struct {
	rdb *redis.Client
}

func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(signature string) string {
	return "quote:" + signature
}

func (qc *QuoteCache) Get(ctx context.Context, key string) (domain.QuoteResult, bool) {
	raw, err := qc.rdb.Get(ctx, quoteKey(key)).Bytes()
	if err != nil {
		return domain.QuoteResult{}, false
	}
	var result domain.QuoteResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.QuoteResult{}, false
	}
	return result, true
}

func (qc *QuoteCache) Set(ctx context.Context, key string, result domain.QuoteResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis: marshal quote: %w", err)
	}
	if err := qc.rdb.Set(ctx, quoteKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set quote: %w", err)
	}
	return nil
}

func (qc *QuoteCache) Evict(ctx context.Context, key string) error {
	if err := qc.rdb.Del(ctx, quoteKey(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis: evict quote: %w", err)
	}
	return nil
}
