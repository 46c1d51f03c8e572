package domain

import (
	"context"
	"time"
)

// QuoteCache stores the latest accepted quote per request signature. The
// executor evicts entries synchronously when staleness is detected so an
// old quote can never be reused for submission.
type QuoteCache interface {
	Get(ctx context.Context, key string) (QuoteResult, bool)
	Set(ctx context.Context, key string, result QuoteResult, ttl time.Duration) error
	Evict(ctx context.Context, key string) error
}

// ReportDedup guards the one-click error report against duplicate
// submission. Mark returns false when the id was already recorded within
// the window.
type ReportDedup interface {
	Mark(ctx context.Context, id string, window time.Duration) (bool, error)
}
