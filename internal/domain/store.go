package domain

import (
	"context"
	"time"
)

// ZapRecord is a settled zap kept for history and diagnostics.
type ZapRecord struct {
	ID        int64
	SessionID string
	QuoteID   string
	RetryID   string
	Source    Source
	Tab       Tab
	ChainID   uint64
	TokenIn   string
	TokenOut  string
	AmountIn  string
	AmountOut string
	TxHash    string
	Success   bool
	GasUsed   uint64
	SettledAt time.Time
}

// HistoryStore persists settled zaps. Writes are best-effort; a failing
// store never blocks settlement.
type HistoryStore interface {
	InsertZap(ctx context.Context, rec ZapRecord) error
	ListRecent(ctx context.Context, limit int) ([]ZapRecord, error)
}
