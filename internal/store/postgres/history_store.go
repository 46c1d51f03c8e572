package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtflabs/zapper/internal/domain"
)

// HistoryStore implements domain.HistoryStore using PostgreSQL.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a HistoryStore backed by the given pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

const zapSelectCols = `id, session_id, quote_id, retry_id, source, tab,
	chain_id, token_in, token_out, amount_in, amount_out,
	tx_hash, success, gas_used, settled_at`

func scanZapRows(rows pgx.Rows) ([]domain.ZapRecord, error) {
	var records []domain.ZapRecord
	for rows.Next() {
		var r domain.ZapRecord
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.QuoteID, &r.RetryID,
			&r.Source, &r.Tab, &r.ChainID,
			&r.TokenIn, &r.TokenOut, &r.AmountIn, &r.AmountOut,
			&r.TxHash, &r.Success, &r.GasUsed, &r.SettledAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// InsertZap records a settled zap. A repeated transaction hash is
// silently skipped via ON CONFLICT DO NOTHING.
func (s *HistoryStore) InsertZap(ctx context.Context, rec domain.ZapRecord) error {
	const query = `
		INSERT INTO zaps (
			session_id, quote_id, retry_id, source, tab,
			chain_id, token_in, token_out, amount_in, amount_out,
			tx_hash, success, gas_used, settled_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14
		) ON CONFLICT (tx_hash) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		rec.SessionID, rec.QuoteID, rec.RetryID, rec.Source, rec.Tab,
		rec.ChainID, rec.TokenIn, rec.TokenOut, rec.AmountIn, rec.AmountOut,
		rec.TxHash, rec.Success, rec.GasUsed, rec.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert zap: %w", err)
	}
	return nil
}

// ListRecent returns the most recently settled zaps, newest first.
func (s *HistoryStore) ListRecent(ctx context.Context, limit int) ([]domain.ZapRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM zaps ORDER BY settled_at DESC LIMIT $1`, zapSelectCols)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list zaps: %w", err)
	}
	defer rows.Close()

	records, err := scanZapRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan zaps: %w", err)
	}
	return records, nil
}
