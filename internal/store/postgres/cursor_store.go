package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// CursorStore implements domain.CursorStore on the indexer_cursor table.
type CursorStore struct {
	pool *pgxpool.Pool
}

// NewCursorStore creates a CursorStore backed by pool.
func NewCursorStore(pool *pgxpool.Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Get returns the last processed block for name, or domain.ErrNotFound.
func (s *CursorStore) Get(ctx context.Context, name string) (uint64, error) {
	var block int64
	err := s.pool.QueryRow(ctx, `SELECT block FROM indexer_cursor WHERE name = $1`, name).Scan(&block)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("postgres: get cursor %s: %w", name, err)
	}
	return uint64(block), nil
}

// Set records block for name. The cursor never moves backwards.
func (s *CursorStore) Set(ctx context.Context, name string, block uint64) error {
	const q = `
		INSERT INTO indexer_cursor (name, block, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			block      = GREATEST(indexer_cursor.block, EXCLUDED.block),
			updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, q, name, int64(block)); err != nil {
		return fmt.Errorf("postgres: set cursor %s: %w", name, err)
	}
	return nil
}

var _ domain.CursorStore = (*CursorStore)(nil)
