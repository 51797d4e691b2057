package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// MatchStore implements domain.MatchStore.
type MatchStore struct {
	pool *pgxpool.Pool
}

// NewMatchStore creates a MatchStore backed by pool.
func NewMatchStore(pool *pgxpool.Pool) *MatchStore {
	return &MatchStore{pool: pool}
}

const matchCols = `id, creator, joiner, stake, stake_wei, fixture_id,
	creator_prediction, joiner_prediction, settled, winner, status,
	created_at, updated_at`

// Upsert inserts or refreshes a match. created_at is kept from the first
// insert so replays of older events do not move it.
func (s *MatchStore) Upsert(ctx context.Context, m domain.Match) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("postgres: upsert match %s: %w", m.ID, err)
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var joinerPrediction *string
	if m.JoinerPrediction != nil {
		p := string(*m.JoinerPrediction)
		joinerPrediction = &p
	}

	const q = `
		INSERT INTO matches (` + matchCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE SET
			joiner            = EXCLUDED.joiner,
			stake             = EXCLUDED.stake,
			stake_wei         = EXCLUDED.stake_wei,
			joiner_prediction = EXCLUDED.joiner_prediction,
			settled           = EXCLUDED.settled,
			winner            = EXCLUDED.winner,
			status            = EXCLUDED.status,
			created_at        = LEAST(matches.created_at, EXCLUDED.created_at),
			updated_at        = NOW()`

	_, err := s.pool.Exec(ctx, q,
		m.ID, m.Creator, m.Joiner, m.Stake, m.StakeWei, m.FixtureID,
		string(m.CreatorPrediction), joinerPrediction, m.Settled, m.Winner,
		string(m.Status), createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert match %s: %w", m.ID, err)
	}
	return nil
}

func scanMatch(row pgx.Row) (domain.Match, error) {
	var (
		m                domain.Match
		creatorPred      string
		joinerPrediction *string
		status           string
	)
	err := row.Scan(
		&m.ID, &m.Creator, &m.Joiner, &m.Stake, &m.StakeWei, &m.FixtureID,
		&creatorPred, &joinerPrediction, &m.Settled, &m.Winner, &status,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Match{}, err
	}
	m.CreatorPrediction = domain.Prediction(creatorPred)
	if joinerPrediction != nil {
		p := domain.Prediction(*joinerPrediction)
		m.JoinerPrediction = &p
	}
	m.Status = domain.MatchStatus(status)
	return m, nil
}

// GetByID returns a match or domain.ErrNotFound.
func (s *MatchStore) GetByID(ctx context.Context, id string) (domain.Match, error) {
	m, err := scanMatch(s.pool.QueryRow(ctx, `SELECT `+matchCols+` FROM matches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Match{}, domain.ErrNotFound
		}
		return domain.Match{}, fmt.Errorf("postgres: get match %s: %w", id, err)
	}
	return m, nil
}

// List returns matches matching filter, newest first.
func (s *MatchStore) List(ctx context.Context, filter domain.MatchFilter, opts domain.ListOpts) ([]domain.Match, error) {
	q := newQuery(`SELECT ` + matchCols + ` FROM matches`)
	if filter.Status != "" {
		q.where("status = ?", string(filter.Status))
	}
	if filter.FixtureID != 0 {
		q.where("fixture_id = ?", filter.FixtureID)
	}
	if filter.Address != "" {
		q.where("? IN (lower(creator), lower(joiner))", strings.ToLower(filter.Address))
	}
	q.page("created_at", "created_at DESC, id DESC", opts)

	rows, err := s.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list matches: %w", err)
	}
	return collectMatches(rows)
}

// ListCompletedBefore returns settled matches last updated before the cutoff,
// used by the archiver.
func (s *MatchStore) ListCompletedBefore(ctx context.Context, before time.Time) ([]domain.Match, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+matchCols+` FROM matches WHERE status = 'completed' AND updated_at < $1 ORDER BY updated_at ASC`,
		before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list completed matches: %w", err)
	}
	return collectMatches(rows)
}

func collectMatches(rows pgx.Rows) ([]domain.Match, error) {
	defer rows.Close()
	var out []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan match: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: match rows: %w", err)
	}
	return out, nil
}

var _ domain.MatchStore = (*MatchStore)(nil)
