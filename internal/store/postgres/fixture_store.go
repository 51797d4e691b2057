package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// FixtureStore implements domain.FixtureStore.
type FixtureStore struct {
	pool *pgxpool.Pool
}

// NewFixtureStore creates a FixtureStore backed by pool.
func NewFixtureStore(pool *pgxpool.Pool) *FixtureStore {
	return &FixtureStore{pool: pool}
}

const fixtureCols = `id, date, home_team, away_team, home_team_id, away_team_id,
	home_logo, away_logo, league, status, score_home, score_away, updated_at`

const upsertFixture = `
	INSERT INTO fixtures (
		id, date, home_team, away_team, home_team_id, away_team_id,
		home_logo, away_logo, league, status, score_home, score_away, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
	ON CONFLICT (id) DO UPDATE SET
		date         = EXCLUDED.date,
		home_team    = EXCLUDED.home_team,
		away_team    = EXCLUDED.away_team,
		home_team_id = EXCLUDED.home_team_id,
		away_team_id = EXCLUDED.away_team_id,
		home_logo    = EXCLUDED.home_logo,
		away_logo    = EXCLUDED.away_logo,
		league       = EXCLUDED.league,
		status       = EXCLUDED.status,
		score_home   = EXCLUDED.score_home,
		score_away   = EXCLUDED.score_away,
		updated_at   = NOW()`

func fixtureArgs(f domain.Fixture) []any {
	var home, away *int
	if f.Score != nil {
		home, away = &f.Score.Home, &f.Score.Away
	}
	return []any{
		f.ID, f.Date, f.HomeTeam, f.AwayTeam, f.HomeTeamID, f.AwayTeamID,
		f.HomeLogo, f.AwayLogo, f.League, string(f.Status), home, away,
	}
}

// Upsert inserts or updates a fixture after validating it.
func (s *FixtureStore) Upsert(ctx context.Context, f domain.Fixture) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("postgres: upsert fixture %d: %w", f.ID, err)
	}
	if _, err := s.pool.Exec(ctx, upsertFixture, fixtureArgs(f)...); err != nil {
		return fmt.Errorf("postgres: upsert fixture %d: %w", f.ID, err)
	}
	return nil
}

// UpsertBatch upserts fixtures in one round trip. Every fixture is validated
// before anything is sent.
func (s *FixtureStore) UpsertBatch(ctx context.Context, fixtures []domain.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, f := range fixtures {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("postgres: upsert fixture batch: %w", err)
		}
		batch.Queue(upsertFixture, fixtureArgs(f)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range fixtures {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert fixture batch item %d: %w", i, err)
		}
	}
	return nil
}

func scanFixture(row pgx.Row) (domain.Fixture, error) {
	var (
		f          domain.Fixture
		status     string
		home, away *int
	)
	err := row.Scan(
		&f.ID, &f.Date, &f.HomeTeam, &f.AwayTeam, &f.HomeTeamID, &f.AwayTeamID,
		&f.HomeLogo, &f.AwayLogo, &f.League, &status, &home, &away, &f.UpdatedAt,
	)
	if err != nil {
		return domain.Fixture{}, err
	}
	f.Status = domain.FixtureStatus(status)
	if home != nil && away != nil {
		f.Score = &domain.Score{Home: *home, Away: *away}
	}
	return f, nil
}

// GetByID returns a fixture or domain.ErrNotFound.
func (s *FixtureStore) GetByID(ctx context.Context, id int64) (domain.Fixture, error) {
	f, err := scanFixture(s.pool.QueryRow(ctx, `SELECT `+fixtureCols+` FROM fixtures WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Fixture{}, domain.ErrNotFound
		}
		return domain.Fixture{}, fmt.Errorf("postgres: get fixture %d: %w", id, err)
	}
	return f, nil
}

// GetByIDs returns the fixtures that exist among ids, in no particular order.
func (s *FixtureStore) GetByIDs(ctx context.Context, ids []int64) ([]domain.Fixture, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+fixtureCols+` FROM fixtures WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: get fixtures: %w", err)
	}
	return collectFixtures(rows)
}

func fixtureQuery(base string, filter domain.FixtureFilter) *query {
	q := newQuery(base)
	if filter.League != "" {
		q.where("league = ?", filter.League)
	}
	if filter.Status != "" {
		q.where("status = ?", string(filter.Status))
	}
	if filter.From != nil {
		q.where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		q.where("date < ?", *filter.To)
	}
	return q
}

// List returns fixtures matching filter ordered by kickoff.
func (s *FixtureStore) List(ctx context.Context, filter domain.FixtureFilter, opts domain.ListOpts) ([]domain.Fixture, error) {
	q := fixtureQuery(`SELECT `+fixtureCols+` FROM fixtures`, filter)
	q.page("updated_at", "date ASC, id ASC", opts)

	rows, err := s.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fixtures: %w", err)
	}
	return collectFixtures(rows)
}

// Count returns how many fixtures match filter.
func (s *FixtureStore) Count(ctx context.Context, filter domain.FixtureFilter) (int64, error) {
	q := fixtureQuery(`SELECT COUNT(*) FROM fixtures`, filter)
	var n int64
	if err := s.pool.QueryRow(ctx, q.String(), q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count fixtures: %w", err)
	}
	return n, nil
}

func collectFixtures(rows pgx.Rows) ([]domain.Fixture, error) {
	defer rows.Close()
	var out []domain.Fixture
	for rows.Next() {
		f, err := scanFixture(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan fixture: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: fixture rows: %w", err)
	}
	return out, nil
}

var _ domain.FixtureStore = (*FixtureStore)(nil)
