package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/viewmodel"
)

// FixtureSource fetches a single fixture from the upstream provider. It is
// used to fill store misses when a match references a fixture that has not
// been synced yet.
type FixtureSource interface {
	GetFixture(ctx context.Context, id int64) (domain.Fixture, error)
}

// SyncResult summarises one SyncFixtures call.
type SyncResult struct {
	Received int
	Invalid  int
	Upserted int
	Changed  int
}

// FixtureService handles fixture lookups and sync writes.
type FixtureService struct {
	fixtures domain.FixtureStore
	cache    domain.FixtureCache
	bus      domain.SignalBus
	source   FixtureSource
	logger   *slog.Logger
}

// NewFixtureService creates a FixtureService. source may be nil, in which
// case fixtures missing from the store stay missing.
func NewFixtureService(
	fixtures domain.FixtureStore,
	cache domain.FixtureCache,
	bus domain.SignalBus,
	source FixtureSource,
	logger *slog.Logger,
) *FixtureService {
	return &FixtureService{
		fixtures: fixtures,
		cache:    cache,
		bus:      bus,
		source:   source,
		logger:   logger,
	}
}

// GetFixture retrieves a fixture by id, checking the cache first and falling
// back to the persistent store on a cache miss.
func (s *FixtureService) GetFixture(ctx context.Context, id int64) (domain.Fixture, error) {
	f, err := s.cache.Get(ctx, id)
	if err == nil {
		return f.Normalize(), nil
	}

	f, err = s.fixtures.GetByID(ctx, id)
	if err != nil {
		return domain.Fixture{}, fmt.Errorf("fixture_service: get by id %d: %w", id, err)
	}

	s.backfill(ctx, f)
	return f.Normalize(), nil
}

// Lookup returns a viewmodel lookup holding every fixture in ids that could
// be found. Cache hits are served first, then the store, then the upstream
// source. Ids that cannot be found anywhere are simply absent; the caller
// decides whether that is an error.
func (s *FixtureService) Lookup(ctx context.Context, ids []int64) (viewmodel.MapLookup, error) {
	ids = uniqueIDs(ids)
	out := make(viewmodel.MapLookup, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cached, err := s.cache.GetMany(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "fixture_service: cache get many failed",
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()),
		)
	}
	for id, f := range cached {
		out[id] = f
	}

	missing := missingIDs(ids, out)
	if len(missing) == 0 {
		return out, nil
	}

	stored, err := s.fixtures.GetByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("fixture_service: get by ids: %w", err)
	}
	for _, f := range stored {
		out[f.ID] = f
		s.backfill(ctx, f)
	}

	if s.source == nil {
		return out, nil
	}
	for _, id := range missingIDs(ids, out) {
		f, err := s.fetchUpstream(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.logger.WarnContext(ctx, "fixture_service: upstream fetch failed",
					slog.Int64("fixture_id", id),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		out[f.ID] = f
	}
	return out, nil
}

// List returns fixtures matching filter directly from the persistent store,
// along with the unpaged total.
func (s *FixtureService) List(ctx context.Context, filter domain.FixtureFilter, opts domain.ListOpts) ([]domain.Fixture, int64, error) {
	fixtures, err := s.fixtures.List(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("fixture_service: list: %w", err)
	}
	total, err := s.fixtures.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("fixture_service: count: %w", err)
	}
	for i := range fixtures {
		fixtures[i] = fixtures[i].Normalize()
	}
	return fixtures, total, nil
}

// SyncFixtures validates and upserts a batch of provider fixtures, drops the
// cached copies and publishes an update for every fixture whose status or
// score changed. Invalid fixtures are skipped and counted.
func (s *FixtureService) SyncFixtures(ctx context.Context, fixtures []domain.Fixture) (SyncResult, error) {
	res := SyncResult{Received: len(fixtures)}
	if len(fixtures) == 0 {
		return res, nil
	}

	valid := make([]domain.Fixture, 0, len(fixtures))
	ids := make([]int64, 0, len(fixtures))
	for _, f := range fixtures {
		f = f.Normalize()
		if err := f.Validate(); err != nil {
			res.Invalid++
			s.logger.WarnContext(ctx, "fixture_service: skipping invalid fixture",
				slog.Int64("fixture_id", f.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		valid = append(valid, f)
		ids = append(ids, f.ID)
	}
	if len(valid) == 0 {
		return res, nil
	}

	previous, err := s.fixtures.GetByIDs(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("fixture_service: load previous: %w", err)
	}
	before := viewmodel.NewMapLookup(previous)

	if err := s.fixtures.UpsertBatch(ctx, valid); err != nil {
		return res, fmt.Errorf("fixture_service: upsert batch: %w", err)
	}
	res.Upserted = len(valid)

	for _, f := range valid {
		if err := s.cache.Invalidate(ctx, f.ID); err != nil {
			s.logger.WarnContext(ctx, "fixture_service: cache invalidate failed",
				slog.Int64("fixture_id", f.ID),
				slog.String("error", err.Error()),
			)
		}

		old, seen := before.Fixture(f.ID)
		if seen && !fixtureChanged(old, f) {
			continue
		}
		res.Changed++
		s.publish(ctx, domain.FixtureUpdate{FixtureID: f.ID, Status: f.Status, Score: f.Score})
	}

	s.logger.InfoContext(ctx, "fixture_service: synced fixtures",
		slog.Int("received", res.Received),
		slog.Int("upserted", res.Upserted),
		slog.Int("changed", res.Changed),
		slog.Int("invalid", res.Invalid),
	)
	return res, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (s *FixtureService) fetchUpstream(ctx context.Context, id int64) (domain.Fixture, error) {
	f, err := s.source.GetFixture(ctx, id)
	if err != nil {
		return domain.Fixture{}, err
	}
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return domain.Fixture{}, err
	}
	if err := s.fixtures.Upsert(ctx, f); err != nil {
		s.logger.WarnContext(ctx, "fixture_service: store upstream fixture failed",
			slog.Int64("fixture_id", id),
			slog.String("error", err.Error()),
		)
	}
	s.backfill(ctx, f)
	return f, nil
}

func (s *FixtureService) backfill(ctx context.Context, f domain.Fixture) {
	if err := s.cache.Set(ctx, f); err != nil {
		s.logger.WarnContext(ctx, "fixture_service: cache set failed",
			slog.Int64("fixture_id", f.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *FixtureService) publish(ctx context.Context, u domain.FixtureUpdate) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelFixture, payload); err != nil {
		s.logger.WarnContext(ctx, "fixture_service: publish update failed",
			slog.Int64("fixture_id", u.FixtureID),
			slog.String("error", err.Error()),
		)
	}
}

func fixtureChanged(old, cur domain.Fixture) bool {
	if old.Status != cur.Status || !old.Date.Equal(cur.Date) {
		return true
	}
	if (old.Score == nil) != (cur.Score == nil) {
		return true
	}
	return old.Score != nil && *old.Score != *cur.Score
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(ids []int64, have viewmodel.MapLookup) []int64 {
	var out []int64
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
