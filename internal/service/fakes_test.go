package service

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

type memFixtureStore struct {
	mu       sync.Mutex
	rows     map[int64]domain.Fixture
	batches  int
	getByIDs [][]int64
}

func newMemFixtureStore(fixtures ...domain.Fixture) *memFixtureStore {
	s := &memFixtureStore{rows: map[int64]domain.Fixture{}}
	for _, f := range fixtures {
		s.rows[f.ID] = f
	}
	return s
}

func (s *memFixtureStore) Upsert(_ context.Context, f domain.Fixture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[f.ID] = f
	return nil
}

func (s *memFixtureStore) UpsertBatch(_ context.Context, fixtures []domain.Fixture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	for _, f := range fixtures {
		s.rows[f.ID] = f
	}
	return nil
}

func (s *memFixtureStore) GetByID(_ context.Context, id int64) (domain.Fixture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.rows[id]
	if !ok {
		return domain.Fixture{}, domain.ErrNotFound
	}
	return f, nil
}

func (s *memFixtureStore) GetByIDs(_ context.Context, ids []int64) ([]domain.Fixture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getByIDs = append(s.getByIDs, ids)
	var out []domain.Fixture
	for _, id := range ids {
		if f, ok := s.rows[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *memFixtureStore) List(_ context.Context, filter domain.FixtureFilter, _ domain.ListOpts) ([]domain.Fixture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Fixture
	for _, f := range s.rows {
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memFixtureStore) Count(ctx context.Context, filter domain.FixtureFilter) (int64, error) {
	out, _ := s.List(ctx, filter, domain.ListOpts{})
	return int64(len(out)), nil
}

type memFixtureCache struct {
	mu          sync.Mutex
	rows        map[int64]domain.Fixture
	invalidated []int64
}

func newMemFixtureCache() *memFixtureCache {
	return &memFixtureCache{rows: map[int64]domain.Fixture{}}
}

func (c *memFixtureCache) Set(_ context.Context, f domain.Fixture) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[f.ID] = f
	return nil
}

func (c *memFixtureCache) Get(_ context.Context, id int64) (domain.Fixture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.rows[id]
	if !ok {
		return domain.Fixture{}, domain.ErrNotFound
	}
	return f, nil
}

func (c *memFixtureCache) GetMany(_ context.Context, ids []int64) (map[int64]domain.Fixture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[int64]domain.Fixture{}
	for _, id := range ids {
		if f, ok := c.rows[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

func (c *memFixtureCache) Invalidate(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type recordingBus struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newRecordingBus() *recordingBus {
	return &recordingBus{published: map[string][][]byte{}}
}

func (b *recordingBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

func (b *recordingBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *recordingBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type stubSource struct {
	fixtures map[int64]domain.Fixture
	calls    []int64
}

func (s *stubSource) GetFixture(_ context.Context, id int64) (domain.Fixture, error) {
	s.calls = append(s.calls, id)
	f, ok := s.fixtures[id]
	if !ok {
		return domain.Fixture{}, domain.ErrNotFound
	}
	return f, nil
}

// --------------------------------------------------------------------------
// Matches
// --------------------------------------------------------------------------

// storedAt is the created_at the fake store stamps on rows that arrive
// without one.
var storedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type memMatchStore struct {
	mu   sync.Mutex
	rows map[string]domain.Match
}

func newMemMatchStore(matches ...domain.Match) *memMatchStore {
	s := &memMatchStore{rows: map[string]domain.Match{}}
	for _, m := range matches {
		s.rows[m.ID] = m
	}
	return s
}

func (s *memMatchStore) Upsert(_ context.Context, m domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = storedAt
	}
	if prev, ok := s.rows[m.ID]; ok && prev.CreatedAt.Before(m.CreatedAt) {
		m.CreatedAt = prev.CreatedAt
	}
	s.rows[m.ID] = m
	return nil
}

func (s *memMatchStore) GetByID(_ context.Context, id string) (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[id]
	if !ok {
		return domain.Match{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *memMatchStore) List(_ context.Context, filter domain.MatchFilter, _ domain.ListOpts) ([]domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Match
	for _, m := range s.rows {
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if filter.Address != "" {
			joiner := ""
			if m.Joiner != nil {
				joiner = *m.Joiner
			}
			if !strings.EqualFold(m.Creator, filter.Address) && !strings.EqualFold(joiner, filter.Address) {
				continue
			}
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memMatchStore) ListCompletedBefore(_ context.Context, before time.Time) ([]domain.Match, error) {
	return nil, nil
}

type stubLedger struct {
	matches map[string]domain.Match
}

func (l *stubLedger) Match(_ context.Context, id *big.Int) (domain.Match, error) {
	m, ok := l.matches[id.String()]
	if !ok {
		return domain.Match{}, domain.ErrNotFound
	}
	return m, nil
}
