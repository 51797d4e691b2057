package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

func upcoming(id int64) domain.Fixture {
	return domain.Fixture{
		ID:       id,
		Date:     time.Date(2026, 10, 24, 14, 0, 0, 0, time.UTC),
		HomeTeam: "Home",
		AwayTeam: "Away",
		Status:   domain.FixtureStatusUpcoming,
	}
}

func finished(id int64, home, away int) domain.Fixture {
	f := upcoming(id)
	f.Status = domain.FixtureStatusFinished
	f.Score = &domain.Score{Home: home, Away: away}
	return f
}

func TestGetFixtureBackfillsCache(t *testing.T) {
	store := newMemFixtureStore(upcoming(1))
	cache := newMemFixtureCache()
	svc := NewFixtureService(store, cache, nil, nil, discardLogger())

	f, err := svc.GetFixture(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID != 1 {
		t.Errorf("expected fixture 1, got %d", f.ID)
	}
	if _, ok := cache.rows[1]; !ok {
		t.Error("expected cache to be back-filled")
	}

	if _, err := svc.GetFixture(context.Background(), 99); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetFixtureDropsUpcomingScore(t *testing.T) {
	cache := newMemFixtureCache()
	stale := upcoming(2)
	stale.Score = &domain.Score{}
	cache.rows[2] = stale
	svc := NewFixtureService(newMemFixtureStore(), cache, nil, nil, discardLogger())

	f, err := svc.GetFixture(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Score != nil {
		t.Errorf("upcoming fixture must not carry a score, got %+v", f.Score)
	}
}

func TestLookupLayers(t *testing.T) {
	store := newMemFixtureStore(upcoming(2))
	cache := newMemFixtureCache()
	cache.rows[1] = upcoming(1)
	source := &stubSource{fixtures: map[int64]domain.Fixture{3: finished(3, 1, 0)}}
	svc := NewFixtureService(store, cache, nil, source, discardLogger())

	lookup, err := svc.Lookup(context.Background(), []int64{1, 2, 3, 4, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range []int64{1, 2, 3} {
		if _, ok := lookup.Fixture(id); !ok {
			t.Errorf("expected fixture %d in lookup", id)
		}
	}
	if _, ok := lookup.Fixture(4); ok {
		t.Error("unknown fixture must stay absent")
	}

	if len(store.getByIDs) != 1 || len(store.getByIDs[0]) != 3 {
		t.Errorf("expected one store query for the cache misses, got %v", store.getByIDs)
	}
	if len(source.calls) != 2 {
		t.Errorf("expected upstream calls for 3 and 4, got %v", source.calls)
	}
	if _, ok := store.rows[3]; !ok {
		t.Error("upstream fixture should be persisted")
	}
	if _, ok := cache.rows[2]; !ok {
		t.Error("store hit should be back-filled into the cache")
	}
}

func TestSyncFixturesPublishesChanges(t *testing.T) {
	store := newMemFixtureStore(upcoming(1), upcoming(2))
	cache := newMemFixtureCache()
	bus := newRecordingBus()
	svc := NewFixtureService(store, cache, bus, nil, discardLogger())

	invalid := upcoming(4)
	invalid.Status = domain.FixtureStatusLive // live without a score

	res, err := svc.SyncFixtures(context.Background(), []domain.Fixture{
		upcoming(1),       // unchanged
		finished(2, 2, 1), // changed
		upcoming(3),       // new
		invalid,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := SyncResult{Received: 4, Invalid: 1, Upserted: 3, Changed: 2}
	if res != want {
		t.Errorf("expected %+v, got %+v", want, res)
	}
	if store.batches != 1 {
		t.Errorf("expected a single batch upsert, got %d", store.batches)
	}
	if len(cache.invalidated) != 3 {
		t.Errorf("expected 3 invalidations, got %v", cache.invalidated)
	}

	msgs := bus.published[domain.ChannelFixture]
	if len(msgs) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(msgs))
	}
	var u domain.FixtureUpdate
	if err := json.Unmarshal(msgs[0], &u); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if u.FixtureID != 2 || u.Status != domain.FixtureStatusFinished || u.Score == nil || u.Score.Home != 2 {
		t.Errorf("unexpected update %+v", u)
	}
}

func TestSyncFixturesEmpty(t *testing.T) {
	store := newMemFixtureStore()
	svc := NewFixtureService(store, newMemFixtureCache(), nil, nil, discardLogger())

	res, err := svc.SyncFixtures(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != (SyncResult{}) || store.batches != 0 {
		t.Errorf("expected a no-op, got %+v and %d batches", res, store.batches)
	}
}

func TestListNormalisesAndCounts(t *testing.T) {
	stale := upcoming(1)
	stale.Score = &domain.Score{}
	svc := NewFixtureService(newMemFixtureStore(stale, finished(2, 0, 0)), newMemFixtureCache(), nil, nil, discardLogger())

	got, total, err := svc.List(context.Background(), domain.FixtureFilter{}, domain.ListOpts{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("expected 2 fixtures, got %d (total %d)", len(got), total)
	}
	if got[0].Score != nil {
		t.Error("upcoming fixture must be listed without a score")
	}
}
