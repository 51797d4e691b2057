package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// FixtureCache implements domain.FixtureCache with one JSON string per
// fixture.
//
// Key schema:
//
//	fixture:{id} - JSON encoded domain.Fixture
type FixtureCache struct {
	c   *Client
	ttl time.Duration
}

// NewFixtureCache creates a FixtureCache. Live fixtures change often, so ttl
// should stay short; zero means one minute.
func NewFixtureCache(c *Client, ttl time.Duration) *FixtureCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &FixtureCache{c: c, ttl: ttl}
}

func (fc *FixtureCache) fixtureKey(id int64) string {
	return fc.c.key("fixture", strconv.FormatInt(id, 10))
}

// Set stores a fixture.
func (fc *FixtureCache) Set(ctx context.Context, f domain.Fixture) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("redis: marshal fixture %d: %w", f.ID, err)
	}
	if err := fc.c.rdb.Set(ctx, fc.fixtureKey(f.ID), data, fc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set fixture %d: %w", f.ID, err)
	}
	return nil
}

// Get returns a cached fixture or domain.ErrNotFound.
func (fc *FixtureCache) Get(ctx context.Context, id int64) (domain.Fixture, error) {
	data, err := fc.c.rdb.Get(ctx, fc.fixtureKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Fixture{}, domain.ErrNotFound
		}
		return domain.Fixture{}, fmt.Errorf("redis: get fixture %d: %w", id, err)
	}
	var f domain.Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.Fixture{}, fmt.Errorf("redis: unmarshal fixture %d: %w", id, err)
	}
	return f, nil
}

// GetMany returns the cached subset of ids in one round trip. Missing ids
// are absent from the map.
func (fc *FixtureCache) GetMany(ctx context.Context, ids []int64) (map[int64]domain.Fixture, error) {
	out := make(map[int64]domain.Fixture, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fc.fixtureKey(id)
	}

	vals, err := fc.c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: mget fixtures: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var f domain.Fixture
		if err := json.Unmarshal([]byte(s), &f); err != nil {
			return nil, fmt.Errorf("redis: unmarshal fixture %d: %w", ids[i], err)
		}
		out[ids[i]] = f
	}
	return out, nil
}

// Invalidate removes a fixture.
func (fc *FixtureCache) Invalidate(ctx context.Context, id int64) error {
	if err := fc.c.rdb.Del(ctx, fc.fixtureKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate fixture %d: %w", id, err)
	}
	return nil
}

var _ domain.FixtureCache = (*FixtureCache)(nil)
