package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// LogoIndex implements domain.LogoIndex. Each stored crest is recorded
// under logo:{teamID} with its object path, expiring after ttl so crests are
// refreshed eventually.
type LogoIndex struct {
	c   *Client
	ttl time.Duration
}

// NewLogoIndex creates a LogoIndex. Zero ttl means seven days.
func NewLogoIndex(c *Client, ttl time.Duration) *LogoIndex {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &LogoIndex{c: c, ttl: ttl}
}

func (li *LogoIndex) logoKey(teamID string) string {
	return li.c.key("logo", teamID)
}

// Missing returns the ids with no index entry, preserving input order.
func (li *LogoIndex) Missing(ctx context.Context, teamIDs []string) ([]string, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(teamIDs))
	for i, id := range teamIDs {
		keys[i] = li.logoKey(id)
	}
	vals, err := li.c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: logo index lookup: %w", err)
	}
	var missing []string
	for i, v := range vals {
		if v == nil {
			missing = append(missing, teamIDs[i])
		}
	}
	return missing, nil
}

// Mark records that teamID's crest is stored at path.
func (li *LogoIndex) Mark(ctx context.Context, teamID, path string) error {
	if err := li.c.rdb.Set(ctx, li.logoKey(teamID), path, li.ttl).Err(); err != nil {
		return fmt.Errorf("redis: mark logo %s: %w", teamID, err)
	}
	return nil
}

// Path returns the object path of a stored crest or domain.ErrNotFound.
func (li *LogoIndex) Path(ctx context.Context, teamID string) (string, error) {
	p, err := li.c.rdb.Get(ctx, li.logoKey(teamID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("redis: logo path %s: %w", teamID, err)
	}
	return p, nil
}

var _ domain.LogoIndex = (*LogoIndex)(nil)
