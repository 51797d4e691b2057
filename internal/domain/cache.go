package domain

import (
	"context"
	"time"
)

// FixtureCache provides fast fixture lookups in front of the FixtureStore.
type FixtureCache interface {
	Set(ctx context.Context, f Fixture) error
	Get(ctx context.Context, id int64) (Fixture, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]Fixture, error)
	Invalidate(ctx context.Context, id int64) error
}

// LogoIndex remembers which team logos have already been stored.
type LogoIndex interface {
	Missing(ctx context.Context, teamIDs []string) ([]string, error)
	Mark(ctx context.Context, teamID, path string) error
	Path(ctx context.Context, teamID string) (string, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
	// Hold acquires key and keeps it alive until ctx ends or release is
	// called. lost is closed if the lock can no longer be renewed.
	Hold(ctx context.Context, key string, ttl time.Duration) (release func(), lost <-chan struct{}, err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
