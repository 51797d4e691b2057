package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// FixtureStore persists fixtures mirrored from the fixture provider.
type FixtureStore interface {
	Upsert(ctx context.Context, f Fixture) error
	UpsertBatch(ctx context.Context, fixtures []Fixture) error
	GetByID(ctx context.Context, id int64) (Fixture, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Fixture, error)
	List(ctx context.Context, filter FixtureFilter, opts ListOpts) ([]Fixture, error)
	Count(ctx context.Context, filter FixtureFilter) (int64, error)
}

// MatchStore persists matches mirrored from the match ledger.
type MatchStore interface {
	Upsert(ctx context.Context, m Match) error
	GetByID(ctx context.Context, id string) (Match, error)
	List(ctx context.Context, filter MatchFilter, opts ListOpts) ([]Match, error)
	ListCompletedBefore(ctx context.Context, before time.Time) ([]Match, error)
}

// CursorStore tracks the last processed block per named consumer.
type CursorStore interface {
	Get(ctx context.Context, name string) (uint64, error)
	Set(ctx context.Context, name string, block uint64) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	DeleteThrough(ctx context.Context, through time.Time) (int64, error)
}
