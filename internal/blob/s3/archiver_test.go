package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

type memBucket struct {
	objects map[string][]byte
}

func newMemBucket() *memBucket { return &memBucket{objects: map[string][]byte{}} }

func (m *memBucket) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = b
	return nil
}

func (m *memBucket) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return m.Put(ctx, path, data, "")
}

func (m *memBucket) Get(_ context.Context, path string) (io.ReadCloser, error) {
	b, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", path, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBucket) Exists(_ context.Context, path string) (bool, error) {
	_, ok := m.objects[path]
	return ok, nil
}

type stubMatches struct{ matches []domain.Match }

func (s *stubMatches) ListCompletedBefore(_ context.Context, before time.Time) ([]domain.Match, error) {
	var out []domain.Match
	for _, m := range s.matches {
		if m.UpdatedAt.Before(before) {
			out = append(out, m)
		}
	}
	return out, nil
}

type memAudit struct {
	entries []domain.AuditEntry
	events  []string
}

func (a *memAudit) Log(_ context.Context, event string, detail map[string]any) error {
	a.events = append(a.events, event)
	return nil
}

func (a *memAudit) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range a.entries {
		if opts.Until == nil || !e.CreatedAt.After(*opts.Until) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a *memAudit) DeleteThrough(_ context.Context, through time.Time) (int64, error) {
	var kept []domain.AuditEntry
	var n int64
	for _, e := range a.entries {
		if !e.CreatedAt.After(through) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	a.entries = kept
	return n, nil
}

func settled(id string, at time.Time) domain.Match {
	winner := "0xabc"
	joiner := "0xdef"
	jp := domain.PredictionAway
	return domain.Match{
		ID:                id,
		Creator:           "0xabc",
		Joiner:            &joiner,
		JoinerPrediction:  &jp,
		CreatorPrediction: domain.PredictionHome,
		Settled:           true,
		Winner:            &winner,
		Status:            domain.MatchStatusCompleted,
		UpdatedAt:         at,
	}
}

func TestArchiveMatchesMergesWithoutDuplicates(t *testing.T) {
	oct := time.Date(2026, 10, 3, 12, 0, 0, 0, time.UTC)
	sep := time.Date(2026, 9, 28, 12, 0, 0, 0, time.UTC)
	store := &stubMatches{matches: []domain.Match{settled("1", oct), settled("2", sep)}}
	bucket := newMemBucket()
	audit := &memAudit{}
	a := NewArchiver(bucket, bucket, store, audit)

	cutoff := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	n, err := a.ArchiveMatches(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("added = %d, want 2", n)
	}
	if _, ok := bucket.objects["archive/matches/2026-10.jsonl"]; !ok {
		t.Error("expected the October archive file")
	}
	if _, ok := bucket.objects["archive/matches/2026-09.jsonl"]; !ok {
		t.Error("expected the September archive file")
	}

	store.matches = append(store.matches, settled("3", oct.Add(time.Hour)))
	n, err = a.ArchiveMatches(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 1 {
		t.Errorf("second run added = %d, want 1", n)
	}
	lines := strings.Split(strings.TrimSpace(string(bucket.objects["archive/matches/2026-10.jsonl"])), "\n")
	if len(lines) != 2 {
		t.Errorf("October file has %d lines, want 2", len(lines))
	}
	if len(audit.events) != 2 || audit.events[0] != "archive.matches" {
		t.Errorf("unexpected audit events %v", audit.events)
	}
}

func TestArchiveAuditDeletesArchived(t *testing.T) {
	old := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	audit := &memAudit{entries: []domain.AuditEntry{
		{ID: 1, Event: "indexer.match_created", CreatedAt: old},
		{ID: 2, Event: "indexer.match_joined", CreatedAt: recent},
	}}
	bucket := newMemBucket()
	a := NewArchiver(bucket, bucket, &stubMatches{}, audit)

	cutoff := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	n, err := a.ArchiveAudit(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || len(audit.entries) != 1 || audit.entries[0].ID != 2 {
		t.Errorf("expected only the old entry to be removed, n=%d entries=%v", n, audit.entries)
	}
	if _, ok := bucket.objects["archive/audit/2026-09-01T000000.jsonl"]; !ok {
		t.Errorf("expected audit archive, have %v", bucket.objects)
	}
}

func TestArchiveAuditEntryAtCutoff(t *testing.T) {
	cutoff := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	audit := &memAudit{entries: []domain.AuditEntry{
		{ID: 1, Event: "ledger.match_created", CreatedAt: cutoff.Add(-time.Hour)},
		{ID: 2, Event: "ledger.match_joined", CreatedAt: cutoff},
		{ID: 3, Event: "ledger.match_settled", CreatedAt: cutoff.Add(time.Second)},
	}}
	bucket := newMemBucket()
	a := NewArchiver(bucket, bucket, &stubMatches{}, audit)

	n, err := a.ArchiveAudit(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	archived := strings.Split(strings.TrimSpace(string(bucket.objects["archive/audit/2026-09-01T000000.jsonl"])), "\n")
	if len(archived) != 2 {
		t.Errorf("archived %d entries, want 2", len(archived))
	}
	if len(audit.entries) != 1 || audit.entries[0].ID != 3 {
		t.Errorf("expected only the entry after the cutoff to remain, got %v", audit.entries)
	}

	delete(bucket.objects, "archive/audit/2026-09-01T000000.jsonl")
	n, err = a.ArchiveAudit(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 || len(bucket.objects) != 0 {
		t.Errorf("second run must find nothing to archive, n=%d objects=%v", n, bucket.objects)
	}
}

func TestArchiveMatchesChecksExistence(t *testing.T) {
	oct := time.Date(2026, 10, 3, 12, 0, 0, 0, time.UTC)
	bucket := newMemBucket()
	reader := &countingReader{memBucket: bucket}
	a := NewArchiver(bucket, reader, &stubMatches{matches: []domain.Match{settled("1", oct)}}, &memAudit{})

	cutoff := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	if _, err := a.ArchiveMatches(context.Background(), cutoff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reader.gets != 0 {
		t.Errorf("a missing monthly file must not be read, got %d reads", reader.gets)
	}
	if _, err := a.ArchiveMatches(context.Background(), cutoff); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if reader.gets != 1 {
		t.Errorf("an existing monthly file must be read once, got %d reads", reader.gets)
	}
}

type countingReader struct {
	*memBucket
	gets int
}

func (r *countingReader) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	r.gets++
	return r.memBucket.Get(ctx, path)
}

func TestNormaliseEndpoint(t *testing.T) {
	if got := normaliseEndpoint("minio:9000", false); got != "http://minio:9000" {
		t.Errorf("got %q", got)
	}
	if got := normaliseEndpoint("https://s3.example.com", false); got != "https://s3.example.com" {
		t.Errorf("got %q", got)
	}
}
