package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// MatchArchiveStore is the store query the archiver needs.
type MatchArchiveStore interface {
	ListCompletedBefore(ctx context.Context, before time.Time) ([]domain.Match, error)
}

// Archiver implements domain.Archiver. Completed matches are merged into
// monthly JSONL files keyed by match id, so rerunning over the same window
// rewrites the file without duplicating rows. Audit entries are written to
// a file per run and then deleted from the database.
type Archiver struct {
	writer  domain.BlobWriter
	reader  domain.BlobReader
	matches MatchArchiveStore
	audit   domain.AuditStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, matches MatchArchiveStore, audit domain.AuditStore) *Archiver {
	return &Archiver{writer: writer, reader: reader, matches: matches, audit: audit}
}

// ArchiveMatches writes completed matches last updated before the cutoff to
// archive/matches/YYYY-MM.jsonl, partitioned by the month they settled. It
// returns the number of matches not previously archived.
func (a *Archiver) ArchiveMatches(ctx context.Context, before time.Time) (int64, error) {
	matches, err := a.matches.ListCompletedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive matches query: %w", err)
	}
	if len(matches) == 0 {
		return 0, nil
	}

	byMonth := make(map[string][]domain.Match)
	for _, m := range matches {
		path := archivePath("matches", m.UpdatedAt)
		byMonth[path] = append(byMonth[path], m)
	}

	paths := make([]string, 0, len(byMonth))
	for p := range byMonth {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var added int64
	for _, path := range paths {
		n, err := a.mergeMatches(ctx, path, byMonth[path])
		if err != nil {
			return added, err
		}
		added += n
	}

	if err := a.audit.Log(ctx, "archive.matches", map[string]any{
		"files":  paths,
		"added":  added,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return added, fmt.Errorf("s3blob: archive matches audit log: %w", err)
	}
	return added, nil
}

func (a *Archiver) mergeMatches(ctx context.Context, path string, fresh []domain.Match) (int64, error) {
	existing, err := a.readMatches(ctx, path)
	if err != nil {
		return 0, err
	}

	var added int64
	for _, m := range fresh {
		m.Fixture = nil
		m.AwaitingSettlement = nil
		if _, ok := existing[m.ID]; !ok {
			added++
		}
		existing[m.ID] = m
	}

	merged := make([]domain.Match, 0, len(existing))
	for _, m := range existing {
		merged = append(merged, m)
	}
	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].UpdatedAt.Equal(merged[j].UpdatedAt) {
			return merged[i].UpdatedAt.Before(merged[j].UpdatedAt)
		}
		return merged[i].ID < merged[j].ID
	})

	buf, err := marshalJSONL(merged)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive matches marshal: %w", err)
	}
	if err := a.put(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive matches upload: %w", err)
	}
	return added, nil
}

func (a *Archiver) readMatches(ctx context.Context, path string) (map[string]domain.Match, error) {
	out := make(map[string]domain.Match)
	ok, err := a.reader.Exists(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("s3blob: archive matches stat %s: %w", path, err)
	}
	if !ok {
		return out, nil
	}

	body, err := a.reader.Get(ctx, path)
	if err != nil {
		// Removed between the stat and the read.
		if errors.Is(err, domain.ErrNotFound) {
			return out, nil
		}
		return nil, fmt.Errorf("s3blob: archive matches read %s: %w", path, err)
	}
	defer body.Close()

	records, err := unmarshalJSONL[domain.Match](body)
	if err != nil {
		return nil, fmt.Errorf("s3blob: archive matches decode %s: %w", path, err)
	}
	for _, m := range records {
		out[m.ID] = m
	}
	return out, nil
}

// ArchiveAudit moves audit entries created at or before the cutoff to
// archive/audit/YYYY-MM-DDTHHMMSS.jsonl and deletes them from the store.
// Deletion stops at the newest archived entry, so rows written after the
// query are left for the next run.
func (a *Archiver) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.audit.List(ctx, domain.ListOpts{Until: &before})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}
	path := fmt.Sprintf("archive/audit/%s.jsonl", before.UTC().Format("2006-01-02T150405"))
	if err := a.put(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	newest := entries[0].CreatedAt
	for _, e := range entries[1:] {
		if e.CreatedAt.After(newest) {
			newest = e.CreatedAt
		}
	}
	deleted, err := a.audit.DeleteThrough(ctx, newest)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit delete: %w", err)
	}
	return deleted, nil
}

// put switches to a multipart upload once the payload exceeds one part.
func (a *Archiver) put(ctx context.Context, path string, buf []byte) error {
	if int64(len(buf)) > minPartSize {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
}

// archivePath builds the monthly archive key.
//
//	archive/matches/2026-10.jsonl
func archivePath(kind string, t time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, t.UTC().Format("2006-01"))
}

// marshalJSONL encodes one compact JSON value per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func unmarshalJSONL[T any](r io.Reader) ([]T, error) {
	var out []T
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("jsonl scan: %w", err)
	}
	return out, nil
}

var _ domain.Archiver = (*Archiver)(nil)
