package logo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// Fetcher downloads a team crest from the upstream image source.
type Fetcher interface {
	Fetch(ctx context.Context, teamID string) (data []byte, contentType string, err error)
}

// Cache stores team crests in object storage and records them in an index so
// each crest is downloaded once. It implements Preloader.
type Cache struct {
	index       domain.LogoIndex
	fetcher     Fetcher
	blobs       domain.BlobWriter
	publicBase  string
	concurrency int
	logger      *slog.Logger
}

// CacheConfig configures a Cache.
type CacheConfig struct {
	// PublicBase is the URL prefix under which stored objects are served.
	PublicBase  string
	Concurrency int
}

// NewCache creates a Cache. It is meant to be constructed once per process
// and shared.
func NewCache(index domain.LogoIndex, fetcher Fetcher, blobs domain.BlobWriter, cfg CacheConfig, logger *slog.Logger) *Cache {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Cache{
		index:       index,
		fetcher:     fetcher,
		blobs:       blobs,
		publicBase:  strings.TrimRight(cfg.PublicBase, "/"),
		concurrency: cfg.Concurrency,
		logger:      logger.With(slog.String("component", "logo_cache")),
	}
}

// Preload downloads and stores every id the index does not know yet. Each id
// is attempted; the per-id failures are joined into the returned error.
func (c *Cache) Preload(ctx context.Context, teamIDs []string) error {
	missing, err := c.index.Missing(ctx, teamIDs)
	if err != nil {
		return fmt.Errorf("logo: check index: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(c.concurrency)

	for _, id := range missing {
		g.Go(func() error {
			if err := c.store(ctx, id); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	c.logger.InfoContext(ctx, "logo: preload complete",
		slog.Int("requested", len(teamIDs)),
		slog.Int("missing", len(missing)),
		slog.Int("failed", len(errs)),
	)
	return errors.Join(errs...)
}

func (c *Cache) store(ctx context.Context, teamID string) error {
	data, contentType, err := c.fetcher.Fetch(ctx, teamID)
	if err != nil {
		return fmt.Errorf("logo: fetch %s: %w", teamID, err)
	}
	path := objectPath(teamID, contentType)
	if err := c.blobs.Put(ctx, path, bytes.NewReader(data), contentType); err != nil {
		return fmt.Errorf("logo: store %s: %w", teamID, err)
	}
	if err := c.index.Mark(ctx, teamID, path); err != nil {
		return fmt.Errorf("logo: index %s: %w", teamID, err)
	}
	return nil
}

// URL returns the public URL of a stored crest, or domain.ErrNotFound.
func (c *Cache) URL(ctx context.Context, teamID string) (string, error) {
	path, err := c.index.Path(ctx, teamID)
	if err != nil {
		return "", fmt.Errorf("logo: lookup %s: %w", teamID, err)
	}
	return c.publicBase + "/" + path, nil
}

// objectPath builds the storage key for a crest.
//
//	logos/529.png
func objectPath(teamID, contentType string) string {
	ext := ".png"
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/svg+xml":
		ext = ".svg"
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}
	return "logos/" + teamID + ext
}
