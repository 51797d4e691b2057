// Package logo warms the team-logo cache for fixtures that are about to be
// displayed.
package logo

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/metrics"
)

// TeamRef is the part of a fixture the prefetcher needs.
type TeamRef struct {
	HomeTeamID string
	AwayTeamID string
}

// RefsFromFixtures extracts the team references of each fixture.
func RefsFromFixtures(fixtures []domain.Fixture) []TeamRef {
	refs := make([]TeamRef, 0, len(fixtures))
	for _, f := range fixtures {
		home, away := f.TeamIDs()
		refs = append(refs, TeamRef{HomeTeamID: home, AwayTeamID: away})
	}
	return refs
}

// Preloader stores images for the given team ids.
type Preloader interface {
	Preload(ctx context.Context, teamIDs []string) error
}

// DefaultFallbackTeams are preloaded on startup so the most viewed crests are
// warm before the first fixture sync completes.
var DefaultFallbackTeams = []string{
	"33", "34", "40", "42", "47", "49", "50", "529", "530", "541", "157", "165", "489", "496", "505", "85",
}

// Prefetcher issues best-effort preload requests against a Preloader. It
// owns no cache state of its own.
type Prefetcher struct {
	cache    Preloader
	fallback []string
	logger   *slog.Logger
}

// NewPrefetcher creates a Prefetcher. A nil fallback uses DefaultFallbackTeams.
func NewPrefetcher(cache Preloader, fallback []string, logger *slog.Logger) *Prefetcher {
	if fallback == nil {
		fallback = DefaultFallbackTeams
	}
	return &Prefetcher{
		cache:    cache,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "logo_prefetcher")),
	}
}

// CollectTeamIDs returns the distinct non-empty team ids referenced by refs,
// home and away alike, in sorted order.
func CollectTeamIDs(refs []TeamRef) []string {
	seen := make(map[string]struct{}, len(refs)*2)
	for _, r := range refs {
		if r.HomeTeamID != "" {
			seen[r.HomeTeamID] = struct{}{}
		}
		if r.AwayTeamID != "" {
			seen[r.AwayTeamID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PreloadFixtureLogos sends one preload request covering every team in refs.
// Failures are logged and never returned.
func (p *Prefetcher) PreloadFixtureLogos(ctx context.Context, refs []TeamRef) {
	ids := CollectTeamIDs(refs)
	if len(ids) == 0 {
		return
	}
	p.preload(ctx, "fixtures", ids)
}

// Warmup preloads the fallback team set.
func (p *Prefetcher) Warmup(ctx context.Context) {
	refs := make([]TeamRef, 0, len(p.fallback))
	for _, id := range p.fallback {
		refs = append(refs, TeamRef{HomeTeamID: id})
	}
	ids := CollectTeamIDs(refs)
	if len(ids) == 0 {
		return
	}
	p.preload(ctx, "warmup", ids)
}

func (p *Prefetcher) preload(ctx context.Context, reason string, ids []string) {
	defer func() {
		if r := recover(); r != nil {
			metrics.LogoPrefetchFailures.Inc()
			p.logger.ErrorContext(ctx, "logo: preload panicked",
				slog.String("reason", reason),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if err := p.cache.Preload(ctx, ids); err != nil {
		metrics.LogoPrefetchFailures.Inc()
		p.logger.WarnContext(ctx, "logo: preload failed",
			slog.String("reason", reason),
			slog.Int("teams", len(ids)),
			slog.String("error", err.Error()),
		)
		return
	}
	p.logger.DebugContext(ctx, "logo: preload requested",
		slog.String("reason", reason),
		slog.Int("teams", len(ids)),
	)
}
