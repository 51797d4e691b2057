package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/logo"
	"github.com/alanyoungcy/matchstake/internal/metrics"
	"github.com/alanyoungcy/matchstake/internal/service"
)

// providerRateKey is the rate limiter key shared by every provider call.
const providerRateKey = "fixtures:provider"

// FixtureWriter persists a batch of provider fixtures.
type FixtureWriter interface {
	SyncFixtures(ctx context.Context, fixtures []domain.Fixture) (service.SyncResult, error)
}

// FixtureFetcher retrieves fixtures from the provider API.
type FixtureFetcher interface {
	GetFixtures(ctx context.Context, league string, from, to time.Time) ([]domain.Fixture, error)
	GetLive(ctx context.Context) ([]domain.Fixture, error)
}

// LogoWarmer preloads team logos for a batch of fixtures.
type LogoWarmer interface {
	PreloadFixtureLogos(ctx context.Context, refs []logo.TeamRef)
}

// SyncWindow bounds the fixtures pulled on each run, relative to now.
type SyncWindow struct {
	Leagues   []string
	Lookback  time.Duration
	Lookahead time.Duration
	// Live additionally pulls every in-play fixture, regardless of league.
	Live bool
}

// FixtureSyncer pulls fixtures from the provider and writes them through
// the fixture service.
type FixtureSyncer struct {
	writer  FixtureWriter
	fetcher FixtureFetcher
	logos   LogoWarmer
	limiter domain.RateLimiter
	window  SyncWindow
	logger  *slog.Logger
	now     func() time.Time
}

// NewFixtureSyncer creates a FixtureSyncer. logos and limiter may be nil.
func NewFixtureSyncer(
	writer FixtureWriter,
	fetcher FixtureFetcher,
	logos LogoWarmer,
	limiter domain.RateLimiter,
	window SyncWindow,
	logger *slog.Logger,
) *FixtureSyncer {
	if window.Lookback <= 0 {
		window.Lookback = 24 * time.Hour
	}
	if window.Lookahead <= 0 {
		window.Lookahead = 7 * 24 * time.Hour
	}
	return &FixtureSyncer{
		writer:  writer,
		fetcher: fetcher,
		logos:   logos,
		limiter: limiter,
		window:  window,
		logger:  logger.With(slog.String("component", "fixture_syncer")),
		now:     time.Now,
	}
}

// Run executes a single sync. A failing league does not stop the others;
// Run fails only when no fixtures could be fetched at all.
func (s *FixtureSyncer) Run(ctx context.Context) (service.SyncResult, error) {
	now := s.now().UTC()
	from, to := now.Add(-s.window.Lookback), now.Add(s.window.Lookahead)

	byID := make(map[int64]domain.Fixture)
	var errs []error

	for _, league := range s.window.Leagues {
		if err := s.wait(ctx); err != nil {
			return service.SyncResult{}, err
		}
		fixtures, err := s.fetcher.GetFixtures(ctx, league, from, to)
		if err != nil {
			s.logger.WarnContext(ctx, "pipeline: fetch league failed",
				slog.String("league", league),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("league %s: %w", league, err))
			continue
		}
		for _, f := range fixtures {
			byID[f.ID] = f
		}
	}

	if s.window.Live {
		if err := s.wait(ctx); err != nil {
			return service.SyncResult{}, err
		}
		live, err := s.fetcher.GetLive(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "pipeline: fetch live failed", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("live: %w", err))
		}
		for _, f := range live {
			byID[f.ID] = f
		}
	}

	if len(byID) == 0 && len(errs) > 0 {
		metrics.FixtureSyncsTotal.WithLabelValues("error").Inc()
		return service.SyncResult{}, fmt.Errorf("pipeline: fixture sync: %w", errors.Join(errs...))
	}

	batch := make([]domain.Fixture, 0, len(byID))
	for _, f := range byID {
		batch = append(batch, f)
	}

	res, err := s.writer.SyncFixtures(ctx, batch)
	if err != nil {
		metrics.FixtureSyncsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("pipeline: fixture sync: %w", err)
	}
	metrics.FixturesSynced.Add(float64(res.Upserted))
	if len(errs) > 0 {
		metrics.FixtureSyncsTotal.WithLabelValues("partial").Inc()
	} else {
		metrics.FixtureSyncsTotal.WithLabelValues("ok").Inc()
	}

	if s.logos != nil && len(batch) > 0 {
		s.logos.PreloadFixtureLogos(ctx, logo.RefsFromFixtures(batch))
	}

	s.logger.InfoContext(ctx, "pipeline: fixture sync complete",
		slog.Int("fetched", len(batch)),
		slog.Int("changed", res.Changed),
		slog.Int("failed_sources", len(errs)),
	)
	return res, nil
}

// RunLoop runs a sync immediately and then on every interval tick until ctx
// is cancelled. Individual failures are logged and the loop continues.
func (s *FixtureSyncer) RunLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s.logger.InfoContext(ctx, "pipeline: fixture sync loop started",
		slog.Duration("interval", interval),
		slog.Int("leagues", len(s.window.Leagues)),
	)

	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("pipeline: fixture sync loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *FixtureSyncer) runOnce(ctx context.Context) {
	if _, err := s.Run(ctx); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "pipeline: fixture sync failed", slog.String("error", err.Error()))
	}
}

func (s *FixtureSyncer) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx, providerRateKey); err != nil {
		return fmt.Errorf("pipeline: provider rate limit: %w", err)
	}
	return nil
}
