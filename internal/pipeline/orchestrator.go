package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Runner is a long-running component, such as the chain indexer.
type Runner interface {
	Run(ctx context.Context) error
}

// Warmer is run once before the loops start.
type Warmer interface {
	Warmup(ctx context.Context)
}

// Orchestrator runs the fixture sync loop, the archiver cron and any extra
// runners side by side. Nil components are skipped.
type Orchestrator struct {
	syncer       *FixtureSyncer
	archiver     *Archiver
	runners      map[string]Runner
	warmer       Warmer
	syncInterval time.Duration
	archiveCron  string
	logger       *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	syncer *FixtureSyncer,
	archiver *Archiver,
	warmer Warmer,
	syncInterval time.Duration,
	archiveCron string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		syncer:       syncer,
		archiver:     archiver,
		runners:      make(map[string]Runner),
		warmer:       warmer,
		syncInterval: syncInterval,
		archiveCron:  archiveCron,
		logger:       logger.With(slog.String("component", "orchestrator")),
	}
}

// Add registers an extra runner under name.
func (o *Orchestrator) Add(name string, r Runner) {
	o.runners[name] = r
}

// Run starts every component under an errgroup. A component returning a
// non-context error cancels the others and Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "pipeline: orchestrator starting",
		slog.Duration("sync_interval", o.syncInterval),
		slog.String("archive_cron", o.archiveCron),
		slog.Int("runners", len(o.runners)),
	)

	if o.warmer != nil {
		go o.warmer.Warmup(ctx)
	}

	g, ctx := errgroup.WithContext(ctx)

	if o.syncer != nil {
		g.Go(func() error {
			err := o.syncer.RunLoop(ctx, o.syncInterval)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fixture syncer: %w", err)
		})
	}

	if o.archiver != nil && o.archiveCron != "" {
		g.Go(func() error {
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	for name, r := range o.runners {
		g.Go(func() error {
			err := r.Run(ctx)
			if ctx.Err() != nil || err == nil {
				return nil
			}
			return fmt.Errorf("%s: %w", name, err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline: orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("pipeline: orchestrator stopped cleanly")
	return nil
}
