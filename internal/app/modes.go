package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/indexer"
	"github.com/alanyoungcy/matchstake/internal/logo"
	"github.com/alanyoungcy/matchstake/internal/pipeline"
	"github.com/alanyoungcy/matchstake/internal/server"
	"github.com/alanyoungcy/matchstake/internal/server/handler"
	"github.com/alanyoungcy/matchstake/internal/server/ws"
	"github.com/alanyoungcy/matchstake/internal/service"
)

const statusInterval = 30 * time.Second

// services are the domain services shared by every mode.
type services struct {
	fixtures *service.FixtureService
	matches  *service.MatchService
}

func (a *App) buildServices(deps *Dependencies) services {
	fixtureSvc := service.NewFixtureService(deps.FixtureStore, deps.FixtureCache, deps.SignalBus, deps.Fixtures, a.logger)

	var ledger service.MatchSource
	if deps.Ledger != nil {
		ledger = deps.Ledger
	}
	matchSvc := service.NewMatchService(deps.MatchStore, fixtureSvc, ledger, deps.Links, a.logger)
	return services{fixtures: fixtureSvc, matches: matchSvc}
}

// ServerMode serves the HTTP API and the WebSocket hub.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, a.buildServices(deps))
	return g.Wait()
}

// SyncMode runs the fixture sync loop and the archiver cron.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode")
	return a.newOrchestrator(deps, a.buildServices(deps)).Run(ctx)
}

// IndexerMode follows the match manager contract.
func (a *App) IndexerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting indexer mode")
	return a.newIndexer(deps, a.buildServices(deps)).Run(ctx)
}

// FullMode starts the indexer, the pipeline and the HTTP server together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	svcs := a.buildServices(deps)
	orch := a.newOrchestrator(deps, svcs)
	orch.Add("indexer", a.newIndexer(deps, svcs))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orch.Run(ctx)
	})
	a.startHTTPServer(ctx, g, deps, svcs)
	return g.Wait()
}

func (a *App) newIndexer(deps *Dependencies, svcs services) *indexer.Indexer {
	return indexer.New(indexer.Deps{
		Source:   deps.Chain,
		Ledger:   deps.Ledger,
		Matches:  svcs.matches,
		Cursors:  deps.CursorStore,
		Audit:    deps.AuditStore,
		Bus:      deps.SignalBus,
		Locks:    deps.LockManager,
		Notifier: deps.Notifier,
		TxLink:   deps.Links.TxDefault,
	}, indexer.Config{
		Manager:    common.HexToAddress(a.cfg.Contracts.MatchManager),
		StartBlock: a.cfg.StartBlock(),
		BatchSize:  a.cfg.Indexer.BatchSize,
		LockTTL:    a.cfg.Indexer.LockTTL.Duration,
		RetryDelay: a.cfg.Indexer.RetryDelay.Duration,
	}, a.logger)
}

func (a *App) newOrchestrator(deps *Dependencies, svcs services) *pipeline.Orchestrator {
	var (
		warmer pipeline.Warmer
		logos  pipeline.LogoWarmer
	)
	if deps.Logos != nil {
		prefetcher := logo.NewPrefetcher(deps.Logos, a.cfg.Logos.Fallback, a.logger)
		warmer, logos = prefetcher, prefetcher
	}

	syncer := pipeline.NewFixtureSyncer(svcs.fixtures, deps.Fixtures, logos, deps.RateLimiter, pipeline.SyncWindow{
		Leagues:   a.cfg.Fixtures.Leagues,
		Lookback:  a.cfg.Fixtures.Lookback.Duration,
		Lookahead: a.cfg.Fixtures.Lookahead.Duration,
		Live:      a.cfg.Fixtures.Live,
	}, a.logger)

	var archiver *pipeline.Archiver
	if deps.Archiver != nil {
		archiver = pipeline.NewArchiver(deps.Archiver, a.cfg.Pipeline.MatchRetentionDays, a.cfg.Pipeline.AuditRetentionDays, a.logger)
	}

	return pipeline.NewOrchestrator(syncer, archiver, warmer, a.cfg.Pipeline.SyncInterval.Duration, a.cfg.Pipeline.ArchiveCron, a.logger)
}

// startHTTPServer registers the HTTP server, the WebSocket hub and the status
// heartbeat on g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs services) {
	pingers := make(map[string]handler.Pinger, len(deps.Pingers))
	for name, fn := range deps.Pingers {
		pingers[name] = pingFunc(fn)
	}

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(pingers, a.logger),
		Status:   handler.NewStatusHandler(a.status),
		Fixtures: handler.NewFixtureHandler(svcs.fixtures, a.logger),
		Matches:  handler.NewMatchHandler(svcs.matches, a.logger),
		Explorer: handler.NewExplorerHandler(deps.Links, a.logger),
	}
	if deps.Logos != nil {
		handlers.Logos = handler.NewLogoHandler(deps.Logos, a.logger)
	}

	hub := ws.NewHub(deps.SignalBus, ws.Config{
		AllowedOrigins: a.cfg.Server.CORSOrigins,
		Status:         a.status,
	}, a.logger)

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.publishStatus(ctx, deps.SignalBus)
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// status reports the running service for /api/status and WebSocket clients.
func (a *App) status() domain.ServiceStatus {
	return domain.ServiceStatus{
		Mode:          a.cfg.Mode,
		Network:       a.cfg.Chain.Network,
		ChainID:       a.cfg.Chain.ChainID,
		UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
	}
}

// publishStatus broadcasts the service status on the status channel until
// ctx is cancelled.
func (a *App) publishStatus(ctx context.Context, bus domain.SignalBus) error {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			payload, err := json.Marshal(a.status())
			if err != nil {
				continue
			}
			if err := bus.Publish(ctx, domain.ChannelStatus, payload); err != nil && ctx.Err() == nil {
				a.logger.WarnContext(ctx, "app: status publish failed", slog.String("error", err.Error()))
			}
		}
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
