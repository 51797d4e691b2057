// Package indexer mirrors the match manager contract into the match store.
// It backfills logs from the last committed block, then follows new logs
// through a subscription, refreshing each touched match with getMatch.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/matchstake/internal/contract"
	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/metrics"
	"github.com/alanyoungcy/matchstake/internal/notify"
)

// LogSource is the subset of ethclient.Client the indexer reads from.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// MatchReader refreshes a match from the ledger.
type MatchReader interface {
	Match(ctx context.Context, matchID *big.Int) (domain.Match, error)
}

// MatchRecorder stores a refreshed match.
type MatchRecorder interface {
	Record(ctx context.Context, m domain.Match) error
}

// Config controls the indexer.
type Config struct {
	Manager common.Address
	// StartBlock is where indexing begins when no cursor is stored.
	StartBlock uint64
	BatchSize  uint64
	CursorName string
	LockKey    string
	LockTTL    time.Duration
	RetryDelay time.Duration
}

func (c *Config) defaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 2000
	}
	if c.CursorName == "" {
		c.CursorName = "match_manager"
	}
	if c.LockKey == "" {
		c.LockKey = "indexer:leader"
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}
}

// Deps bundles the collaborators of an Indexer. Audit, Bus, Locks,
// Notifier and TxLink are optional.
type Deps struct {
	Source   LogSource
	Ledger   MatchReader
	Matches  MatchRecorder
	Cursors  domain.CursorStore
	Audit    domain.AuditStore
	Bus      domain.SignalBus
	Locks    domain.LockManager
	Notifier *notify.Notifier
	// TxLink builds an explorer link for a transaction hash.
	TxLink func(txHash string) string
}

// Indexer follows match manager events.
type Indexer struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
}

// New creates an Indexer.
func New(deps Deps, cfg Config, logger *slog.Logger) *Indexer {
	cfg.defaults()
	return &Indexer{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "indexer")),
	}
}

// Run indexes until ctx is cancelled. When a lock manager is configured only
// the instance holding the leader lock indexes; the others wait. Failures
// restart indexing from the stored cursor after RetryDelay.
func (ix *Indexer) Run(ctx context.Context) error {
	ix.logger.InfoContext(ctx, "indexer: starting",
		slog.String("manager", ix.cfg.Manager.Hex()),
		slog.Uint64("start_block", ix.cfg.StartBlock),
	)
	for {
		err := ix.lead(ctx)
		if ctx.Err() != nil {
			ix.logger.InfoContext(ctx, "indexer: stopped")
			return nil
		}
		if err != nil && !errors.Is(err, domain.ErrLockHeld) {
			ix.logger.ErrorContext(ctx, "indexer: run failed",
				slog.String("error", err.Error()),
			)
			ix.alert(ctx, "Indexer error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(ix.cfg.RetryDelay):
		}
	}
}

// lead takes the leader lock, if any, and indexes while holding it.
func (ix *Indexer) lead(ctx context.Context) error {
	if ix.deps.Locks == nil {
		return ix.follow(ctx)
	}

	release, lost, err := ix.deps.Locks.Hold(ctx, ix.cfg.LockKey, ix.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			ix.logger.DebugContext(ctx, "indexer: standby, leader lock held elsewhere")
		}
		return err
	}
	defer release()

	leaderCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-lost:
			ix.logger.WarnContext(ctx, "indexer: leader lock lost")
			cancel()
		case <-leaderCtx.Done():
		}
	}()

	err = ix.follow(leaderCtx)
	if ctx.Err() == nil && leaderCtx.Err() != nil {
		return fmt.Errorf("indexer: leader lock lost")
	}
	return err
}

// follow subscribes first so nothing is missed, backfills up to the current
// head, then consumes live logs newer than the backfilled range.
func (ix *Indexer) follow(ctx context.Context) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{ix.cfg.Manager},
		Topics:    [][]common.Hash{contract.EventTopics()},
	}

	logs := make(chan types.Log, 256)
	sub, err := ix.deps.Source.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("indexer: subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	through, err := ix.Backfill(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if err == nil {
				return fmt.Errorf("indexer: subscription closed")
			}
			return fmt.Errorf("indexer: subscription: %w", err)
		case l := <-logs:
			if l.BlockNumber <= through && !l.Removed {
				continue
			}
			if err := ix.handleLog(ctx, l); err != nil {
				return err
			}
			if l.BlockNumber > 0 && !l.Removed {
				ix.commit(ctx, l.BlockNumber-1)
			}
		}
	}
}

// Backfill processes every log between the stored cursor and the current
// head in BatchSize windows, committing the cursor after each window. It
// returns the last block processed.
func (ix *Indexer) Backfill(ctx context.Context) (uint64, error) {
	from, err := ix.resumeBlock(ctx)
	if err != nil {
		return 0, err
	}

	head, err := ix.deps.Source.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("indexer: block number: %w", err)
	}
	if from > head {
		if from == 0 {
			return 0, nil
		}
		return from - 1, nil
	}

	for start := from; start <= head; start += ix.cfg.BatchSize {
		end := min(start+ix.cfg.BatchSize-1, head)
		logs, err := ix.deps.Source.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: []common.Address{ix.cfg.Manager},
			Topics:    [][]common.Hash{contract.EventTopics()},
		})
		if err != nil {
			return 0, fmt.Errorf("indexer: filter logs %d-%d: %w", start, end, err)
		}
		for _, l := range logs {
			if err := ix.handleLog(ctx, l); err != nil {
				return 0, err
			}
		}
		ix.commit(ctx, end)

		ix.logger.InfoContext(ctx, "indexer: backfilled window",
			slog.Uint64("from", start),
			slog.Uint64("to", end),
			slog.Int("logs", len(logs)),
		)
	}
	return head, nil
}

func (ix *Indexer) resumeBlock(ctx context.Context) (uint64, error) {
	last, err := ix.deps.Cursors.Get(ctx, ix.cfg.CursorName)
	if errors.Is(err, domain.ErrNotFound) {
		return ix.cfg.StartBlock, nil
	}
	if err != nil {
		return 0, fmt.Errorf("indexer: read cursor: %w", err)
	}
	return max(last+1, ix.cfg.StartBlock), nil
}

func (ix *Indexer) commit(ctx context.Context, block uint64) {
	if err := ix.deps.Cursors.Set(ctx, ix.cfg.CursorName, block); err != nil {
		ix.logger.WarnContext(ctx, "indexer: cursor write failed",
			slog.Uint64("block", block),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.IndexedBlock.Set(float64(block))
}

// handleLog refreshes the match touched by l. Removed logs (reorgs) refresh
// the match without announcing an event.
func (ix *Indexer) handleLog(ctx context.Context, l types.Log) error {
	ev, err := contract.DecodeLog(l)
	if errors.Is(err, contract.ErrUnknownEvent) {
		return nil
	}
	if err != nil {
		ix.logger.WarnContext(ctx, "indexer: undecodable log",
			slog.String("tx_hash", l.TxHash.Hex()),
			slog.String("error", err.Error()),
		)
		return nil
	}

	m, err := ix.deps.Ledger.Match(ctx, ev.MatchID)
	if err != nil {
		return fmt.Errorf("indexer: refresh match %s: %w", ev.MatchID, err)
	}
	if ev.Kind == domain.MatchEventCreated && !ev.Removed {
		created, err := ix.blockTime(ctx, ev.BlockNumber)
		if err != nil {
			return err
		}
		m.CreatedAt = created
	}
	if err := ix.deps.Matches.Record(ctx, m); err != nil {
		return fmt.Errorf("indexer: %w", err)
	}
	if ev.Removed {
		ix.logger.WarnContext(ctx, "indexer: log removed by reorg",
			slog.String("match_id", m.ID),
			slog.String("tx_hash", ev.TxHash.Hex()),
		)
		return nil
	}

	metrics.LedgerEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	ix.logger.InfoContext(ctx, "indexer: match event",
		slog.String("kind", string(ev.Kind)),
		slog.String("match_id", m.ID),
		slog.Uint64("block", ev.BlockNumber),
	)

	out := domain.MatchEvent{
		Kind:        ev.Kind,
		MatchID:     m.ID,
		TxHash:      ev.TxHash.Hex(),
		BlockNumber: ev.BlockNumber,
		Match:       &m,
		ObservedAt:  time.Now().UTC(),
	}
	ix.announce(ctx, out)
	return nil
}

// blockTime returns the timestamp of block n.
func (ix *Indexer) blockTime(ctx context.Context, n uint64) (time.Time, error) {
	header, err := ix.deps.Source.HeaderByNumber(ctx, new(big.Int).SetUint64(n))
	if err != nil {
		return time.Time{}, fmt.Errorf("indexer: header %d: %w", n, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// announce fans an event out to the bus, the audit log and the notifier.
// Each step is best effort.
func (ix *Indexer) announce(ctx context.Context, ev domain.MatchEvent) {
	payload, err := json.Marshal(ev)
	if err == nil && ix.deps.Bus != nil {
		if err := ix.deps.Bus.Publish(ctx, domain.ChannelMatch, payload); err != nil {
			ix.logger.WarnContext(ctx, "indexer: publish failed", slog.String("error", err.Error()))
		}
		if err := ix.deps.Bus.StreamAppend(ctx, domain.StreamMatchEvents, payload); err != nil {
			ix.logger.WarnContext(ctx, "indexer: stream append failed", slog.String("error", err.Error()))
		}
	}

	if ix.deps.Audit != nil {
		detail := map[string]any{
			"match_id": ev.MatchID,
			"tx_hash":  ev.TxHash,
			"block":    ev.BlockNumber,
		}
		if err := ix.deps.Audit.Log(ctx, "ledger."+string(ev.Kind), detail); err != nil {
			ix.logger.WarnContext(ctx, "indexer: audit log failed", slog.String("error", err.Error()))
		}
	}

	link := ""
	if ix.deps.TxLink != nil {
		link = ix.deps.TxLink(ev.TxHash)
	}
	if err := ix.deps.Notifier.Notify(ctx, notify.MatchMessage(ev, link)); err != nil {
		ix.logger.WarnContext(ctx, "indexer: notify failed", slog.String("error", err.Error()))
	}
}

func (ix *Indexer) alert(ctx context.Context, title string, err error) {
	if nerr := ix.deps.Notifier.NotifyError(ctx, title, err); nerr != nil {
		ix.logger.WarnContext(ctx, "indexer: notify failed", slog.String("error", nerr.Error()))
	}
}
