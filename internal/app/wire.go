package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	s3blob "github.com/alanyoungcy/matchstake/internal/blob/s3"
	"github.com/alanyoungcy/matchstake/internal/cache/redis"
	"github.com/alanyoungcy/matchstake/internal/config"
	"github.com/alanyoungcy/matchstake/internal/contract"
	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/explorer"
	"github.com/alanyoungcy/matchstake/internal/logo"
	"github.com/alanyoungcy/matchstake/internal/notify"
	"github.com/alanyoungcy/matchstake/internal/platform/fixtures"
	"github.com/alanyoungcy/matchstake/internal/platform/logocdn"
	"github.com/alanyoungcy/matchstake/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	FixtureStore domain.FixtureStore
	MatchStore   domain.MatchStore
	CursorStore  domain.CursorStore
	AuditStore   domain.AuditStore

	// Caches
	FixtureCache domain.FixtureCache
	LogoIndex    domain.LogoIndex
	RateLimiter  domain.RateLimiter
	LockManager  domain.LockManager
	SignalBus    domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver
	BlobBase   string

	// Chain
	Chain  *ethclient.Client
	Ledger *contract.Ledger

	// Upstream APIs
	Fixtures *fixtures.Client
	Logos    *logo.Cache

	Links    *explorer.Builder
	Notifier *notify.Notifier

	// Pingers feed the health endpoint.
	Pingers map[string]func(context.Context) error
}

// needsChain returns true for modes that read the match ledger.
func needsChain(mode string) bool {
	switch mode {
	case "indexer", "full":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that require object storage. Server mode
// only needs it to build public logo URLs.
func needsS3(mode string) bool {
	switch mode {
	case "server", "sync", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Pingers: make(map[string]func(context.Context) error)}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.FixtureStore = postgres.NewFixtureStore(pool)
	deps.MatchStore = postgres.NewMatchStore(pool)
	deps.CursorStore = postgres.NewCursorStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)
	deps.Pingers["postgres"] = pgClient.Ping

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		URL:        cfg.Redis.URL,
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
		KeyPrefix:  cfg.Redis.KeyPrefix,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	perMinute := cfg.Fixtures.RequestsPerMinute
	deps.FixtureCache = redis.NewFixtureCache(redisClient, cfg.Redis.FixtureTTL.Duration)
	deps.LogoIndex = redis.NewLogoIndex(redisClient, cfg.Logos.IndexTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient, perMinute, time.Minute)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBusWithMaxLen(redisClient, int64(cfg.Redis.StreamMaxLen))
	deps.Pingers["redis"] = redisClient.Ping

	// --- S3 blob storage ---
	if needsS3(mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			PublicBaseURL:  cfg.S3.PublicBaseURL,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client, cfg.S3.CacheControl)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.BlobBase = s3Client.PublicBase()
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.BlobReader, deps.MatchStore, deps.AuditStore)
		if mode != "server" {
			deps.Pingers["s3"] = s3Client.Health
		}

		cdn, err := logocdn.NewClient(cfg.Logos.CDNTemplate)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: %w", err)
		}
		deps.Logos = logo.NewCache(deps.LogoIndex, cdn, deps.BlobWriter, logo.CacheConfig{
			PublicBase:  deps.BlobBase,
			Concurrency: cfg.Logos.Concurrency,
		}, logger)
	}

	// --- Chain ---
	codec, err := contract.NewPredictionCodec(
		uint8(cfg.Contracts.PredictionEncoding.Home),
		uint8(cfg.Contracts.PredictionEncoding.Draw),
		uint8(cfg.Contracts.PredictionEncoding.Away),
	)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %w", err)
	}
	if needsChain(mode) || (cfg.Chain.RPCURL != "" && common.IsHexAddress(cfg.Contracts.MatchManager)) {
		client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			if needsChain(mode) {
				cleanup()
				return nil, nil, fmt.Errorf("wire: dial chain: %w", err)
			}
			logger.WarnContext(ctx, "wire: chain unavailable, ledger read-through disabled",
				slog.String("error", err.Error()),
			)
		} else {
			closers = append(closers, client.Close)
			deps.Chain = client
			deps.Ledger = contract.NewLedger(client, nil, ledgerConfig(cfg, codec), logger)
		}
	}

	// --- Upstream APIs ---
	deps.Fixtures = fixtures.NewClient(cfg.Fixtures.BaseURL, cfg.Fixtures.APIKey, cfg.Fixtures.Season)

	deps.Links = explorer.NewBuilder(cfg.Networks, cfg.Chain.Network)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramAPIBase,
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

func ledgerConfig(cfg *config.Config, codec contract.PredictionCodec) contract.LedgerConfig {
	return contract.LedgerConfig{
		Token:    common.HexToAddress(cfg.Contracts.Token),
		Manager:  common.HexToAddress(cfg.Contracts.MatchManager),
		Decimals: cfg.Contracts.TokenDecimals,
		Codec:    codec,
		GasLimit: cfg.Contracts.GasLimit,
	}
}
