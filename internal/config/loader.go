package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MATCHSTAKE_* environment variable overrides, and
// returns the final Config. A missing file is not an error when the
// environment alone configures the service. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MATCHSTAKE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "MATCHSTAKE_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "MATCHSTAKE_CHAIN_CHAIN_ID")
	setStr(&cfg.Chain.Network, "MATCHSTAKE_CHAIN_NETWORK")

	// ── Contracts ──
	setStr(&cfg.Contracts.Token, "MATCHSTAKE_CONTRACTS_TOKEN")
	setStr(&cfg.Contracts.MatchManager, "MATCHSTAKE_CONTRACTS_MATCH_MANAGER")
	setUint64(&cfg.Contracts.DeployBlock, "MATCHSTAKE_CONTRACTS_DEPLOY_BLOCK")
	setUint64(&cfg.Contracts.GasLimit, "MATCHSTAKE_CONTRACTS_GAS_LIMIT")
	setInt(&cfg.Contracts.PredictionEncoding.Home, "MATCHSTAKE_CONTRACTS_PREDICTION_HOME")
	setInt(&cfg.Contracts.PredictionEncoding.Draw, "MATCHSTAKE_CONTRACTS_PREDICTION_DRAW")
	setInt(&cfg.Contracts.PredictionEncoding.Away, "MATCHSTAKE_CONTRACTS_PREDICTION_AWAY")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "MATCHSTAKE_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.Address, "MATCHSTAKE_WALLET_ADDRESS")
	setStr(&cfg.Wallet.EncryptedKeyPath, "MATCHSTAKE_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "MATCHSTAKE_WALLET_KEY_PASSWORD")

	// ── Fixtures ──
	setStr(&cfg.Fixtures.BaseURL, "MATCHSTAKE_FIXTURES_BASE_URL")
	setStr(&cfg.Fixtures.APIKey, "MATCHSTAKE_FIXTURES_API_KEY")
	setInt(&cfg.Fixtures.Season, "MATCHSTAKE_FIXTURES_SEASON")
	setStringSlice(&cfg.Fixtures.Leagues, "MATCHSTAKE_FIXTURES_LEAGUES")
	setDuration(&cfg.Fixtures.Lookback, "MATCHSTAKE_FIXTURES_LOOKBACK")
	setDuration(&cfg.Fixtures.Lookahead, "MATCHSTAKE_FIXTURES_LOOKAHEAD")
	setBool(&cfg.Fixtures.Live, "MATCHSTAKE_FIXTURES_LIVE")
	setInt(&cfg.Fixtures.RequestsPerMinute, "MATCHSTAKE_FIXTURES_REQUESTS_PER_MINUTE")

	// ── Logos ──
	setStr(&cfg.Logos.CDNTemplate, "MATCHSTAKE_LOGOS_CDN_TEMPLATE")
	setInt(&cfg.Logos.Concurrency, "MATCHSTAKE_LOGOS_CONCURRENCY")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "MATCHSTAKE_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // platform convention
	setStr(&cfg.Postgres.Host, "MATCHSTAKE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MATCHSTAKE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MATCHSTAKE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MATCHSTAKE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MATCHSTAKE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MATCHSTAKE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MATCHSTAKE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MATCHSTAKE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MATCHSTAKE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.URL, "MATCHSTAKE_REDIS_URL")
	setStr(&cfg.Redis.Addr, "MATCHSTAKE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MATCHSTAKE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MATCHSTAKE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MATCHSTAKE_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "MATCHSTAKE_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "MATCHSTAKE_REDIS_KEY_PREFIX")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MATCHSTAKE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MATCHSTAKE_S3_REGION")
	setStr(&cfg.S3.Bucket, "MATCHSTAKE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MATCHSTAKE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MATCHSTAKE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MATCHSTAKE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MATCHSTAKE_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.PublicBaseURL, "MATCHSTAKE_S3_PUBLIC_BASE_URL")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.SyncInterval, "MATCHSTAKE_PIPELINE_SYNC_INTERVAL")
	setStr(&cfg.Pipeline.ArchiveCron, "MATCHSTAKE_PIPELINE_ARCHIVE_CRON")
	setInt(&cfg.Pipeline.MatchRetentionDays, "MATCHSTAKE_PIPELINE_MATCH_RETENTION_DAYS")
	setInt(&cfg.Pipeline.AuditRetentionDays, "MATCHSTAKE_PIPELINE_AUDIT_RETENTION_DAYS")

	// ── Indexer ──
	setUint64(&cfg.Indexer.StartBlock, "MATCHSTAKE_INDEXER_START_BLOCK")
	setUint64(&cfg.Indexer.BatchSize, "MATCHSTAKE_INDEXER_BATCH_SIZE")

	// ── Server ──
	setInt(&cfg.Server.Port, "MATCHSTAKE_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // platform convention
	setStringSlice(&cfg.Server.CORSOrigins, "MATCHSTAKE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MATCHSTAKE_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "MATCHSTAKE_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MATCHSTAKE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MATCHSTAKE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MATCHSTAKE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MATCHSTAKE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MATCHSTAKE_MODE")
	setStr(&cfg.LogLevel, "MATCHSTAKE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
