// Package config defines the top-level configuration for the matchstake
// service and provides validation helpers.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MATCHSTAKE_* environment variables.
type Config struct {
	Chain     ChainConfig       `toml:"chain"`
	Contracts ContractsConfig   `toml:"contracts"`
	Wallet    WalletConfig      `toml:"wallet"`
	Networks  map[string]string `toml:"networks"`
	Fixtures  FixturesConfig    `toml:"fixtures"`
	Logos     LogosConfig       `toml:"logos"`
	Postgres  PostgresConfig    `toml:"postgres"`
	Redis     RedisConfig       `toml:"redis"`
	S3        S3Config          `toml:"s3"`
	Pipeline  PipelineConfig    `toml:"pipeline"`
	Indexer   IndexerConfig     `toml:"indexer"`
	Server    ServerConfig      `toml:"server"`
	Notify    NotifyConfig      `toml:"notify"`
	Mode      string            `toml:"mode"`
	LogLevel  string            `toml:"log_level"`
}

// ChainConfig holds the RPC endpoint of the chain the contracts live on.
type ChainConfig struct {
	// RPCURL must be a ws:// or wss:// URL when the indexer runs, since log
	// subscriptions need a streaming transport.
	RPCURL  string `toml:"rpc_url"`
	ChainID int64  `toml:"chain_id"`
	// Network names the entry of [networks] used for links in API responses
	// and notifications.
	Network string `toml:"network"`
}

// ContractsConfig holds the deployed contract addresses.
type ContractsConfig struct {
	Token              string                   `toml:"token"`
	MatchManager       string                   `toml:"match_manager"`
	TokenDecimals      int32                    `toml:"token_decimals"`
	DeployBlock        uint64                   `toml:"deploy_block"`
	GasLimit           uint64                   `toml:"gas_limit"`
	PredictionEncoding PredictionEncodingConfig `toml:"prediction_encoding"`
}

// PredictionEncodingConfig is the uint8 the match manager stores for each
// prediction. It must follow the deployed contract's enum order.
type PredictionEncodingConfig struct {
	Home int `toml:"home"`
	Draw int `toml:"draw"`
	Away int `toml:"away"`
}

// WalletConfig holds the key used by the transaction commands.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	Address          string `toml:"address"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// FixturesConfig configures the fixture provider and the sync window.
type FixturesConfig struct {
	BaseURL   string   `toml:"base_url"`
	APIKey    string   `toml:"api_key"`
	Season    int      `toml:"season"`
	Leagues   []string `toml:"leagues"`
	Lookback  duration `toml:"lookback"`
	Lookahead duration `toml:"lookahead"`
	Live      bool     `toml:"live"`
	// RequestsPerMinute caps provider calls across every instance.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// LogosConfig configures the team crest cache.
type LogosConfig struct {
	// CDNTemplate contains a {id} placeholder for the team id.
	CDNTemplate string   `toml:"cdn_template"`
	Concurrency int      `toml:"concurrency"`
	IndexTTL    duration `toml:"index_ttl"`
	Fallback    []string `toml:"fallback"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	URL          string   `toml:"url"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	KeyPrefix    string   `toml:"key_prefix"`
	FixtureTTL   duration `toml:"fixture_ttl"`
	StreamMaxLen int      `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	PublicBaseURL  string `toml:"public_base_url"`
	CacheControl   string `toml:"cache_control"`
}

// PipelineConfig holds fixture sync and archive parameters.
type PipelineConfig struct {
	SyncInterval       duration `toml:"sync_interval"`
	ArchiveCron        string   `toml:"archive_cron"`
	MatchRetentionDays int      `toml:"match_retention_days"`
	AuditRetentionDays int      `toml:"audit_retention_days"`
}

// IndexerConfig holds chain indexer parameters.
type IndexerConfig struct {
	// StartBlock overrides contracts.deploy_block when non-zero.
	StartBlock uint64   `toml:"start_block"`
	BatchSize  uint64   `toml:"batch_size"`
	LockTTL    duration `toml:"lock_ttl"`
	RetryDelay duration `toml:"retry_delay"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramAPIBase   string   `toml:"telegram_api_base"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:  "ws://localhost:8545",
			ChainID: 11155111,
			Network: "sepolia",
		},
		Contracts: ContractsConfig{
			TokenDecimals:      18,
			PredictionEncoding: PredictionEncodingConfig{Home: 0, Draw: 1, Away: 2},
		},
		Networks: map[string]string{
			"mainnet": "https://etherscan.io",
			"sepolia": "https://sepolia.etherscan.io",
		},
		Fixtures: FixturesConfig{
			BaseURL:           "https://v3.football.api-sports.io",
			Season:            2025,
			Leagues:           []string{"39"},
			Lookback:          duration{24 * time.Hour},
			Lookahead:         duration{7 * 24 * time.Hour},
			Live:              true,
			RequestsPerMinute: 30,
		},
		Logos: LogosConfig{
			CDNTemplate: "https://media.api-sports.io/football/teams/{id}.png",
			Concurrency: 4,
			IndexTTL:    duration{30 * 24 * time.Hour},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "matchstake",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     20,
			MaxRetries:   3,
			KeyPrefix:    "matchstake",
			FixtureTTL:   duration{10 * time.Minute},
			StreamMaxLen: 10000,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "matchstake",
			ForcePathStyle: true,
			CacheControl:   "public, max-age=604800",
		},
		Pipeline: PipelineConfig{
			SyncInterval:       duration{5 * time.Minute},
			ArchiveCron:        "0 3 * * *",
			MatchRetentionDays: 30,
			AuditRetentionDays: 90,
		},
		Indexer: IndexerConfig{
			BatchSize:  2000,
			LockTTL:    duration{30 * time.Second},
			RetryDelay: duration{5 * time.Second},
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"match_created", "match_joined", "match_settled", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"sync":    true,
	"indexer": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// StartBlock is the first block the indexer reads when it has no cursor.
func (c *Config) StartBlock() uint64 {
	if c.Indexer.StartBlock > 0 {
		return c.Indexer.StartBlock
	}
	return c.Contracts.DeployBlock
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, sync, indexer, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	if mode == "indexer" || mode == "full" {
		u, err := url.Parse(c.Chain.RPCURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, fmt.Sprintf("chain: rpc_url must be a ws:// or wss:// url for mode %s, got %q", c.Mode, c.Chain.RPCURL))
		}
	}
	if _, ok := c.Networks[strings.ToLower(c.Chain.Network)]; c.Chain.Network != "" && !ok {
		errs = append(errs, fmt.Sprintf("chain: network %q has no entry in [networks]", c.Chain.Network))
	}

	// Contracts
	if mode == "indexer" || mode == "full" {
		if !common.IsHexAddress(c.Contracts.MatchManager) {
			errs = append(errs, "contracts: match_manager must be a hex address")
		}
	}
	if c.Contracts.Token != "" && !common.IsHexAddress(c.Contracts.Token) {
		errs = append(errs, "contracts: token must be a hex address")
	}
	if c.Contracts.TokenDecimals < 0 || c.Contracts.TokenDecimals > 36 {
		errs = append(errs, fmt.Sprintf("contracts: token_decimals must be 0-36, got %d", c.Contracts.TokenDecimals))
	}
	pe := c.Contracts.PredictionEncoding
	for name, v := range map[string]int{"home": pe.Home, "draw": pe.Draw, "away": pe.Away} {
		if v < 0 || v > 255 {
			errs = append(errs, fmt.Sprintf("contracts: prediction_encoding.%s must fit in a uint8, got %d", name, v))
		}
	}
	if pe.Home == pe.Draw || pe.Home == pe.Away || pe.Draw == pe.Away {
		errs = append(errs, "contracts: prediction_encoding values must be distinct")
	}

	// Wallet
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}
	if c.Wallet.Address != "" && !common.IsHexAddress(c.Wallet.Address) {
		errs = append(errs, "wallet: address must be a hex address")
	}

	// Fixtures
	if mode == "sync" || mode == "full" {
		if c.Fixtures.BaseURL == "" {
			errs = append(errs, "fixtures: base_url must not be empty")
		}
		if c.Fixtures.APIKey == "" {
			errs = append(errs, "fixtures: api_key is required for mode "+c.Mode)
		}
		if len(c.Fixtures.Leagues) == 0 && !c.Fixtures.Live {
			errs = append(errs, "fixtures: set leagues or enable live")
		}
	}
	if c.Fixtures.RequestsPerMinute < 0 {
		errs = append(errs, "fixtures: requests_per_minute must be >= 0")
	}

	// Logos
	if c.Logos.CDNTemplate != "" && !strings.Contains(c.Logos.CDNTemplate, "{id}") {
		errs = append(errs, "logos: cdn_template must contain {id}")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" && c.Redis.URL == "" {
		errs = append(errs, "redis: addr or url must be set")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if mode == "sync" || mode == "full" {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Pipeline
	if c.Pipeline.MatchRetentionDays < 1 {
		errs = append(errs, "pipeline: match_retention_days must be >= 1")
	}
	if c.Pipeline.AuditRetentionDays < 1 {
		errs = append(errs, "pipeline: audit_retention_days must be >= 1")
	}
	if len(strings.Fields(c.Pipeline.ArchiveCron)) != 5 {
		errs = append(errs, fmt.Sprintf("pipeline: archive_cron must have 5 fields, got %q", c.Pipeline.ArchiveCron))
	}

	// Server
	if mode == "server" || mode == "full" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
