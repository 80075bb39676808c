// Package config defines the top-level configuration for the settlement
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MARKETD_* environment
// variables.
type Config struct {
	Storage    string           `toml:"storage"` // "postgres" or "memory"
	LogLevel   string           `toml:"log_level"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Engine     EngineConfig     `toml:"engine"`
	Governance GovernanceConfig `toml:"governance"`
	Moderation ModerationConfig `toml:"moderation"`
	Oracle     OracleConfig     `toml:"oracle"`
	Server     ServerConfig     `toml:"server"`
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

// RedisConfig holds Redis connection parameters. An empty Addr disables Redis
// and falls back to in-process cache, lock, and bus implementations.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds object-storage parameters for the settlement-report
// archiver. Disabled unless Enabled is set.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// EngineConfig holds the economic parameters of the pricing and settlement
// engines. All fee and slippage values are basis points.
type EngineConfig struct {
	MinStake            uint64  `toml:"min_stake"`
	SellFeeBps          uint64  `toml:"sell_fee_bps"`
	ClaimFeeBps         uint64  `toml:"claim_fee_bps"`
	MaxSlippageBps      uint64  `toml:"max_slippage_bps"`
	RatioTolerancePct   float64 `toml:"ratio_tolerance_pct"`
	MinOracleConfidence uint8   `toml:"min_oracle_confidence"`
	PayoutPolicy        string  `toml:"payout_policy"` // "pot_split" or "fee_adjusted"
	CreatorReputation   uint32  `toml:"creator_reputation"`
	GatedThreshold      uint32  `toml:"gated_threshold"`
}

// GovernanceConfig holds the multisig signer set and execution threshold.
type GovernanceConfig struct {
	Signers              []string `toml:"signers"`
	Threshold            int      `toml:"threshold"`
	EligibilityThreshold uint8    `toml:"eligibility_threshold_pct"`
}

// ModerationConfig holds the injected content policy.
type ModerationConfig struct {
	BannedTerms []string `toml:"banned_terms"`
}

// OracleConfig pre-registers outcome feeds at startup.
type OracleConfig struct {
	Feeds []OracleFeedConfig `toml:"feeds"`
}

// OracleFeedConfig maps one feed's numeric value to a Yes/No outcome.
type OracleFeedConfig struct {
	FeedID     string  `toml:"feed_id"`
	Provider   string  `toml:"provider"`
	Comparison string  `toml:"comparison"` // ">", "<", or "="
	Threshold  float64 `toml:"threshold"`
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	Port          int      `toml:"port"`
	CORSOrigins   []string `toml:"cors_origins"`
	APIKey        string   `toml:"api_key"`
	RateLimit     int      `toml:"rate_limit"`      // requests per window per client, 0 disables
	RateWindowSec int      `toml:"rate_window_sec"` // window length in seconds
}

// Defaults returns the built-in configuration baseline.
func Defaults() Config {
	return Config{
		Storage:  "memory",
		LogLevel: "info",
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "marketd",
			User:         "marketd",
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
		},
		Engine: EngineConfig{
			MinStake:            1000,
			SellFeeBps:          50,
			ClaimFeeBps:         50,
			MaxSlippageBps:      200,
			RatioTolerancePct:   5,
			MinOracleConfidence: 80,
			PayoutPolicy:        "fee_adjusted",
			CreatorReputation:   200,
			GatedThreshold:      25,
		},
		Governance: GovernanceConfig{
			Threshold:            3,
			EligibilityThreshold: 60,
		},
		Server: ServerConfig{
			Port:          8080,
			CORSOrigins:   []string{"*"},
			RateLimit:     120,
			RateWindowSec: 60,
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Storage {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unsupported storage %q", c.Storage)
	}

	if c.Storage == "postgres" {
		if strings.TrimSpace(c.Postgres.DSN) == "" && strings.TrimSpace(c.Postgres.Host) == "" {
			return fmt.Errorf("config: postgres storage requires dsn or host")
		}
	}

	switch c.Engine.PayoutPolicy {
	case "pot_split", "fee_adjusted":
	default:
		return fmt.Errorf("config: unsupported payout policy %q", c.Engine.PayoutPolicy)
	}

	if c.Engine.MinStake == 0 {
		return fmt.Errorf("config: min_stake must be positive")
	}
	if c.Engine.SellFeeBps >= 10000 || c.Engine.ClaimFeeBps >= 10000 {
		return fmt.Errorf("config: fee must be below 10000 bps")
	}
	if c.Engine.MaxSlippageBps > 10000 {
		return fmt.Errorf("config: max_slippage_bps must be at most 10000 bps")
	}
	if c.Engine.RatioTolerancePct < 0 || c.Engine.RatioTolerancePct > 100 {
		return fmt.Errorf("config: ratio_tolerance_pct must be within [0,100]")
	}

	if c.Governance.Threshold <= 0 {
		return fmt.Errorf("config: governance threshold must be positive")
	}
	if len(c.Governance.Signers) > 0 && c.Governance.Threshold > len(c.Governance.Signers) {
		return fmt.Errorf("config: governance threshold %d exceeds signer count %d",
			c.Governance.Threshold, len(c.Governance.Signers))
	}
	if c.Governance.EligibilityThreshold > 100 {
		return fmt.Errorf("config: eligibility threshold must be a percentage")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}

	if c.S3.Enabled && strings.TrimSpace(c.S3.Bucket) == "" {
		return fmt.Errorf("config: s3 archiver requires a bucket")
	}

	return nil
}
