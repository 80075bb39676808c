package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/predmarket/marketd/internal/blob/s3"
	"github.com/predmarket/marketd/internal/cache/redis"
	"github.com/predmarket/marketd/internal/config"
	"github.com/predmarket/marketd/internal/domain"
	"github.com/predmarket/marketd/internal/ledger"
	"github.com/predmarket/marketd/internal/oracle"
	"github.com/predmarket/marketd/internal/store/memory"
	"github.com/predmarket/marketd/internal/store/postgres"
)

// Dependencies bundles the concrete implementations behind the domain ports.
// Wire constructs them; the returned cleanup tears them down in reverse
// order.
type Dependencies struct {
	// Stores
	MarketStore     domain.MarketStore
	PositionStore   domain.PositionStore
	LiquidityStore  domain.LiquidityStore
	ProfileStore    domain.ProfileStore
	GovernanceStore domain.GovernanceStore
	ReportStore     domain.ReportStore
	EvidenceStore   domain.EvidenceStore
	AuditStore      domain.AuditStore

	// Infrastructure
	MarketCache domain.MarketCache
	LockManager domain.LockManager
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	// Collaborators
	Ledger   domain.Ledger
	Oracle   *oracle.Registry
	Archiver domain.SettlementArchiver
	Clock    domain.Clock
}

// Wire builds every dependency from the configuration. Postgres and Redis
// are optional: "memory" storage and an empty Redis address select the
// in-process implementations. S3 archiving is used only when enabled.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	clock := domain.SystemClock{}
	deps := &Dependencies{
		Ledger: ledger.NewMemory(),
		Oracle: oracle.NewRegistry(clock, logger),
		Clock:  clock,
	}

	for _, feed := range cfg.Oracle.Feeds {
		err := deps.Oracle.RegisterFeed(domain.OracleFeedSpec{
			FeedID:     feed.FeedID,
			Provider:   feed.Provider,
			Comparison: domain.OracleComparison(feed.Comparison),
			Threshold:  feed.Threshold,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: register feed %s: %w", feed.FeedID, err)
		}
	}

	governanceState := domain.GovernanceState{
		Signers:   cfg.Governance.Signers,
		Threshold: cfg.Governance.Threshold,
		UpdatedAt: clock.Now(),
	}

	switch cfg.Storage {
	case "postgres":
		pgClient, err := postgres.New(ctx, cfg.Postgres)
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
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.PositionStore = postgres.NewPositionStore(pool)
		deps.LiquidityStore = postgres.NewLiquidityStore(pool)
		deps.ProfileStore = postgres.NewProfileStore(pool)
		deps.GovernanceStore = postgres.NewGovernanceStore(pool)
		deps.ReportStore = postgres.NewReportStore(pool)
		deps.EvidenceStore = postgres.NewEvidenceStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)

		// Config is the source of truth for the signer set.
		if len(governanceState.Signers) > 0 {
			if err := deps.GovernanceStore.SaveState(ctx, governanceState); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: seed governance state: %w", err)
			}
		}

	default:
		deps.MarketStore = memory.NewMarketStore()
		deps.PositionStore = memory.NewPositionStore()
		deps.LiquidityStore = memory.NewLiquidityStore()
		deps.ProfileStore = memory.NewProfileStore()
		deps.GovernanceStore = memory.NewGovernanceStore(governanceState)
		deps.ReportStore = memory.NewReportStore()
		deps.EvidenceStore = memory.NewEvidenceStore()
		deps.AuditStore = memory.NewAuditStore()
	}

	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.MarketCache = redis.NewMarketCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	} else {
		deps.MarketCache = memory.NewMarketCache()
		deps.LockManager = memory.NewLockManager(clock)
		deps.SignalBus = memory.NewSignalBus()
		deps.RateLimiter = memory.NewRateLimiter(clock)
	}

	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, cfg.S3)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3Client, deps.AuditStore)
	}

	return deps, cleanup, nil
}
