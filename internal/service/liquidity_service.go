package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/predmarket/marketd/internal/amm"
	"github.com/predmarket/marketd/internal/config"
	"github.com/predmarket/marketd/internal/domain"
)

// LiquidityService manages provider deposits into and withdrawals from a
// market's pools.
type LiquidityService struct {
	markets   domain.MarketStore
	liquidity domain.LiquidityStore
	cache     domain.MarketCache
	locks     domain.LockManager
	ledger    domain.Ledger
	bus       domain.SignalBus
	clock     domain.Clock
	engine    config.EngineConfig
	logger    *slog.Logger
}

// NewLiquidityService creates a LiquidityService with all required
// dependencies.
func NewLiquidityService(
	markets domain.MarketStore,
	liquidity domain.LiquidityStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	ledger domain.Ledger,
	bus domain.SignalBus,
	clock domain.Clock,
	engine config.EngineConfig,
	logger *slog.Logger,
) *LiquidityService {
	return &LiquidityService{
		markets:   markets,
		liquidity: liquidity,
		cache:     cache,
		locks:     locks,
		ledger:    ledger,
		bus:       bus,
		clock:     clock,
		engine:    engine,
		logger:    logger,
	}
}

// AddLiquidity deposits amountYes+amountNo into an Active market's pools,
// rejecting deposits that skew the pool ratio beyond the configured
// tolerance. LP tokens are minted against the market-wide supply.
func (s *LiquidityService) AddLiquidity(ctx context.Context, provider, marketID string, amountYes, amountNo uint64) (domain.LiquidityPosition, error) {
	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return domain.LiquidityPosition{}, fmt.Errorf("liquidity_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.LiquidityPosition{}, fmt.Errorf("liquidity_service: get market %q: %w", marketID, err)
	}
	if m.Status != domain.MarketStatusActive {
		return domain.LiquidityPosition{}, domain.ErrMarketNotActive
	}

	pools := amm.Pools{Yes: m.YesPool, No: m.NoPool}
	if err := amm.CheckRatio(pools, amountYes, amountNo, s.engine.RatioTolerancePct); err != nil {
		return domain.LiquidityPosition{}, err
	}

	total, err := amm.AddChecked(amountYes, amountNo)
	if err != nil {
		return domain.LiquidityPosition{}, err
	}
	minted, err := amm.MintLPTokens(total, m.LPSupply, m.TotalPool)
	if err != nil {
		return domain.LiquidityPosition{}, err
	}

	// Every post-deposit value is computed before funds move so an overflow
	// leaves the market and the ledger untouched.
	newYes, err := amm.AddChecked(m.YesPool, amountYes)
	if err != nil {
		return domain.LiquidityPosition{}, err
	}
	newNo, err := amm.AddChecked(m.NoPool, amountNo)
	if err != nil {
		return domain.LiquidityPosition{}, err
	}
	newTotal, err := amm.AddChecked(newYes, newNo)
	if err != nil {
		return domain.LiquidityPosition{}, err
	}
	newSupply, err := amm.AddChecked(m.LPSupply, minted)
	if err != nil {
		return domain.LiquidityPosition{}, err
	}

	now := s.clock.Now()
	pos, err := s.liquidity.Get(ctx, provider, marketID)
	switch {
	case err == nil:
		if pos.LPTokens, err = amm.AddChecked(pos.LPTokens, minted); err != nil {
			return domain.LiquidityPosition{}, err
		}
		if pos.AmountYes, err = amm.AddChecked(pos.AmountYes, amountYes); err != nil {
			return domain.LiquidityPosition{}, err
		}
		if pos.AmountNo, err = amm.AddChecked(pos.AmountNo, amountNo); err != nil {
			return domain.LiquidityPosition{}, err
		}
		pos.UpdatedAt = now
	case errors.Is(err, domain.ErrNotFound):
		pos = domain.LiquidityPosition{
			ID:        uuid.NewString(),
			Provider:  provider,
			MarketID:  marketID,
			LPTokens:  minted,
			AmountYes: amountYes,
			AmountNo:  amountNo,
			CreatedAt: now,
			UpdatedAt: now,
		}
	default:
		return domain.LiquidityPosition{}, fmt.Errorf("liquidity_service: get position: %w", err)
	}

	if err := s.ledger.Transfer(ctx, provider, domain.MarketPoolAccount(marketID), total); err != nil {
		return domain.LiquidityPosition{}, fmt.Errorf("liquidity_service: deposit transfer: %w", err)
	}

	m.YesPool = newYes
	m.NoPool = newNo
	m.TotalPool = newTotal
	m.LPSupply = newSupply
	m.UpdatedAt = now

	if err := s.liquidity.Upsert(ctx, pos); err != nil {
		return domain.LiquidityPosition{}, fmt.Errorf("liquidity_service: upsert position: %w", err)
	}
	if err := s.markets.Update(ctx, m); err != nil {
		return domain.LiquidityPosition{}, fmt.Errorf("liquidity_service: update market: %w", err)
	}
	if err := s.markets.ApplyStats(ctx, 0, total); err != nil {
		s.logger.WarnContext(ctx, "liquidity_service: stats update failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
	s.invalidate(ctx, marketID)

	s.logger.InfoContext(ctx, "liquidity_service: liquidity added",
		slog.String("market_id", marketID),
		slog.String("provider", provider),
		slog.Uint64("total", total),
		slog.Uint64("lp_minted", minted),
	)
	publishEvent(ctx, s.bus, s.logger, Event{
		Type: "liquidity.added", MarketID: marketID, UserID: provider, Amount: total, At: now,
	})
	return pos, nil
}

// RemoveLiquidity burns lpTokens and withdraws the proportional share of each
// pool to the provider.
func (s *LiquidityService) RemoveLiquidity(ctx context.Context, provider, marketID string, lpTokens uint64) (shareYes, shareNo uint64, err error) {
	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return 0, 0, fmt.Errorf("liquidity_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return 0, 0, fmt.Errorf("liquidity_service: get market %q: %w", marketID, err)
	}
	if m.Status != domain.MarketStatusActive {
		return 0, 0, domain.ErrMarketNotActive
	}

	pos, err := s.liquidity.Get(ctx, provider, marketID)
	if err != nil {
		return 0, 0, fmt.Errorf("liquidity_service: get position: %w", err)
	}
	if lpTokens == 0 || lpTokens > pos.LPTokens {
		return 0, 0, domain.ErrInvalidAmount
	}

	pools := amm.Pools{Yes: m.YesPool, No: m.NoPool}
	shareYes, shareNo, err = amm.WithdrawShares(pools, lpTokens, m.LPSupply)
	if err != nil {
		return 0, 0, err
	}

	total := shareYes + shareNo
	if err := s.ledger.Transfer(ctx, domain.MarketPoolAccount(marketID), provider, total); err != nil {
		return 0, 0, fmt.Errorf("liquidity_service: withdrawal transfer: %w", err)
	}

	now := s.clock.Now()
	pos.LPTokens -= lpTokens
	// Contributed amounts track the remaining principal. Withdrawn shares can
	// exceed the recorded deposit when the pools grew, so the subtraction
	// saturates at zero.
	pos.AmountYes = satSub(pos.AmountYes, shareYes)
	pos.AmountNo = satSub(pos.AmountNo, shareNo)
	pos.UpdatedAt = now
	m.YesPool -= shareYes
	m.NoPool -= shareNo
	m.TotalPool = m.YesPool + m.NoPool
	m.LPSupply -= lpTokens
	m.UpdatedAt = now

	if err := s.liquidity.Upsert(ctx, pos); err != nil {
		return 0, 0, fmt.Errorf("liquidity_service: upsert position: %w", err)
	}
	if err := s.markets.Update(ctx, m); err != nil {
		return 0, 0, fmt.Errorf("liquidity_service: update market: %w", err)
	}
	s.invalidate(ctx, marketID)

	s.logger.InfoContext(ctx, "liquidity_service: liquidity removed",
		slog.String("market_id", marketID),
		slog.String("provider", provider),
		slog.Uint64("lp_burned", lpTokens),
		slog.Uint64("withdrawn", total),
	)
	publishEvent(ctx, s.bus, s.logger, Event{
		Type: "liquidity.removed", MarketID: marketID, UserID: provider, Amount: total, At: now,
	})
	return shareYes, shareNo, nil
}

func satSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

func (s *LiquidityService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "liquidity_service: cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}
