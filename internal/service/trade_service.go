package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/predmarket/marketd/internal/amm"
	"github.com/predmarket/marketd/internal/config"
	"github.com/predmarket/marketd/internal/domain"
)

// TradeService executes buys and sells against a market's pools.
type TradeService struct {
	markets   domain.MarketStore
	positions domain.PositionStore
	profiles  domain.ProfileStore
	liquidity domain.LiquidityStore
	cache     domain.MarketCache
	locks     domain.LockManager
	ledger    domain.Ledger
	identity  domain.IdentityGate
	bus       domain.SignalBus
	clock     domain.Clock
	engine    config.EngineConfig
	logger    *slog.Logger
}

// NewTradeService creates a TradeService with all required dependencies.
func NewTradeService(
	markets domain.MarketStore,
	positions domain.PositionStore,
	profiles domain.ProfileStore,
	liquidity domain.LiquidityStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	ledger domain.Ledger,
	identity domain.IdentityGate,
	bus domain.SignalBus,
	clock domain.Clock,
	engine config.EngineConfig,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		markets:   markets,
		positions: positions,
		profiles:  profiles,
		liquidity: liquidity,
		cache:     cache,
		locks:     locks,
		ledger:    ledger,
		identity:  identity,
		bus:       bus,
		clock:     clock,
		engine:    engine,
		logger:    logger,
	}
}

// PlacePrediction stakes amount on one outcome of an Active market. The
// entry price is quoted before the stake joins the pool; repeat stakes on the
// same outcome re-average the entry price by volume.
func (s *TradeService) PlacePrediction(ctx context.Context, userID, marketID string, outcome domain.Outcome, amount uint64) (domain.Position, error) {
	side, err := amm.SideFor(outcome)
	if err != nil {
		return domain.Position{}, err
	}
	if amount < s.engine.MinStake {
		return domain.Position{}, domain.ErrPredictionTooSmall
	}

	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: get market %q: %w", marketID, err)
	}
	if m.Status != domain.MarketStatusActive {
		return domain.Position{}, domain.ErrMarketNotActive
	}
	now := s.clock.Now()
	if !now.Before(m.ResolutionDate) {
		return domain.Position{}, domain.ErrMarketExpired
	}

	if err := s.checkGate(ctx, userID, m); err != nil {
		return domain.Position{}, err
	}

	pools := amm.Pools{Yes: m.YesPool, No: m.NoPool}
	price, err := amm.QuoteBps(pools, side)
	if err != nil {
		return domain.Position{}, err
	}
	pools, err = amm.ApplyBuy(pools, side, amount)
	if err != nil {
		return domain.Position{}, err
	}

	pos, err := s.positions.Get(ctx, userID, marketID)
	newPosition := false
	switch {
	case err == nil:
		if !pos.Outcome.Equal(outcome) {
			return domain.Position{}, domain.ErrInvalidOutcome
		}
		pos.EntryPrice, err = amm.VWAP(pos.Amount, pos.EntryPrice, amount, price)
		if err != nil {
			return domain.Position{}, err
		}
		pos.Amount += amount
		pos.UpdatedAt = now
	case errors.Is(err, domain.ErrNotFound):
		newPosition = true
		pos = domain.Position{
			ID:         uuid.NewString(),
			UserID:     userID,
			MarketID:   marketID,
			Outcome:    outcome,
			Amount:     amount,
			EntryPrice: price,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	default:
		return domain.Position{}, fmt.Errorf("trade_service: get position: %w", err)
	}

	if err := s.ledger.Transfer(ctx, userID, domain.MarketPoolAccount(marketID), amount); err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: stake transfer: %w", err)
	}

	m.YesPool, m.NoPool = pools.Yes, pools.No
	m.TotalPool = pools.Yes + pools.No
	if newPosition {
		m.TotalParticipants++
	}
	m.UpdatedAt = now

	if err := s.positions.Upsert(ctx, pos); err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: upsert position: %w", err)
	}
	if err := s.markets.Update(ctx, m); err != nil {
		return domain.Position{}, fmt.Errorf("trade_service: update market: %w", err)
	}
	if err := s.markets.ApplyStats(ctx, 0, amount); err != nil {
		s.logger.WarnContext(ctx, "trade_service: stats update failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
	if newPosition {
		s.bumpPredictionCount(ctx, userID, now)
	}
	if err := s.identity.RecordActivity(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "trade_service: record activity failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	s.invalidate(ctx, marketID)

	s.logger.InfoContext(ctx, "trade_service: prediction placed",
		slog.String("market_id", marketID),
		slog.String("user_id", userID),
		slog.String("outcome", string(outcome.Kind)),
		slog.Uint64("amount", amount),
		slog.Uint64("entry_price_bps", pos.EntryPrice),
	)
	publishEvent(ctx, s.bus, s.logger, Event{
		Type: "prediction.placed", MarketID: marketID, UserID: userID, Amount: amount, At: now,
	})
	return pos, nil
}

// SellPosition sells amount shares back to the pools along the
// constant-product curve. The fee goes to the treasury and is credited
// pro-rata to the market's liquidity providers as earned fees; the remainder
// goes to the seller. The entry price of the remaining shares is unchanged.
func (s *TradeService) SellPosition(ctx context.Context, userID, marketID string, amount uint64) (amm.SellResult, error) {
	if amount == 0 {
		return amm.SellResult{}, domain.ErrInvalidAmount
	}

	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return amm.SellResult{}, fmt.Errorf("trade_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return amm.SellResult{}, fmt.Errorf("trade_service: get market %q: %w", marketID, err)
	}
	if m.Status != domain.MarketStatusActive {
		return amm.SellResult{}, domain.ErrMarketNotActive
	}

	pos, err := s.positions.Get(ctx, userID, marketID)
	if err != nil {
		return amm.SellResult{}, fmt.Errorf("trade_service: get position: %w", err)
	}
	if amount > pos.Amount {
		return amm.SellResult{}, domain.ErrInvalidAmount
	}
	side, err := amm.SideFor(pos.Outcome)
	if err != nil {
		return amm.SellResult{}, err
	}

	pools := amm.Pools{Yes: m.YesPool, No: m.NoPool}
	res, err := amm.ApplySell(pools, side, amount, s.engine.SellFeeBps, s.engine.MaxSlippageBps)
	if err != nil {
		return amm.SellResult{}, err
	}

	poolAccount := domain.MarketPoolAccount(marketID)
	if err := s.ledger.Transfer(ctx, poolAccount, userID, res.Net); err != nil {
		return amm.SellResult{}, fmt.Errorf("trade_service: payout transfer: %w", err)
	}
	if res.Fee > 0 {
		if err := s.ledger.Transfer(ctx, poolAccount, domain.TreasuryAccount, res.Fee); err != nil {
			return amm.SellResult{}, fmt.Errorf("trade_service: fee transfer: %w", err)
		}
	}

	now := s.clock.Now()
	pos.Amount -= amount
	pos.UpdatedAt = now
	m.YesPool, m.NoPool = res.Pools.Yes, res.Pools.No
	m.TotalPool = res.Pools.Yes + res.Pools.No
	m.UpdatedAt = now

	if err := s.positions.Upsert(ctx, pos); err != nil {
		return amm.SellResult{}, fmt.Errorf("trade_service: upsert position: %w", err)
	}
	if err := s.markets.Update(ctx, m); err != nil {
		return amm.SellResult{}, fmt.Errorf("trade_service: update market: %w", err)
	}
	if res.Fee > 0 && m.LPSupply > 0 {
		s.creditProviderFees(ctx, marketID, res.Fee, m.LPSupply, now)
	}
	s.invalidate(ctx, marketID)

	s.logger.InfoContext(ctx, "trade_service: position sold",
		slog.String("market_id", marketID),
		slog.String("user_id", userID),
		slog.Uint64("shares", amount),
		slog.Uint64("net", res.Net),
		slog.Uint64("fee", res.Fee),
	)
	publishEvent(ctx, s.bus, s.logger, Event{
		Type: "position.sold", MarketID: marketID, UserID: userID, Amount: res.Net, At: now,
	})
	return res, nil
}

func (s *TradeService) checkGate(ctx context.Context, userID string, m domain.Market) error {
	if m.ReputationThreshold > 0 {
		rep, err := s.identity.ReputationOf(ctx, userID)
		if err != nil {
			return fmt.Errorf("trade_service: reputation of %q: %w", userID, err)
		}
		if rep < m.ReputationThreshold {
			return domain.ErrInsufficientReputation
		}
	}
	if m.HumanVerifiedRequired {
		verified, err := s.identity.IsHumanVerified(ctx, userID)
		if err != nil {
			return fmt.Errorf("trade_service: verification of %q: %w", userID, err)
		}
		if !verified {
			return domain.ErrHumanVerificationRequired
		}
	}
	return nil
}

// creditProviderFees attributes a sell fee to the market's liquidity
// providers pro-rata by LP tokens. This is bookkeeping on the position;
// attribution failures are logged, not surfaced to the seller.
func (s *TradeService) creditProviderFees(ctx context.Context, marketID string, fee, lpSupply uint64, now time.Time) {
	providers, err := s.liquidity.ListByMarket(ctx, marketID)
	if err != nil {
		s.logger.WarnContext(ctx, "trade_service: list providers failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, lp := range providers {
		if lp.LPTokens == 0 {
			continue
		}
		share, err := amm.MulDiv(fee, lp.LPTokens, lpSupply)
		if err != nil || share == 0 {
			continue
		}
		earned, err := amm.AddChecked(lp.FeesEarned, share)
		if err != nil {
			continue
		}
		lp.FeesEarned = earned
		lp.UpdatedAt = now
		if err := s.liquidity.Upsert(ctx, lp); err != nil {
			s.logger.WarnContext(ctx, "trade_service: credit fee failed",
				slog.String("market_id", marketID),
				slog.String("provider", lp.Provider),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *TradeService) bumpPredictionCount(ctx context.Context, userID string, now time.Time) {
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		profile = domain.UserProfile{UserID: userID, CreatedAt: now}
	} else if err != nil {
		s.logger.WarnContext(ctx, "trade_service: get profile failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	profile.TotalPredictions++
	profile.RecalcAccuracy()
	profile.LastActivity = now
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		s.logger.WarnContext(ctx, "trade_service: upsert profile failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *TradeService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "trade_service: cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}
