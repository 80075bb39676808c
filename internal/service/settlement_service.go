package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/predmarket/marketd/internal/amm"
	"github.com/predmarket/marketd/internal/config"
	"github.com/predmarket/marketd/internal/domain"
)

// winningClaimReputation is the reputation bump for a correct prediction.
const winningClaimReputation = 10

// SettlementService pays out winning positions on resolved markets.
type SettlementService struct {
	markets   domain.MarketStore
	positions domain.PositionStore
	profiles  domain.ProfileStore
	locks     domain.LockManager
	ledger    domain.Ledger
	bus       domain.SignalBus
	clock     domain.Clock
	engine    config.EngineConfig
	logger    *slog.Logger
}

// NewSettlementService creates a SettlementService with all required
// dependencies.
func NewSettlementService(
	markets domain.MarketStore,
	positions domain.PositionStore,
	profiles domain.ProfileStore,
	locks domain.LockManager,
	ledger domain.Ledger,
	bus domain.SignalBus,
	clock domain.Clock,
	engine config.EngineConfig,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		markets:   markets,
		positions: positions,
		profiles:  profiles,
		locks:     locks,
		ledger:    ledger,
		bus:       bus,
		clock:     clock,
		engine:    engine,
		logger:    logger,
	}
}

// ClaimWinnings pays out a winning, unclaimed position on a resolved market.
// The payout formula is selected by the configured policy; the claimed flag
// commits in the same locked section as the ledger transfers, so a second
// claim always fails.
func (s *SettlementService) ClaimWinnings(ctx context.Context, userID, marketID string) (domain.Payout, error) {
	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return domain.Payout{}, fmt.Errorf("settlement_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Payout{}, fmt.Errorf("settlement_service: get market %q: %w", marketID, err)
	}
	resolution, ok := m.ResolutionInfo()
	if !ok {
		return domain.Payout{}, domain.ErrMarketNotResolved
	}

	pos, err := s.positions.Get(ctx, userID, marketID)
	if err != nil {
		return domain.Payout{}, fmt.Errorf("settlement_service: get position: %w", err)
	}
	if pos.Claimed {
		return domain.Payout{}, domain.ErrAlreadyClaimed
	}
	if !pos.Outcome.Equal(resolution.Outcome) {
		return domain.Payout{}, domain.ErrPositionNotWinning
	}

	winningPool, ok := m.Pool(resolution.Outcome)
	if !ok {
		return domain.Payout{}, domain.ErrInvalidOutcome
	}

	var payout domain.Payout
	switch domain.PayoutPolicy(s.engine.PayoutPolicy) {
	case domain.PayoutPotSplit:
		winnings, err := amm.PotSplitPayout(pos.Amount, m.TotalPool, winningPool)
		if err != nil {
			return domain.Payout{}, err
		}
		payout = domain.Payout{Gross: winnings, Net: winnings}
	case domain.PayoutFeeAdjusted:
		payout, err = amm.FeeAdjustedPayout(pos.Amount, m.TotalPool, winningPool, s.engine.ClaimFeeBps)
		if err != nil {
			return domain.Payout{}, err
		}
	default:
		return domain.Payout{}, fmt.Errorf("settlement_service: unsupported payout policy %q", s.engine.PayoutPolicy)
	}

	poolAccount := domain.MarketPoolAccount(marketID)
	if err := s.ledger.Transfer(ctx, poolAccount, userID, payout.Net); err != nil {
		return domain.Payout{}, fmt.Errorf("settlement_service: payout transfer: %w", err)
	}
	if payout.Fee > 0 {
		if err := s.ledger.Transfer(ctx, poolAccount, domain.TreasuryAccount, payout.Fee); err != nil {
			return domain.Payout{}, fmt.Errorf("settlement_service: fee transfer: %w", err)
		}
	}

	now := s.clock.Now()
	pos.Claimed = true
	pos.UpdatedAt = now
	if err := s.positions.Upsert(ctx, pos); err != nil {
		return domain.Payout{}, fmt.Errorf("settlement_service: upsert position: %w", err)
	}

	s.creditWinner(ctx, userID, now)

	s.logger.InfoContext(ctx, "settlement_service: winnings claimed",
		slog.String("market_id", marketID),
		slog.String("user_id", userID),
		slog.Uint64("gross", payout.Gross),
		slog.Uint64("fee", payout.Fee),
		slog.Uint64("net", payout.Net),
	)
	publishEvent(ctx, s.bus, s.logger, Event{
		Type: "winnings.claimed", MarketID: marketID, UserID: userID, Amount: payout.Net, At: now,
	})
	return payout, nil
}

// creditWinner bumps the winner's reputation and accuracy counters. Profile
// failures are logged: the payout already committed.
func (s *SettlementService) creditWinner(ctx context.Context, userID string, now time.Time) {
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		profile = domain.UserProfile{UserID: userID, CreatedAt: now}
	} else if err != nil {
		s.logger.WarnContext(ctx, "settlement_service: get profile failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	profile.CorrectPredictions++
	profile.RecalcAccuracy()
	if profile.Reputation <= math.MaxUint32-winningClaimReputation {
		profile.Reputation += winningClaimReputation
	}
	profile.LastActivity = now
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: upsert profile failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
