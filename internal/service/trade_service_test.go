package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predmarket/marketd/internal/domain"
)

func TestPlacePredictionQuotesBeforeStakeJoinsPool(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000) // 5000/5000

	e.seedProfile(t, "alice", 100, true)
	e.fund(t, "alice", 2000)

	pos, err := e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeYes(), 2000)
	require.NoError(t, err)
	// Quoted at the pre-trade price of 50%.
	require.Equal(t, uint64(5000), pos.EntryPrice)
	require.Equal(t, uint64(2000), pos.Amount)

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(7000), got.YesPool)
	require.Equal(t, uint64(5000), got.NoPool)
	require.Equal(t, uint64(12000), got.TotalPool)
	require.Equal(t, uint32(1), got.TotalParticipants)

	balance, err := e.ledger.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestPlacePredictionReaveragesEntryPrice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	e.seedProfile(t, "alice", 100, true)
	e.fund(t, "alice", 5000)

	_, err := e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeYes(), 2000)
	require.NoError(t, err)

	// Second stake at 7000/12000 = 5833 bps; VWAP of (2000@5000, 3000@5833).
	pos, err := e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeYes(), 3000)
	require.NoError(t, err)
	require.Equal(t, uint64(5000), pos.Amount)
	require.Equal(t, uint64(5499), pos.EntryPrice)

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	// Still one participant; the position merged.
	require.Equal(t, uint32(1), got.TotalParticipants)
}

func TestPlacePredictionRejectsOppositeOutcome(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	e.seedProfile(t, "alice", 100, true)
	e.fund(t, "alice", 4000)

	_, err := e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeYes(), 2000)
	require.NoError(t, err)
	_, err = e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeNo(), 2000)
	require.ErrorIs(t, err, domain.ErrInvalidOutcome)
}

func TestPlacePredictionGuards(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	t.Run("below minimum stake", func(t *testing.T) {
		m := e.createMarket(t, "creator", 10000)
		_, err := e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeYes(), 999)
		require.ErrorIs(t, err, domain.ErrPredictionTooSmall)
	})

	t.Run("multi-outcome rejected", func(t *testing.T) {
		m := e.createMarket(t, "creator-b", 10000)
		_, err := e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeOther(2), 2000)
		require.ErrorIs(t, err, domain.ErrInvalidOutcome)
	})

	t.Run("insufficient reputation", func(t *testing.T) {
		e.seedProfile(t, "gated-creator", 50, false)
		e.fund(t, "gated-creator", 2000)
		m, err := e.market.CreateMarket(ctx, CreateMarketParams{
			Creator:          "gated-creator",
			Question:         "Will the index close above the strike?",
			ResolutionDate:   e.clock.Now().Add(time.Hour),
			InitialLiquidity: 2000,
		})
		require.NoError(t, err)

		e.seedProfile(t, "lowrep", 10, true)
		e.fund(t, "lowrep", 2000)
		_, err = e.trade.PlacePrediction(ctx, "lowrep", m.ID, domain.OutcomeYes(), 2000)
		require.ErrorIs(t, err, domain.ErrInsufficientReputation)
	})

	t.Run("human verification required", func(t *testing.T) {
		e.seedProfile(t, "creator-h", 250, true)
		e.fund(t, "creator-h", 2000)
		m, err := e.market.CreateMarket(ctx, CreateMarketParams{
			Creator:               "creator-h",
			Question:              "Will the index close above the strike?",
			ResolutionDate:        e.clock.Now().Add(time.Hour),
			InitialLiquidity:      2000,
			HumanVerifiedRequired: true,
		})
		require.NoError(t, err)

		e.seedProfile(t, "unverified", 100, false)
		e.fund(t, "unverified", 2000)
		_, err = e.trade.PlacePrediction(ctx, "unverified", m.ID, domain.OutcomeYes(), 2000)
		require.ErrorIs(t, err, domain.ErrHumanVerificationRequired)
	})

	t.Run("expired market", func(t *testing.T) {
		m := e.createMarket(t, "creator-c", 10000)
		e.seedProfile(t, "bob", 100, true)
		e.fund(t, "bob", 2000)
		e.clock.Advance(31 * 24 * time.Hour)
		_, err := e.trade.PlacePrediction(ctx, "bob", m.ID, domain.OutcomeYes(), 2000)
		require.ErrorIs(t, err, domain.ErrMarketExpired)
	})
}

func TestSellPositionWalksConstantProductCurve(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 2000) // 1000/1000

	e.seedProfile(t, "alice", 100, true)
	e.fund(t, "alice", 1000)
	_, err := e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeYes(), 1000)
	require.NoError(t, err) // pools 2000/1000

	res, err := e.trade.SellPosition(ctx, "alice", m.ID, 500)
	require.NoError(t, err)
	// k = 2000*1000; yes 1500 -> no 1333; growth 333, fee 1, net 332.
	require.Equal(t, uint64(333), res.TokensOut)
	require.Equal(t, uint64(1), res.Fee)
	require.Equal(t, uint64(332), res.Net)

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1500), got.YesPool)
	require.Equal(t, uint64(1333), got.NoPool)
	require.Equal(t, got.YesPool+got.NoPool, got.TotalPool)

	pos, err := e.positions.Get(ctx, "alice", m.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(500), pos.Amount)

	aliceBalance, err := e.ledger.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(332), aliceBalance)

	treasury, err := e.ledger.BalanceOf(ctx, domain.TreasuryAccount)
	require.NoError(t, err)
	require.Equal(t, uint64(1), treasury)
}

func TestSellPositionCreditsProviderFees(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 20000) // 10000/10000, seed supply 20000

	e.fund(t, "bob", 10000)
	_, err := e.liqService.AddLiquidity(ctx, "bob", m.ID, 5000, 5000)
	require.NoError(t, err) // pools 15000/15000, supply 30000

	e.seedProfile(t, "alice", 100, true)
	e.fund(t, "alice", 10000)
	_, err = e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeYes(), 10000)
	require.NoError(t, err) // pools 25000/15000

	res, err := e.trade.SellPosition(ctx, "alice", m.ID, 5000)
	require.NoError(t, err)
	// k = 25000*15000; yes 20000 -> no 18750; growth 3750, fee 18.
	require.Equal(t, uint64(18), res.Fee)

	// The fee splits pro-rata by LP tokens: 18*20000/30000 and 18*10000/30000.
	seed, err := e.liquidity.Get(ctx, "creator", m.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(12), seed.FeesEarned)

	lp, err := e.liquidity.Get(ctx, "bob", m.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(6), lp.FeesEarned)
}

func TestSellPositionRejectsOversizedSell(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 2000)

	e.seedProfile(t, "alice", 100, true)
	e.fund(t, "alice", 1000)
	_, err := e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeYes(), 1000)
	require.NoError(t, err)

	_, err = e.trade.SellPosition(ctx, "alice", m.ID, 1001)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestSellPositionRequiresActiveMarket(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 2000)

	e.seedProfile(t, "alice", 100, true)
	e.fund(t, "alice", 1000)
	_, err := e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeYes(), 1000)
	require.NoError(t, err)

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.NoError(t, got.Transition(domain.MarketStatusPaused))
	require.NoError(t, e.markets.Update(ctx, got))

	_, err = e.trade.SellPosition(ctx, "alice", m.ID, 500)
	require.ErrorIs(t, err, domain.ErrMarketNotActive)
}
