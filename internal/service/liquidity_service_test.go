package service

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/predmarket/marketd/internal/domain"
)

func TestAddLiquidityMintsAgainstGlobalSupply(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000) // 5000/5000, seed supply 10000

	e.fund(t, "bob", 2000)
	pos, err := e.liqService.AddLiquidity(ctx, "bob", m.ID, 1000, 1000)
	require.NoError(t, err)
	// 2000 * 10000 / 10000 = 2000 against the creator's seed supply.
	require.Equal(t, uint64(2000), pos.LPTokens)

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(6000), got.YesPool)
	require.Equal(t, uint64(6000), got.NoPool)
	require.Equal(t, uint64(12000), got.TotalPool)
	require.Equal(t, uint64(12000), got.LPSupply)

	// Next provider mints proportionally: 3000*12000/12000 = 3000.
	e.fund(t, "carol", 3000)
	pos, err = e.liqService.AddLiquidity(ctx, "carol", m.ID, 1500, 1500)
	require.NoError(t, err)
	require.Equal(t, uint64(3000), pos.LPTokens)

	got, err = e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(15000), got.LPSupply)
	require.Equal(t, uint64(15000), got.TotalPool)
}

func TestAddLiquidityRejectsSkewedDeposits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	e.fund(t, "bob", 1300)
	_, err := e.liqService.AddLiquidity(ctx, "bob", m.ID, 1000, 300)
	require.ErrorIs(t, err, domain.ErrImbalancedLiquidity)

	_, err = e.liqService.AddLiquidity(ctx, "bob", m.ID, 1000, 0)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestAddLiquidityOverflowLeavesStateUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Pools sized so the deposit itself fits but the recomputed total pool
	// exceeds 64 bits.
	const big = math.MaxUint64 / 2
	m := domain.Market{
		ID:        uuid.NewString(),
		Status:    domain.MarketStatusActive,
		YesPool:   big,
		NoPool:    big,
		TotalPool: big + big,
		LPSupply:  big + big,
	}
	require.NoError(t, e.markets.Create(ctx, m))
	e.fund(t, "bob", 2000)

	_, err := e.liqService.AddLiquidity(ctx, "bob", m.ID, 1000, 1000)
	require.ErrorIs(t, err, domain.ErrMathOverflow)

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, m.YesPool, got.YesPool)
	require.Equal(t, m.NoPool, got.NoPool)
	require.Equal(t, m.LPSupply, got.LPSupply)

	balance, err := e.ledger.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, uint64(2000), balance)
}

func TestRemoveLiquidityPaysProportionalShares(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	e.fund(t, "bob", 2000)
	_, err := e.liqService.AddLiquidity(ctx, "bob", m.ID, 1000, 1000)
	require.NoError(t, err)
	e.fund(t, "carol", 3000)
	_, err = e.liqService.AddLiquidity(ctx, "carol", m.ID, 1500, 1500)
	require.NoError(t, err) // pools 7500/7500, supply 15000

	shareYes, shareNo, err := e.liqService.RemoveLiquidity(ctx, "bob", m.ID, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(500), shareYes)
	require.Equal(t, uint64(500), shareNo)

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(7000), got.YesPool)
	require.Equal(t, uint64(7000), got.NoPool)
	require.Equal(t, uint64(14000), got.LPSupply)

	balance, err := e.ledger.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, uint64(1000), balance)

	pos, err := e.liquidity.Get(ctx, "bob", m.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), pos.LPTokens)
	// Contributed amounts shrink with the withdrawal.
	require.Equal(t, uint64(500), pos.AmountYes)
	require.Equal(t, uint64(500), pos.AmountNo)
}

func TestRemoveLiquidityCannotClaimSeedLiquidity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000) // 5000/5000

	e.fund(t, "bob", 2000)
	pos, err := e.liqService.AddLiquidity(ctx, "bob", m.ID, 1000, 1000)
	require.NoError(t, err)

	// An immediate full withdrawal returns exactly the deposit, never a
	// share of the creator's seed liquidity.
	shareYes, shareNo, err := e.liqService.RemoveLiquidity(ctx, "bob", m.ID, pos.LPTokens)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), shareYes)
	require.Equal(t, uint64(1000), shareNo)

	balance, err := e.ledger.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, uint64(2000), balance)

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(5000), got.YesPool)
	require.Equal(t, uint64(5000), got.NoPool)
	require.Equal(t, uint64(10000), got.TotalPool)
	require.Equal(t, uint64(10000), got.LPSupply)
}

func TestRemoveLiquidityRejectsOverdraw(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	e.fund(t, "bob", 2000)
	_, err := e.liqService.AddLiquidity(ctx, "bob", m.ID, 1000, 1000)
	require.NoError(t, err)

	_, _, err = e.liqService.RemoveLiquidity(ctx, "bob", m.ID, 2001)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}
