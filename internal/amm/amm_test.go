package amm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predmarket/marketd/internal/domain"
)

func TestQuoteBps(t *testing.T) {
	tests := []struct {
		name string
		p    Pools
		side Side
		want uint64
	}{
		{"even pools", Pools{Yes: 500, No: 500}, SideYes, 5000},
		{"yes heavy", Pools{Yes: 750, No: 250}, SideYes, 7500},
		{"yes heavy no side", Pools{Yes: 750, No: 250}, SideNo, 2500},
		{"pre-trade quote at 500/1000", Pools{Yes: 500, No: 500}, SideYes, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QuoteBps(tt.p, tt.side)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteBpsEmptyPool(t *testing.T) {
	_, err := QuoteBps(Pools{}, SideYes)
	require.ErrorIs(t, err, domain.ErrMathOverflow)
}

func TestApplyBuyIsPoolAdditive(t *testing.T) {
	p := Pools{Yes: 500, No: 500}

	// Quote before funds are added: 500*10000/1000 = 5000 bps.
	price, err := QuoteBps(p, SideYes)
	require.NoError(t, err)
	require.Equal(t, uint64(5000), price)

	out, err := ApplyBuy(p, SideYes, 500)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), out.Yes)
	require.Equal(t, uint64(500), out.No)

	total, err := out.Total()
	require.NoError(t, err)
	require.Equal(t, uint64(1500), total)
}

func TestApplyBuyOverflow(t *testing.T) {
	p := Pools{Yes: math.MaxUint64 - 10, No: 5}
	_, err := ApplyBuy(p, SideYes, 100)
	require.ErrorIs(t, err, domain.ErrMathOverflow)
}

func TestApplySellConstantProduct(t *testing.T) {
	// k = 1,000,000; selling 100 yes shares: new_yes=900,
	// new_no = 1,000,000/900 = 1111, tokens_out = 111, fee rounds to 0.
	p := Pools{Yes: 1000, No: 1000}

	res, err := ApplySell(p, SideYes, 100, 50, 200)
	require.NoError(t, err)
	require.Equal(t, uint64(900), res.Pools.Yes)
	require.Equal(t, uint64(1111), res.Pools.No)
	require.Equal(t, uint64(111), res.TokensOut)
	require.Equal(t, uint64(0), res.Fee)
	require.Equal(t, uint64(111), res.Net)
}

func TestApplySellFeeCharged(t *testing.T) {
	p := Pools{Yes: 100_000, No: 100_000}

	res, err := ApplySell(p, SideNo, 10_000, 50, 200)
	require.NoError(t, err)
	// new_no = 90,000; new_yes = 10^10/90,000 = 111,111; out = 11,111.
	require.Equal(t, uint64(11_111), res.TokensOut)
	require.Equal(t, uint64(55), res.Fee)
	require.Equal(t, uint64(11_056), res.Net)
	require.Equal(t, res.TokensOut, res.Fee+res.Net)
}

func TestApplySellSlippageGuard(t *testing.T) {
	p := Pools{Yes: 1000, No: 1000}

	// A 300 bps fee against a 200 bps slippage ceiling must trip the guard.
	_, err := ApplySell(p, SideYes, 500, 300, 200)
	require.ErrorIs(t, err, domain.ErrSlippageExceeded)
}

func TestApplySellDrainsPool(t *testing.T) {
	p := Pools{Yes: 100, No: 100}

	_, err := ApplySell(p, SideYes, 100, 50, 200)
	require.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	_, err = ApplySell(p, SideYes, 150, 50, 200)
	require.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
}

func TestApplySellZeroAmount(t *testing.T) {
	_, err := ApplySell(Pools{Yes: 1000, No: 1000}, SideYes, 0, 50, 200)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestVWAP(t *testing.T) {
	tests := []struct {
		name                                string
		oldAmount, oldPrice, amount, price  uint64
		want                                uint64
	}{
		{"first stake", 0, 0, 100, 5000, 5000},
		{"equal weights", 100, 4000, 100, 6000, 5000},
		{"heavier old stake", 300, 4000, 100, 8000, 5000},
		{"truncates", 100, 5000, 50, 5001, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VWAP(tt.oldAmount, tt.oldPrice, tt.amount, tt.price)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCheckRatio(t *testing.T) {
	p := Pools{Yes: 1000, No: 1000}

	require.NoError(t, CheckRatio(p, 500, 500, 5))
	require.NoError(t, CheckRatio(p, 500, 490, 5)) // ~2% off
	require.ErrorIs(t, CheckRatio(p, 500, 250, 5), domain.ErrImbalancedLiquidity)
	require.ErrorIs(t, CheckRatio(p, 0, 500, 5), domain.ErrInvalidAmount)

	// Skewed pool accepts matching skewed deposits.
	skewed := Pools{Yes: 3000, No: 1000}
	require.NoError(t, CheckRatio(skewed, 300, 100, 5))
	require.ErrorIs(t, CheckRatio(skewed, 100, 100, 5), domain.ErrImbalancedLiquidity)
}

func TestMintLPTokens(t *testing.T) {
	// First provider mints 1:1.
	minted, err := MintLPTokens(2000, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(2000), minted)

	// Second provider mints proportionally to outstanding supply.
	minted, err = MintLPTokens(1000, 2000, 2000)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), minted)

	minted, err = MintLPTokens(500, 2000, 4000)
	require.NoError(t, err)
	require.Equal(t, uint64(250), minted)
}

func TestWithdrawShares(t *testing.T) {
	p := Pools{Yes: 1500, No: 1500}

	yes, no, err := WithdrawShares(p, 1000, 3000)
	require.NoError(t, err)
	require.Equal(t, uint64(500), yes)
	require.Equal(t, uint64(500), no)

	_, _, err = WithdrawShares(p, 4000, 3000)
	require.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	_, _, err = WithdrawShares(p, 0, 3000)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestLiquidityRoundTrip(t *testing.T) {
	// With the seed liquidity's LP supply outstanding, add_liquidity(1000,1000)
	// then removing every minted token returns exactly the contribution and
	// leaves the pools where they started.
	p := Pools{Yes: 500, No: 500}
	total, err := p.Total()
	require.NoError(t, err)
	supply := total // seed supply minted 1:1 at creation

	minted, err := MintLPTokens(2000, supply, total)
	require.NoError(t, err)
	require.Equal(t, uint64(2000), minted)

	p.Yes += 1000
	p.No += 1000
	supply += minted

	yes, no, err := WithdrawShares(p, minted, supply)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), yes)
	require.Equal(t, uint64(1000), no)
}

func TestPotSplitPayout(t *testing.T) {
	got, err := PotSplitPayout(100, 3000, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(300), got)

	_, err = PotSplitPayout(100, 3000, 0)
	require.ErrorIs(t, err, domain.ErrNoWinnings)
}

func TestFeeAdjustedPayout(t *testing.T) {
	// losing pool 2000, winning pool 1000: a 100 stake earns 200 from the
	// losers, gross 300, fee 300*50/10000 = 1, net 299.
	p, err := FeeAdjustedPayout(100, 3000, 1000, 50)
	require.NoError(t, err)
	require.Equal(t, uint64(300), p.Gross)
	require.Equal(t, uint64(1), p.Fee)
	require.Equal(t, uint64(299), p.Net)

	_, err = FeeAdjustedPayout(100, 3000, 0, 50)
	require.ErrorIs(t, err, domain.ErrNoWinnings)
}

func TestSideFor(t *testing.T) {
	s, err := SideFor(domain.OutcomeYes())
	require.NoError(t, err)
	require.Equal(t, SideYes, s)

	s, err = SideFor(domain.OutcomeNo())
	require.NoError(t, err)
	require.Equal(t, SideNo, s)

	_, err = SideFor(domain.OutcomeOther(2))
	require.ErrorIs(t, err, domain.ErrInvalidOutcome)
}
