package amm

import (
	"math"

	"github.com/predmarket/marketd/internal/domain"
)

// CheckRatio rejects deposits whose yes/no ratio deviates from the current
// pool ratio by more than tolPct percent, which protects the pools against
// skew via one-sided deposits. The deviation test mirrors the product's
// floating-point definition: |current - provided| / current <= tol.
func CheckRatio(p Pools, amountYes, amountNo uint64, tolPct float64) error {
	if amountYes == 0 || amountNo == 0 {
		return domain.ErrInvalidAmount
	}
	if p.No == 0 || p.Yes == 0 {
		// Empty side: any deposit shape is accepted to bootstrap the pool.
		return nil
	}

	currentRatio := float64(p.Yes) / float64(p.No)
	providedRatio := float64(amountYes) / float64(amountNo)

	deviation := math.Abs(currentRatio-providedRatio) / currentRatio
	if deviation > tolPct/100 {
		return domain.ErrImbalancedLiquidity
	}
	return nil
}

// MintLPTokens computes the LP tokens minted for a deposit of totalAmount.
// The first provider (zero outstanding supply) mints 1:1 with the deposit;
// later providers mint proportionally to the market-wide LP supply against
// the pool size before the deposit.
func MintLPTokens(totalAmount, lpSupply, totalPoolBefore uint64) (uint64, error) {
	if totalAmount == 0 {
		return 0, domain.ErrInvalidAmount
	}
	if lpSupply == 0 {
		return totalAmount, nil
	}
	minted, err := MulDiv(totalAmount, lpSupply, totalPoolBefore)
	if err != nil {
		return 0, err
	}
	if minted == 0 {
		return 0, domain.ErrInsufficientLiquidity
	}
	return minted, nil
}

// WithdrawShares computes the proportional withdrawal for burning lpTokens
// out of lpSupply: share_X = pool_X * lp_tokens / lp_supply for each side.
func WithdrawShares(p Pools, lpTokens, lpSupply uint64) (shareYes, shareNo uint64, err error) {
	if lpTokens == 0 {
		return 0, 0, domain.ErrInvalidAmount
	}
	if lpSupply == 0 || lpTokens > lpSupply {
		return 0, 0, domain.ErrInsufficientLiquidity
	}
	shareYes, err = MulDiv(p.Yes, lpTokens, lpSupply)
	if err != nil {
		return 0, 0, err
	}
	shareNo, err = MulDiv(p.No, lpTokens, lpSupply)
	if err != nil {
		return 0, 0, err
	}
	return shareYes, shareNo, nil
}
