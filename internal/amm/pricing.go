package amm

import "github.com/predmarket/marketd/internal/domain"

// Side selects which pool a trade targets.
type Side int

const (
	SideYes Side = iota
	SideNo
)

// SideFor maps a binary outcome to its pool side. Multi-outcome values are
// rejected with ErrInvalidOutcome.
func SideFor(o domain.Outcome) (Side, error) {
	switch o.Kind {
	case domain.OutcomeKindYes:
		return SideYes, nil
	case domain.OutcomeKindNo:
		return SideNo, nil
	default:
		return 0, domain.ErrInvalidOutcome
	}
}

// Pools is a snapshot of the two correlated pools. The market's total pool is
// always their sum.
type Pools struct {
	Yes uint64
	No  uint64
}

// Total returns yes+no, checked.
func (p Pools) Total() (uint64, error) {
	return AddChecked(p.Yes, p.No)
}

func (p Pools) side(s Side) uint64 {
	if s == SideYes {
		return p.Yes
	}
	return p.No
}

// QuoteBps returns the current price of one side in basis points:
// pool(side)*10000/total. This is the pre-trade quote; buys compute it before
// funds are added.
func QuoteBps(p Pools, s Side) (uint64, error) {
	total, err := p.Total()
	if err != nil {
		return 0, err
	}
	return MulDiv(p.side(s), BpsDenominator, total)
}

// ApplyBuy adds amount directly to the chosen pool. Buys are intentionally
// pool-additive rather than constant-product; the asymmetry with sells is
// preserved from the product design.
func ApplyBuy(p Pools, s Side, amount uint64) (Pools, error) {
	var err error
	if s == SideYes {
		p.Yes, err = AddChecked(p.Yes, amount)
	} else {
		p.No, err = AddChecked(p.No, amount)
	}
	if err != nil {
		return Pools{}, err
	}
	if _, err := p.Total(); err != nil {
		return Pools{}, err
	}
	return p, nil
}

// SellResult describes a completed constant-product sell.
type SellResult struct {
	Pools     Pools
	TokensOut uint64
	Fee       uint64
	Net       uint64
}

// ApplySell removes amount shares from the position's pool and rebalances the
// opposite pool along the constant-product curve k = yes*no. The payout is
// the growth of the opposite pool, charged feeBps and guarded so that the net
// payout never drops more than maxSlippageBps below the raw payout.
func ApplySell(p Pools, s Side, amount, feeBps, maxSlippageBps uint64) (SellResult, error) {
	if amount == 0 {
		return SellResult{}, domain.ErrInvalidAmount
	}

	same := p.side(s)
	opposite := p.side(1 - s)

	hi, lo := mul128(same, opposite)

	newSame, err := subChecked(same, amount)
	if err != nil || newSame == 0 {
		return SellResult{}, domain.ErrInsufficientLiquidity
	}

	newOpposite, err := div128(hi, lo, newSame)
	if err != nil {
		return SellResult{}, err
	}

	tokensOut, err := subChecked(newOpposite, opposite)
	if err != nil {
		return SellResult{}, domain.ErrInsufficientLiquidity
	}

	fee, err := MulDiv(tokensOut, feeBps, BpsDenominator)
	if err != nil {
		return SellResult{}, err
	}
	net, err := subChecked(tokensOut, fee)
	if err != nil {
		return SellResult{}, err
	}

	minOut, err := MulDiv(tokensOut, BpsDenominator-maxSlippageBps, BpsDenominator)
	if err != nil {
		return SellResult{}, err
	}
	if net < minOut {
		return SellResult{}, domain.ErrSlippageExceeded
	}

	out := p
	if s == SideYes {
		out.Yes = newSame
		out.No = newOpposite
	} else {
		out.No = newSame
		out.Yes = newOpposite
	}
	if _, err := out.Total(); err != nil {
		return SellResult{}, err
	}

	return SellResult{Pools: out, TokensOut: tokensOut, Fee: fee, Net: net}, nil
}

// VWAP returns the volume-weighted average entry price after staking amount
// at price on top of oldAmount at oldPrice, all in basis points.
func VWAP(oldAmount, oldPrice, amount, price uint64) (uint64, error) {
	oldHi, oldLo := mul128(oldAmount, oldPrice)
	newHi, newLo := mul128(amount, price)

	lo, carry := addWide(oldLo, newLo)
	hi := oldHi + newHi + carry
	if hi < oldHi {
		return 0, domain.ErrMathOverflow
	}

	totalAmount, err := AddChecked(oldAmount, amount)
	if err != nil {
		return 0, err
	}
	if totalAmount == 0 {
		return 0, domain.ErrInvalidAmount
	}
	return div128(hi, lo, totalAmount)
}

// PotSplitPayout is the pot-split settlement formula:
// amount*total_pool/winning_pool, truncating.
func PotSplitPayout(amount, totalPool, winningPool uint64) (uint64, error) {
	if winningPool == 0 {
		return 0, domain.ErrNoWinnings
	}
	winnings, err := MulDiv(amount, totalPool, winningPool)
	if err != nil {
		return 0, err
	}
	if winnings == 0 {
		return 0, domain.ErrNoWinnings
	}
	return winnings, nil
}

// FeeAdjustedPayout is the fee-adjusted settlement formula: the stake plus a
// proportional share of the losing pool, minus feeBps of the gross.
func FeeAdjustedPayout(amount, totalPool, winningPool, feeBps uint64) (domain.Payout, error) {
	if winningPool == 0 {
		return domain.Payout{}, domain.ErrNoWinnings
	}
	losingPool, err := subChecked(totalPool, winningPool)
	if err != nil {
		return domain.Payout{}, err
	}
	shareOfLosers, err := MulDiv(amount, losingPool, winningPool)
	if err != nil {
		return domain.Payout{}, err
	}
	gross, err := AddChecked(amount, shareOfLosers)
	if err != nil {
		return domain.Payout{}, err
	}
	fee, err := MulDiv(gross, feeBps, BpsDenominator)
	if err != nil {
		return domain.Payout{}, err
	}
	net, err := subChecked(gross, fee)
	if err != nil {
		return domain.Payout{}, err
	}
	if net == 0 {
		return domain.Payout{}, domain.ErrNoWinnings
	}
	return domain.Payout{Gross: gross, Fee: fee, Net: net}, nil
}
