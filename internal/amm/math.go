// Package amm implements the constant-product pricing and liquidity
// accounting used by the engine: pool-additive buys, constant-product sells,
// and proportional LP share math. All arithmetic is overflow-checked uint64
// with 128-bit intermediates; any overflow aborts the computation with
// domain.ErrMathOverflow instead of wrapping.
package amm

import (
	"math/bits"

	"github.com/predmarket/marketd/internal/domain"
)

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator = 10000

// AddChecked adds two pool amounts, rejecting 64-bit overflow.
func AddChecked(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, domain.ErrMathOverflow
	}
	return sum, nil
}

func subChecked(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, domain.ErrMathOverflow
	}
	return diff, nil
}

// mul128 widens a*b into a 128-bit (hi, lo) pair.
func mul128(a, b uint64) (hi, lo uint64) {
	return bits.Mul64(a, b)
}

// addWide adds two 64-bit values, returning the sum and carry.
func addWide(a, b uint64) (sum, carry uint64) {
	return bits.Add64(a, b, 0)
}

// div128 divides the 128-bit value (hi, lo) by den. It returns
// ErrMathOverflow when den is zero or the quotient does not fit in 64 bits.
func div128(hi, lo, den uint64) (uint64, error) {
	if den == 0 || hi >= den {
		return 0, domain.ErrMathOverflow
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo, nil
}

// MulDiv computes a*b/den with a 128-bit intermediate product, rejecting a
// zero denominator or a quotient wider than 64 bits.
func MulDiv(a, b, den uint64) (uint64, error) {
	hi, lo := mul128(a, b)
	return div128(hi, lo, den)
}
