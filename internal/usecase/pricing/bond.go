package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// TheoreticalPrice computes a bond's price as the NPV of its principal and coupons.
//
// Logic:
//  1. Take the first ceil(maturity/step)+1 factors of the bond's frequency curve
//  2. If they cover fewer than int(maturity)*(1/step) periods, return (0, false)
//  3. Principal NPV = last factor * unit
//  4. Coupon NPV sums factor * couponRate * step over periods 1..maturity/step when the
//     coupon is paid at term end, otherwise over indices 0..maturity-1
//  5. Price = principal NPV + coupon NPV * unit
//
// The function is pure: identical terms and curve always give the identical price.
func TheoreticalPrice(bond domain.BondTerms, curve *domain.DiscountFactorCurve) (decimal.Decimal, bool) {
	factors := curve.Slice(bond.Frequency, bond.RequiredFactors())
	if len(factors) == 0 || !domain.SliceSufficientFor(bond.CurrentMaturity, bond.Frequency, factors) {
		return decimal.Zero, false
	}

	step := bond.Frequency.Step()
	principal := factors[len(factors)-1].Mul(bond.Unit)

	var from, to int
	if bond.TermEndPayment {
		// Coupons are paid at the end of each period, skipping the "now" factor
		from = 1
		to = 1 + int(bond.CurrentMaturity.Div(step).IntPart())
	} else {
		from = 0
		to = int(bond.CurrentMaturity.IntPart())
	}
	if to > len(factors) {
		to = len(factors)
	}

	coupon := decimal.Zero
	for i := from; i < to; i++ {
		coupon = coupon.Add(factors[i].Mul(bond.CouponRate).Mul(step))
	}

	return principal.Add(coupon.Mul(bond.Unit)), true
}
