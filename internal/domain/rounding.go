package domain

import (
	"github.com/shopspring/decimal"
)

// Rounding truncates computed amounts toward zero at a fixed scale.
// Every computed amount passes through an explicit Rounding so results are reproducible.
type Rounding struct {
	Scale int32
}

// ValuationScale is the number of fractional digits kept for P/L and average cost
const ValuationScale int32 = 10

var (
	// PLRounding is applied to every computed profit/loss
	PLRounding = Rounding{Scale: ValuationScale}

	// AverageCostRounding is applied to the weighted-average cost division
	AverageCostRounding = Rounding{Scale: ValuationScale}
)

// Apply truncates d to the configured scale
func (r Rounding) Apply(d decimal.Decimal) decimal.Decimal {
	return d.RoundDown(r.Scale)
}

// Div divides num by den, truncating the quotient to the configured scale.
// den must not be zero.
func (r Rounding) Div(num, den decimal.Decimal) decimal.Decimal {
	q, _ := num.QuoRem(den, r.Scale)
	return q
}

// UnrealizedPL returns currentValue - bookValue under PLRounding
func UnrealizedPL(currentValue, bookValue decimal.Decimal) decimal.Decimal {
	return PLRounding.Apply(currentValue.Sub(bookValue))
}
