package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DiscountFactorCurve holds discount factors per payment frequency.
// Index 0 of every sequence is the present value factor for "now".
type DiscountFactorCurve struct {
	factors map[PaymentFrequency][]decimal.Decimal
}

// NewDiscountFactorCurve builds a curve from per-frequency factor sequences
func NewDiscountFactorCurve(factors map[PaymentFrequency][]decimal.Decimal) *DiscountFactorCurve {
	copied := make(map[PaymentFrequency][]decimal.Decimal, len(factors))
	for freq, seq := range factors {
		copied[freq] = append([]decimal.Decimal(nil), seq...)
	}
	return &DiscountFactorCurve{factors: copied}
}

// FactorsFor returns the factor sequence for a frequency.
// An unknown frequency yields an empty sequence.
func (c *DiscountFactorCurve) FactorsFor(freq PaymentFrequency) []decimal.Decimal {
	seq, ok := c.factors[freq]
	if !ok {
		return []decimal.Decimal{}
	}
	return append([]decimal.Decimal(nil), seq...)
}

// Slice returns at most n leading factors for a frequency
func (c *DiscountFactorCurve) Slice(freq PaymentFrequency, n int) []decimal.Decimal {
	seq := c.FactorsFor(freq)
	if n < 0 {
		n = 0
	}
	if n < len(seq) {
		return seq[:n]
	}
	return seq
}

// SufficientFor reports whether the curve covers int(maturity) * (1/step) periods
func (c *DiscountFactorCurve) SufficientFor(maturity decimal.Decimal, freq PaymentFrequency) bool {
	return sufficient(maturity, freq, len(c.FactorsFor(freq)))
}

func sufficient(maturity decimal.Decimal, freq PaymentFrequency, available int) bool {
	termLength := maturity.IntPart() * freq.PeriodsPerYear()
	return termLength <= int64(available)
}

// SliceSufficientFor applies the SufficientFor rule to an already bounded slice
func SliceSufficientFor(maturity decimal.Decimal, freq PaymentFrequency, factors []decimal.Decimal) bool {
	return sufficient(maturity, freq, len(factors))
}

// Validate reports an integrity violation when any factor is not strictly positive
func (c *DiscountFactorCurve) Validate() error {
	for freq, seq := range c.factors {
		for i, f := range seq {
			if !f.IsPositive() {
				return fmt.Errorf("%w: discount factor %d for %s is %s", ErrIntegrityViolation, i, freq, f)
			}
		}
	}
	return nil
}
