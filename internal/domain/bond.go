package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentFrequency represents how often a bond pays its coupon
type PaymentFrequency string

const (
	FrequencyAnnual     PaymentFrequency = "ANNUAL"
	FrequencySemiAnnual PaymentFrequency = "SEMI_ANNUAL"
)

// Step returns the fraction of a year covered by one coupon period.
// Unknown frequencies return zero.
func (f PaymentFrequency) Step() decimal.Decimal {
	switch f {
	case FrequencyAnnual:
		return decimal.NewFromInt(1)
	case FrequencySemiAnnual:
		return decimal.NewFromFloat(0.5)
	default:
		return decimal.Zero
	}
}

// PeriodsPerYear returns the number of coupon periods in one year (1/step)
func (f PaymentFrequency) PeriodsPerYear() int64 {
	switch f {
	case FrequencyAnnual:
		return 1
	case FrequencySemiAnnual:
		return 2
	default:
		return 0
	}
}

// ParsePaymentFrequency parses a frequency name case-insensitively
func ParsePaymentFrequency(s string) (PaymentFrequency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ANNUAL":
		return FrequencyAnnual, nil
	case "SEMI_ANNUAL", "SEMIANNUAL":
		return FrequencySemiAnnual, nil
	default:
		return "", fmt.Errorf("%w: unknown payment frequency %q", ErrInvalidBondTerms, s)
	}
}

// BondTerms is the instrument definition used for theoretical pricing
type BondTerms struct {
	Code            string
	Unit            decimal.Decimal // Face value per unit
	CouponRate      decimal.Decimal
	CurrentMaturity decimal.Decimal // Remaining maturity in years
	Frequency       PaymentFrequency
	TermEndPayment  bool
	CurrentUnits    decimal.Decimal
}

// Validate ensures the bond terms can be priced
func (b *BondTerms) Validate() error {
	if b.Frequency.Step().IsZero() {
		return fmt.Errorf("%w: unknown payment frequency %q", ErrInvalidBondTerms, b.Frequency)
	}

	if b.Unit.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: unit face value must be positive", ErrInvalidBondTerms)
	}

	if b.CouponRate.IsNegative() {
		return fmt.Errorf("%w: coupon rate cannot be negative", ErrInvalidBondTerms)
	}

	if b.CurrentMaturity.IsNegative() {
		return fmt.Errorf("%w: current maturity cannot be negative", ErrInvalidBondTerms)
	}

	if b.CurrentUnits.IsNegative() {
		return fmt.Errorf("%w: current units cannot be negative", ErrInvalidBondTerms)
	}

	return nil
}

// RequiredFactors returns the number of discount factors the pricing needs:
// ceil(maturity / step) + 1
func (b *BondTerms) RequiredFactors() int {
	step := b.Frequency.Step()
	if step.IsZero() {
		return 0
	}
	return int(b.CurrentMaturity.Div(step).Ceil().IntPart()) + 1
}
