package pricing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// BondValuation is the result of pricing one bond
type BondValuation struct {
	Code             string
	TheoreticalPrice decimal.Decimal
	PositionValue    decimal.Decimal // TheoreticalPrice * CurrentUnits
	InsufficientData bool
}

// Pricer prices bonds against the current discount-factor curve
type Pricer interface {
	PriceBond(ctx context.Context, bond domain.BondTerms) (*BondValuation, error)
}

// PricingService handles bond pricing
type PricingService struct {
	DiscountFactorRepo domain.DiscountFactorRepository
	log                zerolog.Logger
}

var _ Pricer = (*PricingService)(nil)

// NewPricingService creates a new PricingService instance
func NewPricingService(discountFactorRepo domain.DiscountFactorRepository, log zerolog.Logger) *PricingService {
	return &PricingService{
		DiscountFactorRepo: discountFactorRepo,
		log:                log.With().Str("service", "pricing").Logger(),
	}
}

// PriceBond loads the curve for the bond's payment frequency and prices the bond.
// Insufficient curve depth yields a zero price, not an error.
// A curve with a non-positive factor is an integrity violation.
func (s *PricingService) PriceBond(ctx context.Context, bond domain.BondTerms) (*BondValuation, error) {
	if err := bond.Validate(); err != nil {
		return nil, err
	}

	factors, err := s.DiscountFactorRepo.LoadCurve(ctx, bond.Frequency)
	if err != nil {
		return nil, fmt.Errorf("failed to load discount factors for %s: %w", bond.Frequency, err)
	}

	curve := domain.NewDiscountFactorCurve(map[domain.PaymentFrequency][]decimal.Decimal{
		bond.Frequency: factors,
	})
	if err := curve.Validate(); err != nil {
		return nil, err
	}

	price, ok := TheoreticalPrice(bond, curve)
	if !ok {
		s.log.Info().
			Str("bond", bond.Code).
			Str("frequency", string(bond.Frequency)).
			Str("maturity", bond.CurrentMaturity.String()).
			Int("available_factors", len(factors)).
			Msg("Discount Factor data is not sufficient")
	}

	return &BondValuation{
		Code:             bond.Code,
		TheoreticalPrice: price,
		PositionValue:    price.Mul(bond.CurrentUnits),
		InsufficientData: !ok,
	}, nil
}
