package pricingobs

import (
	"context"

	"github.com/simaogato/wealthflow-calculator/internal/domain"
	"github.com/simaogato/wealthflow-calculator/internal/trace"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/pricing"
	"go.opentelemetry.io/otel/attribute"
)

// observablePricer wraps a Pricer with tracing
type observablePricer struct {
	pricer pricing.Pricer
}

// Compile-time interface check
var _ pricing.Pricer = (*observablePricer)(nil)

// Wrap wraps a pricer with observability middleware
func Wrap(pricer pricing.Pricer) pricing.Pricer {
	return &observablePricer{pricer: pricer}
}

// PriceBond prices a bond with observability
func (o *observablePricer) PriceBond(ctx context.Context, bond domain.BondTerms) (*pricing.BondValuation, error) {
	ctx, span := trace.StartSpan(ctx, "pricing.PriceBond",
		attribute.String("bond", bond.Code),
		attribute.String("frequency", string(bond.Frequency)),
		attribute.String("maturity", bond.CurrentMaturity.String()),
	)
	defer span.End()

	valuation, err := o.pricer.PriceBond(ctx, bond)
	if err != nil {
		trace.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("theoretical_price", valuation.TheoreticalPrice.String()),
		attribute.Bool("insufficient_data", valuation.InsufficientData),
	)
	return valuation, nil
}
