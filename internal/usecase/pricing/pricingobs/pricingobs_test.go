package pricingobs

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPricer struct {
	valuation *pricing.BondValuation
	err       error
	seen      []string
}

func (s *stubPricer) PriceBond(ctx context.Context, bond domain.BondTerms) (*pricing.BondValuation, error) {
	s.seen = append(s.seen, bond.Code)
	return s.valuation, s.err
}

func TestWrap_Delegates(t *testing.T) {
	inner := &stubPricer{valuation: &pricing.BondValuation{Code: "JGB-3Y", TheoreticalPrice: decimal.RequireFromString("102.88")}}
	wrapped := Wrap(inner)

	valuation, err := wrapped.PriceBond(context.Background(), domain.BondTerms{Code: "JGB-3Y", Frequency: domain.FrequencyAnnual})

	require.NoError(t, err)
	assert.Equal(t, "102.88", valuation.TheoreticalPrice.String())
	assert.Equal(t, []string{"JGB-3Y"}, inner.seen)
}

func TestWrap_PassesErrorsThrough(t *testing.T) {
	wrapped := Wrap(&stubPricer{err: domain.ErrInvalidBondTerms})

	valuation, err := wrapped.PriceBond(context.Background(), domain.BondTerms{})

	assert.Nil(t, valuation)
	assert.True(t, errors.Is(err, domain.ErrInvalidBondTerms))
}
