package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// PortfolioSummary represents the aggregated valuation of a portfolio on one base date
type PortfolioSummary struct {
	PortfolioID       int64
	BaseDate          time.Time
	Instruments       int
	LockedInstruments int
	BookValue         decimal.Decimal // Sum of quantity * average cost
	MarketValue       decimal.Decimal // Sum of quantity * current value
	UnrealizedPL      decimal.Decimal
}

// SummaryService handles portfolio summary operations
type SummaryService struct {
	EvaluationRepo domain.EvaluationRepository
}

// NewSummaryService creates a new SummaryService instance
func NewSummaryService(evaluationRepo domain.EvaluationRepository) *SummaryService {
	return &SummaryService{
		EvaluationRepo: evaluationRepo,
	}
}

// GetPortfolioSummary aggregates a portfolio's evaluation records on baseDate
// Logic:
//   - BookValue: Sum of quantity * book value over every instrument
//   - MarketValue: Sum of quantity * current value over every instrument
//   - UnrealizedPL: MarketValue - BookValue, truncated to the valuation scale
//
// A date without records yields ErrNotFound.
func (s *SummaryService) GetPortfolioSummary(ctx context.Context, portfolioID int64, baseDate time.Time) (*PortfolioSummary, error) {
	if portfolioID <= 0 {
		return nil, fmt.Errorf("%w: portfolio id must be positive", domain.ErrInvalidRange)
	}
	day := domain.NormalizeDate(baseDate)

	records, err := s.EvaluationRepo.FindByPortfolioAndDate(ctx, portfolioID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to find evaluations: %w", err)
	}
	result := &PortfolioSummary{
		PortfolioID: portfolioID,
		BaseDate:    day,
		BookValue:   decimal.Zero,
		MarketValue: decimal.Zero,
	}
	for _, r := range records {
		if r.State() == domain.StateAbsent {
			continue
		}
		result.Instruments++
		if r.State() == domain.StateLocked {
			result.LockedInstruments++
		}
		result.BookValue = result.BookValue.Add(r.Quantity.Mul(r.BookValue))
		result.MarketValue = result.MarketValue.Add(r.Quantity.Mul(r.CurrentValue))
	}
	if result.Instruments == 0 {
		return nil, fmt.Errorf("no evaluations for portfolio %d on %s: %w",
			portfolioID, day.Format(domain.DateLayout), domain.ErrNotFound)
	}
	result.UnrealizedPL = domain.UnrealizedPL(result.MarketValue, result.BookValue)

	return result, nil
}
