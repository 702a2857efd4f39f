package valuation

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// UnitPriceCalculator values one instrument on a set of target dates
type UnitPriceCalculator interface {
	InstrumentCode() string
	Calculate() ([]domain.EvaluationRecord, error)
}

// Input carries everything one instrument's calculation needs.
// Nothing in it is shared with another instrument.
type Input struct {
	PortfolioID    int64
	InstrumentCode string
	Executions     []domain.Execution
	Prices         []domain.PriceObservation
	TargetDays     []time.Time
	Updater        string
	Now            time.Time
}

// MovingAverageCalculator values an instrument with the moving-average cost method
type MovingAverageCalculator struct {
	input Input
	log   zerolog.Logger
}

// NewMovingAverageCalculator creates a calculator over a private copy of the input slices
func NewMovingAverageCalculator(input Input, log zerolog.Logger) *MovingAverageCalculator {
	input.Executions = append([]domain.Execution(nil), input.Executions...)
	input.Prices = append([]domain.PriceObservation(nil), input.Prices...)
	input.TargetDays = append([]time.Time(nil), input.TargetDays...)

	return &MovingAverageCalculator{
		input: input,
		log:   log.With().Str("instrument", input.InstrumentCode).Logger(),
	}
}

// InstrumentCode returns the instrument this calculator values
func (c *MovingAverageCalculator) InstrumentCode() string {
	return c.input.InstrumentCode
}

// position is the running state folded from executions
type position struct {
	quantity    decimal.Decimal
	averageCost decimal.Decimal
}

// apply folds one execution into the position.
// Buys move the weighted-average cost, sells only reduce quantity.
func (p position) apply(e domain.Execution) position {
	switch e.Side {
	case domain.SideBuy:
		if !p.quantity.IsPositive() {
			// Opening (or re-opening) a position starts a fresh average
			return position{
				quantity:    p.quantity.Add(e.Quantity),
				averageCost: e.Price,
			}
		}
		newQuantity := p.quantity.Add(e.Quantity)
		numerator := p.quantity.Mul(p.averageCost).Add(e.Quantity.Mul(e.Price))
		return position{
			quantity:    newQuantity,
			averageCost: domain.AverageCostRounding.Div(numerator, newQuantity),
		}
	case domain.SideSell:
		return position{
			quantity:    p.quantity.Sub(e.Quantity),
			averageCost: p.averageCost,
		}
	default:
		return p
	}
}

// Calculate emits one record per target date that has a price, in ascending date order.
// Dates without a price, or before the instrument's first execution, are skipped.
func (c *MovingAverageCalculator) Calculate() ([]domain.EvaluationRecord, error) {
	code := c.input.InstrumentCode

	executions := c.input.Executions
	for _, e := range executions {
		if e.InstrumentCode != code {
			return nil, fmt.Errorf("%w: execution %s belongs to instrument %s, not %s",
				domain.ErrIntegrityViolation, e.ID, e.InstrumentCode, code)
		}
		if e.Side != domain.SideBuy && e.Side != domain.SideSell {
			return nil, fmt.Errorf("%w: execution %s has unknown side %q",
				domain.ErrIntegrityViolation, e.ID, e.Side)
		}
	}
	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].ExecutionDate.Before(executions[j].ExecutionDate)
	})

	priceByDate := make(map[time.Time]domain.PriceObservation, len(c.input.Prices))
	for _, p := range c.input.Prices {
		if p.InstrumentCode != code {
			return nil, fmt.Errorf("%w: price for instrument %s handed to calculator for %s",
				domain.ErrIntegrityViolation, p.InstrumentCode, code)
		}
		if p.Deleted {
			continue
		}
		priceByDate[domain.NormalizeDate(p.BaseDate)] = p
	}

	targetDays := domain.NewBusinessDays(c.input.TargetDays...).Sorted()

	records := make([]domain.EvaluationRecord, 0, len(targetDays))
	var pos position
	next := 0
	for _, day := range targetDays {
		for next < len(executions) && !domain.NormalizeDate(executions[next].ExecutionDate).After(day) {
			pos = pos.apply(executions[next])
			next++
		}
		if next == 0 {
			// Nothing held yet
			continue
		}

		price, ok := priceByDate[day]
		if !ok {
			c.log.Warn().
				Str("base_date", day.Format(domain.DateLayout)).
				Msg("No price for base date, skipping evaluation")
			continue
		}

		records = append(records, domain.EvaluationRecord{
			ID:                     uuid.New(),
			PortfolioID:            c.input.PortfolioID,
			InstrumentCode:         code,
			BaseDate:               day,
			Quantity:               pos.quantity,
			BookValue:              pos.averageCost,
			CurrentValue:           price.ClosePrice,
			CurrentPL:              domain.UnrealizedPL(price.ClosePrice, pos.averageCost),
			LockOut:                false,
			EvaluationDateBaseDate: domain.NormalizeDate(price.BaseDate),
			UpdateUser:             c.input.Updater,
			UpdateTimestamp:        c.input.Now,
		})
	}

	return records, nil
}
