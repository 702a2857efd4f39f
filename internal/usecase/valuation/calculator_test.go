package valuation

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day1 = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	day3 = time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)
	now  = time.Date(2024, 4, 4, 18, 0, 0, 0, time.UTC)
)

func execution(code string, on time.Time, side domain.Side, qty, price int64) domain.Execution {
	return domain.Execution{
		ID:             uuid.New(),
		PortfolioID:    1,
		InstrumentCode: code,
		ExecutionDate:  on,
		Side:           side,
		Quantity:       decimal.NewFromInt(qty),
		Price:          decimal.NewFromInt(price),
		Currency:       "JPY",
	}
}

func price(code string, on time.Time, close string) domain.PriceObservation {
	return domain.PriceObservation{
		InstrumentCode: code,
		BaseDate:       on,
		ClosePrice:     decimal.RequireFromString(close),
	}
}

func calculate(t *testing.T, input Input) []domain.EvaluationRecord {
	t.Helper()
	records, err := NewMovingAverageCalculator(input, zerolog.Nop()).Calculate()
	require.NoError(t, err)
	return records
}

func TestCalculate_WeightedAverageCost(t *testing.T) {
	records := calculate(t, Input{
		PortfolioID:    1,
		InstrumentCode: "7203",
		Executions: []domain.Execution{
			execution("7203", day1, domain.SideBuy, 10, 100),
			execution("7203", day1, domain.SideBuy, 10, 200),
		},
		Prices:     []domain.PriceObservation{price("7203", day1, "180")},
		TargetDays: []time.Time{day1},
		Updater:    "test",
		Now:        now,
	})

	require.Len(t, records, 1)
	assert.True(t, records[0].BookValue.Equal(decimal.NewFromInt(150)), "got %s", records[0].BookValue)
	assert.True(t, records[0].Quantity.Equal(decimal.NewFromInt(20)))
	assert.True(t, records[0].CurrentValue.Equal(decimal.NewFromInt(180)))
	assert.True(t, records[0].CurrentPL.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, day1, records[0].EvaluationDateBaseDate)
	assert.False(t, records[0].LockOut)
	assert.Equal(t, "test", records[0].UpdateUser)
	assert.Equal(t, now, records[0].UpdateTimestamp)
}

func TestCalculate_AverageIndependentOfBatchBoundaries(t *testing.T) {
	executions := []domain.Execution{
		execution("7203", day1, domain.SideBuy, 10, 100),
		execution("7203", day2, domain.SideBuy, 10, 200),
	}
	prices := []domain.PriceObservation{price("7203", day1, "100"), price("7203", day2, "200"), price("7203", day3, "210")}

	// One batch over every day versus a batch over the last day only
	full := calculate(t, Input{InstrumentCode: "7203", Executions: executions, Prices: prices, TargetDays: []time.Time{day1, day2, day3}})
	tail := calculate(t, Input{InstrumentCode: "7203", Executions: executions, Prices: prices, TargetDays: []time.Time{day3}})

	require.Len(t, full, 3)
	require.Len(t, tail, 1)
	assert.True(t, full[0].BookValue.Equal(decimal.NewFromInt(100)))
	assert.True(t, full[2].BookValue.Equal(decimal.NewFromInt(150)))
	assert.True(t, tail[0].BookValue.Equal(full[2].BookValue))
}

func TestCalculate_SellKeepsAverageCost(t *testing.T) {
	records := calculate(t, Input{
		InstrumentCode: "7203",
		Executions: []domain.Execution{
			execution("7203", day1, domain.SideBuy, 10, 100),
			execution("7203", day1, domain.SideBuy, 10, 200),
			execution("7203", day2, domain.SideSell, 15, 300),
		},
		Prices:     []domain.PriceObservation{price("7203", day2, "250")},
		TargetDays: []time.Time{day2},
	})

	require.Len(t, records, 1)
	assert.True(t, records[0].Quantity.Equal(decimal.NewFromInt(5)))
	assert.True(t, records[0].BookValue.Equal(decimal.NewFromInt(150)))
	assert.True(t, records[0].CurrentPL.Equal(decimal.NewFromInt(100)))
}

func TestCalculate_ReopenedPositionStartsFreshAverage(t *testing.T) {
	records := calculate(t, Input{
		InstrumentCode: "7203",
		Executions: []domain.Execution{
			execution("7203", day1, domain.SideBuy, 10, 100),
			execution("7203", day1, domain.SideSell, 10, 120),
			execution("7203", day2, domain.SideBuy, 5, 300),
		},
		Prices:     []domain.PriceObservation{price("7203", day2, "300")},
		TargetDays: []time.Time{day2},
	})

	require.Len(t, records, 1)
	assert.True(t, records[0].BookValue.Equal(decimal.NewFromInt(300)))
}

func TestCalculate_SkipsDatesWithoutPrice(t *testing.T) {
	records := calculate(t, Input{
		InstrumentCode: "7203",
		Executions:     []domain.Execution{execution("7203", day1, domain.SideBuy, 10, 100)},
		Prices: []domain.PriceObservation{
			price("7203", day1, "101"),
			{InstrumentCode: "7203", BaseDate: day2, ClosePrice: decimal.NewFromInt(999), Deleted: true},
			price("7203", day3, "103"),
		},
		// Unordered and duplicated target days still produce ascending output
		TargetDays: []time.Time{day3, day2, day1, day3},
	})

	require.Len(t, records, 2)
	assert.Equal(t, day1, records[0].BaseDate)
	assert.Equal(t, day3, records[1].BaseDate)
}

func TestCalculate_AtMostOneRecordPerTargetDay(t *testing.T) {
	targetDays := []time.Time{day1, day2, day3}
	records := calculate(t, Input{
		InstrumentCode: "7203",
		Executions:     []domain.Execution{execution("7203", day1, domain.SideBuy, 1, 100)},
		Prices:         []domain.PriceObservation{price("7203", day1, "1"), price("7203", day2, "2"), price("7203", day3, "3")},
		TargetDays:     targetDays,
	})

	assert.LessOrEqual(t, len(records), len(targetDays))
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].BaseDate.Before(records[i].BaseDate))
	}
}

func TestCalculate_ExecutionsAfterTargetDayAreNotFolded(t *testing.T) {
	records := calculate(t, Input{
		InstrumentCode: "7203",
		Executions: []domain.Execution{
			execution("7203", day3, domain.SideBuy, 10, 500),
			execution("7203", day1, domain.SideBuy, 10, 100),
		},
		Prices:     []domain.PriceObservation{price("7203", day2, "120")},
		TargetDays: []time.Time{day2},
	})

	require.Len(t, records, 1)
	assert.True(t, records[0].BookValue.Equal(decimal.NewFromInt(100)))
	assert.True(t, records[0].Quantity.Equal(decimal.NewFromInt(10)))
}

func TestCalculate_SkipsDaysBeforeFirstExecution(t *testing.T) {
	records := calculate(t, Input{
		InstrumentCode: "7203",
		Executions:     []domain.Execution{execution("7203", day2, domain.SideBuy, 10, 100)},
		Prices:         []domain.PriceObservation{price("7203", day1, "99"), price("7203", day2, "101")},
		TargetDays:     []time.Time{day1, day2},
	})

	require.Len(t, records, 1)
	assert.Equal(t, day2, records[0].BaseDate)
}

func TestCalculate_KeepsClosedPosition(t *testing.T) {
	records := calculate(t, Input{
		InstrumentCode: "7203",
		Executions: []domain.Execution{
			execution("7203", day1, domain.SideBuy, 10, 100),
			execution("7203", day2, domain.SideSell, 10, 120),
		},
		Prices:     []domain.PriceObservation{price("7203", day3, "130")},
		TargetDays: []time.Time{day3},
	})

	require.Len(t, records, 1)
	assert.True(t, records[0].Quantity.IsZero())
	assert.True(t, records[0].BookValue.Equal(decimal.NewFromInt(100)))
}

func TestCalculate_RejectsUnknownSide(t *testing.T) {
	_, err := NewMovingAverageCalculator(Input{
		InstrumentCode: "7203",
		Executions:     []domain.Execution{execution("7203", day1, domain.Side("HOLD"), 1, 100)},
		Prices:         []domain.PriceObservation{price("7203", day1, "100")},
		TargetDays:     []time.Time{day1},
	}, zerolog.Nop()).Calculate()

	assert.True(t, errors.Is(err, domain.ErrIntegrityViolation))
}

func TestCalculate_PLTruncatedToScale(t *testing.T) {
	records := calculate(t, Input{
		InstrumentCode: "7203",
		Executions: []domain.Execution{
			{
				ID: uuid.New(), InstrumentCode: "7203", ExecutionDate: day1, Side: domain.SideBuy,
				Quantity: decimal.NewFromInt(1), Price: decimal.RequireFromString("100.12345678905"), Currency: "JPY",
			},
		},
		Prices:     []domain.PriceObservation{price("7203", day1, "101")},
		TargetDays: []time.Time{day1},
	})

	require.Len(t, records, 1)
	assert.Equal(t, "0.8765432109", records[0].CurrentPL.String())
}

func TestCalculate_RejectsForeignInstrumentData(t *testing.T) {
	_, err := NewMovingAverageCalculator(Input{
		InstrumentCode: "7203",
		Executions:     []domain.Execution{execution("6758", day1, domain.SideBuy, 1, 100)},
		TargetDays:     []time.Time{day1},
	}, zerolog.Nop()).Calculate()
	assert.True(t, errors.Is(err, domain.ErrIntegrityViolation))

	_, err = NewMovingAverageCalculator(Input{
		InstrumentCode: "7203",
		Prices:         []domain.PriceObservation{price("6758", day1, "1")},
		TargetDays:     []time.Time{day1},
	}, zerolog.Nop()).Calculate()
	assert.True(t, errors.Is(err, domain.ErrIntegrityViolation))
}

func TestNewMovingAverageCalculator_CopiesInput(t *testing.T) {
	executions := []domain.Execution{execution("7203", day1, domain.SideBuy, 10, 100)}
	calc := NewMovingAverageCalculator(Input{
		InstrumentCode: "7203",
		Executions:     executions,
		Prices:         []domain.PriceObservation{price("7203", day1, "100")},
		TargetDays:     []time.Time{day1},
	}, zerolog.Nop())

	executions[0].Price = decimal.NewFromInt(1)

	records, err := calc.Calculate()
	require.NoError(t, err)
	assert.Equal(t, "7203", calc.InstrumentCode())
	assert.True(t, records[0].BookValue.Equal(decimal.NewFromInt(100)))
}
