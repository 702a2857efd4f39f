package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EvaluationState is the lifecycle state of a (portfolio, instrument, base date) valuation
type EvaluationState string

const (
	StateAbsent   EvaluationState = "ABSENT"
	StateUnlocked EvaluationState = "PRESENT_UNLOCKED"
	StateLocked   EvaluationState = "PRESENT_LOCKED"
)

// EvaluationKey uniquely identifies an evaluation within a portfolio
type EvaluationKey struct {
	InstrumentCode string
	BaseDate       time.Time
}

// NewEvaluationKey builds a key with the date normalized to a calendar day
func NewEvaluationKey(instrumentCode string, baseDate time.Time) EvaluationKey {
	return EvaluationKey{InstrumentCode: instrumentCode, BaseDate: NormalizeDate(baseDate)}
}

// EvaluationRecord represents one per-instrument valuation of a portfolio on a base date
type EvaluationRecord struct {
	ID                     uuid.UUID
	PortfolioID            int64
	InstrumentCode         string
	BaseDate               time.Time
	Quantity               decimal.Decimal // Quantity held after folding executions up to BaseDate
	BookValue              decimal.Decimal // Weighted-average unit cost
	CurrentValue           decimal.Decimal // Unit close price used for the valuation
	CurrentPL              decimal.Decimal
	LockOut                bool      // Valued against a stand-in price pending the real close
	EvaluationDateBaseDate time.Time // Date of the market data actually used
	UpdateUser             string
	UpdateTimestamp        time.Time
	Deleted                bool
}

// Key returns the record's uniqueness key within its portfolio
func (r *EvaluationRecord) Key() EvaluationKey {
	return NewEvaluationKey(r.InstrumentCode, r.BaseDate)
}

// State returns the tagged lifecycle state of the record.
// A nil or soft-deleted record is ABSENT.
func (r *EvaluationRecord) State() EvaluationState {
	if r == nil || r.Deleted {
		return StateAbsent
	}
	if r.LockOut {
		return StateLocked
	}
	return StateUnlocked
}

// Revise re-values a locked record against a market price and returns the new state.
//
// Transition table:
//   - ABSENT or PRESENT_UNLOCKED: untouched, the current state is returned
//   - PRESENT_LOCKED and price dated on BaseDate: PRESENT_UNLOCKED
//   - PRESENT_LOCKED and price dated elsewhere: stays PRESENT_LOCKED
func (r *EvaluationRecord) Revise(price PriceObservation, updater string, now time.Time) EvaluationState {
	if r.State() != StateLocked {
		return r.State()
	}

	priceDate := NormalizeDate(price.BaseDate)
	r.CurrentValue = price.ClosePrice
	r.CurrentPL = UnrealizedPL(price.ClosePrice, r.BookValue)
	r.UpdateUser = updater
	r.UpdateTimestamp = now
	r.EvaluationDateBaseDate = priceDate
	r.LockOut = !NormalizeDate(r.BaseDate).Equal(priceDate)

	return r.State()
}
