package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side represents the direction of a trade fill
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Execution represents one trade fill in a portfolio.
// Executions are append-only and are the only source of truth for cost basis.
type Execution struct {
	ID             uuid.UUID
	PortfolioID    int64
	InstrumentCode string
	ExecutionDate  time.Time
	Side           Side
	Quantity       decimal.Decimal // Always positive, Side carries the direction
	Price          decimal.Decimal
	Currency       string // ISO-4217 code
}

// Validate ensures the execution adheres to domain rules
func (e *Execution) Validate() error {
	if strings.TrimSpace(e.InstrumentCode) == "" {
		return errors.New("execution instrument code cannot be empty")
	}

	if e.ExecutionDate.IsZero() {
		return errors.New("execution date is required")
	}

	if e.Side != SideBuy && e.Side != SideSell {
		return errors.New("execution side must be BUY or SELL")
	}

	if e.Quantity.LessThanOrEqual(decimal.Zero) {
		return errors.New("execution quantity must be positive")
	}

	if e.Price.IsNegative() {
		return errors.New("execution price cannot be negative")
	}

	if money.GetCurrency(strings.ToUpper(e.Currency)) == nil {
		return errors.New("execution currency must be a known ISO-4217 code")
	}

	return nil
}

// GroupExecutionsByInstrument partitions executions by instrument code, keeping input order
func GroupExecutionsByInstrument(executions []Execution) map[string][]Execution {
	grouped := make(map[string][]Execution)
	for _, e := range executions {
		grouped[e.InstrumentCode] = append(grouped[e.InstrumentCode], e)
	}
	return grouped
}

// PriceObservation is one instrument's closing price on one business day
type PriceObservation struct {
	InstrumentCode string
	BaseDate       time.Time
	ClosePrice     decimal.Decimal
	Deleted        bool
}

// GroupPricesByInstrument partitions prices by instrument code, dropping soft-deleted rows
func GroupPricesByInstrument(prices []PriceObservation) map[string][]PriceObservation {
	grouped := make(map[string][]PriceObservation)
	for _, p := range prices {
		if p.Deleted {
			continue
		}
		grouped[p.InstrumentCode] = append(grouped[p.InstrumentCode], p)
	}
	return grouped
}
