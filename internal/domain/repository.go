package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarketCode identifies the market whose business calendar applies
type MarketCode string

const MarketJP MarketCode = "JP"

// Calendar yields business days for a market
type Calendar interface {
	// BusinessDays returns the business days in [start, end], ascending
	BusinessDays(ctx context.Context, market MarketCode, start, end time.Time) ([]time.Time, error)
}

// ExecutionRepository defines the interface for execution read operations
type ExecutionRepository interface {
	// FindByPortfolioUpTo retrieves a portfolio's executions dated on or before endDate,
	// ordered by execution date
	FindByPortfolioUpTo(ctx context.Context, portfolioID int64, endDate time.Time) ([]Execution, error)
}

// PriceRepository defines the interface for price series read operations.
// Soft-deleted observations are never returned.
type PriceRepository interface {
	// FindByInstrumentCodes retrieves prices for the given instruments within [start, end]
	FindByInstrumentCodes(ctx context.Context, codes []string, start, end time.Time) ([]PriceObservation, error)

	// FindByBaseDates retrieves prices of every instrument on the given dates
	FindByBaseDates(ctx context.Context, dates []time.Time) ([]PriceObservation, error)
}

// EvaluationRepository defines the interface for evaluation record persistence operations
type EvaluationRepository interface {
	// ListBaseDates returns the distinct base dates present in the store, across all portfolios
	ListBaseDates(ctx context.Context) ([]time.Time, error)

	// FindByPortfolioBetween retrieves a portfolio's records with after < base date < before
	FindByPortfolioBetween(ctx context.Context, portfolioID int64, after, before time.Time) ([]EvaluationRecord, error)

	// FindLockedByPortfolio retrieves a portfolio's records with lockOut set and not deleted
	FindLockedByPortfolio(ctx context.Context, portfolioID int64) ([]EvaluationRecord, error)

	// FindByPortfolioAndDate retrieves a portfolio's records on one base date, soft-deleted rows included
	FindByPortfolioAndDate(ctx context.Context, portfolioID int64, baseDate time.Time) ([]EvaluationRecord, error)

	// BulkInsert creates new records.
	// A uniqueness conflict is reported as ErrIntegrityViolation.
	BulkInsert(ctx context.Context, records []EvaluationRecord) error

	// BulkUpdate updates pre-existing records in place
	BulkUpdate(ctx context.Context, records []EvaluationRecord) error

	// BulkDelete hard-deletes records by ID
	BulkDelete(ctx context.Context, ids []uuid.UUID) error
}

// DiscountFactorRepository defines the interface for discount factor curve loading
type DiscountFactorRepository interface {
	// LoadCurve returns the ordered discount factors for a payment frequency
	LoadCurve(ctx context.Context, freq PaymentFrequency) ([]decimal.Decimal, error)
}

// Transactor runs a unit of work atomically.
// Repositories called with the ctx handed to fn take part in the same transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
