package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// executionRepository implements domain.ExecutionRepository
type executionRepository struct {
	db *DB
}

// NewExecutionRepository creates a new execution repository
func NewExecutionRepository(db *DB) domain.ExecutionRepository {
	return &executionRepository{db: db}
}

// FindByPortfolioUpTo retrieves a portfolio's executions dated on or before endDate
func (r *executionRepository) FindByPortfolioUpTo(ctx context.Context, portfolioID int64, endDate time.Time) ([]domain.Execution, error) {
	query := `
		SELECT id, portfolio_id, instrument_code, execution_date, side, quantity, price, currency
		FROM executions
		WHERE portfolio_id = $1 AND execution_date <= $2
		ORDER BY execution_date ASC, id ASC
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, portfolioID, domain.NormalizeDate(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		var e domain.Execution
		var side, quantityStr, priceStr string

		if err := rows.Scan(
			&e.ID,
			&e.PortfolioID,
			&e.InstrumentCode,
			&e.ExecutionDate,
			&side,
			&quantityStr,
			&priceStr,
			&e.Currency,
		); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		quantity, err := decimal.NewFromString(quantityStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse quantity: %w", err)
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price: %w", err)
		}

		e.ExecutionDate = domain.NormalizeDate(e.ExecutionDate)
		e.Side = domain.Side(side)
		e.Quantity = quantity
		e.Price = price
		executions = append(executions, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}
