package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// discountFactorRepository implements domain.DiscountFactorRepository
type discountFactorRepository struct {
	db *DB
}

// NewDiscountFactorRepository creates a new discount factor repository
func NewDiscountFactorRepository(db *DB) domain.DiscountFactorRepository {
	return &discountFactorRepository{db: db}
}

// LoadCurve returns the discount factors of one frequency ordered by period.
// Periods must be contiguous from zero; a gap is an integrity violation.
func (r *discountFactorRepository) LoadCurve(ctx context.Context, freq domain.PaymentFrequency) ([]decimal.Decimal, error) {
	query := `
		SELECT period, factor
		FROM discount_factors
		WHERE frequency = $1
		ORDER BY period ASC
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, string(freq))
	if err != nil {
		return nil, fmt.Errorf("failed to query discount factors: %w", err)
	}
	defer rows.Close()

	var factors []decimal.Decimal
	for rows.Next() {
		var period int
		var factorStr string
		if err := rows.Scan(&period, &factorStr); err != nil {
			return nil, fmt.Errorf("failed to scan discount factor: %w", err)
		}
		if period != len(factors) {
			return nil, fmt.Errorf("%w: %s curve skips from period %d to %d",
				domain.ErrIntegrityViolation, freq, len(factors)-1, period)
		}

		factor, err := decimal.NewFromString(factorStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse factor: %w", err)
		}
		factors = append(factors, factor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating discount factors: %w", err)
	}

	return factors, nil
}
