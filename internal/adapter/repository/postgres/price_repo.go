package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// priceRepository implements domain.PriceRepository
type priceRepository struct {
	db *DB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *DB) domain.PriceRepository {
	return &priceRepository{db: db}
}

// FindByInstrumentCodes retrieves non-deleted prices for the given instruments within [start, end]
func (r *priceRepository) FindByInstrumentCodes(ctx context.Context, codes []string, start, end time.Time) ([]domain.PriceObservation, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	query := `
		SELECT instrument_code, base_date, close_price, deleted
		FROM prices
		WHERE instrument_code = ANY($1) AND base_date BETWEEN $2 AND $3 AND NOT deleted
		ORDER BY instrument_code, base_date
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query,
		pq.Array(codes), domain.NormalizeDate(start), domain.NormalizeDate(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	return scanPrices(rows)
}

// FindByBaseDates retrieves non-deleted prices of every instrument on the given dates
func (r *priceRepository) FindByBaseDates(ctx context.Context, dates []time.Time) ([]domain.PriceObservation, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	days := make([]string, 0, len(dates))
	for _, d := range dates {
		days = append(days, d.Format(domain.DateLayout))
	}

	query := `
		SELECT instrument_code, base_date, close_price, deleted
		FROM prices
		WHERE base_date = ANY($1::date[]) AND NOT deleted
		ORDER BY base_date, instrument_code
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, pq.Array(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices by base date: %w", err)
	}
	defer rows.Close()

	return scanPrices(rows)
}

func scanPrices(rows *sql.Rows) ([]domain.PriceObservation, error) {
	var prices []domain.PriceObservation
	for rows.Next() {
		var p domain.PriceObservation
		var closeStr string

		if err := rows.Scan(&p.InstrumentCode, &p.BaseDate, &closeStr, &p.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}

		closePrice, err := decimal.NewFromString(closeStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse close_price: %w", err)
		}
		p.ClosePrice = closePrice
		p.BaseDate = domain.NormalizeDate(p.BaseDate)
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return prices, nil
}
