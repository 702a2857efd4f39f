package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

const evaluationColumns = `id, portfolio_id, instrument_code, base_date, quantity, book_value, current_value,
		current_pl, lock_out, evaluation_date_base_date, update_user, update_timestamp, deleted`

// evaluationRepository implements domain.EvaluationRepository
type evaluationRepository struct {
	db *DB
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *DB) domain.EvaluationRepository {
	return &evaluationRepository{db: db}
}

// ListBaseDates returns the distinct base dates present across all portfolios
func (r *evaluationRepository) ListBaseDates(ctx context.Context) ([]time.Time, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `SELECT DISTINCT base_date FROM evaluations ORDER BY base_date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query base dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan base date: %w", err)
		}
		dates = append(dates, domain.NormalizeDate(d))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating base dates: %w", err)
	}

	return dates, nil
}

// FindByPortfolioBetween retrieves a portfolio's records with after < base date < before
func (r *evaluationRepository) FindByPortfolioBetween(ctx context.Context, portfolioID int64, after, before time.Time) ([]domain.EvaluationRecord, error) {
	query := `
		SELECT ` + evaluationColumns + `
		FROM evaluations
		WHERE portfolio_id = $1 AND base_date > $2 AND base_date < $3
		ORDER BY base_date, instrument_code
	`
	return r.query(ctx, query, portfolioID, domain.NormalizeDate(after), domain.NormalizeDate(before))
}

// FindLockedByPortfolio retrieves a portfolio's locked, non-deleted records
func (r *evaluationRepository) FindLockedByPortfolio(ctx context.Context, portfolioID int64) ([]domain.EvaluationRecord, error) {
	query := `
		SELECT ` + evaluationColumns + `
		FROM evaluations
		WHERE portfolio_id = $1 AND lock_out AND NOT deleted
		ORDER BY base_date, instrument_code
		FOR UPDATE
	`
	return r.query(ctx, query, portfolioID)
}

// FindByPortfolioAndDate retrieves a portfolio's records on baseDate, soft-deleted rows included
func (r *evaluationRepository) FindByPortfolioAndDate(ctx context.Context, portfolioID int64, baseDate time.Time) ([]domain.EvaluationRecord, error) {
	query := `
		SELECT ` + evaluationColumns + `
		FROM evaluations
		WHERE portfolio_id = $1 AND base_date = $2
		ORDER BY instrument_code
	`
	return r.query(ctx, query, portfolioID, domain.NormalizeDate(baseDate))
}

// BulkInsert streams records into the table with COPY.
// A unique constraint conflict is reported as ErrIntegrityViolation.
func (r *evaluationRepository) BulkInsert(ctx context.Context, records []domain.EvaluationRecord) error {
	if len(records) == 0 {
		return nil
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("evaluations",
			"id", "portfolio_id", "instrument_code", "base_date", "quantity", "book_value", "current_value",
			"current_pl", "lock_out", "evaluation_date_base_date", "update_user", "update_timestamp", "deleted",
		))
		if err != nil {
			return fmt.Errorf("failed to prepare evaluation copy: %w", err)
		}
		defer stmt.Close()

		for _, e := range records {
			if _, err := stmt.ExecContext(ctx,
				e.ID.String(),
				e.PortfolioID,
				e.InstrumentCode,
				domain.NormalizeDate(e.BaseDate),
				e.Quantity.String(),
				e.BookValue.String(),
				e.CurrentValue.String(),
				e.CurrentPL.String(),
				e.LockOut,
				domain.NormalizeDate(e.EvaluationDateBaseDate),
				e.UpdateUser,
				e.UpdateTimestamp,
				e.Deleted,
			); err != nil {
				return fmt.Errorf("failed to copy evaluation: %w", mapError(err))
			}
		}

		// Flush the buffered rows; constraint violations surface here
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to insert evaluations: %w", mapError(err))
		}
		return nil
	})
}

// BulkUpdate updates the valuation columns of existing records
func (r *evaluationRepository) BulkUpdate(ctx context.Context, records []domain.EvaluationRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		UPDATE evaluations
		SET quantity = $2, book_value = $3, current_value = $4, current_pl = $5, lock_out = $6,
			evaluation_date_base_date = $7, update_user = $8, update_timestamp = $9, deleted = $10
		WHERE id = $1
	`

	return r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare evaluation update: %w", err)
		}
		defer stmt.Close()

		for _, e := range records {
			result, err := stmt.ExecContext(ctx,
				e.ID,
				e.Quantity.String(),
				e.BookValue.String(),
				e.CurrentValue.String(),
				e.CurrentPL.String(),
				e.LockOut,
				domain.NormalizeDate(e.EvaluationDateBaseDate),
				e.UpdateUser,
				e.UpdateTimestamp,
				e.Deleted,
			)
			if err != nil {
				return fmt.Errorf("failed to update evaluation %s: %w", e.ID, mapError(err))
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if affected == 0 {
				return fmt.Errorf("evaluation %s: %w", e.ID, domain.ErrNotFound)
			}
		}
		return nil
	})
}

// BulkDelete hard-deletes records by ID
func (r *evaluationRepository) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, id.String())
	}

	if _, err := r.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM evaluations WHERE id = ANY($1::uuid[])`, pq.Array(values)); err != nil {
		return fmt.Errorf("failed to delete evaluations: %w", err)
	}
	return nil
}

// withTx runs fn in the transaction carried by ctx, or in a new one
func (r *evaluationRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(tx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *evaluationRepository) query(ctx context.Context, query string, args ...any) ([]domain.EvaluationRecord, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var records []domain.EvaluationRecord
	for rows.Next() {
		var e domain.EvaluationRecord
		var quantityStr, bookStr, currentStr, plStr string

		if err := rows.Scan(
			&e.ID,
			&e.PortfolioID,
			&e.InstrumentCode,
			&e.BaseDate,
			&quantityStr,
			&bookStr,
			&currentStr,
			&plStr,
			&e.LockOut,
			&e.EvaluationDateBaseDate,
			&e.UpdateUser,
			&e.UpdateTimestamp,
			&e.Deleted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}

		values := make([]decimal.Decimal, 4)
		for i, s := range []string{quantityStr, bookStr, currentStr, plStr} {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("failed to parse evaluation amount %q: %w", s, err)
			}
			values[i] = d
		}
		e.Quantity, e.BookValue, e.CurrentValue, e.CurrentPL = values[0], values[1], values[2], values[3]
		e.BaseDate = domain.NormalizeDate(e.BaseDate)
		e.EvaluationDateBaseDate = domain.NormalizeDate(e.EvaluationDateBaseDate)
		records = append(records, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluations: %w", err)
	}

	return records, nil
}
