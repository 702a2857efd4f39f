package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

type uniqueKey struct {
	portfolioID int64
	key         domain.EvaluationKey
}

// Store keeps executions, prices, evaluations and discount curves in process memory.
// It implements every repository port plus Transactor. Transactions are serialized
// and roll back evaluation writes when fn fails.
type Store struct {
	txMu sync.Mutex

	mu          sync.RWMutex
	executions  []domain.Execution
	prices      []domain.PriceObservation
	evaluations map[uuid.UUID]domain.EvaluationRecord
	curves      map[domain.PaymentFrequency][]decimal.Decimal
}

var (
	_ domain.ExecutionRepository      = (*Store)(nil)
	_ domain.PriceRepository          = (*Store)(nil)
	_ domain.EvaluationRepository     = (*Store)(nil)
	_ domain.DiscountFactorRepository = (*Store)(nil)
	_ domain.Transactor               = (*Store)(nil)
)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		evaluations: make(map[uuid.UUID]domain.EvaluationRecord),
		curves:      make(map[domain.PaymentFrequency][]decimal.Decimal),
	}
}

// AddExecutions appends executions
func (s *Store) AddExecutions(executions ...domain.Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions = append(s.executions, executions...)
}

// AddPrices appends price observations
func (s *Store) AddPrices(prices ...domain.PriceObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = append(s.prices, prices...)
}

// SetCurve replaces the discount factors of one frequency
func (s *Store) SetCurve(freq domain.PaymentFrequency, factors []decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curves[freq] = append([]decimal.Decimal(nil), factors...)
}

// Evaluations returns every stored record ordered by portfolio, base date and instrument
func (s *Store) Evaluations() []domain.EvaluationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.EvaluationRecord, 0, len(s.evaluations))
	for _, r := range s.evaluations {
		out = append(out, r)
	}
	sortRecords(out)
	return out
}

// WithinTransaction runs fn with exclusive access and restores evaluations if fn fails
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := make(map[uuid.UUID]domain.EvaluationRecord, len(s.evaluations))
	for id, r := range s.evaluations {
		snapshot[id] = r
	}
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.evaluations = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// FindByPortfolioUpTo retrieves a portfolio's executions dated on or before endDate
func (s *Store) FindByPortfolioUpTo(ctx context.Context, portfolioID int64, endDate time.Time) ([]domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	end := domain.NormalizeDate(endDate)

	var out []domain.Execution
	for _, e := range s.executions {
		if e.PortfolioID == portfolioID && !domain.NormalizeDate(e.ExecutionDate).After(end) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExecutionDate.Before(out[j].ExecutionDate)
	})
	return out, nil
}

// FindByInstrumentCodes retrieves non-deleted prices for codes within [start, end]
func (s *Store) FindByInstrumentCodes(ctx context.Context, codes []string, start, end time.Time) ([]domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		wanted[c] = struct{}{}
	}
	start, end = domain.NormalizeDate(start), domain.NormalizeDate(end)

	var out []domain.PriceObservation
	for _, p := range s.prices {
		d := domain.NormalizeDate(p.BaseDate)
		if _, ok := wanted[p.InstrumentCode]; !ok || p.Deleted || d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// FindByBaseDates retrieves non-deleted prices of every instrument on dates
func (s *Store) FindByBaseDates(ctx context.Context, dates []time.Time) ([]domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := domain.NewBusinessDays(dates...)

	var out []domain.PriceObservation
	for _, p := range s.prices {
		if !p.Deleted && wanted.Contains(p.BaseDate) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListBaseDates returns the distinct base dates present across all portfolios
func (s *Store) ListBaseDates(ctx context.Context) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dates := make([]time.Time, 0, len(s.evaluations))
	for _, r := range s.evaluations {
		dates = append(dates, r.BaseDate)
	}
	return domain.NewBusinessDays(dates...).Sorted(), nil
}

// FindByPortfolioBetween retrieves a portfolio's records with after < base date < before
func (s *Store) FindByPortfolioBetween(ctx context.Context, portfolioID int64, after, before time.Time) ([]domain.EvaluationRecord, error) {
	after, before = domain.NormalizeDate(after), domain.NormalizeDate(before)
	return s.filter(func(r domain.EvaluationRecord) bool {
		d := domain.NormalizeDate(r.BaseDate)
		return r.PortfolioID == portfolioID && d.After(after) && d.Before(before)
	}), nil
}

// FindLockedByPortfolio retrieves a portfolio's locked, non-deleted records
func (s *Store) FindLockedByPortfolio(ctx context.Context, portfolioID int64) ([]domain.EvaluationRecord, error) {
	return s.filter(func(r domain.EvaluationRecord) bool {
		return r.PortfolioID == portfolioID && r.LockOut && !r.Deleted
	}), nil
}

// FindByPortfolioAndDate retrieves a portfolio's records on baseDate, soft-deleted rows included
func (s *Store) FindByPortfolioAndDate(ctx context.Context, portfolioID int64, baseDate time.Time) ([]domain.EvaluationRecord, error) {
	day := domain.NormalizeDate(baseDate)
	return s.filter(func(r domain.EvaluationRecord) bool {
		return r.PortfolioID == portfolioID && domain.NormalizeDate(r.BaseDate).Equal(day)
	}), nil
}

// BulkInsert adds records, rejecting the whole batch on a duplicate
// (portfolio, instrument, base date) or ID
func (s *Store) BulkInsert(ctx context.Context, records []domain.EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := make(map[uniqueKey]struct{}, len(s.evaluations)+len(records))
	for _, r := range s.evaluations {
		taken[uniqueKey{r.PortfolioID, r.Key()}] = struct{}{}
	}
	for _, r := range records {
		k := uniqueKey{r.PortfolioID, r.Key()}
		if _, dup := taken[k]; dup {
			return fmt.Errorf("%w: evaluation for portfolio %d, %s on %s already exists",
				domain.ErrIntegrityViolation, r.PortfolioID, r.InstrumentCode, r.BaseDate.Format(domain.DateLayout))
		}
		if _, dup := s.evaluations[r.ID]; dup {
			return fmt.Errorf("%w: evaluation id %s already exists", domain.ErrIntegrityViolation, r.ID)
		}
		taken[k] = struct{}{}
	}

	for _, r := range records {
		r.BaseDate = domain.NormalizeDate(r.BaseDate)
		s.evaluations[r.ID] = r
	}
	return nil
}

// BulkUpdate replaces existing records by ID
func (s *Store) BulkUpdate(ctx context.Context, records []domain.EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if _, ok := s.evaluations[r.ID]; !ok {
			return fmt.Errorf("evaluation %s: %w", r.ID, domain.ErrNotFound)
		}
	}
	for _, r := range records {
		s.evaluations[r.ID] = r
	}
	return nil
}

// BulkDelete removes records by ID. Unknown IDs are ignored.
func (s *Store) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.evaluations, id)
	}
	return nil
}

// LoadCurve returns the discount factors of freq
func (s *Store) LoadCurve(ctx context.Context, freq domain.PaymentFrequency) ([]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]decimal.Decimal(nil), s.curves[freq]...), nil
}

func (s *Store) filter(keep func(domain.EvaluationRecord) bool) []domain.EvaluationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.EvaluationRecord
	for _, r := range s.evaluations {
		if keep(r) {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out
}

func sortRecords(records []domain.EvaluationRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.PortfolioID != b.PortfolioID {
			return a.PortfolioID < b.PortfolioID
		}
		if !a.BaseDate.Equal(b.BaseDate) {
			return a.BaseDate.Before(b.BaseDate)
		}
		return a.InstrumentCode < b.InstrumentCode
	})
}
