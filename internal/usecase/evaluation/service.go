package evaluation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/valuation"
	"golang.org/x/sync/errgroup"
)

// DefaultUpdater is recorded as the update user when none is configured
const DefaultUpdater = "wealthflow-calculator"

// CalculatorFactory builds the per-instrument calculator for one task
type CalculatorFactory func(input valuation.Input, log zerolog.Logger) valuation.UnitPriceCalculator

func newMovingAverage(input valuation.Input, log zerolog.Logger) valuation.UnitPriceCalculator {
	return valuation.NewMovingAverageCalculator(input, log)
}

// EvaluationService orchestrates portfolio evaluation runs
type EvaluationService struct {
	ExecutionRepo  domain.ExecutionRepository
	PriceRepo      domain.PriceRepository
	EvaluationRepo domain.EvaluationRepository
	Calendar       domain.Calendar
	Transactor     domain.Transactor

	Market  domain.MarketCode
	Updater string

	// MaxParallelism bounds concurrent instrument tasks. Zero runs one task per instrument.
	MaxParallelism int
	NewCalculator  CalculatorFactory
	Now            func() time.Time

	log zerolog.Logger
}

var _ Evaluator = (*EvaluationService)(nil)

// NewEvaluationService creates a new EvaluationService instance
func NewEvaluationService(
	executionRepo domain.ExecutionRepository,
	priceRepo domain.PriceRepository,
	evaluationRepo domain.EvaluationRepository,
	calendar domain.Calendar,
	transactor domain.Transactor,
	log zerolog.Logger,
) *EvaluationService {
	return &EvaluationService{
		ExecutionRepo:  executionRepo,
		PriceRepo:      priceRepo,
		EvaluationRepo: evaluationRepo,
		Calendar:       calendar,
		Transactor:     transactor,
		Market:         domain.MarketJP,
		Updater:        DefaultUpdater,
		NewCalculator:  newMovingAverage,
		Now:            time.Now,
		log:            log.With().Str("service", "evaluation").Logger(),
	}
}

// EvaluateRegular values every business day in the window that has no record yet.
// Logic:
//  1. Business days in [start, end] from the calendar
//  2. Minus every base date already present in the store, across all portfolios
//  3. Value the remaining days per instrument and bulk insert the records
func (s *EvaluationService) EvaluateRegular(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	log := s.requestLogger(ModeRegular, req)
	log.Info().Msg("Regular evaluation started")

	result := &Result{Mode: ModeRegular, PortfolioID: req.PortfolioID}
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		businessDays, err := s.businessDays(ctx, req)
		if err != nil {
			return err
		}

		evaluated, err := s.EvaluationRepo.ListBaseDates(ctx)
		if err != nil {
			return fmt.Errorf("failed to list evaluated base dates: %w", err)
		}

		targetDays := businessDays.Difference(domain.NewBusinessDays(evaluated...))
		return s.evaluateDays(ctx, log, req, targetDays, nil, result)
	})
	if err != nil {
		log.Error().Err(err).Msg("Regular evaluation failed")
		return nil, err
	}

	return s.finish(log, result, started), nil
}

// EvaluateForce discards and recomputes a portfolio's records inside the window.
// Logic:
//  1. Hard-delete the portfolio's records with start < base date < end, plus soft-deleted
//     records on the boundary days
//  2. Target every business day in [start, end]
//  3. Value the target days per instrument, keep live boundary records as they are and
//     bulk insert the rest
func (s *EvaluationService) EvaluateForce(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	log := s.requestLogger(ModeForce, req)
	log.Info().Msg("Force evaluation started")

	result := &Result{Mode: ModeForce, PortfolioID: req.PortfolioID}
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		start := domain.NormalizeDate(req.StartDate)
		end := domain.NormalizeDate(req.EndDate)

		interior, err := s.EvaluationRepo.FindByPortfolioBetween(ctx, req.PortfolioID, start, end)
		if err != nil {
			return fmt.Errorf("failed to find evaluations to replace: %w", err)
		}

		// The exclusive delete window leaves boundary records in place
		kept, purged, err := s.boundaryRecords(ctx, req.PortfolioID, start, end)
		if err != nil {
			return err
		}

		stale := append(interior, purged...)
		if len(stale) > 0 {
			ids := make([]uuid.UUID, 0, len(stale))
			for _, r := range stale {
				ids = append(ids, r.ID)
			}
			if err := s.EvaluationRepo.BulkDelete(ctx, ids); err != nil {
				return fmt.Errorf("failed to delete evaluations: %w", err)
			}
		}
		result.Deleted = len(stale)

		businessDays, err := s.businessDays(ctx, req)
		if err != nil {
			return err
		}

		for key := range kept {
			log.Warn().
				Str("instrument", key.InstrumentCode).
				Str("base_date", key.BaseDate.Format(domain.DateLayout)).
				Msg("Boundary evaluation kept, not re-valued")
		}

		return s.evaluateDays(ctx, log, req, businessDays, kept, result)
	})
	if err != nil {
		log.Error().Err(err).Msg("Force evaluation failed")
		return nil, err
	}

	return s.finish(log, result, started), nil
}

// EvaluateRevision re-values a portfolio's locked records against the price keyed by
// (instrument, base date). Records without such a price are skipped.
func (s *EvaluationService) EvaluateRevision(ctx context.Context, portfolioID int64) (*Result, error) {
	if portfolioID <= 0 {
		return nil, fmt.Errorf("%w: portfolio id must be positive", domain.ErrInvalidRange)
	}
	started := time.Now()
	log := s.log.With().Str("mode", string(ModeRevise)).Int64("portfolio_id", portfolioID).Logger()
	log.Info().Msg("Revision evaluation started")

	result := &Result{Mode: ModeRevise, PortfolioID: portfolioID}
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.EvaluationRepo.FindLockedByPortfolio(ctx, portfolioID)
		if err != nil {
			return fmt.Errorf("failed to find locked evaluations: %w", err)
		}
		if len(locked) == 0 {
			log.Info().Msg("No locked evaluations to revise")
			return nil
		}

		dates := make([]time.Time, 0, len(locked))
		for _, r := range locked {
			dates = append(dates, r.BaseDate)
		}
		targetDays := domain.NewBusinessDays(dates...)
		result.TargetDays = targetDays.Len()

		prices, err := s.PriceRepo.FindByBaseDates(ctx, targetDays.Sorted())
		if err != nil {
			return fmt.Errorf("failed to load prices for revision: %w", err)
		}
		priceByKey := make(map[domain.EvaluationKey]domain.PriceObservation, len(prices))
		for _, p := range prices {
			if p.Deleted {
				continue
			}
			priceByKey[domain.NewEvaluationKey(p.InstrumentCode, p.BaseDate)] = p
		}

		sort.SliceStable(locked, func(i, j int) bool {
			if !locked[i].BaseDate.Equal(locked[j].BaseDate) {
				return locked[i].BaseDate.Before(locked[j].BaseDate)
			}
			return locked[i].InstrumentCode < locked[j].InstrumentCode
		})

		instruments := make(map[string]struct{})
		now := s.Now()
		revised := make([]domain.EvaluationRecord, 0, len(locked))
		for _, record := range locked {
			if record.State() != domain.StateLocked {
				return fmt.Errorf("%w: record %s returned as locked but is %s",
					domain.ErrIntegrityViolation, record.ID, record.State())
			}
			instruments[record.InstrumentCode] = struct{}{}

			price, ok := priceByKey[record.Key()]
			if !ok {
				log.Warn().
					Str("instrument", record.InstrumentCode).
					Str("base_date", record.BaseDate.Format(domain.DateLayout)).
					Msg("No price for locked evaluation, skipping revision")
				result.Skipped++
				continue
			}

			if record.Revise(price, s.Updater, now) == domain.StateUnlocked {
				result.Unlocked++
			}
			revised = append(revised, record)
		}
		result.Instruments = len(instruments)

		if len(revised) > 0 {
			if err := s.EvaluationRepo.BulkUpdate(ctx, revised); err != nil {
				return fmt.Errorf("failed to update evaluations: %w", err)
			}
		}
		result.Updated = len(revised)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Revision evaluation failed")
		return nil, err
	}

	return s.finish(log, result, started), nil
}

// evaluateDays runs one valuation task per instrument over targetDays, joins them,
// checks the merged result and persists every record whose key is not in kept.
func (s *EvaluationService) evaluateDays(
	ctx context.Context,
	log zerolog.Logger,
	req Request,
	targetDays domain.BusinessDays,
	kept map[domain.EvaluationKey]struct{},
	result *Result,
) error {
	result.TargetDays = targetDays.Len()
	if targetDays.IsEmpty() {
		log.Info().Msg("No target days to evaluate")
		return nil
	}

	executions, err := s.ExecutionRepo.FindByPortfolioUpTo(ctx, req.PortfolioID, domain.NormalizeDate(req.EndDate))
	if err != nil {
		return fmt.Errorf("failed to load executions: %w", err)
	}
	if len(executions) == 0 {
		log.Warn().Msg("No executions for portfolio, nothing to evaluate")
		return nil
	}
	for i := range executions {
		if err := executions[i].Validate(); err != nil {
			return fmt.Errorf("%w: execution %s: %v", domain.ErrIntegrityViolation, executions[i].ID, err)
		}
	}

	executionsByCode := domain.GroupExecutionsByInstrument(executions)
	codes := make([]string, 0, len(executionsByCode))
	for code := range executionsByCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	result.Instruments = len(codes)

	prices, err := s.PriceRepo.FindByInstrumentCodes(ctx, codes,
		domain.NormalizeDate(req.StartDate), domain.NormalizeDate(req.EndDate))
	if err != nil {
		return fmt.Errorf("failed to load prices: %w", err)
	}
	pricesByCode := domain.GroupPricesByInstrument(prices)

	days := targetDays.Sorted()
	now := s.Now()
	calculators := make([]valuation.UnitPriceCalculator, 0, len(codes))
	for _, code := range codes {
		calculators = append(calculators, s.NewCalculator(valuation.Input{
			PortfolioID:    req.PortfolioID,
			InstrumentCode: code,
			Executions:     executionsByCode[code],
			Prices:         pricesByCode[code],
			TargetDays:     days,
			Updater:        s.Updater,
			Now:            now,
		}, log))
	}

	records, err := s.runCalculators(ctx, calculators)
	if err != nil {
		return err
	}
	if err := checkRecords(records, req.PortfolioID, targetDays); err != nil {
		return err
	}
	if len(kept) > 0 {
		fresh := records[:0]
		for _, r := range records {
			if _, ok := kept[r.Key()]; !ok {
				fresh = append(fresh, r)
			}
		}
		records = fresh
	}

	if len(records) > 0 {
		if err := s.EvaluationRepo.BulkInsert(ctx, records); err != nil {
			return fmt.Errorf("failed to insert evaluations: %w", err)
		}
	}
	result.Created = len(records)
	result.Skipped = len(codes)*len(days) - len(records)
	return nil
}

// runCalculators forks one task per calculator and joins them before returning.
// The first failure cancels the remaining tasks and fails the whole run.
func (s *EvaluationService) runCalculators(ctx context.Context, calculators []valuation.UnitPriceCalculator) ([]domain.EvaluationRecord, error) {
	g, gctx := errgroup.WithContext(ctx)
	limit := s.MaxParallelism
	if limit <= 0 {
		limit = len(calculators)
	}
	g.SetLimit(limit)

	// Each task owns exactly one slot
	results := make([][]domain.EvaluationRecord, len(calculators))
	for i, calc := range calculators {
		i, calc := i, calc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := calc.Calculate()
			if err != nil {
				return fmt.Errorf("failed to evaluate instrument %s: %w", calc.InstrumentCode(), err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []domain.EvaluationRecord
	for _, records := range results {
		merged = append(merged, records...)
	}
	return merged, nil
}

// checkRecords rejects a merged result that strays outside the target days
// or carries a key twice
func checkRecords(records []domain.EvaluationRecord, portfolioID int64, targetDays domain.BusinessDays) error {
	seen := make(map[domain.EvaluationKey]struct{}, len(records))
	for _, r := range records {
		if r.PortfolioID != portfolioID {
			return fmt.Errorf("%w: record for portfolio %d in run for portfolio %d",
				domain.ErrIntegrityViolation, r.PortfolioID, portfolioID)
		}
		if !targetDays.Contains(r.BaseDate) {
			return fmt.Errorf("%w: record for %s dated %s outside target days",
				domain.ErrIntegrityViolation, r.InstrumentCode, r.BaseDate.Format(domain.DateLayout))
		}
		key := r.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate evaluation for %s on %s",
				domain.ErrIntegrityViolation, r.InstrumentCode, r.BaseDate.Format(domain.DateLayout))
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (s *EvaluationService) businessDays(ctx context.Context, req Request) (domain.BusinessDays, error) {
	days, err := s.Calendar.BusinessDays(ctx, s.Market,
		domain.NormalizeDate(req.StartDate), domain.NormalizeDate(req.EndDate))
	if err != nil {
		return domain.BusinessDays{}, fmt.Errorf("failed to load business days: %w", err)
	}
	return domain.NewBusinessDays(days...), nil
}

// boundaryRecords splits the portfolio's records on start and end into live keys, which
// Force keeps, and soft-deleted rows, which still hold the unique key and must be purged.
func (s *EvaluationService) boundaryRecords(
	ctx context.Context,
	portfolioID int64,
	start, end time.Time,
) (map[domain.EvaluationKey]struct{}, []domain.EvaluationRecord, error) {
	kept := make(map[domain.EvaluationKey]struct{})
	var purged []domain.EvaluationRecord

	days := domain.NewBusinessDays(start, end).Sorted()
	for _, day := range days {
		records, err := s.EvaluationRepo.FindByPortfolioAndDate(ctx, portfolioID, day)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find boundary evaluations: %w", err)
		}
		for _, r := range records {
			if r.State() == domain.StateAbsent {
				purged = append(purged, r)
				continue
			}
			kept[r.Key()] = struct{}{}
		}
	}
	return kept, purged, nil
}

func (s *EvaluationService) requestLogger(mode Mode, req Request) zerolog.Logger {
	return s.log.With().
		Str("mode", string(mode)).
		Int64("portfolio_id", req.PortfolioID).
		Str("start_date", req.StartDate.Format(domain.DateLayout)).
		Str("end_date", req.EndDate.Format(domain.DateLayout)).
		Logger()
}

func (s *EvaluationService) finish(log zerolog.Logger, result *Result, started time.Time) *Result {
	result.Duration = time.Since(started)
	log.Info().
		Int("target_days", result.TargetDays).
		Int("instruments", result.Instruments).
		Int("created", result.Created).
		Int("deleted", result.Deleted).
		Int("updated", result.Updated).
		Int("unlocked", result.Unlocked).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("Evaluation finished")
	return result
}
