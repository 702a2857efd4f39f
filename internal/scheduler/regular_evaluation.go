package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/evaluation"
)

// Submitter queues an evaluation request
type Submitter interface {
	Submit(mode evaluation.Mode, req evaluation.Request) (uuid.UUID, error)
}

// RegularEvaluationJob queues a regular evaluation for each configured portfolio
// over the trailing lookback window ending today
type RegularEvaluationJob struct {
	submitter    Submitter
	portfolios   []int64
	lookbackDays int
	now          func() time.Time
	log          zerolog.Logger
}

// NewRegularEvaluationJob creates a new regular evaluation job
func NewRegularEvaluationJob(submitter Submitter, portfolios []int64, lookbackDays int, log zerolog.Logger) *RegularEvaluationJob {
	return &RegularEvaluationJob{
		submitter:    submitter,
		portfolios:   append([]int64(nil), portfolios...),
		lookbackDays: lookbackDays,
		now:          time.Now,
		log:          log.With().Str("job", "regular_evaluation").Logger(),
	}
}

// Name returns the job name
func (j *RegularEvaluationJob) Name() string {
	return "regular_evaluation"
}

// Run submits one request per portfolio. A rejected submission does not stop the others.
func (j *RegularEvaluationJob) Run() error {
	end := domain.NormalizeDate(j.now())
	start := end.AddDate(0, 0, -j.lookbackDays)

	var errs []error
	for _, portfolioID := range j.portfolios {
		jobID, err := j.submitter.Submit(evaluation.ModeRegular, evaluation.Request{
			PortfolioID: portfolioID,
			StartDate:   start,
			EndDate:     end,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("portfolio %d: %w", portfolioID, err))
			continue
		}
		j.log.Info().
			Int64("portfolio_id", portfolioID).
			Str("job_id", jobID.String()).
			Str("start_date", start.Format(domain.DateLayout)).
			Str("end_date", end.Format(domain.DateLayout)).
			Msg("Scheduled regular evaluation")
	}

	return errors.Join(errs...)
}
