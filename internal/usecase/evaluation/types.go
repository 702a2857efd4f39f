package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// Mode selects the re-evaluation semantics of a run
type Mode string

const (
	ModeRegular Mode = "REGULAR"
	ModeForce   Mode = "FORCE"
	ModeRevise  Mode = "REVISE"
)

// ErrUnknownMode is returned for a mode name outside REGULAR, FORCE and REVISE
var ErrUnknownMode = errors.New("unknown evaluation mode")

// ParseMode parses a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRegular, ModeForce, ModeRevise:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Request is the input of a regular or force evaluation
type Request struct {
	PortfolioID int64
	StartDate   time.Time
	EndDate     time.Time
}

// Validate ensures the request describes a usable window
func (r Request) Validate() error {
	if r.PortfolioID <= 0 {
		return fmt.Errorf("%w: portfolio id must be positive", domain.ErrInvalidRange)
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", domain.ErrInvalidRange)
	}
	if domain.NormalizeDate(r.EndDate).Before(domain.NormalizeDate(r.StartDate)) {
		return fmt.Errorf("%w: end date %s is before start date %s", domain.ErrInvalidRange,
			r.EndDate.Format(domain.DateLayout), r.StartDate.Format(domain.DateLayout))
	}
	return nil
}

// Result reports the aggregate counts of a successful run
type Result struct {
	Mode        Mode
	PortfolioID int64
	TargetDays  int
	Instruments int
	Created     int
	Deleted     int
	Updated     int
	Unlocked    int
	Skipped     int
	Duration    time.Duration
}

// Evaluator runs the three evaluation modes.
// Each call is one all-or-nothing unit of work.
type Evaluator interface {
	EvaluateRegular(ctx context.Context, req Request) (*Result, error)
	EvaluateForce(ctx context.Context, req Request) (*Result, error)
	EvaluateRevision(ctx context.Context, portfolioID int64) (*Result, error)
}

// Run dispatches a request to the evaluator method matching mode
func Run(ctx context.Context, evaluator Evaluator, mode Mode, req Request) (*Result, error) {
	switch mode {
	case ModeRegular:
		return evaluator.EvaluateRegular(ctx, req)
	case ModeForce:
		return evaluator.EvaluateForce(ctx, req)
	case ModeRevise:
		return evaluator.EvaluateRevision(ctx, req.PortfolioID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
