package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

var (
	// ErrQueueFull is returned when the dispatcher cannot accept another job
	ErrQueueFull = errors.New("evaluation queue is full")
	// ErrDispatcherClosed is returned when a job is submitted after shutdown began
	ErrDispatcherClosed = errors.New("evaluation dispatcher is closed")
)

// Job is one queued evaluation request
type Job struct {
	ID          uuid.UUID
	Mode        Mode
	Request     Request
	SubmittedAt time.Time
}

// JobOutcome reports how a queued job ended
type JobOutcome struct {
	Job    Job
	Result *Result
	Err    error
}

// Dispatcher runs evaluation requests asynchronously on a fixed pool of workers.
// Submit returns a job ID immediately; the outcome is only logged and reported
// to the completion hook.
type Dispatcher struct {
	evaluator  Evaluator
	jobs       chan Job
	workers    int
	jobTimeout time.Duration
	onDone     func(JobOutcome)
	log        zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithJobTimeout bounds the runtime of every job
func WithJobTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.jobTimeout = d }
}

// WithCompletionHook registers fn to be called after every job
func WithCompletionHook(fn func(JobOutcome)) DispatcherOption {
	return func(disp *Dispatcher) { disp.onDone = fn }
}

// NewDispatcher creates a dispatcher with the given worker count and queue capacity
func NewDispatcher(evaluator Evaluator, workers, queueSize int, log zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{
		evaluator: evaluator,
		jobs:      make(chan Job, queueSize),
		workers:   workers,
		log:       log.With().Str("component", "dispatcher").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. Jobs run with a context derived from ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(worker int) {
			defer d.wg.Done()
			for job := range d.jobs {
				d.run(ctx, worker, job)
			}
		}(i)
	}
	d.log.Info().Int("workers", d.workers).Int("queue_size", cap(d.jobs)).Msg("Dispatcher started")
}

// Submit enqueues a request without waiting for it to run
func (d *Dispatcher) Submit(mode Mode, req Request) (uuid.UUID, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return uuid.Nil, err
	}
	if mode == ModeRevise {
		if req.PortfolioID <= 0 {
			return uuid.Nil, fmt.Errorf("%w: portfolio id must be positive", domain.ErrInvalidRange)
		}
	} else if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return uuid.Nil, ErrDispatcherClosed
	}

	job := Job{ID: uuid.New(), Mode: mode, Request: req, SubmittedAt: time.Now()}
	select {
	case d.jobs <- job:
		d.log.Info().Str("job_id", job.ID.String()).Str("mode", string(mode)).Int64("portfolio_id", req.PortfolioID).Msg("Evaluation job queued")
		return job.ID, nil
	default:
		return uuid.Nil, ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones to drain or ctx to end
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info().Msg("Dispatcher drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(ctx context.Context, worker int, job Job) {
	if d.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.jobTimeout)
		defer cancel()
	}

	log := d.log.With().Str("job_id", job.ID.String()).Int("worker", worker).Logger()
	result, err := Run(ctx, d.evaluator, job.Mode, job.Request)
	if err != nil {
		log.Error().Err(err).Msg("Evaluation job failed")
	} else {
		log.Info().Int("created", result.Created).Int("updated", result.Updated).Msg("Evaluation job completed")
	}

	if d.onDone != nil {
		d.onDone(JobOutcome{Job: job, Result: result, Err: err})
	}
}
