package evaluation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEvaluator is a mock implementation of Evaluator for testing
type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) EvaluateRegular(ctx context.Context, req Request) (*Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockEvaluator) EvaluateForce(ctx context.Context, req Request) (*Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockEvaluator) EvaluateRevision(ctx context.Context, portfolioID int64) (*Result, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes map[uuid.UUID]JobOutcome
}

func (r *outcomeRecorder) record(o JobOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[o.Job.ID] = o
}

func TestDispatcher_RunsEveryQueuedJob(t *testing.T) {
	evaluator := new(MockEvaluator)
	evaluator.On("EvaluateRegular", mock.Anything, week).Return(&Result{Mode: ModeRegular, Created: 3}, nil)
	evaluator.On("EvaluateForce", mock.Anything, week).Return(nil, errors.New("db down"))
	evaluator.On("EvaluateRevision", mock.Anything, int64(1)).Return(&Result{Mode: ModeRevise, Updated: 1}, nil)

	recorder := &outcomeRecorder{outcomes: make(map[uuid.UUID]JobOutcome)}
	d := NewDispatcher(evaluator, 2, 8, zerolog.Nop(), WithCompletionHook(recorder.record), WithJobTimeout(time.Minute))
	d.Start(context.Background())

	regularID, err := d.Submit(ModeRegular, week)
	require.NoError(t, err)
	forceID, err := d.Submit(ModeForce, week)
	require.NoError(t, err)
	reviseID, err := d.Submit(ModeRevise, Request{PortfolioID: 1})
	require.NoError(t, err)

	require.NoError(t, d.Shutdown(context.Background()))

	require.Len(t, recorder.outcomes, 3)
	assert.Equal(t, 3, recorder.outcomes[regularID].Result.Created)
	assert.EqualError(t, recorder.outcomes[forceID].Err, "db down")
	assert.Equal(t, 1, recorder.outcomes[reviseID].Result.Updated)
	evaluator.AssertExpectations(t)
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(new(MockEvaluator), 1, 1, zerolog.Nop())

	_, err := d.Submit(ModeRegular, week)
	require.NoError(t, err)
	_, err = d.Submit(ModeRegular, week)

	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestDispatcher_RejectsAfterShutdown(t *testing.T) {
	d := NewDispatcher(new(MockEvaluator), 1, 1, zerolog.Nop())
	require.NoError(t, d.Shutdown(context.Background()))

	_, err := d.Submit(ModeRegular, week)

	assert.True(t, errors.Is(err, ErrDispatcherClosed))
}

func TestDispatcher_ValidatesBeforeQueueing(t *testing.T) {
	d := NewDispatcher(new(MockEvaluator), 1, 1, zerolog.Nop())

	tests := []struct {
		name string
		mode Mode
		req  Request
	}{
		{name: "Unknown mode", mode: Mode("HOURLY"), req: week},
		{name: "Inverted window", mode: ModeForce, req: Request{PortfolioID: 1, StartDate: apr5, EndDate: apr1}},
		{name: "Revision without portfolio", mode: ModeRevise, req: Request{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := d.Submit(tt.mode, tt.req)
			assert.Error(t, err)
			assert.Equal(t, uuid.Nil, id)
		})
	}

	_, err := d.Submit(ModeRevise, Request{})
	assert.True(t, errors.Is(err, domain.ErrInvalidRange))
}
