package evaluationobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simaogato/wealthflow-calculator/internal/usecase/evaluation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvaluator struct {
	result *evaluation.Result
	err    error
	calls  []string
}

func (s *stubEvaluator) EvaluateRegular(ctx context.Context, req evaluation.Request) (*evaluation.Result, error) {
	s.calls = append(s.calls, "regular")
	return s.result, s.err
}

func (s *stubEvaluator) EvaluateForce(ctx context.Context, req evaluation.Request) (*evaluation.Result, error) {
	s.calls = append(s.calls, "force")
	return s.result, s.err
}

func (s *stubEvaluator) EvaluateRevision(ctx context.Context, portfolioID int64) (*evaluation.Result, error) {
	s.calls = append(s.calls, "revision")
	return s.result, s.err
}

func TestWrap_DelegatesEveryMode(t *testing.T) {
	inner := &stubEvaluator{result: &evaluation.Result{Created: 2}}
	wrapped := Wrap(inner)
	req := evaluation.Request{PortfolioID: 1, StartDate: time.Now(), EndDate: time.Now()}

	result, err := wrapped.EvaluateRegular(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)

	_, err = wrapped.EvaluateForce(context.Background(), req)
	require.NoError(t, err)
	_, err = wrapped.EvaluateRevision(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"regular", "force", "revision"}, inner.calls)
}

func TestWrap_PassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	wrapped := Wrap(&stubEvaluator{err: boom})

	result, err := wrapped.EvaluateRevision(context.Background(), 1)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
}
