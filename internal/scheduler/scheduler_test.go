package scheduler

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/evaluation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSubmitter is a mock implementation of Submitter for testing
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(mode evaluation.Mode, req evaluation.Request) (uuid.UUID, error) {
	args := m.Called(mode, req)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func TestRegularEvaluationJob_SubmitsEveryPortfolio(t *testing.T) {
	submitter := new(MockSubmitter)
	job := NewRegularEvaluationJob(submitter, []int64{1, 2}, 7, zerolog.Nop())
	job.now = func() time.Time { return time.Date(2024, 4, 8, 18, 30, 0, 0, time.UTC) }

	end := time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	submitter.On("Submit", evaluation.ModeRegular, evaluation.Request{PortfolioID: 1, StartDate: start, EndDate: end}).
		Return(uuid.New(), nil)
	submitter.On("Submit", evaluation.ModeRegular, evaluation.Request{PortfolioID: 2, StartDate: start, EndDate: end}).
		Return(uuid.Nil, evaluation.ErrQueueFull)

	err := job.Run()

	require.Error(t, err)
	assert.True(t, errors.Is(err, evaluation.ErrQueueFull))
	assert.Contains(t, err.Error(), "portfolio 2")
	submitter.AssertExpectations(t)
}

func TestRegularEvaluationJob_Name(t *testing.T) {
	assert.Equal(t, "regular_evaluation", NewRegularEvaluationJob(new(MockSubmitter), nil, 0, zerolog.Nop()).Name())
}

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	assert.NoError(t, s.AddJob("0 30 18 * * MON-FRI", &countingJob{}))
	assert.NoError(t, s.AddJob("@daily", &countingJob{}))
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
	assert.Error(t, s.AddJob("30 18 * * MON-FRI", &countingJob{}), "five-field specs lack seconds")
	assert.Len(t, s.Upcoming(time.Now()), 2)
}

func TestScheduler_Upcoming(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("CRON_TZ=UTC 0 30 18 * * MON-FRI", NewRegularEvaluationJob(new(MockSubmitter), nil, 7, zerolog.Nop())))
	require.NoError(t, s.AddJob("@every 1h", &countingJob{}))

	// Monday noon
	now := time.Date(2024, 4, 8, 12, 0, 0, 0, time.UTC)
	entries := s.Upcoming(now)

	require.Len(t, entries, 2)
	assert.Equal(t, "counting", entries[0].Name)
	assert.True(t, entries[0].Next.Equal(now.Add(time.Hour)))
	assert.Equal(t, "regular_evaluation", entries[1].Name)
	assert.Equal(t, "CRON_TZ=UTC 0 30 18 * * MON-FRI", entries[1].Schedule)
	assert.True(t, entries[1].Next.Equal(time.Date(2024, 4, 8, 18, 30, 0, 0, time.UTC)))
}

func TestRunner_LogsOutcomeWithJobName(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level string
	}{
		{name: "Success", level: `"level":"info"`},
		{name: "Failure", err: errors.New("queue full"), level: `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := New(zerolog.New(&buf))
			job := &countingJob{err: tt.err}
			require.NoError(t, s.AddJob("@every 1h", job))
			buf.Reset()

			runner{job: job, schedule: s.entries[0].schedule, log: s.log}.Run()

			assert.Equal(t, 1, job.runs)
			out := buf.String()
			assert.Contains(t, out, `"job":"counting"`)
			assert.Contains(t, out, "Job finished")
			assert.Contains(t, out, tt.level)
			if tt.err != nil {
				assert.Contains(t, out, "queue full")
			}
		})
	}
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	l := cronLogger{log: zerolog.New(&buf).Level(zerolog.InfoLevel)}

	l.Info("wake", "now", "2024-04-08")
	assert.Empty(t, buf.String(), "routine cron messages are debug level")

	l.Error(errors.New("boom"), "panic", "entry", 3)
	assert.Contains(t, buf.String(), `"entry":3`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"message":"panic"`)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	err := s.RunNow(job)

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, job.runs)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@every 1h", &countingJob{}))

	s.Start()
	s.Stop()
}
