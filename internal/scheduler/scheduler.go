package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a unit of scheduled work
type Job interface {
	Run() error
	Name() string
}

// Entry describes a registered job and when it fires next
type Entry struct {
	Name     string
	Schedule string
	Next     time.Time
}

type registration struct {
	id       cron.EntryID
	name     string
	spec     string
	schedule cron.Schedule
}

// Scheduler runs jobs on six-field cron schedules, seconds first.
// A job that is still running when its next tick arrives is skipped,
// and a panicking job is logged instead of taking the process down.
type Scheduler struct {
	cron   *cron.Cron
	parser cron.Parser
	log    zerolog.Logger

	mu      sync.Mutex
	entries []registration
}

// New creates a scheduler that logs through log
func New(log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		parser: cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		log:    log,
	}
}

// Start begins firing registered jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.Upcoming(time.Now()))).Msg("Scheduler started")
}

// Stop halts the clock and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers job under a cron schedule such as
// "0 30 18 * * MON-FRI", "@daily" or "@every 1h"
func (s *Scheduler) AddJob(spec string, job Job) error {
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.cron.Schedule(schedule, runner{job: job, schedule: schedule, log: s.log})
	s.entries = append(s.entries, registration{id: id, name: job.Name(), spec: spec, schedule: schedule})

	s.log.Info().
		Str("job", job.Name()).
		Str("schedule", spec).
		Int("entry_id", int(id)).
		Time("next_run", schedule.Next(time.Now())).
		Msg("Job registered")
	return nil
}

// Upcoming lists registered jobs by their next fire time after now
func (s *Scheduler) Upcoming(now time.Time) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, r := range s.entries {
		out = append(out, Entry{Name: r.name, Schedule: r.spec, Next: r.schedule.Next(now)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Next.Before(out[j].Next) })
	return out
}

// RunNow executes a job immediately, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// runner adapts a Job to cron.Job and reports each run
type runner struct {
	job      Job
	schedule cron.Schedule
	log      zerolog.Logger
}

func (r runner) Run() {
	started := time.Now()
	err := r.job.Run()

	event := r.log.Info()
	if err != nil {
		event = r.log.Error().Err(err)
	}
	event.
		Str("job", r.job.Name()).
		Dur("duration", time.Since(started)).
		Time("next_run", r.schedule.Next(time.Now())).
		Msg("Job finished")
}

// cronLogger routes cron's internal logging into zerolog
type cronLogger struct {
	log zerolog.Logger
}

var _ cron.Logger = cronLogger{}

// Info is used by cron for routine wakeups, so it is demoted to debug
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
