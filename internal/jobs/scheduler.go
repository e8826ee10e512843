// Package jobs runs the periodic maintenance tasks of the platform: hashtag
// counter resets, the inactivity sweep and the idempotency purge. Each
// registered job runs in its own goroutine on a fixed interval until the
// scheduler's context is cancelled. With a RunStore the schedule survives
// restarts: a job that became due while the process was down runs at Start.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Status is the last known state of a job.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
)

// Job is one periodic task. Fn must be idempotent: a run may repeat after a
// restart.
type Job struct {
	Name        string
	Description string
	Interval    time.Duration
	Fn          func(ctx context.Context) error
}

// Info is a snapshot of a registered job.
type Info struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Interval    string     `json:"interval"`
	Status      Status     `json:"status"`
	Message     string     `json:"message,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	NextRunAt   time.Time  `json:"next_run_at"`
}

type state struct {
	Job
	mu        sync.Mutex
	status    Status
	message   string
	lastRunAt *time.Time
	nextRunAt time.Time
}

var jobRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Scheduled job executions, by job and result.",
	},
	[]string{"job", "result"},
)

func init() {
	prometheus.MustRegister(jobRuns)
}

// RunStore persists when each job last completed.
type RunStore interface {
	LastRun(ctx context.Context, name string) (at time.Time, ok bool, err error)
	MarkRun(ctx context.Context, name string, at time.Time) error
}

// Scheduler holds named jobs.
type Scheduler struct {
	mu   sync.RWMutex
	jobs map[string]*state
	now  func() time.Time
	runs RunStore
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRunStore makes job schedules survive restarts. Without it every job
// waits a full interval after Start.
func WithRunStore(rs RunStore) Option {
	return func(s *Scheduler) { s.runs = rs }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates an empty Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{jobs: make(map[string]*state), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds a job. Jobs with a non-positive interval or no Fn are
// rejected; registering a name twice replaces the earlier job. Must be
// called before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Fn == nil || job.Interval <= 0 {
		return fmt.Errorf("invalid job %q", job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &state{Job: job, status: StatusIdle, nextRunAt: s.now().Add(job.Interval)}
	return nil
}

// Start launches every registered job. It returns immediately; loops stop
// when ctx is cancelled. A job whose last recorded run is older than its
// interval runs right away, otherwise it waits out the remainder.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.jobs {
		delay := s.firstDelay(ctx, st)
		st.mu.Lock()
		st.nextRunAt = s.now().Add(delay)
		st.mu.Unlock()
		go s.loop(ctx, st, delay)
	}
	log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// firstDelay is how long st waits before its first run. A job with no
// recorded run gets a baseline of now so a fresh deployment does not reset
// counters on boot.
func (s *Scheduler) firstDelay(ctx context.Context, st *state) time.Duration {
	if s.runs == nil {
		return st.Interval
	}
	now := s.now()
	last, ok, err := s.runs.LastRun(ctx, st.Name)
	if err != nil {
		log.Warn().Err(err).Str("job", st.Name).Msg("last run unknown, waiting full interval")
		return st.Interval
	}
	if !ok {
		if err := s.runs.MarkRun(ctx, st.Name, now); err != nil {
			log.Warn().Err(err).Str("job", st.Name).Msg("job baseline not recorded")
		}
		return st.Interval
	}
	st.mu.Lock()
	st.lastRunAt = &last
	st.mu.Unlock()
	return max(last.Add(st.Interval).Sub(now), 0)
}

func (s *Scheduler) loop(ctx context.Context, st *state, delay time.Duration) {
	t := time.NewTimer(delay)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = s.execute(ctx, st)
			st.mu.Lock()
			st.nextRunAt = s.now().Add(st.Interval)
			st.mu.Unlock()
			t.Reset(st.Interval)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, st *state) error {
	st.mu.Lock()
	st.status = StatusRunning
	st.mu.Unlock()

	started := s.now()
	err := st.Fn(ctx)
	took := s.now().Sub(started)

	st.mu.Lock()
	st.lastRunAt = &started
	if err != nil {
		st.status, st.message = StatusFailed, err.Error()
	} else {
		st.status, st.message = StatusOK, ""
	}
	st.mu.Unlock()

	if err != nil {
		jobRuns.WithLabelValues(st.Name, "error").Inc()
		log.Error().Err(err).Str("job", st.Name).Dur("took", took).Msg("job failed")
		return err
	}
	jobRuns.WithLabelValues(st.Name, "ok").Inc()
	log.Info().Str("job", st.Name).Dur("took", took).Msg("job done")
	if s.runs != nil {
		if err := s.runs.MarkRun(ctx, st.Name, started); err != nil {
			log.Warn().Err(err).Str("job", st.Name).Msg("job run not recorded")
		}
	}
	return nil
}

// List returns a snapshot of every job, sorted by name.
func (s *Scheduler) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.jobs))
	for _, st := range s.jobs {
		st.mu.Lock()
		out = append(out, Info{
			Name:        st.Name,
			Description: st.Description,
			Interval:    st.Interval.String(),
			Status:      st.status,
			Message:     st.message,
			LastRunAt:   st.lastRunAt,
			NextRunAt:   st.nextRunAt,
		})
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
