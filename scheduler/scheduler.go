// Package scheduler drives periodic reflow runs on a cron schedule,
// adapted directly from the teacher's own sync.Scheduler: same
// cron.Cron/mutex/running-flag shape, same Start/Stop lifecycle, now
// running a reflow-and-persist job instead of a CampMinder sync.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/reflow"
	"github.com/motioneffector/reflow/store"
)

// WindowDays is how far past today each scheduled reflow looks, wide
// enough to resolve chains and cycling ahead of the day they land on.
const WindowDays = 30

// Scheduler runs reflow on a fixed cron spec and persists the result via
// the adapter's reflow_runs log.
type Scheduler struct {
	adapter *store.Adapter
	cron    *cron.Cron
	spec    string
	now     func() time.Time
	mu      sync.Mutex
	running bool
}

// New builds a Scheduler that fires on spec (standard 5-field cron
// syntax), reading the current time from now (time.Now in production,
// overridable in tests).
func New(adapter *store.Adapter, spec string, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		adapter: adapter,
		cron:    cron.New(),
		spec:    spec,
		now:     now,
	}
}

// Start registers the periodic reflow job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		slog.Info("starting scheduled reflow")
		s.runScheduledReflow()
	})
	if err != nil {
		return fmt.Errorf("adding reflow schedule: %w", err)
	}

	s.cron.Start()
	s.running = true
	slog.Info("reflow scheduler started", "spec", s.spec)
	return nil
}

// Stop gracefully stops the cron loop, waiting for any in-flight job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	slog.Info("stopping reflow scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	slog.Info("reflow scheduler stopped")
}

// RunNow performs one reflow over [today, today+WindowDays] immediately,
// independent of the cron schedule, and persists the result; used by the
// cron job and directly by tests.
func (s *Scheduler) RunNow() (reflow.Output, error) {
	today := civilDate(s.now())
	windowEnd := calendar.AddDays(today, WindowDays)

	input, err := s.adapter.BuildReflowInput(today, today, windowEnd)
	if err != nil {
		return reflow.Output{}, fmt.Errorf("building reflow input: %w", err)
	}
	out := reflow.Reflow(input)
	if err := s.adapter.PersistReflowRun(today, windowEnd, out); err != nil {
		return reflow.Output{}, fmt.Errorf("persisting reflow run: %w", err)
	}
	return out, nil
}

func (s *Scheduler) runScheduledReflow() {
	out, err := s.RunNow()
	if err != nil {
		slog.Error("scheduled reflow failed", "error", err)
		return
	}
	slog.Info("scheduled reflow completed",
		"assignments", len(out.Assignments),
		"conflicts", len(out.Conflicts),
	)
}

func civilDate(t time.Time) calendar.LocalDate {
	y, m, d := t.Date()
	return calendar.LocalDate{Year: y, Month: int(m), Day: d}
}
