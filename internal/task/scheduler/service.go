package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"coinpulse/internal/eventbus"
	"coinpulse/internal/storage"
	"coinpulse/internal/task/job"
	"coinpulse/internal/task/lock"
	logx "coinpulse/pkg/logx"
)

// Service is the scheduler context: it owns the trigger, the last-run store
// and the job, and is shared by the background loop and manual triggers.
type Service struct {
	mu  sync.Mutex
	cfg Config

	job   job.Job
	store storage.Store
	bus   eventbus.Bus
	log   logx.Logger

	now func() time.Time

	lastDecision Decision
}

func New(cfg Config, j job.Job, store storage.Store, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	return &Service{
		cfg:   cfg,
		job:   j,
		store: store,
		bus:   bus,
		log:   log,
		now:   time.Now,
	}
}

// Apply swaps the trigger/location/lock settings. Safe to call concurrently
// with the loop; the next evaluation picks it up.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	if old.Trigger != cfg.Trigger || old.location().String() != cfg.location().String() {
		s.log.Info("schedule changed",
			logx.String("at", cfg.Trigger.String()),
			logx.String("tz", cfg.location().String()))
	}
}

func (s *Service) config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Enabled reports the current config flag.
func (s *Service) Enabled() bool { return s.config().Enabled }

// Locks returns the lock manager for the current config.
func (s *Service) Locks() *lock.Manager { return s.config().Locks() }

// Evaluate reads the last-run marker and evaluates the trigger at the current time.
func (s *Service) Evaluate(ctx context.Context) (Decision, error) {
	cfg := s.config()
	loc := cfg.location()
	now := s.now().In(loc)
	last, _, err := s.store.LastRun(ctx, cfg.Job, loc)
	if err != nil {
		return Decision{}, fmt.Errorf("read last run: %w", err)
	}
	return cfg.Trigger.Evaluate(now, last), nil
}

// Status gathers the trigger decision, lock states and the n most recent runs.
func (s *Service) Status(ctx context.Context, n int) (Status, error) {
	cfg := s.config()
	loc := cfg.location()
	now := s.now().In(loc)

	st := Status{Job: cfg.Job, At: cfg.Trigger, Location: loc.String()}
	last, ok, err := s.store.LastRun(ctx, cfg.Job, loc)
	if err != nil {
		return st, fmt.Errorf("read last run: %w", err)
	}
	st.LastRun, st.HasLastRun = last, ok
	st.Decision = cfg.Trigger.Evaluate(now, last)
	st.JobLock, st.ManualLock, st.LockErr = cfg.Locks().States()

	st.Recent, err = s.store.RecentRuns(ctx, cfg.Job, n)
	if err != nil {
		return st, fmt.Errorf("read run history: %w", err)
	}
	return st, nil
}

// LastDecision returns the most recent loop evaluation (zero before the first tick).
func (s *Service) LastDecision() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDecision
}

// execute runs the job once and records the attempt. It does not touch the
// last-run marker; callers own that.
//
// The job runs on a context that ignores ctx cancellation: a shutdown never
// interrupts an in-flight job.
func (s *Service) execute(ctx context.Context, cfg Config, trigger string, force bool) Result {
	res := Result{
		RunID:   uuid.NewString(),
		Job:     cfg.Job,
		Trigger: trigger,
		Force:   force,
		Started: s.now(),
	}
	log := s.log.With(logx.String("run_id", res.RunID), logx.String("trigger", trigger), logx.Bool("force", force))

	s.bus.Publish(eventbus.Event{Type: eventbus.JobStarted, Data: res})
	log.Info("job started", logx.String("job", cfg.Job))

	start := time.Now()
	err := job.Safe(context.WithoutCancel(ctx), s.job)
	res.Took = time.Since(start)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		log.Error("job failed", logx.Duration("took", res.Took), logx.Err(err))
	} else {
		res.Outcome = OutcomeSucceeded
		log.Info("job finished", logx.Duration("took", res.Took))
	}

	rec := storage.RunRecord{
		ID:        res.RunID,
		Job:       res.Job,
		Trigger:   trigger,
		Force:     force,
		StartedAt: res.Started,
		Took:      res.Took,
		OK:        res.OK(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if err := s.store.AppendRun(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("run history append failed", logx.Err(err))
	}
	return res
}

func (s *Service) skip(cfg Config, trigger string, force bool, reason string, err error) Result {
	res := Result{
		Job:     cfg.Job,
		Trigger: trigger,
		Force:   force,
		Outcome: OutcomeSkipped,
		Reason:  reason,
		Started: s.now(),
		Err:     err,
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.JobSkipped, Data: res})
	return res
}

func (s *Service) finish(res Result) Result {
	s.bus.Publish(eventbus.Event{Type: eventbus.JobFinished, Data: res})
	return res
}

// markRun persists date as the last successful run.
func (s *Service) markRun(ctx context.Context, cfg Config, date time.Time, res *Result) {
	if err := s.store.SetLastRun(context.WithoutCancel(ctx), cfg.Job, date); err != nil {
		if PolicyFor(FaultStateWrite) == Report {
			res.StateErr = err
		}
		s.log.Error("last-run marker not saved", logx.String("job", cfg.Job), logx.String("run_id", res.RunID), logx.Err(err))
	}
}
