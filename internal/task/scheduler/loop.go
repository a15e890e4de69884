package scheduler

import (
	"context"
	"errors"
	"time"

	"coinpulse/internal/task/lock"
	logx "coinpulse/pkg/logx"
)

// Run is the background loop. It returns nil once ctx is done; an in-flight
// job is allowed to finish first.
func (s *Service) Run(ctx context.Context) error {
	cfg := s.config()
	s.log.Info("scheduler loop started",
		logx.String("job", cfg.Job),
		logx.String("at", cfg.Trigger.String()),
		logx.String("tz", cfg.location().String()))

	for {
		if ctx.Err() != nil {
			break
		}
		d := s.tick(ctx)
		if !Sleep(ctx, d) {
			break
		}
	}
	s.log.Info("scheduler loop stopped")
	return nil
}

// tick performs one evaluation (and run, when due) and returns how long to
// sleep before the next one.
func (s *Service) tick(ctx context.Context) time.Duration {
	cfg := s.config()
	loc := cfg.location()
	now := s.now().In(loc)

	last, _, err := s.store.LastRun(ctx, cfg.Job, loc)
	if err != nil && PolicyFor(FaultStateRead) == FailClosed {
		dec := cfg.Trigger.Evaluate(now, time.Time{})
		if dec.ShouldRun {
			s.log.Error("last-run marker unreadable; scheduled run skipped", logx.String("job", cfg.Job), logx.Err(err))
			s.skip(cfg, TriggerAuto, false, ReasonStateReadError, err)
		} else {
			s.log.Warn("last-run marker unreadable", logx.String("job", cfg.Job), logx.Err(err))
		}
		return PollInterval(dec.TimeDiff)
	}

	dec := cfg.Trigger.Evaluate(now, last)
	s.mu.Lock()
	s.lastDecision = dec
	s.mu.Unlock()

	if dec.ShouldRun {
		s.log.Info("daily trigger due",
			logx.Bool("exact_time", dec.ExactTime),
			logx.Bool("in_window", dec.InWindow),
			logx.Duration("time_diff", dec.TimeDiff))
		s.runScheduled(ctx, cfg, now)
	}

	next := PollInterval(dec.TimeDiff)
	s.log.Debug("next check",
		logx.Duration("sleep", next),
		logx.Time("target", dec.Target),
		logx.Duration("time_diff", dec.TimeDiff))
	return next
}

// runScheduled applies the background protocol:
//   - manual lock absent: run
//   - manual lock present but free (residue): run
//   - manual lock held: skip this cycle
//   - probe error: run
//
// The probe releases before the job starts, so a manual run may still take
// the manual lock in between. The job lock only keeps two background
// schedulers apart.
func (s *Service) runScheduled(ctx context.Context, cfg Config, now time.Time) Result {
	locks := cfg.Locks()
	log := s.log.With(logx.String("job", cfg.Job), logx.String("trigger", TriggerAuto))
	unguarded := false

	state, err := lock.Probe(locks.ManualPath())
	switch {
	case err != nil && PolicyFor(FaultProbeIO) == FailOpen:
		log.Error("manual lock probe failed; running anyway", logx.String("path", locks.ManualPath()), logx.Err(err))
		unguarded = true
	case err != nil:
		return s.skip(cfg, TriggerAuto, false, ReasonLockError, err)
	case state == lock.ProbeHeld:
		log.Info("scheduled run skipped: manual operation in progress", logx.String("path", locks.ManualPath()))
		return s.skip(cfg, TriggerAuto, false, ReasonManualBusy, nil)
	case state == lock.ProbeFree:
		log.Debug("manual lock file is residue; proceeding", logx.String("path", locks.ManualPath()))
	}

	h, err := lock.TryAcquire(locks.JobPath())
	switch {
	case errors.Is(err, lock.ErrBusy):
		log.Info("scheduled run skipped: job lock held by another scheduler", logx.String("path", locks.JobPath()))
		return s.skip(cfg, TriggerAuto, false, ReasonJobLockBusy, nil)
	case err != nil && PolicyFor(FaultJobLockIO) == FailOpen:
		log.Error("job lock unavailable; running without it", logx.Err(err))
		unguarded = true
	case err != nil:
		return s.skip(cfg, TriggerAuto, false, ReasonLockError, err)
	default:
		defer func() {
			if err := h.Release(); err != nil {
				log.Warn("job lock release failed", logx.Err(err))
			}
		}()
	}

	res := s.execute(ctx, cfg, TriggerAuto, false)
	res.Unguarded = unguarded
	if res.OK() {
		s.markRun(ctx, cfg, now, &res)
	}
	return s.finish(res)
}
