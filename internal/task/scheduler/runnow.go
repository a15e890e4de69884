package scheduler

import (
	"context"
	"errors"
	"fmt"

	"coinpulse/internal/task/lock"
	logx "coinpulse/pkg/logx"
)

// RunNow runs the job on request, guarded by the manual-operation lock.
//
//   - lock busy: the request is skipped, never queued
//   - lock unusable (I/O error): the job runs without mutual exclusion
//   - without force, a job already recorded for today is skipped
//   - with force, the marker is cleared for the run and restored if the job fails
//
// The lock is released on every path.
func (s *Service) RunNow(ctx context.Context, force bool) Result {
	cfg := s.config()
	locks := cfg.Locks()
	log := s.log.With(logx.String("job", cfg.Job), logx.String("trigger", TriggerManual), logx.Bool("force", force))

	unguarded := false
	h, err := lock.TryAcquire(locks.ManualPath())
	switch {
	case errors.Is(err, lock.ErrBusy):
		log.Info("manual run skipped: another manual operation holds the lock", logx.String("path", locks.ManualPath()))
		return s.skip(cfg, TriggerManual, force, ReasonManualBusy, nil)
	case err != nil && PolicyFor(FaultManualLockIO) == FailOpen:
		log.Error("manual lock unavailable; running without mutual exclusion", logx.Err(err))
		unguarded = true
	case err != nil:
		return s.skip(cfg, TriggerManual, force, ReasonLockError, err)
	default:
		defer func() {
			if err := h.Release(); err != nil {
				log.Warn("manual lock release failed", logx.Err(err))
			}
		}()
	}

	res := s.runManual(ctx, cfg, force, log)
	res.Unguarded = unguarded
	return res
}

func (s *Service) runManual(ctx context.Context, cfg Config, force bool, log logx.Logger) Result {
	loc := cfg.location()
	now := s.now().In(loc)

	prev, hadPrev, err := s.store.LastRun(ctx, cfg.Job, loc)
	if err != nil {
		log.Error("last-run marker unreadable; manual run abandoned", logx.Err(err))
		return s.skip(cfg, TriggerManual, force, ReasonStateReadError, fmt.Errorf("read last run: %w", err))
	}
	if !force && hadPrev && SameDate(prev, now) {
		log.Info("manual run skipped: already ran today", logx.String("last_run", prev.Format("2006-01-02")))
		return s.skip(cfg, TriggerManual, force, ReasonAlreadyRan, nil)
	}
	if force && hadPrev {
		if err := s.store.ClearLastRun(ctx, cfg.Job); err != nil {
			log.Warn("could not clear last-run marker before forced run", logx.Err(err))
		}
	}

	res := s.execute(ctx, cfg, TriggerManual, force)
	switch {
	case res.OK():
		s.markRun(ctx, cfg, now, &res)
	case force && hadPrev:
		// Put back the last known good marker.
		if err := s.store.SetLastRun(context.WithoutCancel(ctx), cfg.Job, prev); err != nil {
			res.StateErr = err
			log.Error("last-run marker not restored after failed forced run", logx.Err(err))
		} else {
			log.Info("last-run marker restored after failed forced run", logx.String("last_run", prev.Format("2006-01-02")))
		}
	}
	return s.finish(res)
}
