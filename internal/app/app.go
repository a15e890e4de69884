// Package app wires the daemon together from config and runs its lifecycle.
package app

import (
	"context"
	"errors"
	"strings"

	"coinpulse/internal/config"
	"coinpulse/internal/eventbus"
	"coinpulse/internal/maintenance"
	"coinpulse/internal/notifier"
	rtsup "coinpulse/internal/runtime/supervisor"
	"coinpulse/internal/storage"
	"coinpulse/internal/task/lock"
	"coinpulse/internal/task/scheduler"
	"coinpulse/internal/transport/telegram"
	logx "coinpulse/pkg/logx"
	"coinpulse/pkg/systemd"
)

type App struct {
	cfgPath string
	cfgm    *config.Manager
	sup     *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	tg    *telegram.Adapter // nil without a token
	sched *scheduler.Service
	notif *notifier.Service
	maint *maintenance.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath, logx.Nop())
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	var (
		tg     *telegram.Adapter
		sender logx.Sender
	)
	if strings.TrimSpace(cfg.Telegram.Token) != "" {
		pollTimeout, err := cfg.Telegram.PollTimeoutDuration()
		if err != nil {
			return nil, err
		}
		bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
		tg, err = telegram.New(telegram.Config{
			Token:        cfg.Telegram.Token,
			PollTimeout:  pollTimeout,
			OwnerUserIDs: cfg.Telegram.OwnerUserIDs,
		}, bootLog)
		if err != nil {
			return nil, err
		}
		sender = tg
	}

	logSvc, log := logx.New(mapLogConfig(cfg), sender)
	appLog := log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()
	sched, store, err := OpenScheduler(cfg, log, bus)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     appLog,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		tg:      tg,
		sched:   sched,
	}
	a.maint = maintenance.New(mapMaintenanceConfig(cfg), sched.Locks, log.With(logx.String("comp", "maintenance")), bus)

	if tg != nil {
		a.notif = notifier.New(mapNotifierConfig(cfg), tg, log.With(logx.String("comp", "notifier")), bus)
		cmds := &telegram.Commands{Sched: sched, Bus: bus}
		cmds.Register(tg, cfg.Telegram.OwnerUserIDs)
	} else {
		appLog.Info("telegram disabled (no token); operator commands and notifications are off")
	}
	return a, nil
}

// Done is closed when the app context is cancelled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// Clear residue from a crash before the first trigger evaluation.
	a.maint.RunAtStart()

	if a.tg != nil {
		if err := a.tg.Start(a.sup.Context()); err != nil {
			return err
		}
	}
	if a.notif != nil {
		a.sup.GoRestart("notifier", a.notif.Run)
	}
	a.sup.Go("maintenance", a.maint.Run)

	if a.sched.Enabled() {
		a.sup.Go("scheduler.loop", a.sched.Run)
	} else {
		a.log.Info("scheduler disabled via config; manual runs only")
	}

	a.watchConfig()
	a.sup.Go0("eventbus.log", a.eventLog)
	a.sup.Go0("systemd.watchdog", func(c context.Context) { systemd.Watchdog(c, a.log) })

	if _, err := systemd.Ready(); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	}
	a.log.Info("coinpulse started", logx.String("config", a.cfgPath))
	return nil
}

// Stop cancels every component and waits for them. An in-flight job is
// allowed to finish within ctx.
func (a *App) Stop(ctx context.Context) error {
	_, _ = systemd.Stopping()
	var errs []error
	if a.tg != nil {
		errs = append(errs, a.tg.Stop(ctx))
	}
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	errs = append(errs, a.store.Close())
	a.log.Info("coinpulse stopped")
	errs = append(errs, a.logs.Close())
	return errors.Join(errs...)
}

// eventLog mirrors bus events at debug level.
func (a *App) eventLog(ctx context.Context) {
	events, unsub := a.bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
		}
	}
}

// Locks exposes the current lock manager (used by tests).
func (a *App) Locks() *lock.Manager { return a.sched.Locks() }
