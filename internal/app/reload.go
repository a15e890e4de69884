package app

import (
	"context"
	"time"

	"coinpulse/internal/config"
	rtsup "coinpulse/internal/runtime/supervisor"
	logx "coinpulse/pkg/logx"
)

// watchConfig runs the config watcher under the supervisor; a broken
// watcher is recreated with backoff.
func (a *App) watchConfig() {
	a.sup.GoRestart("config.watch", func(ctx context.Context) error {
		return a.cfgm.Watch(ctx, a.apply)
	}, rtsup.WithRestartBackoff(250*time.Millisecond, 5*time.Second))
}

// apply pushes the live part of a config change into the services. Keys in
// ch.Restart keep their running values.
func (a *App) apply(ch config.Change) {
	cfg := ch.New
	a.logs.Apply(mapLogConfig(cfg))

	sc, err := mapSchedulerConfig(cfg)
	if err != nil {
		a.log.Warn("scheduler config not applied", logx.Err(err))
	} else {
		running := a.sched.Locks()
		sc.Enabled = a.sched.Enabled()
		sc.DataDir = running.Dir
		a.sched.Apply(sc)
	}

	if err := a.maint.Apply(mapMaintenanceConfig(cfg)); err != nil {
		a.log.Warn("maintenance config not applied", logx.Err(err))
	}
	if a.notif != nil {
		a.notif.Apply(mapNotifierConfig(cfg))
	}
	a.log.Info("config reloaded")
}
