//go:build unix

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coinpulse/internal/config"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestMapStorageConfigDefaultsToFileInDataDir(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{DataDir: "/srv/cp"}}
	sc, err := mapStorageConfig(cfg)
	if err != nil || sc.Driver != "file" || sc.Path != "/srv/cp" {
		t.Fatalf("got %+v err=%v", sc, err)
	}

	cfg.Storage = &config.StorageConfig{Driver: "sqlite"}
	if _, err := mapStorageConfig(cfg); err == nil {
		t.Fatal("sqlite without path accepted")
	}
	cfg.Storage.Path = "/srv/cp/db.sqlite"
	sc, err = mapStorageConfig(cfg)
	if err != nil || sc.BusyTimeout != time.Second {
		t.Fatalf("got %+v err=%v", sc, err)
	}
}

func TestMapSchedulerConfig(t *testing.T) {
	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{At: "07:30", Timezone: "UTC"},
		Locks:     config.LocksConfig{JobMaxAge: "1h"},
	}
	sc, err := mapSchedulerConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Trigger.String() != "07:30" || sc.Location.String() != "UTC" || sc.JobLockMaxAge != time.Hour {
		t.Fatalf("got %+v", sc)
	}
	if sc.Job != config.DefaultJobName || sc.DataDir != config.DefaultDataDir {
		t.Fatalf("defaults not applied: %+v", sc)
	}
}

func TestAppLifecycleWithoutTelegram(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	p := writeConfig(t, dir, `
scheduler:
  enabled: true
  at: "08:01"
  data_dir: `+data+`
job:
  name: scrape
  command: ["true"]
maintenance:
  enabled: true
logging:
  level: warn
`)
	a, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	res := a.sched.RunNow(ctx, false)
	if !res.OK() {
		t.Fatalf("RunNow: %s", res.Summary())
	}
	if _, err := os.Stat(a.Locks().ManualPath()); err != nil {
		t.Fatalf("manual lock file not created in data dir: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-a.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestApplyKeepsRestartOnlyValues(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	p := writeConfig(t, dir, `
scheduler:
  enabled: true
  at: "08:01"
  data_dir: `+data+`
job:
  command: ["true"]
`)
	a, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		_ = a.store.Close()
		_ = a.logs.Close()
	})

	next := *a.cfgm.Current()
	next.Scheduler.At = "09:30"
	next.Scheduler.Enabled = false
	next.Scheduler.DataDir = filepath.Join(dir, "elsewhere")
	a.apply(config.Change{Old: a.cfgm.Current(), New: &next, Restart: []string{"scheduler.enabled", "scheduler.data_dir"}})

	st, err := a.sched.Status(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if st.At.String() != "09:30" {
		t.Fatalf("trigger not applied live: %s", st.At)
	}
	if !a.sched.Enabled() || a.sched.Locks().Dir != data {
		t.Fatalf("restart-only values changed: enabled=%v dir=%s", a.sched.Enabled(), a.sched.Locks().Dir)
	}
}
