package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "coinpulse/pkg/logx"
)

const (
	DefaultAt                  = "08:01"
	DefaultDataDir             = "./data"
	DefaultJobName             = "crypto_data"
	DefaultMaintenanceSchedule = "*/10 * * * *"
)

// Validate checks values that the strict decoder cannot. It collects every
// problem instead of stopping at the first.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(validateAt(cfg.Scheduler.At))
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add(fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	if name := strings.TrimSpace(cfg.Job.Name); strings.ContainsAny(name, `/\`) {
		add(fmt.Errorf("job.name: %q must not contain path separators", name))
	}
	if cfg.Scheduler.Enabled && len(cfg.Job.Command) == 0 {
		add(errors.New("job.command: required when scheduler is enabled"))
	}
	for _, kv := range cfg.Job.Env {
		if !strings.Contains(kv, "=") {
			add(fmt.Errorf("job.env: %q is not KEY=VALUE", kv))
		}
	}
	_, err := cfg.Job.TimeoutDuration()
	add(err)
	_, _, err = cfg.Locks.MaxAges()
	add(err)

	if cfg.Maintenance.Enabled {
		spec := strings.TrimSpace(cfg.Maintenance.Schedule)
		if spec == "" {
			spec = DefaultMaintenanceSchedule
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			add(fmt.Errorf("maintenance.schedule: %w", err))
		}
	}

	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" && !logx.ValidLevel(lvl) {
		add(fmt.Errorf("logging.level: unknown level %q", lvl))
	}
	if lvl := strings.TrimSpace(cfg.Logging.Telegram.MinLevel); lvl != "" && !logx.ValidLevel(lvl) {
		add(fmt.Errorf("logging.telegram.min_level: unknown level %q", lvl))
	}
	_, err = cfg.Telegram.PollTimeoutDuration()
	add(err)
	if cfg.Telegram.NotifyRatePerSec < 0 {
		add(errors.New("telegram.notify_rate_per_sec: must be >= 0"))
	}

	if cfg.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
		case "", "file", "sqlite", "sqlite3":
		default:
			add(fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
		}
		_, err = cfg.Storage.BusyTimeoutDuration()
		add(err)
	}
	return errors.Join(errs...)
}

func validateAt(raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	var h, m int
	if n, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil || n != 2 || len(s) != 5 {
		return fmt.Errorf("scheduler.at: invalid time %q, expected HH:MM", raw)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("scheduler.at: %q out of range", raw)
	}
	return nil
}

// Location resolves scheduler.timezone (empty means local time).
func (c SchedulerConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// JobName returns job.name or the default.
func (c JobConfig) JobName() string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	return DefaultJobName
}

// Dir returns scheduler.data_dir or the default.
func (c SchedulerConfig) Dir() string {
	if d := strings.TrimSpace(c.DataDir); d != "" {
		return d
	}
	return DefaultDataDir
}
