package app

import (
	"fmt"
	"strings"
	"time"

	"coinpulse/internal/config"
	"coinpulse/internal/maintenance"
	"coinpulse/internal/notifier"
	"coinpulse/internal/storage"
	"coinpulse/internal/task/job"
	"coinpulse/internal/task/scheduler"
	logx "coinpulse/pkg/logx"
)

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	trig, err := scheduler.ParseAt(cfg.Scheduler.At)
	if err != nil {
		return scheduler.Config{}, fmt.Errorf("scheduler.at: %w", err)
	}
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return scheduler.Config{}, fmt.Errorf("scheduler.timezone: %w", err)
	}
	jobAge, manualAge, err := cfg.Locks.MaxAges()
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Enabled:          cfg.Scheduler.Enabled,
		Job:              cfg.Job.JobName(),
		DataDir:          cfg.Scheduler.Dir(),
		Trigger:          trig,
		Location:         loc,
		JobLockMaxAge:    jobAge,
		ManualLockMaxAge: manualAge,
	}, nil
}

func mapJob(cfg *config.Config) (job.Command, error) {
	timeout, err := cfg.Job.TimeoutDuration()
	if err != nil {
		return job.Command{}, err
	}
	return job.Command{
		Argv:    append([]string(nil), cfg.Job.Command...),
		Dir:     cfg.Job.Workdir,
		Env:     append([]string(nil), cfg.Job.Env...),
		Timeout: timeout,
	}, nil
}

// mapStorageConfig defaults to the file driver under scheduler.data_dir.
func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	if cfg.Storage == nil || strings.TrimSpace(cfg.Storage.Driver) == "" {
		path := cfg.Scheduler.Dir()
		if cfg.Storage != nil && strings.TrimSpace(cfg.Storage.Path) != "" {
			path = strings.TrimSpace(cfg.Storage.Path)
		}
		return storage.Config{Driver: "file", Path: path}, nil
	}
	sc := cfg.Storage
	path := strings.TrimSpace(sc.Path)
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	switch driver {
	case "file":
		if path == "" {
			path = cfg.Scheduler.Dir()
		}
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := sc.BusyTimeoutDuration()
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapLogConfig(cfg *config.Config) logx.Config {
	lt := cfg.Logging.Telegram
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    lt.Enabled && cfg.Telegram.ChatID != 0,
			ChatID:     cfg.Telegram.ChatID,
			ThreadID:   lt.ThreadID,
			MinLevel:   lt.MinLevel,
			RatePerSec: lt.RatePerSec,
		},
	}
}

func mapNotifierConfig(cfg *config.Config) notifier.Config {
	return notifier.Config{
		ChatID:     cfg.Telegram.ChatID,
		ThreadID:   cfg.Logging.Telegram.ThreadID,
		RatePerSec: cfg.Telegram.NotifyRatePerSec,
	}
}

func mapMaintenanceConfig(cfg *config.Config) maintenance.Config {
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		loc = time.Local
	}
	return maintenance.Config{
		Enabled:  cfg.Maintenance.Enabled,
		Schedule: cfg.Maintenance.Schedule,
		Location: loc,
	}
}
