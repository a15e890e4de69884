package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultJobLockMaxAge    = 30 * time.Minute
	DefaultManualLockMaxAge = 10 * time.Minute
	DefaultPollTimeout      = 10 * time.Second
	DefaultBusyTimeout      = time.Second
)

// parseDuration reads a non-negative duration field. Empty or zero yields def.
func parseDuration(key, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", key)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}

// TimeoutDuration is job.timeout; zero means no limit.
func (c JobConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("job.timeout", c.Timeout, 0)
}

// MaxAges returns the stale thresholds of the job lock and the manual lock.
func (c LocksConfig) MaxAges() (job, manual time.Duration, err error) {
	if job, err = parseDuration("locks.job_max_age", c.JobMaxAge, DefaultJobLockMaxAge); err != nil {
		return 0, 0, err
	}
	if manual, err = parseDuration("locks.manual_max_age", c.ManualMaxAge, DefaultManualLockMaxAge); err != nil {
		return 0, 0, err
	}
	return job, manual, nil
}

func (c TelegramConfig) PollTimeoutDuration() (time.Duration, error) {
	return parseDuration("telegram.poll_timeout", c.PollTimeout, DefaultPollTimeout)
}

func (c StorageConfig) BusyTimeoutDuration() (time.Duration, error) {
	return parseDuration("storage.busy_timeout", c.BusyTimeout, DefaultBusyTimeout)
}
