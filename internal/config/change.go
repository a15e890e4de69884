package config

import (
	"slices"
	"strings"
)

// Change is an accepted edit of the config file.
//
// Trigger time, timezone, lock ages, logging, notifications and the
// maintenance schedule apply live. Restart lists the changed keys that only
// take effect after a restart.
type Change struct {
	Old, New *Config
	Restart  []string
}

func newChange(old, cfg *Config) Change {
	ch := Change{Old: old, New: cfg}
	if old == nil {
		return ch
	}
	add := func(key string, changed bool) {
		if changed {
			ch.Restart = append(ch.Restart, key)
		}
	}
	add("scheduler.enabled", old.Scheduler.Enabled != cfg.Scheduler.Enabled)
	add("scheduler.data_dir", old.Scheduler.Dir() != cfg.Scheduler.Dir())
	add("job", !jobEqual(old.Job, cfg.Job))
	add("storage", !storageEqual(old.Storage, cfg.Storage))
	add("telegram.token", old.Telegram.Token != cfg.Telegram.Token)
	add("telegram.owner_user_ids", !slices.Equal(old.Telegram.OwnerUserIDs, cfg.Telegram.OwnerUserIDs))
	add("telegram.poll_timeout", strings.TrimSpace(old.Telegram.PollTimeout) != strings.TrimSpace(cfg.Telegram.PollTimeout))
	return ch
}

func jobEqual(a, b JobConfig) bool {
	return a.JobName() == b.JobName() &&
		slices.Equal(a.Command, b.Command) &&
		a.Workdir == b.Workdir &&
		strings.TrimSpace(a.Timeout) == strings.TrimSpace(b.Timeout) &&
		slices.Equal(a.Env, b.Env)
}

func storageEqual(a, b *StorageConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
