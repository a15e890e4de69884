package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// COINPULSE_TELEGRAM_TOKEN or COINPULSE_SCHEDULER_AT.
const EnvPrefix = "COINPULSE"

// ApplyEnv overrides cfg fields from the environment. Unset variables leave
// the file value in place.
func ApplyEnv(cfg *Config) error {
	if cfg.Storage == nil {
		cfg.Storage = &StorageConfig{}
	}
	groups := []struct {
		name string
		spec any
	}{
		{"SCHEDULER", &cfg.Scheduler},
		{"JOB", &cfg.Job},
		{"LOCKS", &cfg.Locks},
		{"MAINTENANCE", &cfg.Maintenance},
		{"LOGGING", &cfg.Logging},
		{"TELEGRAM", &cfg.Telegram},
		{"STORAGE", cfg.Storage},
	}
	for _, g := range groups {
		if err := envconfig.Process(EnvPrefix+"_"+g.name, g.spec); err != nil {
			return fmt.Errorf("env %s_%s: %w", EnvPrefix, g.name, err)
		}
	}
	if *cfg.Storage == (StorageConfig{}) {
		cfg.Storage = nil
	}
	return nil
}
