package config

// Config is the daemon configuration, read from YAML or JSON. Durations are
// Go duration strings (e.g. "30s", "10m").
type Config struct {
	Scheduler   SchedulerConfig   `json:"scheduler" yaml:"scheduler"`
	Job         JobConfig         `json:"job" yaml:"job"`
	Locks       LocksConfig       `json:"locks" yaml:"locks"`
	Maintenance MaintenanceConfig `json:"maintenance" yaml:"maintenance"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	Telegram    TelegramConfig    `json:"telegram" yaml:"telegram"`
	Storage     *StorageConfig    `json:"storage,omitempty" yaml:"storage,omitempty"`
}

// SchedulerConfig controls the daily trigger.
//
// Defaults (when fields are omitted/zero):
//   - at: "08:01"
//   - timezone: local time
//   - data_dir: "./data"
type SchedulerConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	At       string `json:"at,omitempty" yaml:"at,omitempty"`
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	// DataDir holds the lock files (and the file store when storage.path is empty).
	DataDir string `json:"data_dir,omitempty" yaml:"data_dir,omitempty" split_words:"true"`
}

// JobConfig describes the external job the scheduler runs.
//
// Example:
//
//	"job": { "name": "scrape", "command": ["python3", "scrape.py"], "timeout": "20m" }
type JobConfig struct {
	Name    string   `json:"name" yaml:"name"`
	Command []string `json:"command" yaml:"command"`
	Workdir string   `json:"workdir,omitempty" yaml:"workdir,omitempty"`
	Timeout string   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Env is a list of extra KEY=VALUE pairs.
	Env []string `json:"env,omitempty" yaml:"env,omitempty" ignored:"true"`
}

// LocksConfig sets the stale thresholds (defaults 30m job, 10m manual).
type LocksConfig struct {
	JobMaxAge    string `json:"job_max_age,omitempty" yaml:"job_max_age,omitempty" split_words:"true"`
	ManualMaxAge string `json:"manual_max_age,omitempty" yaml:"manual_max_age,omitempty" split_words:"true"`
}

// MaintenanceConfig schedules periodic stale-lock cleanup.
type MaintenanceConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Schedule is a 5-field cron spec (or @every/@hourly descriptor).
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// StorageConfig controls where the last-run marker and run history live.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/coinpulse.db" }
type StorageConfig struct {
	Driver      string `json:"driver" yaml:"driver"`
	Path        string `json:"path" yaml:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty" split_words:"true"` // sqlite
}

type TelegramConfig struct {
	Token        string  `json:"token" yaml:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids" yaml:"owner_user_ids" split_words:"true"`
	// ChatID receives job notifications and log lines.
	ChatID int64 `json:"chat_id,omitempty" yaml:"chat_id,omitempty" split_words:"true"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout      string `json:"poll_timeout,omitempty" yaml:"poll_timeout,omitempty" split_words:"true"`
	NotifyRatePerSec int    `json:"notify_rate_per_sec,omitempty" yaml:"notify_rate_per_sec,omitempty" split_words:"true"`
}

type LoggingConfig struct {
	Level    string          `json:"level" yaml:"level"`
	Console  bool            `json:"console" yaml:"console"`
	File     LoggingFile     `json:"file" yaml:"file" ignored:"true"`
	Telegram LoggingTelegram `json:"telegram" yaml:"telegram" ignored:"true"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	ThreadID   int    `json:"thread_id" yaml:"thread_id"`
	MinLevel   string `json:"min_level" yaml:"min_level"`
	RatePerSec int    `json:"rate_per_sec" yaml:"rate_per_sec"`
}
