package scheduler

import (
	"time"

	"coinpulse/internal/storage"
	"coinpulse/internal/task/lock"
)

// Trigger sources recorded on runs.
const (
	TriggerAuto   = "auto"
	TriggerManual = "manual"
)

// Skip reasons.
const (
	ReasonManualBusy     = "manual-lock-busy"
	ReasonJobLockBusy    = "job-lock-busy"
	ReasonAlreadyRan     = "already-ran-today"
	ReasonStateReadError = "state-read-failed"
	ReasonLockError      = "lock-io-failed"
)

// Config controls the daily scheduler.
type Config struct {
	Enabled  bool
	Job      string
	DataDir  string
	Trigger  Trigger
	Location *time.Location

	JobLockMaxAge    time.Duration
	ManualLockMaxAge time.Duration
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Locks returns the lock manager for the configured job and data dir.
func (c Config) Locks() *lock.Manager {
	m := lock.NewManager(c.DataDir, c.Job)
	if c.JobLockMaxAge > 0 {
		m.JobMaxAge = c.JobLockMaxAge
	}
	if c.ManualLockMaxAge > 0 {
		m.ManualMaxAge = c.ManualLockMaxAge
	}
	return m
}

// Outcome is how a run request ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Result describes one run request, automatic or manual.
type Result struct {
	RunID   string
	Job     string
	Trigger string
	Force   bool
	Outcome Outcome
	Reason  string // set when skipped
	Started time.Time
	Took    time.Duration
	Err     error // job error, or state error on skip/failure

	// Unguarded is set when the run proceeded without its lock because
	// the lock file could not be used.
	Unguarded bool
	// StateErr is a failure to persist or restore the last-run marker.
	StateErr error
}

func (r Result) OK() bool { return r.Outcome == OutcomeSucceeded }

// Status is a point-in-time view for operators.
type Status struct {
	Job        string
	At         Trigger
	Location   string
	Decision   Decision
	LastRun    time.Time
	HasLastRun bool
	JobLock    lock.ProbeState
	ManualLock lock.ProbeState
	LockErr    error
	Recent     []storage.RunRecord
}
