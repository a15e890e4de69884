package lock

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	// ManualFileName is the lock taken by manual (operator) runs.
	ManualFileName = "manual_operation.lock"

	DefaultJobMaxAge    = 30 * time.Minute
	DefaultManualMaxAge = 10 * time.Minute
)

// Manager binds the two lock files of one job to a data directory.
type Manager struct {
	Dir          string
	Job          string
	JobMaxAge    time.Duration
	ManualMaxAge time.Duration
}

// NewManager returns a Manager with default stale thresholds.
func NewManager(dir, job string) *Manager {
	return &Manager{Dir: dir, Job: job, JobMaxAge: DefaultJobMaxAge, ManualMaxAge: DefaultManualMaxAge}
}

// JobPath is the lock held by background runs: <dir>/<job>.lock.
func (m *Manager) JobPath() string {
	job := strings.TrimSpace(m.Job)
	if job == "" {
		job = "job"
	}
	return filepath.Join(m.Dir, job+".lock")
}

// ManualPath is the lock held by manual runs: <dir>/manual_operation.lock.
func (m *Manager) ManualPath() string {
	return filepath.Join(m.Dir, ManualFileName)
}

// CleanStale runs CheckAndRemoveStale for the job lock and then the manual
// lock. A failure on one file does not stop the other check.
func (m *Manager) CleanStale(force bool) []StaleResult {
	jobAge := m.JobMaxAge
	if jobAge <= 0 {
		jobAge = DefaultJobMaxAge
	}
	manualAge := m.ManualMaxAge
	if manualAge <= 0 {
		manualAge = DefaultManualMaxAge
	}
	return []StaleResult{
		CheckAndRemoveStale(m.JobPath(), jobAge, force),
		CheckAndRemoveStale(m.ManualPath(), manualAge, force),
	}
}

// States probes both lock files.
func (m *Manager) States() (job, manual ProbeState, err error) {
	job, err = Probe(m.JobPath())
	if err != nil {
		return job, ProbeAbsent, err
	}
	manual, err = Probe(m.ManualPath())
	return job, manual, err
}
