package storage

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// DateLayout is how last-run dates are persisted.
const DateLayout = "2006-01-02"

// Config configures storage.
//
// Driver values:
//   - "file" (default): marker + JSON Lines files under Path (a directory)
//   - "sqlite": SQLite database file at Path
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the scheduler.
//
// Last-run dates are calendar dates; implementations store them as
// DateLayout strings and return midnight in the caller's location.
type Store interface {
	LastRun(ctx context.Context, job string, loc *time.Location) (date time.Time, ok bool, err error)
	SetLastRun(ctx context.Context, job string, date time.Time) error
	ClearLastRun(ctx context.Context, job string) error

	AppendRun(ctx context.Context, r RunRecord) error
	// RecentRuns returns up to n records for job, newest first.
	RecentRuns(ctx context.Context, job string, n int) ([]RunRecord, error)

	Close() error
}

// RunRecord is one job execution attempt.
type RunRecord struct {
	ID        string        `json:"id"`
	Job       string        `json:"job"`
	Trigger   string        `json:"trigger"` // "auto" | "manual"
	Force     bool          `json:"force,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Took      time.Duration `json:"took"`
	OK        bool          `json:"ok"`
	Error     string        `json:"error,omitempty"`
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, s, loc)
}
