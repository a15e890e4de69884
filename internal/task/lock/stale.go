package lock

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// StaleResult describes one CheckAndRemoveStale call.
type StaleResult struct {
	Path    string
	MaxAge  time.Duration
	Force   bool
	Exists  bool
	Age     time.Duration
	Removed bool
	Err     error
}

func (r StaleResult) String() string {
	switch {
	case r.Err != nil && r.Exists:
		return fmt.Sprintf("%s: failed to remove (age %s): %v", r.Path, r.Age.Round(time.Second), r.Err)
	case r.Err != nil:
		return fmt.Sprintf("%s: check failed: %v", r.Path, r.Err)
	case !r.Exists:
		return fmt.Sprintf("%s: no lock file", r.Path)
	case r.Removed && r.Force:
		return fmt.Sprintf("%s: removed (forced, age %s)", r.Path, r.Age.Round(time.Second))
	case r.Removed:
		return fmt.Sprintf("%s: removed stale lock (age %s > %s)", r.Path, r.Age.Round(time.Second), r.MaxAge)
	default:
		return fmt.Sprintf("%s: kept (age %s <= %s)", r.Path, r.Age.Round(time.Second), r.MaxAge)
	}
}

// CheckAndRemoveStale deletes the lock file at path when it exists and either
// force is set or its mtime is older than maxAge.
//
// It does not check whether anyone holds the lock. Run it as out-of-band
// maintenance, not as part of acquiring.
func CheckAndRemoveStale(path string, maxAge time.Duration, force bool) StaleResult {
	return checkAndRemoveStale(path, maxAge, force, time.Now())
}

func checkAndRemoveStale(path string, maxAge time.Duration, force bool, now time.Time) StaleResult {
	res := StaleResult{Path: path, MaxAge: maxAge, Force: force}
	st, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			res.Err = err
		}
		return res
	}
	res.Exists = true
	res.Age = now.Sub(st.ModTime())
	if !force && res.Age <= maxAge {
		return res
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Someone else cleaned it between Stat and Remove.
			res.Removed = true
			return res
		}
		res.Err = err
		return res
	}
	res.Removed = true
	return res
}
