// Package lock implements cooperative job locks on top of advisory file locks.
//
// A lock file is "held" while some process has an exclusive flock on it. The
// file itself outlives the lock: Release leaves it on disk, and only
// CheckAndRemoveStale deletes it, judging staleness purely by modification
// time. Nothing here records or verifies the owning process, so a stale
// verdict is a heuristic, not proof that the holder is gone.
package lock
