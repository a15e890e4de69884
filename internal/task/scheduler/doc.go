// Package scheduler runs one job once per calendar day at a fixed
// wall-clock minute and arbitrates manual runs against the background loop.
//
// The package is responsible for:
//   - evaluating the daily trigger (trigger.go)
//   - choosing how long the loop sleeps between evaluations (poll.go)
//   - the background loop and its lock probe (loop.go)
//   - manual runs guarded by the manual-operation lock (runnow.go)
package scheduler
