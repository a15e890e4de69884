// Package storage persists the per-job last-run marker and run history.
//
// Drivers:
//   - "file": a plain-text marker (<dir>/<job>.last_sent) plus a JSON Lines
//     run history (<dir>/<job>.runs.jsonl)
//   - "sqlite": a single SQLite database (modernc.org/sqlite, pure Go)
package storage
