// Package notifier turns scheduler and maintenance events into short
// operator messages.
//
// It subscribes to the event bus, formats job.finished, job.skipped
// (manual-lock contention and unreadable state only) and locks.cleaned
// events, and sends them through a Sender such as the Telegram adapter.
// Delivery is rate limited and retried a few times with backoff; a message
// that still fails is logged and dropped.
package notifier
