package scheduler

import (
	"context"
	"time"
)

const (
	// FineWindow is the distance to the target below which the loop polls finely.
	FineWindow = 5 * time.Minute
	// FineInterval is the sleep inside FineWindow.
	FineInterval = 30 * time.Second
	// MaxInterval caps coarse sleeps.
	MaxInterval = time.Hour
)

// PollInterval returns how long the loop should sleep given the time left
// until the next target.
//
// Coarse sleeps always end at least FineWindow before the target so the fine
// phase takes over in time.
func PollInterval(timeDiff time.Duration) time.Duration {
	if timeDiff <= FineWindow {
		return FineInterval
	}
	d := timeDiff - FineWindow
	if d > MaxInterval {
		d = MaxInterval
	}
	return d
}

// Sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
