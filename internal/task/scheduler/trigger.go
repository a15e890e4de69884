package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultAt is the wall-clock minute the daily job targets.
const DefaultAt = "08:01"

// Window is how close the next target must be for the trigger to fire
// before the target minute itself.
const Window = 60 * time.Second

// Trigger is a fixed daily wall-clock minute.
type Trigger struct {
	Hour   int
	Minute int
}

// ParseAt parses "HH:MM" (24h) into a Trigger.
func ParseAt(s string) (Trigger, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DefaultAt
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Trigger{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Trigger{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Trigger{}, fmt.Errorf("invalid minute in %q", s)
	}
	return Trigger{Hour: h, Minute: m}, nil
}

func (t Trigger) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Decision is the outcome of one trigger evaluation with all intermediates
// kept for logging and status output.
type Decision struct {
	Now          time.Time
	Target       time.Time // next occurrence, strictly after Now
	TimeDiff     time.Duration
	ExactTime    bool // Now is inside the target minute
	InWindow     bool // TimeDiff <= Window
	NotSentToday bool
	ShouldRun    bool
}

// Next returns the next occurrence of t strictly after now, in now's location.
func (t Trigger) Next(now time.Time) time.Time {
	y, mo, d := now.Date()
	target := time.Date(y, mo, d, t.Hour, t.Minute, 0, 0, now.Location())
	if !now.Before(target) {
		target = time.Date(y, mo, d+1, t.Hour, t.Minute, 0, 0, now.Location())
	}
	return target
}

// Evaluate decides whether the daily job is due at now.
//
// lastRun is the date of the last successful run (zero if never). Only its
// calendar date in now's location matters.
//
// Inside the target minute Next has already rolled to tomorrow, so TimeDiff is
// about a day; ExactTime covers that minute and InWindow covers the approach.
// Both are needed.
func (t Trigger) Evaluate(now, lastRun time.Time) Decision {
	target := t.Next(now)
	diff := target.Sub(now)

	dec := Decision{
		Now:          now,
		Target:       target,
		TimeDiff:     diff,
		ExactTime:    now.Hour() == t.Hour && now.Minute() == t.Minute,
		InWindow:     diff <= Window,
		NotSentToday: lastRun.IsZero() || dateBefore(lastRun.In(now.Location()), now),
	}
	dec.ShouldRun = (dec.ExactTime || dec.InWindow) && dec.NotSentToday
	return dec
}

// ShouldRun is Evaluate(now, lastRun).ShouldRun.
func (t Trigger) ShouldRun(now, lastRun time.Time) bool {
	return t.Evaluate(now, lastRun).ShouldRun
}

// SameDate reports whether a and b fall on the same calendar date in b's location.
func SameDate(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dateBefore reports whether a's calendar date is strictly before b's.
func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
