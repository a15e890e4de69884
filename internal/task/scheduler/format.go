package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Summary is a one-line, human-readable description of r.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s run", r.Job, r.Trigger)
	if r.Force {
		b.WriteString(" (forced)")
	}
	switch r.Outcome {
	case OutcomeSucceeded:
		fmt.Fprintf(&b, " succeeded in %s", r.Took.Round(time.Millisecond))
	case OutcomeFailed:
		fmt.Fprintf(&b, " failed after %s", r.Took.Round(time.Millisecond))
		if r.Err != nil {
			fmt.Fprintf(&b, ": %v", r.Err)
		}
	case OutcomeSkipped:
		fmt.Fprintf(&b, " skipped: %s", reasonText(r.Reason))
		if r.Err != nil {
			fmt.Fprintf(&b, " (%v)", r.Err)
		}
	}
	if r.Unguarded {
		b.WriteString(" [ran without lock]")
	}
	if r.StateErr != nil {
		fmt.Fprintf(&b, " [last-run marker: %v]", r.StateErr)
	}
	return b.String()
}

func reasonText(reason string) string {
	switch reason {
	case ReasonManualBusy:
		return "a manual operation is in progress"
	case ReasonJobLockBusy:
		return "another scheduler is running the job"
	case ReasonAlreadyRan:
		return "already ran today (use force)"
	case ReasonStateReadError:
		return "last-run marker unreadable"
	case ReasonLockError:
		return "lock file unusable"
	default:
		return reason
	}
}

// Lines renders s as plain text lines.
func (s Status) Lines() []string {
	last := "never"
	if s.HasLastRun {
		last = s.LastRun.Format("2006-01-02")
	}
	d := s.Decision
	out := []string{
		fmt.Sprintf("job: %s", s.Job),
		fmt.Sprintf("daily at: %s (%s)", s.At, s.Location),
		fmt.Sprintf("last run: %s", last),
		fmt.Sprintf("next target: %s (in %s)", d.Target.Format("2006-01-02 15:04"), d.TimeDiff.Round(time.Second)),
		fmt.Sprintf("due now: %t", d.ShouldRun),
		fmt.Sprintf("locks: job=%s manual=%s", s.JobLock, s.ManualLock),
	}
	if s.LockErr != nil {
		out = append(out, fmt.Sprintf("lock probe error: %v", s.LockErr))
	}
	if len(s.Recent) > 0 {
		out = append(out, "recent runs:")
		for _, r := range s.Recent {
			state := "ok"
			if !r.OK {
				state = "failed"
				if r.Error != "" {
					state += ": " + r.Error
				}
			}
			force := ""
			if r.Force {
				force = " forced"
			}
			out = append(out, fmt.Sprintf("  %s %s%s %s (%s)",
				r.StartedAt.Format("2006-01-02 15:04"), r.Trigger, force, state, r.Took.Round(time.Millisecond)))
		}
	}
	return out
}
