package telegram

import (
	"context"
	"fmt"
	"strings"

	"coinpulse/internal/eventbus"
	"coinpulse/internal/task/lock"
	"coinpulse/internal/task/scheduler"
	logx "coinpulse/pkg/logx"
)

// Scheduler is what the operator commands drive.
type Scheduler interface {
	RunNow(ctx context.Context, force bool) scheduler.Result
	Status(ctx context.Context, n int) (scheduler.Status, error)
	Locks() *lock.Manager
}

// statusRecent is how many history rows /status shows.
const statusRecent = 5

// Commands implements /runnow, /status and /cleanlocks.
type Commands struct {
	Sched Scheduler
	Bus   eventbus.Bus
}

// Register installs the commands on a, owner-only.
func (c *Commands) Register(a *Adapter, owners []int64) {
	mw := []Middleware{MWPanicRecover(), MWRequestLog(), MWOwnerOnly(owners)}
	a.Handle("runnow", "run the daily job now (add \"force\" to rerun today)", c.RunNow, mw...)
	a.Handle("status", "show schedule, locks and recent runs", c.Status, mw...)
	a.Handle("cleanlocks", "remove stale lock files (add \"force\" to remove all)", c.CleanLocks, mw...)
}

func hasForce(args []string) bool {
	for _, a := range args {
		switch strings.ToLower(strings.TrimSpace(a)) {
		case "force", "-f", "--force":
			return true
		}
	}
	return false
}

func (c *Commands) RunNow(ctx context.Context, req *Request) error {
	force := hasForce(req.Args)
	if err := req.Reply(ctx, fmt.Sprintf("starting manual run (force=%t)", force)); err != nil {
		req.Logger.Warn("reply failed", logx.Err(err))
	}
	res := c.Sched.RunNow(ctx, force)
	return req.Reply(ctx, res.Summary())
}

func (c *Commands) Status(ctx context.Context, req *Request) error {
	st, err := c.Sched.Status(ctx, statusRecent)
	lines := st.Lines()
	if err != nil {
		lines = append(lines, "error: "+err.Error())
	}
	return req.Reply(ctx, strings.Join(lines, "\n"))
}

func (c *Commands) CleanLocks(ctx context.Context, req *Request) error {
	results := c.Sched.Locks().CleanStale(hasForce(req.Args))
	removed := 0
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if r.Removed {
			removed++
		}
		lines = append(lines, r.String())
	}
	if removed > 0 && c.Bus != nil {
		c.Bus.Publish(eventbus.Event{Type: eventbus.LocksCleaned, Data: results})
	}
	return req.Reply(ctx, strings.Join(lines, "\n"))
}
