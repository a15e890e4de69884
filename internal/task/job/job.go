// Package job runs the externally supplied daily job.
package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Job is the unit the scheduler runs. A nil error means success.
type Job interface {
	Run(ctx context.Context) error
}

// Func adapts a function to Job.
type Func func(ctx context.Context) error

func (f Func) Run(ctx context.Context) error { return f(ctx) }

// Command runs an external program, e.g. the data-scraping script.
type Command struct {
	Argv    []string
	Dir     string
	Env     []string // extra KEY=VALUE pairs appended to the process env
	Timeout time.Duration

	// OutputLimit bounds how much combined output is kept for error messages.
	OutputLimit int
}

// Run starts the command and waits for it. A non-zero exit is an error that
// carries the tail of the combined output.
func (c Command) Run(ctx context.Context) error {
	if len(c.Argv) == 0 || strings.TrimSpace(c.Argv[0]) == "" {
		return errors.New("job command is empty")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	out := &tailWriter{max: c.limit()}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w (%v)", err, ctx.Err())
		}
		if tail := out.String(); tail != "" {
			return fmt.Errorf("%s: %w: %s", c.Argv[0], err, tail)
		}
		return fmt.Errorf("%s: %w", c.Argv[0], err)
	}
	return nil
}

func (c Command) limit() int {
	if c.OutputLimit > 0 {
		return c.OutputLimit
	}
	return 512
}

// Safe runs j and converts a panic into an error.
func Safe(ctx context.Context, j Job) (err error) {
	if j == nil {
		return errors.New("no job configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return j.Run(ctx)
}

// tailWriter keeps only the last max bytes written to it.
type tailWriter struct {
	mu        sync.Mutex
	max       int
	buf       []byte
	truncated bool
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	if over := len(w.buf) - w.max; over > 0 {
		w.buf = append(w.buf[:0], w.buf[over:]...)
		w.truncated = true
	}
	return len(p), nil
}

// String returns the trimmed tail, starting at a rune boundary.
func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.buf
	if w.truncated {
		for len(b) > 0 && !utf8.RuneStart(b[0]) {
			b = b[1:]
		}
	}
	s := strings.TrimSpace(string(b))
	if w.truncated && s != "" {
		return "..." + s
	}
	return s
}
