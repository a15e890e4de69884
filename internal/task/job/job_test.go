//go:build unix

package job

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestCommandSuccess(t *testing.T) {
	t.Parallel()
	c := Command{Argv: []string{"sh", "-c", "exit 0"}}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestCommandFailureCarriesOutput(t *testing.T) {
	t.Parallel()
	c := Command{Argv: []string{"sh", "-c", "echo rate limited >&2; exit 3"}}
	err := c.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("error %q should contain output tail", err)
	}
}

func TestCommandTimeout(t *testing.T) {
	t.Parallel()
	c := Command{Argv: []string{"sleep", "5"}, Timeout: 50 * time.Millisecond}
	start := time.Now()
	if err := c.Run(context.Background()); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("timeout not enforced")
	}
}

func TestCommandEnv(t *testing.T) {
	t.Parallel()
	c := Command{Argv: []string{"sh", "-c", `test "$COINPULSE_MODE" = daily`}, Env: []string{"COINPULSE_MODE=daily"}}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestEmptyCommand(t *testing.T) {
	t.Parallel()
	if err := (Command{}).Run(context.Background()); err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestSafeRecoversPanic(t *testing.T) {
	t.Parallel()
	err := Safe(context.Background(), Func(func(context.Context) error { panic("boom") }))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Safe = %v", err)
	}
	want := errors.New("fail")
	if err := Safe(context.Background(), Func(func(context.Context) error { return want })); !errors.Is(err, want) {
		t.Fatalf("Safe = %v, want %v", err, want)
	}
}

func TestCommandOutputTailIsBoundedUTF8(t *testing.T) {
	t.Parallel()
	// 2-byte runes with an odd limit force the cut into the middle of a rune.
	c := Command{
		Argv:        []string{"sh", "-c", `i=0; while [ $i -lt 500 ]; do printf 'éé'; i=$((i+1)); done; exit 1`},
		OutputLimit: 101,
	}
	err := c.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	_, tail, ok := strings.Cut(err.Error(), ": ...")
	if !ok {
		t.Fatalf("error %q has no truncated tail", err)
	}
	if !utf8.ValidString(tail) {
		t.Fatalf("tail is not valid UTF-8: %q", tail)
	}
	if len(tail) > 101 || !strings.HasPrefix(tail, "é") {
		t.Fatalf("tail = %q (%d bytes)", tail, len(tail))
	}
}

func TestTailWriter(t *testing.T) {
	t.Parallel()
	w := &tailWriter{max: 8}
	for _, s := range []string{"abc", "defgh", "ijklmnopq", "rs"} {
		if n, err := w.Write([]byte(s)); err != nil || n != len(s) {
			t.Fatalf("Write(%q) = %d, %v", s, n, err)
		}
		if len(w.buf) > w.max {
			t.Fatalf("buffer grew to %d bytes", len(w.buf))
		}
	}
	if got := w.String(); got != "...lmnopqrs" {
		t.Fatalf("String() = %q", got)
	}

	short := &tailWriter{max: 8}
	_, _ = short.Write([]byte(" ok \n"))
	if got := short.String(); got != "ok" {
		t.Fatalf("String() = %q", got)
	}
}
