package logx

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func TestZeroLoggerIsNoop(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero Logger should report IsZero")
	}
	// Must not panic.
	l.Info("hello", String("k", "v"))
}

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").With(String("comp", "scheduler"))
	l.Info("job finished", Bool("ok", true), Int("attempt", 2))

	out := buf.String()
	for _, want := range []string{"job finished", "comp=scheduler", "ok=true", "attempt=2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")
	l.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	if !l.Enabled(LevelError) || l.Enabled(LevelDebug) {
		t.Fatal("Enabled does not match configured level")
	}
}

func TestValidLevel(t *testing.T) {
	for _, s := range []string{"", "debug", "INFO", "warning", "error"} {
		if !ValidLevel(s) {
			t.Fatalf("ValidLevel(%q) = false", s)
		}
	}
	if ValidLevel("loud") {
		t.Fatal("ValidLevel(loud) = true")
	}
}

type recordSender struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordSender) SendText(_ context.Context, _ int64, _ int, text string) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, text)
	r.mu.Unlock()
	return nil
}

func TestTelegramSinkRespectsMinLevel(t *testing.T) {
	s := newTelegramSink(&recordSender{})
	s.configure(42, 0, zerolog.WarnLevel, rate.NewLimiter(rate.Inf, 1))

	if _, err := s.WriteLevel(zerolog.InfoLevel, []byte(`{"level":"info","message":"skip"}`)); err != nil {
		t.Fatal(err)
	}
	if len(s.queue) != 0 {
		t.Fatalf("info record queued below min level")
	}
	if _, err := s.WriteLevel(zerolog.ErrorLevel, []byte(`{"level":"error","message":"boom","job":"scrape"}`)); err != nil {
		t.Fatal(err)
	}
	if len(s.queue) != 1 {
		t.Fatalf("queue len = %d, want 1", len(s.queue))
	}
	it := <-s.queue
	if it.chatID != 42 || !strings.HasPrefix(it.msg, "[ERROR] boom") || !strings.Contains(it.msg, "job=scrape") {
		t.Fatalf("unexpected item: %+v", it)
	}
}
