package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"coinpulse/internal/eventbus"
	"coinpulse/internal/task/lock"
	"coinpulse/internal/task/scheduler"
	logx "coinpulse/pkg/logx"
)

// Sender delivers a text message to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, threadID int, text string) error
}

// Config controls notifications. Zero ChatID disables them.
type Config struct {
	ChatID     int64
	ThreadID   int
	RatePerSec int
	RetryMax   int
	RetryBase  time.Duration
}

func (c Config) withDefaults() Config {
	if c.RatePerSec <= 0 {
		c.RatePerSec = 1
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	} else if c.RetryMax == 0 {
		c.RetryMax = 2
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	return c
}

type Service struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	sender Sender
	bus    eventbus.Bus
	log    logx.Logger
}

func New(cfg Config, sender Sender, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{sender: sender, bus: bus, log: log}
	s.Apply(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limiter == nil || s.cfg.RatePerSec != cfg.RatePerSec {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	s.cfg = cfg
}

func (s *Service) snapshot() (Config, *rate.Limiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, s.limiter
}

// Run consumes bus events until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if s.bus == nil || s.sender == nil {
		<-ctx.Done()
		return nil
	}
	ch, unsub := s.bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			text := Format(e)
			if text == "" {
				continue
			}
			s.deliver(ctx, text)
		}
	}
}

func (s *Service) deliver(ctx context.Context, text string) {
	cfg, lim := s.snapshot()
	if cfg.ChatID == 0 {
		return
	}
	backoff := cfg.RetryBase
	for attempt := 0; ; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		err := s.sender.SendText(ctx, cfg.ChatID, cfg.ThreadID, text)
		if err == nil {
			return
		}
		if attempt >= cfg.RetryMax || ctx.Err() != nil {
			s.log.Warn("notification dropped", logx.Int("attempts", attempt+1), logx.Err(err))
			return
		}
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		backoff *= 2
	}
}

// Format renders e as an operator message. Events that operators do not
// need to see render as "".
func Format(e eventbus.Event) string {
	switch e.Type {
	case eventbus.JobFinished:
		res, ok := e.Data.(scheduler.Result)
		if !ok {
			return ""
		}
		icon := "✅"
		if !res.OK() {
			icon = "❌"
		}
		return icon + " " + res.Summary()
	case eventbus.JobSkipped:
		res, ok := e.Data.(scheduler.Result)
		if !ok {
			return ""
		}
		// Lock contention between background schedulers and a repeat
		// manual run are routine.
		if res.Reason == scheduler.ReasonJobLockBusy || res.Reason == scheduler.ReasonAlreadyRan {
			return ""
		}
		return "⏭ " + res.Summary()
	case eventbus.LocksCleaned:
		results, ok := e.Data.([]lock.StaleResult)
		if !ok {
			return ""
		}
		var lines []string
		for _, r := range results {
			if r.Removed || r.Err != nil {
				lines = append(lines, r.String())
			}
		}
		if len(lines) == 0 {
			return ""
		}
		return fmt.Sprintf("🧹 lock cleanup\n%s", strings.Join(lines, "\n"))
	default:
		return ""
	}
}
