// Package maintenance removes stale lock files on a cron schedule.
package maintenance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"coinpulse/internal/eventbus"
	"coinpulse/internal/task/lock"
	logx "coinpulse/pkg/logx"
)

// DefaultSchedule runs cleanup every ten minutes.
const DefaultSchedule = "*/10 * * * *"

type Config struct {
	Enabled  bool
	Schedule string
	Location *time.Location
}

// Service runs Manager.CleanStale(false) on Schedule. Locks is called on
// every run so thresholds follow config reloads.
type Service struct {
	mu     sync.Mutex
	cfg    Config
	parser cron.Parser
	c      *cron.Cron
	entry  cron.EntryID

	locks func() *lock.Manager
	bus   eventbus.Bus
	log   logx.Logger
}

func New(cfg Config, locks func() *lock.Manager, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	return &Service{
		cfg:    cfg,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		locks:  locks,
		bus:    bus,
		log:    log,
	}
}

func (c Config) spec() string {
	if s := strings.TrimSpace(c.Schedule); s != "" {
		return s
	}
	return DefaultSchedule
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// RunOnce performs one cleanup pass and returns the per-file results.
func (s *Service) RunOnce() []lock.StaleResult {
	results := s.locks().CleanStale(false)
	removed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.log.Warn("stale lock check failed", logx.String("path", r.Path), logx.Err(r.Err))
		case r.Removed:
			removed++
			s.log.Info("stale lock removed", logx.String("path", r.Path), logx.Duration("age", r.Age), logx.Duration("max_age", r.MaxAge))
		default:
			s.log.Debug("lock checked", logx.String("result", r.String()))
		}
	}
	if removed > 0 {
		s.bus.Publish(eventbus.Event{Type: eventbus.LocksCleaned, Data: results})
	}
	return results
}

// RunAtStart is the startup cleanup pass. It does nothing when maintenance is
// disabled.
func (s *Service) RunAtStart() []lock.StaleResult {
	s.mu.Lock()
	enabled := s.cfg.Enabled
	s.mu.Unlock()
	if !enabled {
		s.log.Debug("startup lock cleanup skipped: maintenance disabled")
		return nil
	}
	return s.RunOnce()
}

// Run starts the cron loop and blocks until ctx is done. A disabled config
// just waits.
func (s *Service) Run(ctx context.Context) error {
	if err := s.start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.stop()
	return nil
}

// Apply reschedules with cfg. It takes effect immediately when running.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.parser.Parse(cfg.spec()); err != nil {
		return fmt.Errorf("maintenance schedule %q: %w", cfg.spec(), err)
	}
	old := s.cfg
	s.cfg = cfg
	if s.c == nil || (old.spec() == cfg.spec() && old.Enabled == cfg.Enabled && old.location() == cfg.location()) {
		return nil
	}
	s.stopLocked()
	return s.startLocked()
}

func (s *Service) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Service) startLocked() error {
	if s.c != nil {
		return nil
	}
	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(s.cfg.location()))
	if s.cfg.Enabled {
		id, err := c.AddFunc(s.cfg.spec(), func() { s.RunOnce() })
		if err != nil {
			return fmt.Errorf("maintenance schedule %q: %w", s.cfg.spec(), err)
		}
		s.entry = id
	}
	s.c = c
	c.Start()
	s.log.Info("lock maintenance started",
		logx.Bool("enabled", s.cfg.Enabled),
		logx.String("schedule", s.cfg.spec()),
		logx.String("tz", s.cfg.location().String()))
	return nil
}

func (s *Service) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Service) stopLocked() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
	s.entry = 0
}

// Next returns the next scheduled cleanup (zero when not scheduled).
func (s *Service) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil || s.entry == 0 {
		return time.Time{}
	}
	return s.c.Entry(s.entry).Next
}
