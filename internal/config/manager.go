package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "coinpulse/pkg/logx"
)

// reloadDelay lets editors finish writing before the file is re-read.
const reloadDelay = 250 * time.Millisecond

// Manager owns the live config. Every read goes through the same steps:
// strict decode, COINPULSE_* environment overlay, Validate.
type Manager struct {
	path string
	log  logx.Logger

	mu   sync.RWMutex
	cfg  *Config
	hash uint64
}

func NewManager(path string, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{path: path, log: log}
}

func (m *Manager) Path() string { return m.path }

// SetLogger swaps the logger once the real one exists.
func (m *Manager) SetLogger(log logx.Logger) {
	if log.IsZero() {
		return
	}
	m.mu.Lock()
	m.log = log
	m.mu.Unlock()
}

func (m *Manager) logger() logx.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log
}

// Current returns the last accepted config (nil before Load).
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Load reads the file and makes the result current.
func (m *Manager) Load() (*Config, error) {
	cfg, h, err := m.read()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cfg, m.hash = cfg, h
	m.mu.Unlock()
	return cfg, nil
}

func (m *Manager) read() (*Config, uint64, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, 0, err
	}
	cfg, err := decode(m.path, b)
	if err != nil {
		return nil, 0, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, 0, err
	}
	if err := Validate(cfg); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", m.path, err)
	}
	return cfg, hashConfig(cfg), nil
}

// hashConfig fingerprints the effective config, environment included, so
// saves without a real edit are ignored.
func hashConfig(cfg *Config) uint64 {
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// Reload re-reads the file. ok is false when the effective config did not
// change. A file that fails to decode or validate leaves the current config
// in place.
func (m *Manager) Reload() (ch Change, ok bool, err error) {
	cfg, h, err := m.read()
	if err != nil {
		return Change{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if h != 0 && h == m.hash {
		return Change{}, false, nil
	}
	ch = newChange(m.cfg, cfg)
	m.cfg, m.hash = cfg, h
	return ch, true, nil
}

// Watch reloads the file after edits and passes each accepted change to
// apply, on the calling goroutine. It returns nil when ctx is done and an
// error when the watcher breaks; callers restart it.
func (m *Manager) Watch(ctx context.Context, apply func(Change)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()

	// Editors often replace the file, so watch the directory.
	dir, file := filepath.Dir(m.path), filepath.Base(m.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	m.logger().Debug("config watcher started", logx.String("path", m.path))

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("config watcher closed")
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				timer.Reset(reloadDelay)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("config watcher closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				m.logger().Warn("config watch overflow; reloading", logx.Err(err))
				timer.Reset(reloadDelay)
				continue
			}
			return fmt.Errorf("config watcher: %w", err)
		case <-timer.C:
			m.reloadAndApply(apply)
		}
	}
}

func (m *Manager) reloadAndApply(apply func(Change)) {
	log := m.logger().With(logx.String("path", m.path))
	ch, ok, err := m.Reload()
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug("config file gone; waiting for it to come back")
	case err != nil:
		log.Warn("config rejected; keeping the running config", logx.Err(err))
	case !ok:
		log.Debug("config unchanged")
	default:
		if len(ch.Restart) > 0 {
			log.Warn("config changes need a restart", logx.String("keys", strings.Join(ch.Restart, ",")))
		}
		if apply != nil {
			apply(ch)
		}
	}
}
