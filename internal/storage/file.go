package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "coinpulse/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files per job:
//   - <dir>/<job>.last_sent  (single line: YYYY-MM-DD)
//   - <dir>/<job>.runs.jsonl (append-only JSON Lines)
//
// The marker is replaced atomically (tmp + rename) so a crash never leaves
// a half-written date behind.
type fileStore struct {
	dir string
	log logx.Logger

	mu     sync.Mutex
	closed bool
}

const maxRunLines = 2000

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{dir: dir, log: log}, nil
}

func (s *fileStore) markerPath(job string) string { return filepath.Join(s.dir, job+".last_sent") }
func (s *fileStore) runsPath(job string) string   { return filepath.Join(s.dir, job+".runs.jsonl") }

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fileStore) LastRun(ctx context.Context, job string, loc *time.Location) (time.Time, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return time.Time{}, false, ErrClosed
	}
	b, err := os.ReadFile(s.markerPath(job))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	raw := strings.TrimSpace(string(b))
	if raw == "" {
		return time.Time{}, false, nil
	}
	d, err := parseDate(raw, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last-run marker %s: %w", s.markerPath(job), err)
	}
	return d, true, nil
}

func (s *fileStore) SetLastRun(ctx context.Context, job string, date time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	path := s.markerPath(job)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(date.Format(DateLayout)+"\n"), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *fileStore) ClearLastRun(ctx context.Context, job string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := os.Remove(s.markerPath(job)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) AppendRun(ctx context.Context, r RunRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	f, err := os.OpenFile(s.runsPath(r.Job), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *fileStore) RecentRuns(ctx context.Context, job string, n int) ([]RunRecord, error) {
	_ = ctx
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	all, err := readRuns(s.runsPath(job))
	if err != nil {
		return nil, err
	}
	if len(all) > maxRunLines {
		if err := s.compactLocked(job, all[len(all)-maxRunLines:]); err != nil {
			s.log.Debug("run history compact failed", logx.String("job", job), logx.Err(err))
		}
	}
	out := make([]RunRecord, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *fileStore) compactLocked(job string, keep []RunRecord) error {
	path := s.runsPath(job)
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, r := range keep {
		if err := enc.Encode(r); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readRuns(path string) ([]RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []RunRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r RunRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}
