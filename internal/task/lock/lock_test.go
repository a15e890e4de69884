//go:build unix

package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTryAcquireReleaseRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scrape.lock")

	first, err := TryAcquire(path)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lock file should remain after release: %v", err)
	}

	second, err := TryAcquire(path)
	if err != nil {
		t.Fatalf("second TryAcquire after release: %v", err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestTryAcquireBusyHasNoSideEffects(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ManualFileName)

	held, err := TryAcquire(path)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	t.Cleanup(func() { _ = held.Release() })

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	if _, err := TryAcquire(path); !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !st.ModTime().Equal(old) {
		t.Fatalf("busy acquire touched mtime: %v != %v", st.ModTime(), old)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()
	h, err := TryAcquire(filepath.Join(t.TempDir(), "x.lock"))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	var nilHandle *Handle
	if err := nilHandle.Release(); err != nil {
		t.Fatalf("nil Release: %v", err)
	}
}

func TestTryAcquireIOError(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "missing-dir", "x.lock")
	_, err := TryAcquire(path)
	if err == nil || errors.Is(err, ErrBusy) {
		t.Fatalf("want I/O error, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ManualFileName)

	if st, err := Probe(path); err != nil || st != ProbeAbsent {
		t.Fatalf("Probe(missing) = %v, %v", st, err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Probe must not create the file")
	}

	h, err := TryAcquire(path)
	if err != nil {
		t.Fatal(err)
	}
	if st, err := Probe(path); err != nil || st != ProbeHeld {
		t.Fatalf("Probe(held) = %v, %v", st, err)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
	if st, err := Probe(path); err != nil || st != ProbeFree {
		t.Fatalf("Probe(residue) = %v, %v", st, err)
	}
	// Probing must leave the lock available.
	h2, err := TryAcquire(path)
	if err != nil {
		t.Fatalf("TryAcquire after probe: %v", err)
	}
	_ = h2.Release()
}

func TestReadOnlyLockFile(t *testing.T) {
	t.Parallel()
	// A lock file left by another user is not writable here.
	path := filepath.Join(t.TempDir(), ManualFileName)
	if err := os.WriteFile(path, nil, 0o444); err != nil {
		t.Fatal(err)
	}

	h, err := TryAcquire(path)
	if err != nil {
		t.Fatalf("TryAcquire(read-only): %v", err)
	}
	if st, err := Probe(path); err != nil || st != ProbeHeld {
		t.Fatalf("Probe(held read-only) = %v, %v", st, err)
	}
	if _, err := TryAcquire(path); !errors.Is(err, ErrBusy) {
		t.Fatalf("second TryAcquire = %v, want ErrBusy", err)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
	if st, err := Probe(path); err != nil || st != ProbeFree {
		t.Fatalf("Probe(released read-only) = %v, %v", st, err)
	}
}

func TestProbeOpenError(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ManualFileName)
	// Self-referencing symlink: open fails with ELOOP, not ErrNotExist.
	if err := os.Symlink(ManualFileName, path); err != nil {
		t.Fatal(err)
	}
	if _, err := Probe(path); err == nil {
		t.Fatal("Probe(symlink loop) returned no error")
	}
	if _, err := TryAcquire(path); err == nil || errors.Is(err, ErrBusy) {
		t.Fatalf("TryAcquire(symlink loop) = %v, want I/O error", err)
	}
}

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	ts := time.Now().Add(-age)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatal(err)
	}
}

func TestCheckAndRemoveStale(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		age         time.Duration
		maxAge      time.Duration
		force       bool
		wantRemoved bool
		wantPhrase  string
	}{
		{name: "young background lock kept", age: 5 * time.Minute, maxAge: 30 * time.Minute, wantPhrase: "kept"},
		{name: "old background lock removed", age: 31 * time.Minute, maxAge: 30 * time.Minute, wantRemoved: true, wantPhrase: "removed stale"},
		{name: "young manual lock kept", age: 9 * time.Minute, maxAge: 10 * time.Minute, wantPhrase: "kept"},
		{name: "old manual lock removed", age: 11 * time.Minute, maxAge: 10 * time.Minute, wantRemoved: true, wantPhrase: "removed stale"},
		{name: "force removes young lock", age: time.Second, maxAge: 10 * time.Minute, force: true, wantRemoved: true, wantPhrase: "forced"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "x.lock")
			touch(t, path, tt.age)

			res := CheckAndRemoveStale(path, tt.maxAge, tt.force)
			if res.Err != nil {
				t.Fatalf("unexpected error: %v", res.Err)
			}
			if !res.Exists {
				t.Fatal("Exists = false")
			}
			if res.Removed != tt.wantRemoved {
				t.Fatalf("Removed = %v, want %v", res.Removed, tt.wantRemoved)
			}
			_, statErr := os.Stat(path)
			if gone := errors.Is(statErr, os.ErrNotExist); gone != tt.wantRemoved {
				t.Fatalf("file gone = %v, want %v", gone, tt.wantRemoved)
			}
			if !strings.Contains(res.String(), tt.wantPhrase) {
				t.Fatalf("String() = %q, want it to contain %q", res.String(), tt.wantPhrase)
			}
		})
	}
}

func TestCheckAndRemoveStaleMissing(t *testing.T) {
	t.Parallel()
	res := CheckAndRemoveStale(filepath.Join(t.TempDir(), "none.lock"), time.Minute, true)
	if res.Exists || res.Removed || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.String(), "no lock file") {
		t.Fatalf("String() = %q", res.String())
	}
}

func TestManagerCleanStale(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	m := NewManager(dir, "scrape")

	touch(t, m.JobPath(), 20*time.Minute)    // under 30m: kept
	touch(t, m.ManualPath(), 20*time.Minute) // over 10m: removed

	res := m.CleanStale(false)
	got := []bool{res[0].Removed, res[1].Removed}
	if diff := cmp.Diff([]bool{false, true}, got); diff != "" {
		t.Fatalf("removed mismatch (-want +got):\n%s", diff)
	}
	if res[0].Path != filepath.Join(dir, "scrape.lock") || res[1].Path != filepath.Join(dir, ManualFileName) {
		t.Fatalf("unexpected paths: %s, %s", res[0].Path, res[1].Path)
	}

	res = m.CleanStale(true)
	if !res[0].Removed || res[1].Exists {
		t.Fatalf("forced clean: %+v", res)
	}
}

func TestManagerCleanStaleContinuesAfterError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	m := NewManager(dir, "scrape")

	// A non-empty directory in place of the job lock cannot be removed.
	if err := os.MkdirAll(filepath.Join(m.JobPath(), "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, m.ManualPath(), time.Second)

	res := m.CleanStale(true)
	if res[0].Err == nil {
		t.Fatalf("expected error removing job lock, got %+v", res[0])
	}
	if !res[1].Removed {
		t.Fatalf("manual lock should still be removed: %+v", res[1])
	}
}
