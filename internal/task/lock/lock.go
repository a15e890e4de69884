package lock

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrBusy reports that another holder owns the lock.
var ErrBusy = errors.New("lock busy")

// Handle is a held lock. The zero value is not usable; get one from TryAcquire.
type Handle struct {
	path string
	file *os.File
}

// Path returns the lock file path.
func (h *Handle) Path() string {
	if h == nil {
		return ""
	}
	return h.path
}

// TryAcquire opens (creating if needed) the lock file at path and takes an
// exclusive advisory lock without blocking.
//
// It returns ErrBusy when another holder exists; in that case the file is
// left untouched. Any other error is an I/O failure.
//
// On success the file's mtime is set to now, which is what stale detection
// reads as the acquisition time. An existing file this process cannot write
// (created by another user) is opened read-only; flock does not need write
// access.
func TryAcquire(path string) (*Handle, error) {
	f, err := openLock(path)
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", path, err)
	}
	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrBusy) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	now := time.Now()
	_ = os.Chtimes(path, now, now)
	return &Handle{path: path, file: f}, nil
}

func openLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if !errors.Is(err, os.ErrPermission) {
		return f, err
	}
	ro, roErr := os.Open(path)
	if roErr != nil {
		return nil, err
	}
	return ro, nil
}

// Release drops the advisory lock. The file stays on disk.
// Release on a nil or already released handle is a no-op.
func (h *Handle) Release() error {
	if h == nil || h.file == nil {
		return nil
	}
	f := h.file
	h.file = nil
	if err := funlock(f); err != nil {
		return errors.Join(fmt.Errorf("unlock %s: %w", h.path, err), f.Close())
	}
	return f.Close()
}

// ProbeState is the observed state of a lock file.
type ProbeState int

const (
	// ProbeAbsent means the lock file does not exist.
	ProbeAbsent ProbeState = iota
	// ProbeFree means the file exists but nobody holds it (residue).
	ProbeFree
	// ProbeHeld means another holder currently owns the lock.
	ProbeHeld
)

func (s ProbeState) String() string {
	switch s {
	case ProbeAbsent:
		return "absent"
	case ProbeFree:
		return "free"
	case ProbeHeld:
		return "held"
	default:
		return "unknown"
	}
}

// Probe checks whether the lock at path is held by acquiring and immediately
// releasing it. It never creates the file and opens it read-only, so a lock
// file owned by another user is still probed.
//
// A ProbeFree answer is only true at the instant of the probe: another
// process may acquire the lock right after Probe returns.
func Probe(path string) (ProbeState, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ProbeAbsent, nil
		}
		return ProbeAbsent, fmt.Errorf("open lock %s: %w", path, err)
	}
	defer f.Close()

	if err := flockExclusive(f); err != nil {
		if errors.Is(err, ErrBusy) {
			return ProbeHeld, nil
		}
		return ProbeAbsent, fmt.Errorf("lock %s: %w", path, err)
	}
	if err := funlock(f); err != nil {
		return ProbeFree, fmt.Errorf("unlock %s: %w", path, err)
	}
	return ProbeFree, nil
}
