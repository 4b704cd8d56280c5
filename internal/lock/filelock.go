// Package lock implements the process-wide exclusive ProcessLock
// (spec.md §3, §6): a filesystem artifact with two states, HELD and FREE,
// acquired at startup and released on any exit path including a crash.
package lock

import (
	"fmt"

	"github.com/gofrs/flock"
)

// ProcessLock wraps an OS advisory file lock. Re-acquire attempts by
// another process while HELD fail immediately rather than blocking,
// matching §6's "stale files require manual removal; no stale-detection"
// contract — this type never waits for the lock to free up.
type ProcessLock struct {
	fl   *flock.Flock
	path string
}

// Acquire tries to take the exclusive lock at path without blocking. A
// false return (with a nil error) means another process currently holds
// it — the caller maps that to ConcurrencyError / exit 2. A non-nil error
// means the lock file itself could not be opened or locked for some other
// reason (permissions, missing directory).
func Acquire(path string) (*ProcessLock, bool, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("lock: try-lock %q: %w", path, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &ProcessLock{fl: fl, path: path}, true, nil
}

// Release frees the lock. Safe to call more than once (idempotent) and
// safe to defer immediately after a successful Acquire so the lock is
// released on every exit path, including a panic unwinding through main.
func (l *ProcessLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("lock: release %q: %w", l.path, err)
	}
	return nil
}

// Path returns the filesystem path backing this lock.
func (l *ProcessLock) Path() string { return l.path }
