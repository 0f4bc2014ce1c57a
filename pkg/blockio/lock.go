package blockio

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Lock represents a held advisory lock on a queue file. Call [Lock.Close] to
// release it.
//
// Lock is best-effort: it turns the common mistake of opening the same
// queue file twice into a prompt [ErrBusy] instead of silent on-disk
// corruption. It is not a substitute for the single-accessor discipline the
// queue engine otherwise assumes - two processes that both bypass Lock (or
// that run on a filesystem where flock is unsupported) can still corrupt
// each other's writes.
type Lock struct {
	f *os.File
}

// LockFile acquires an exclusive, non-blocking advisory lock on a sibling
// path+".lock" file next to the queue file at path. It returns [ErrBusy] if
// another holder already owns the lock.
func LockFile(path string) (*Lock, error) {
	lockPath := path + ".lock"

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()

		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrBusy
		}

		return nil, fmt.Errorf("flock %s: %w", lockPath, err)
	}

	return &Lock{f: f}, nil
}

// Close releases the lock and closes the underlying file descriptor.
// Closing a nil *Lock or an already-closed Lock is a no-op.
func (l *Lock) Close() error {
	if l == nil || l.f == nil {
		return nil
	}

	unlockErr := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil

	if unlockErr != nil {
		return fmt.Errorf("unlocking: %w", unlockErr)
	}

	if closeErr != nil {
		return fmt.Errorf("closing lock fd: %w", closeErr)
	}

	return nil
}
