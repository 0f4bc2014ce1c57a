package blockio

import (
	"fmt"
	"io"
	"os"
)

// Real implements [Device] against a real OS file.
//
// All methods are thin passthroughs to the [os] package; Real adds no
// buffering, caching, or batching of its own.
type Real struct {
	f *os.File
}

// OpenReal opens (creating if necessary) the file at path for reading and
// writing and returns a [Real] device over it.
func OpenReal(path string) (*Real, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	return &Real{f: f}, nil
}

// ReadAt reads exactly n bytes starting at off.
func (r *Real) ReadAt(off int64, n int) ([]byte, error) {
	buf := make([]byte, n)

	read, err := r.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading %d bytes at offset %d: %w", n, off, err)
	}

	if read != n {
		return nil, fmt.Errorf("reading %d bytes at offset %d: %w", n, off, ErrShortRead)
	}

	return buf, nil
}

// WriteAt writes all of p starting at off.
func (r *Real) WriteAt(off int64, p []byte) error {
	if _, err := r.f.WriteAt(p, off); err != nil {
		return fmt.Errorf("writing %d bytes at offset %d: %w", len(p), off, err)
	}

	return nil
}

// Truncate sets the file's length to n.
func (r *Real) Truncate(n int64) error {
	if err := r.f.Truncate(n); err != nil {
		return fmt.Errorf("truncating to %d bytes: %w", n, err)
	}

	return nil
}

// Len returns the current file length.
func (r *Real) Len() (int64, error) {
	info, err := r.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}

	return info.Size(), nil
}

// Sync commits prior writes to stable storage via fsync.
func (r *Real) Sync() error {
	if err := r.f.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}

	return nil
}

// Close releases the file descriptor.
func (r *Real) Close() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

// Compile-time interface check.
var _ Device = (*Real)(nil)
