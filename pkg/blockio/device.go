package blockio

// Device is the only interface through which the queue engine touches a
// file. Implementations operate on a single already-open file and address it
// by absolute byte offset; there is no internal cursor.
//
// Implementations are not required to be safe for concurrent use; callers
// are expected to serialize access the same way they serialize all other
// operations on the queue (see the package-level concurrency notes on
// [filequeue.Queue]).
type Device interface {
	// ReadAt reads exactly n bytes starting at off. It returns an error if
	// fewer than n bytes could be read.
	ReadAt(off int64, n int) ([]byte, error)

	// WriteAt writes all of p starting at off.
	WriteAt(off int64, p []byte) error

	// Truncate sets the file's length to n, zero-filling any newly added
	// bytes. It never shrinks data the caller has not asked to discard.
	Truncate(n int64) error

	// Len returns the current file length in bytes.
	Len() (int64, error)

	// Sync commits all prior successful writes to stable storage.
	Sync() error

	// Close releases the underlying file descriptor. Subsequent calls to
	// any other method are undefined.
	Close() error
}
