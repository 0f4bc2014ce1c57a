package filequeue

import "errors"

// Error classification.
//
// ErrCorruptHeader is rebuild-class: the file must be discarded and
// recreated, the queue returned by [Open] is unusable. The rest are
// operational: the queue remains usable, the caller simply did not get the
// effect it asked for.
var (
	// ErrCorruptHeader indicates the file's 16-byte header failed
	// validation on open.
	ErrCorruptHeader = errors.New("filequeue: corrupt header")

	// ErrCapacityExceeded indicates an Add would require growing the file
	// beyond the header's 32-bit length field or the configured maximum.
	ErrCapacityExceeded = errors.New("filequeue: capacity exceeded")

	// ErrBusy indicates the advisory lock on the queue file could not be
	// acquired because another holder owns it.
	ErrBusy = errors.New("filequeue: queue file busy")

	// ErrInvalidArgument indicates caller misuse, such as a negative
	// length or an option value outside its valid range.
	ErrInvalidArgument = errors.New("filequeue: invalid argument")

	// ErrClosed indicates an operation was attempted on a closed Queue.
	ErrClosed = errors.New("filequeue: queue is closed")
)
