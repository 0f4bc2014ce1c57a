package blockio

import "errors"

// Sentinel errors returned by this package. Callers should classify errors
// with errors.Is rather than comparing strings.
var (
	// ErrBusy is returned by [LockFile] when another holder already owns the
	// advisory lock on the target file.
	ErrBusy = errors.New("blockio: locked by another process")

	// ErrInjectedWriteFailure is returned by [FaultInjector] when it has
	// been told to fail writes via [FaultInjector.ForceWritesToFail].
	ErrInjectedWriteFailure = errors.New("blockio: injected write failure")

	// ErrShortRead is returned when fewer bytes than requested could be
	// read from the underlying file, which for this adapter always
	// indicates caller error (reading past the file's current length).
	ErrShortRead = errors.New("blockio: short read")
)
