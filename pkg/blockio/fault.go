package blockio

import "sync/atomic"

// FaultInjector wraps a [Device] and can force every subsequent write to
// fail, for exercising the queue engine's crash-consistency protocol from
// tests.
//
// This mirrors the role of fs.Chaos elsewhere in this codebase, but
// restricted to the single deterministic on/off switch the queue's
// conformance tests need: there is no probabilistic fault rate and no
// per-path targeting.
//
// The zero value is not usable; construct with [Wrap].
type FaultInjector struct {
	dev         Device
	failWrites  atomic.Bool
	writeCalls  atomic.Int64
	failedCalls atomic.Int64
}

// Wrap returns a [FaultInjector] delegating to dev.
func Wrap(dev Device) *FaultInjector {
	return &FaultInjector{dev: dev}
}

// ForceWritesToFail causes every subsequent WriteAt and Truncate call to
// return [ErrInjectedWriteFailure] until called again with fail=false.
//
// Reads, Len, Sync, and Close are never affected: the queue's commit
// protocol depends only on writes failing cleanly, and tests need to be able
// to read back the pre-mutation state after an injected failure.
func (fi *FaultInjector) ForceWritesToFail(fail bool) {
	fi.failWrites.Store(fail)
}

// FailedWriteCount returns how many WriteAt/Truncate calls were rejected by
// the injector since construction. Useful for asserting a test actually
// exercised the fault path instead of silently no-op'ing.
func (fi *FaultInjector) FailedWriteCount() int64 {
	return fi.failedCalls.Load()
}

// ReadAt passes through to the wrapped device.
func (fi *FaultInjector) ReadAt(off int64, n int) ([]byte, error) {
	return fi.dev.ReadAt(off, n)
}

// WriteAt fails with [ErrInjectedWriteFailure] while fault injection is
// armed; otherwise it passes through to the wrapped device.
func (fi *FaultInjector) WriteAt(off int64, p []byte) error {
	fi.writeCalls.Add(1)

	if fi.failWrites.Load() {
		fi.failedCalls.Add(1)

		return ErrInjectedWriteFailure
	}

	return fi.dev.WriteAt(off, p)
}

// Truncate fails with [ErrInjectedWriteFailure] while fault injection is
// armed; otherwise it passes through to the wrapped device.
func (fi *FaultInjector) Truncate(n int64) error {
	if fi.failWrites.Load() {
		fi.failedCalls.Add(1)

		return ErrInjectedWriteFailure
	}

	return fi.dev.Truncate(n)
}

// Len passes through to the wrapped device.
func (fi *FaultInjector) Len() (int64, error) {
	return fi.dev.Len()
}

// Sync passes through to the wrapped device.
func (fi *FaultInjector) Sync() error {
	return fi.dev.Sync()
}

// Close passes through to the wrapped device.
func (fi *FaultInjector) Close() error {
	return fi.dev.Close()
}

// Compile-time interface check.
var _ Device = (*FaultInjector)(nil)
