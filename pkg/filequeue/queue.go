// Package filequeue implements a persistent, crash-resilient, file-backed
// FIFO queue of opaque byte-string records.
//
// The queue lives in a single regular file: a fixed 16-byte header
// describing queue geometry, followed by a payload area treated as a
// circular buffer of variable-length, length-prefixed records. Every
// mutation (Add, Remove, Clear, and the file growth Add triggers) is
// committed by a single, last-step rewrite of the header; nothing else in
// the file is ever load-bearing for crash recovery, so a process killed at
// any point leaves the file in either the pre- or post-mutation state, never
// in between.
//
// A Queue is not safe for concurrent use by multiple goroutines. It assumes
// a single logical accessor; [blockio.LockFile] provides a best-effort guard
// against accidentally opening the same file twice.
package filequeue

import (
	"errors"
	"fmt"

	"github.com/calvinalkan/filequeue/pkg/blockio"
)

// Queue is a persistent FIFO queue of opaque byte-string records backed by
// a single file.
type Queue struct {
	dev  blockio.Device
	lock *blockio.Lock

	fileLength   uint32
	elementCount uint32
	firstOffset  uint32
	lastOffset   uint32

	firstLength   uint32
	firstLenValid bool
	lastLength    uint32
	lastLenValid  bool

	// needsReload is set whenever a header-commit write returns an error.
	// Because that write is the last step of every mutation, a failure
	// leaves the on-disk header's contents uncertain: the device may have
	// written nothing, or it may have written some prefix of the 16 bytes.
	// The cached cursors above cannot be trusted until the header is
	// re-read and decoded, which ensureFresh does before the next
	// operation proceeds.
	needsReload bool

	cfg    resolvedConfig
	closed bool
}

type resolvedConfig struct {
	minFileSize uint32
	maxFileSize uint32 // 0 means no cap beyond the header's uint32 range
	sync        bool
}

type options struct {
	cfg  resolvedConfig
	dev  blockio.Device
	lock bool
}

// Option configures [Open].
type Option func(*options)

// WithMaxFileSize caps how large the queue file may grow. An [Add] that
// would require growing past max fails with [ErrCapacityExceeded] instead of
// growing unboundedly. A value of 0 (the default) means no cap beyond the
// 32-bit file length field itself.
func WithMaxFileSize(max uint32) Option { //nolint:predeclared
	return func(o *options) { o.cfg.maxFileSize = max }
}

// WithMinFileSize overrides the file size a freshly created queue is
// pre-sized to. Values below the protocol minimum of 4096 bytes are clamped
// up to it.
func WithMinFileSize(n uint32) Option {
	return func(o *options) {
		if n < minFileSize {
			n = minFileSize
		}

		o.cfg.minFileSize = n
	}
}

// WithoutSync disables the fsync that otherwise follows every committing
// header write. This trades durability for throughput: on a crash,
// mutations that reported success may turn out not to have reached stable
// storage. Off by default; not exercised by the conformance test suite.
func WithoutSync() Option {
	return func(o *options) { o.cfg.sync = false }
}

// withDevice overrides the [blockio.Device] Open would otherwise create
// from path and skips the advisory lock. It exists only for this package's
// own tests, which need to wire in a [blockio.FaultInjector].
func withDevice(dev blockio.Device) Option {
	return func(o *options) {
		o.dev = dev
		o.lock = false
	}
}

// Open opens the queue file at path, creating it if it does not exist or is
// empty.
//
// If the file already exists, its header is read and validated;
// [ErrCorruptHeader] is returned if validation fails. An advisory lock is
// acquired on a sibling path+".lock" file; if it is already held,
// [ErrBusy] is returned.
func Open(path string, opts ...Option) (*Queue, error) {
	o := options{
		cfg:  resolvedConfig{minFileSize: minFileSize, sync: true},
		lock: true,
	}

	for _, opt := range opts {
		opt(&o)
	}

	dev := o.dev

	var lock *blockio.Lock

	if dev == nil {
		real, err := blockio.OpenReal(path)
		if err != nil {
			return nil, err
		}

		dev = real

		if o.lock {
			lock, err = blockio.LockFile(path)
			if err != nil {
				_ = real.Close()

				if errors.Is(err, blockio.ErrBusy) {
					return nil, ErrBusy
				}

				return nil, err
			}
		}
	}

	q := &Queue{dev: dev, lock: lock, cfg: o.cfg}

	if err := q.init(); err != nil {
		_ = q.Close()

		return nil, err
	}

	return q, nil
}

func (q *Queue) init() error {
	length, err := q.dev.Len()
	if err != nil {
		return err
	}

	if length == 0 {
		return q.createFresh()
	}

	buf, err := q.dev.ReadAt(0, headerSize)
	if err != nil {
		return err
	}

	h, err := decodeHeader(buf)
	if err != nil {
		return err
	}

	// A file longer than the header records is what an expansion interrupted
	// before its header commit leaves behind; the header stays authoritative.
	if int64(h.fileLength) > length {
		return fmt.Errorf("header file length %d exceeds actual file length %d: %w", h.fileLength, length, ErrCorruptHeader)
	}

	q.applyHeader(h)

	return nil
}

func (q *Queue) createFresh() error {
	fileLength := q.cfg.minFileSize

	if err := q.dev.Truncate(int64(fileLength)); err != nil {
		return err
	}

	h := header{fileLength: fileLength}
	if err := q.writeHeader(h); err != nil {
		return err
	}

	q.applyHeader(h)

	return nil
}

func (q *Queue) applyHeader(h header) {
	q.fileLength = h.fileLength
	q.elementCount = h.elementCount
	q.firstOffset = h.firstOffset
	q.lastOffset = h.lastOffset
	q.firstLenValid = false
	q.lastLenValid = false
}

func (q *Queue) writeHeader(h header) error {
	buf := h.encode()
	if err := q.dev.WriteAt(0, buf[:]); err != nil {
		return err
	}

	if q.cfg.sync {
		if err := q.dev.Sync(); err != nil {
			return err
		}
	}

	return nil
}

// ensureFresh re-reads and decodes the on-disk header when needsReload is
// set, replacing the cached cursors with whatever is actually committed to
// disk before the caller proceeds. It is a no-op when the last header-commit
// write succeeded, which is the overwhelmingly common case.
func (q *Queue) ensureFresh() error {
	if !q.needsReload {
		return nil
	}

	buf, err := q.dev.ReadAt(0, headerSize)
	if err != nil {
		return err
	}

	h, err := decodeHeader(buf)
	if err != nil {
		return err
	}

	q.applyHeader(h)
	q.needsReload = false

	return nil
}

// Size returns the number of live elements in the queue.
func (q *Queue) Size() int {
	return int(q.elementCount)
}

// FileLength returns the current total length of the backing file in bytes,
// including the 16-byte header. Useful for diagnostics; callers should not
// infer anything about free space from it without also reading [Queue.Size].
func (q *Queue) FileLength() uint32 {
	return q.fileLength
}

// Add appends p to the tail of the queue.
//
// It returns (false, nil) if the underlying device rejected a write
// attempted while performing the append - the queue is left exactly as it
// was before the call. It returns (false, err) if len(p) cannot be
// represented, if growing the file would exceed a configured maximum, or if
// the queue is closed.
func (q *Queue) Add(p []byte) (bool, error) {
	if q.closed {
		return false, ErrClosed
	}

	if err := q.ensureFresh(); err != nil {
		return false, err
	}

	required := uint64(elementHeaderSize) + uint64(len(p))
	if required > uint64(^uint32(0)) {
		return false, fmt.Errorf("element of %d bytes exceeds addressable range: %w", len(p), ErrCapacityExceeded)
	}

	used, err := q.usedBytes()
	if err != nil {
		return false, nil
	}

	available := uint64(q.fileLength-headerSize) - uint64(used)
	if required > available {
		grew, err := q.expand(required)
		if err != nil {
			return false, err
		}

		if !grew {
			return false, nil
		}
	}

	var newOffset uint32

	if q.elementCount == 0 {
		newOffset = headerSize
	} else {
		lastLen, err := q.cachedLastLength()
		if err != nil {
			return false, nil
		}

		newOffset = nextOffset(q.lastOffset, lastLen, q.fileLength)
	}

	record := make([]byte, 0, elementHeaderSize+len(p))
	prefix := encodeElementPrefix(uint32(len(p)))
	record = append(record, prefix[:]...)
	record = append(record, p...)

	if err := wrapAwareWriteAt(q.dev, int64(newOffset), record, int64(q.fileLength)); err != nil {
		return false, nil
	}

	newHeader := header{
		fileLength:   q.fileLength,
		elementCount: q.elementCount + 1,
		firstOffset:  q.firstOffset,
		lastOffset:   newOffset,
	}

	if q.elementCount == 0 {
		newHeader.firstOffset = newOffset
	}

	if err := q.writeHeader(newHeader); err != nil {
		q.needsReload = true
		return false, nil
	}

	wasEmpty := q.elementCount == 0

	q.elementCount = newHeader.elementCount
	q.firstOffset = newHeader.firstOffset
	q.lastOffset = newHeader.lastOffset
	q.lastLength = uint32(len(p))
	q.lastLenValid = true

	if wasEmpty {
		q.firstLength = uint32(len(p))
		q.firstLenValid = true
	}

	return true, nil
}

// Peek returns a fresh copy of the head element's bytes, or (nil, false,
// nil) if the queue is empty.
func (q *Queue) Peek() ([]byte, bool, error) {
	if q.closed {
		return nil, false, ErrClosed
	}

	if err := q.ensureFresh(); err != nil {
		return nil, false, err
	}

	if q.elementCount == 0 {
		return nil, false, nil
	}

	length, err := q.cachedFirstLength()
	if err != nil {
		return nil, false, err
	}

	dataOffset := nextOffset(q.firstOffset, 0, q.fileLength)

	data, err := wrapAwareReadAt(q.dev, int64(dataOffset), int(length), int64(q.fileLength))
	if err != nil {
		return nil, false, err
	}

	out := make([]byte, length)
	copy(out, data)

	return out, true, nil
}

// Remove removes the head element. It returns (false, nil) if the queue is
// empty or the header commit was rejected by the device.
func (q *Queue) Remove() (bool, error) {
	if q.closed {
		return false, ErrClosed
	}

	if err := q.ensureFresh(); err != nil {
		return false, err
	}

	if q.elementCount == 0 {
		return false, nil
	}

	headLen, err := q.cachedFirstLength()
	if err != nil {
		return false, err
	}

	newCount := q.elementCount - 1

	var newFirst, newLast uint32

	if newCount > 0 {
		newFirst = nextOffset(q.firstOffset, headLen, q.fileLength)
		newLast = q.lastOffset
	}

	newHeader := header{
		fileLength:   q.fileLength,
		elementCount: newCount,
		firstOffset:  newFirst,
		lastOffset:   newLast,
	}

	if err := q.writeHeader(newHeader); err != nil {
		q.needsReload = true
		return false, nil
	}

	q.elementCount = newHeader.elementCount
	q.firstOffset = newHeader.firstOffset
	q.lastOffset = newHeader.lastOffset
	q.firstLenValid = false

	if q.elementCount == 0 {
		q.lastLenValid = false
	}

	return true, nil
}

// Clear resets the queue to empty without changing the file's length.
func (q *Queue) Clear() (bool, error) {
	if q.closed {
		return false, ErrClosed
	}

	if err := q.ensureFresh(); err != nil {
		return false, err
	}

	newHeader := header{fileLength: q.fileLength}

	if err := q.writeHeader(newHeader); err != nil {
		q.needsReload = true
		return false, nil
	}

	q.elementCount = 0
	q.firstOffset = 0
	q.lastOffset = 0
	q.firstLenValid = false
	q.lastLenValid = false

	return true, nil
}

// Close releases the advisory lock (if held) and the underlying file
// handle. Subsequent operations on q are undefined.
func (q *Queue) Close() error {
	if q.closed {
		return nil
	}

	q.closed = true

	devErr := q.dev.Close()

	var lockErr error
	if q.lock != nil {
		lockErr = q.lock.Close()
	}

	if devErr != nil {
		return devErr
	}

	return lockErr
}

func (q *Queue) cachedFirstLength() (uint32, error) {
	if q.firstLenValid {
		return q.firstLength, nil
	}

	l, err := readElementLength(q.dev, q.firstOffset, q.fileLength)
	if err != nil {
		return 0, err
	}

	q.firstLength = l
	q.firstLenValid = true

	return l, nil
}

func (q *Queue) cachedLastLength() (uint32, error) {
	if q.lastLenValid {
		return q.lastLength, nil
	}

	l, err := readElementLength(q.dev, q.lastOffset, q.fileLength)
	if err != nil {
		return 0, err
	}

	q.lastLength = l
	q.lastLenValid = true

	return l, nil
}

// usedBytes returns the number of payload bytes currently occupied by live
// elements, computed as the circular span from firstOffset through the end
// of the tail element - not as a sum of individual element sizes, since
// those aren't separately tracked.
func (q *Queue) usedBytes() (uint32, error) {
	if q.elementCount == 0 {
		return 0, nil
	}

	lastLen, err := q.cachedLastLength()
	if err != nil {
		return 0, err
	}

	payloadArea := uint64(q.fileLength - headerSize)
	endOfLast := uint64(nextOffset(q.lastOffset, lastLen, q.fileLength))
	first := uint64(q.firstOffset)

	span := (endOfLast + payloadArea - first) % payloadArea
	if span == 0 {
		span = payloadArea
	}

	return uint32(span), nil
}

// expand grows the file so at least `required` additional payload bytes are
// free, doubling the file length until it is (subject to cfg.maxFileSize and
// the 32-bit file length field). It reports (false, nil) if the device
// rejected the truncate, a write attempted during relocation, or the header
// commit, leaving the committed header, the live elements, and the in-memory
// state as they were before the call; the file itself may be left longer than
// the header records, which [Open] accepts.
//
// The live region can span the physical end of the old file: this happens
// whenever firstOffset+usedBytes runs past the old fileLength, which covers
// both a multi-element wrap (the tail has fully wrapped ahead of the head)
// and a single element whose own bytes straddle the old end of file. In
// either case the wrapped prefix - the bytes living at [headerSize, wrapEnd)
// - is relocated in one block move to the newly added space starting right
// at the old fileLength, which is exactly what lets element reads stay
// simple linear-or-wrap reads against the new, larger fileLength afterward.
func (q *Queue) expand(required uint64) (bool, error) {
	used, err := q.usedBytes()
	if err != nil {
		return false, nil
	}

	oldFileLength := q.fileLength
	newFileLength := uint64(oldFileLength)
	payloadArea := newFileLength - headerSize

	for (payloadArea - uint64(used)) < required {
		newFileLength *= 2

		if newFileLength > uint64(^uint32(0)) {
			return false, fmt.Errorf("growing past %d bytes: %w", ^uint32(0), ErrCapacityExceeded)
		}

		if q.cfg.maxFileSize != 0 && newFileLength > uint64(q.cfg.maxFileSize) {
			return false, fmt.Errorf("growing past configured maximum %d bytes: %w", q.cfg.maxFileSize, ErrCapacityExceeded)
		}

		payloadArea = newFileLength - headerSize
	}

	newLen := uint32(newFileLength)

	if err := q.dev.Truncate(int64(newLen)); err != nil {
		return false, nil
	}

	newLastOffset := q.lastOffset

	var zeroSize uint32

	first := uint64(q.firstOffset)
	wraps := q.elementCount > 0 && first+uint64(used) > uint64(oldFileLength)

	if wraps {
		wrapEnd := headerSize + uint32(first+uint64(used)-uint64(oldFileLength))
		wrapSize := wrapEnd - headerSize

		if wrapSize > 0 {
			buf, err := q.dev.ReadAt(int64(headerSize), int(wrapSize))
			if err != nil {
				return false, nil
			}

			if err := q.dev.WriteAt(int64(oldFileLength), buf); err != nil {
				return false, nil
			}

			zeroSize = wrapSize
		}

		if q.lastOffset < q.firstOffset {
			newLastOffset = q.lastOffset + (oldFileLength - headerSize)
		}
	}

	newHeader := header{
		fileLength:   newLen,
		elementCount: q.elementCount,
		firstOffset:  q.firstOffset,
		lastOffset:   newLastOffset,
	}

	if err := q.writeHeader(newHeader); err != nil {
		q.needsReload = true
		return false, nil
	}

	q.fileLength = newHeader.fileLength
	q.lastOffset = newHeader.lastOffset

	// The vacated prefix is zeroed only once the committed header no longer
	// references it; a failed zeroing write leaves nothing but stale free
	// bytes behind.
	if zeroSize > 0 {
		_ = q.dev.WriteAt(int64(headerSize), make([]byte, zeroSize))
	}

	return true, nil
}
