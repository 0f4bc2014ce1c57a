package filequeue

import (
	"encoding/binary"
	"fmt"
)

// headerSize is the fixed size in bytes of the on-disk header.
const headerSize = 16

// minFileSize is the smallest legal total file length. A freshly created
// queue is pre-sized to exactly this.
const minFileSize = 4096

// header is the in-memory form of the 16-byte record at offset 0 of a queue
// file. All four fields are stored big-endian on disk.
type header struct {
	fileLength   uint32
	elementCount uint32
	firstOffset  uint32
	lastOffset   uint32
}

// encode serializes h to its 16-byte on-disk form.
func (h header) encode() [headerSize]byte {
	var buf [headerSize]byte

	binary.BigEndian.PutUint32(buf[0:4], h.fileLength)
	binary.BigEndian.PutUint32(buf[4:8], h.elementCount)
	binary.BigEndian.PutUint32(buf[8:12], h.firstOffset)
	binary.BigEndian.PutUint32(buf[12:16], h.lastOffset)

	return buf
}

// decodeHeader parses a 16-byte buffer into a header and validates it
// against the invariants in place for every committed header:
//
//   - fileLength is at least minFileSize.
//   - firstOffset and lastOffset, when non-zero, lie in [headerSize, fileLength).
//   - elementCount == 0 if and only if firstOffset == 0.
//
// It returns ErrCorruptHeader if any check fails.
func decodeHeader(buf []byte) (header, error) {
	if len(buf) != headerSize {
		return header{}, fmt.Errorf("decoding header: %d bytes, want %d: %w", len(buf), headerSize, ErrCorruptHeader)
	}

	h := header{
		fileLength:   binary.BigEndian.Uint32(buf[0:4]),
		elementCount: binary.BigEndian.Uint32(buf[4:8]),
		firstOffset:  binary.BigEndian.Uint32(buf[8:12]),
		lastOffset:   binary.BigEndian.Uint32(buf[12:16]),
	}

	if err := h.validate(); err != nil {
		return header{}, err
	}

	return h, nil
}

func (h header) validate() error {
	if h.fileLength < minFileSize {
		return fmt.Errorf("file length %d below minimum %d: %w", h.fileLength, minFileSize, ErrCorruptHeader)
	}

	if (h.elementCount == 0) != (h.firstOffset == 0) {
		return fmt.Errorf("elementCount=%d firstOffset=%d inconsistent: %w", h.elementCount, h.firstOffset, ErrCorruptHeader)
	}

	if h.firstOffset != 0 && (h.firstOffset < headerSize || h.firstOffset >= h.fileLength) {
		return fmt.Errorf("firstOffset %d out of bounds [%d, %d): %w", h.firstOffset, headerSize, h.fileLength, ErrCorruptHeader)
	}

	if h.lastOffset != 0 && (h.lastOffset < headerSize || h.lastOffset >= h.fileLength) {
		return fmt.Errorf("lastOffset %d out of bounds [%d, %d): %w", h.lastOffset, headerSize, h.fileLength, ErrCorruptHeader)
	}

	if h.lastOffset == 0 && h.firstOffset != 0 && h.elementCount != 0 {
		// firstOffset set but lastOffset zero is only valid when both are zero
		// (empty queue); any non-empty queue must have a non-zero tail too.
		return fmt.Errorf("firstOffset=%d but lastOffset=0 with elementCount=%d: %w", h.firstOffset, h.elementCount, ErrCorruptHeader)
	}

	return nil
}
