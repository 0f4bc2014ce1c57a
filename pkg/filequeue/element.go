package filequeue

import (
	"encoding/binary"

	"github.com/calvinalkan/filequeue/pkg/blockio"
)

// elementHeaderSize is the size in bytes of an element's length prefix.
const elementHeaderSize = 4

// wrapAwareReadAt reads n bytes starting at the logical offset off in the
// circular payload area [headerSize, fileLength), splitting the read into
// two device calls if it crosses the physical end of file.
func wrapAwareReadAt(dev blockio.Device, off int64, n int, fileLength int64) ([]byte, error) {
	if off+int64(n) <= fileLength {
		return dev.ReadAt(off, n)
	}

	firstPart := int(fileLength - off)
	secondPart := n - firstPart

	head, err := dev.ReadAt(off, firstPart)
	if err != nil {
		return nil, err
	}

	tail, err := dev.ReadAt(headerSize, secondPart)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, head)
	copy(out[firstPart:], tail)

	return out, nil
}

// wrapAwareWriteAt writes p starting at the logical offset off in the
// circular payload area [headerSize, fileLength), splitting the write into
// two device calls if it crosses the physical end of file.
func wrapAwareWriteAt(dev blockio.Device, off int64, p []byte, fileLength int64) error {
	if off+int64(len(p)) <= fileLength {
		return dev.WriteAt(off, p)
	}

	firstPart := int(fileLength - off)

	if err := dev.WriteAt(off, p[:firstPart]); err != nil {
		return err
	}

	return dev.WriteAt(headerSize, p[firstPart:])
}

// nextOffset returns the logical offset just past an element of payloadLen
// bytes starting at currentOffset, wrapping around the circular payload
// area of size fileLength-headerSize.
func nextOffset(currentOffset uint32, payloadLen uint32, fileLength uint32) uint32 {
	payloadArea := fileLength - headerSize
	advance := uint64(currentOffset-headerSize) + elementHeaderSize + uint64(payloadLen)

	return headerSize + uint32(advance%uint64(payloadArea))
}

// readElementLength reads the 4-byte big-endian length prefix of the
// element starting at the logical offset off.
func readElementLength(dev blockio.Device, off uint32, fileLength uint32) (uint32, error) {
	buf, err := wrapAwareReadAt(dev, int64(off), elementHeaderSize, int64(fileLength))
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(buf), nil
}

// encodeElementPrefix returns the 4-byte big-endian length prefix for a
// payload of length n.
func encodeElementPrefix(n uint32) [elementHeaderSize]byte {
	var buf [elementHeaderSize]byte

	binary.BigEndian.PutUint32(buf[:], n)

	return buf
}
