// Package blockio abstracts positioned reads over a raw volume. Besides a plain io.ReaderAt pass-through, it
// implements the block-alignment workaround some hosts require: Windows raw disk handles reject seeks/reads that
// are not a multiple of the device's sector size, so a read at an arbitrary byte offset has to align down to the
// nearest boundary, read (and discard) the prefix, then read the requested length.
package blockio

import (
	"fmt"
	"io"
)

// DefaultAlignment is the sector size assumed when none is configured, matching the common case of 512-byte
// sectors.
const DefaultAlignment = 512

// Reader performs positioned reads against an underlying io.ReaderAt, aligning down to a sector boundary first
// when the reader was constructed with an alignment requirement.
type Reader struct {
	src       io.ReaderAt
	alignment int64
}

// New wraps src for positioned reads with no alignment requirement (reads happen exactly at the requested offset).
func New(src io.ReaderAt) *Reader {
	return &Reader{src: src}
}

// NewAligned wraps src for positioned reads that must land on a multiple of alignment bytes. Use this for raw
// device handles that reject arbitrary seeks; pass 0 (or use New) for regular files and images, where it is
// unnecessary overhead.
func NewAligned(src io.ReaderAt, alignment int64) *Reader {
	return &Reader{src: src, alignment: alignment}
}

// ReadAt returns exactly length bytes read from absolute byte offset offset. A short read (fewer bytes available
// than requested) is always an error: the volume is assumed to be a fixed-size, byte-addressable device, and a
// caller asking for length bytes at offset is asserting that the device is at least offset+length bytes long.
func (r *Reader) ReadAt(offset, length int64) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	if r.alignment <= 0 || offset%r.alignment == 0 {
		return r.readExact(offset, length)
	}

	alignedOffset := (offset / r.alignment) * r.alignment
	prefix := offset - alignedOffset
	buf, err := r.readExact(alignedOffset, prefix+length)
	if err != nil {
		return nil, err
	}
	return buf[prefix:], nil
}

func (r *Reader) readExact(offset, length int64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := r.src.ReadAt(buf, offset)
	if err != nil && !(err == io.EOF && int64(n) == length) {
		return nil, fmt.Errorf("blockio: read %d bytes at offset %d: %w", length, offset, err)
	}
	if int64(n) != length {
		return nil, fmt.Errorf("blockio: short read at offset %d: wanted %d bytes, got %d", offset, length, n)
	}
	return buf, nil
}

// ReadExtents reads and concatenates a sequence of byte-addressed extents in order, for example the ByteExtents
// produced by runlist.ToByteExtents for a non-resident attribute's data runs.
func (r *Reader) ReadExtents(extents []Extent) ([]byte, error) {
	var out []byte
	for _, e := range extents {
		buf, err := r.ReadAt(e.Offset, e.Length)
		if err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	return out, nil
}

// Extent is a byte-addressed range to read, with the same shape as runlist.ByteExtent.
type Extent struct {
	Offset int64
	Length int64
}
