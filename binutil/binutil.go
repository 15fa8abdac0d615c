// Package binutil contains some helpful utilities for reading binary data from byte slices.
package binutil

import "encoding/binary"

// Duplicate creates a full copy of the input byte slice.
func Duplicate(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

// BinReader helps to read data from a byte slice using an offset and a data length (instead two offsets when using
// a slice expression). For example b[2:4] yields the same as Read(2, 2) using a BinReader over b. Also some convenient
// methods are provided to read integer values using a binary.ByteOrder from the slice directly.
// 
// Note that methods that return a []byte may not necessarily copy the data, so modifying the returned slice may also
// affect the data in the BinReader.
//
// Read, Byte and the UintN methods panic when any offset or length is outside of the bounds of the original data;
// the Try* variants report ok=false instead.
type BinReader struct {
	data []byte
	bo   binary.ByteOrder
}

// NewBinReader creates a BinReader over data using the specified binary.ByteOrder. The data slice is stored directly,
// no copy is made, so modifying the original slice will also affect the returned BinReader.
func NewBinReader(data []byte, bo binary.ByteOrder) *BinReader {
	return &BinReader{data: data, bo: bo}
}

// NewLittleEndianReader creates a BinReader over data using binary.LittleEndian. The data slice is stored directly,
// no copy is made, so modifying the original slice will also affect the returned BinReader.
func NewLittleEndianReader(data []byte) *BinReader {
	return NewBinReader(data, binary.LittleEndian)
}

// Read reads an amount of bytes as specified by length from the provided offset. The returned slice's length is the
// same as the specified length.
func (r *BinReader) Read(offset int, length int) []byte {
	return r.data[offset : offset+length]
}

// Byte returns the byte at the position indicated by the offset.
func (r *BinReader) Byte(offset int) byte {
	return r.Read(offset, 1)[0]
}

// Uint16 reads 2 bytes from the provided offset and parses them into a uint16 using the provided ByteOrder.
func (r *BinReader) Uint16(offset int) uint16 {
	return r.bo.Uint16(r.Read(offset, 2))
}

// Uint32 reads 4 bytes from the provided offset and parses them into a uint32 using the provided ByteOrder.
func (r *BinReader) Uint32(offset int) uint32 {
	return r.bo.Uint32(r.Read(offset, 4))
}

// Uint64 reads 8 bytes from the provided offset and parses them into a uint64 using the provided ByteOrder.
func (r *BinReader) Uint64(offset int) uint64 {
	return r.bo.Uint64(r.Read(offset, 8))
}

// TryRead is the bounds-checked counterpart of Read. Instead of panicking when offset/length fall outside the
// data, it reports ok=false so a caller parsing untrusted, possibly-corrupt on-disk structures can warn and move on
// instead of crashing.
func (r *BinReader) TryRead(offset int, length int) (data []byte, ok bool) {
	if offset < 0 || length < 0 || offset+length > len(r.data) {
		return nil, false
	}
	return r.data[offset : offset+length], true
}

// TryByte is the bounds-checked counterpart of Byte.
func (r *BinReader) TryByte(offset int) (b byte, ok bool) {
	data, ok := r.TryRead(offset, 1)
	if !ok {
		return 0, false
	}
	return data[0], true
}

// TryUint16 is the bounds-checked counterpart of Uint16.
func (r *BinReader) TryUint16(offset int) (v uint16, ok bool) {
	data, ok := r.TryRead(offset, 2)
	if !ok {
		return 0, false
	}
	return r.bo.Uint16(data), true
}

// TryUint32 is the bounds-checked counterpart of Uint32.
func (r *BinReader) TryUint32(offset int) (v uint32, ok bool) {
	data, ok := r.TryRead(offset, 4)
	if !ok {
		return 0, false
	}
	return r.bo.Uint32(data), true
}

// TryUint64 is the bounds-checked counterpart of Uint64.
func (r *BinReader) TryUint64(offset int) (v uint64, ok bool) {
	data, ok := r.TryRead(offset, 8)
	if !ok {
		return 0, false
	}
	return r.bo.Uint64(data), true
}
