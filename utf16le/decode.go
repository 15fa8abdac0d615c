// Package utf16le decodes the UTF-16LE byte strings NTFS uses for attribute names, stream names and file names.
// It is named utf16le (rather than utf16) so that callers can import it alongside the standard library's
// unicode/utf16 package without a name collision.
package utf16le

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"
)

// Decode decodes b, interpreted as a sequence of 16-bit code units in the given byte order, into a string. b must
// have an even length; an odd length is a Format error, since it cannot represent a whole number of code units.
func Decode(b []byte, bo binary.ByteOrder) (string, error) {
	if len(b)%2 != 0 {
		return "", errors.New("utf16le: input data must have an even number of bytes")
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = bo.Uint16(b[i*2 : i*2+2])
	}
	return string(utf16.Decode(units)), nil
}

// DecodeLittleEndian decodes b as little-endian UTF-16, the byte order used by every on-disk NTFS string.
func DecodeLittleEndian(b []byte) (string, error) {
	return Decode(b, binary.LittleEndian)
}
