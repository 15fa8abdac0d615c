package mft

import "bytes"

// fixupSectorSize is the sector size the Update Sequence Array protects. NTFS always protects fixed 512-byte
// sectors regardless of the volume's actual sector size.
const fixupSectorSize = 512

// ApplyFixup reverses NTFS's Update Sequence Array (USA) protection on a raw FILE record or index buffer. Each
// protected 512-byte sector has its last two bytes replaced with a shared update sequence number (USN) before the
// record is written to disk, and the real bytes are stashed in the array at usaOffset; this undoes that swap so
// callers see the original sector content.
//
// If a sector's stored tail does not match the USN, that sector was not updated atomically with the rest (a torn
// write, or simply stale/corrupt data) -- ApplyFixup warns and leaves that sector's tail untouched rather than
// failing the whole record.
//
// usaOffset or usaCount of zero disables fixup entirely: chunk is returned unmodified (but not copied).
func ApplyFixup(chunk []byte, usaOffset, usaCount int, w WarnFunc) []byte {
	if usaOffset == 0 || usaCount == 0 {
		return chunk
	}

	result := make([]byte, len(chunk))
	copy(result, chunk)

	usnOffset := usaOffset
	if usnOffset+2 > len(result) {
		warn(w, "mft: update sequence number at offset %d is out of bounds (data length %d)", usnOffset, len(result))
		return result
	}
	usn := result[usnOffset : usnOffset+2]

	numSectors := usaCount - 1
	for i := 0; i < numSectors; i++ {
		sectorEnd := (i + 1) * fixupSectorSize
		if sectorEnd > len(result) {
			warn(w, "mft: fixup sector %d end %d is out of bounds (data length %d)", i, sectorEnd, len(result))
			break
		}

		tail := result[sectorEnd-2 : sectorEnd]
		if !bytes.Equal(tail, usn) {
			warn(w, "mft: fixup mismatch in sector %d at offset %d: expected update sequence number %x but found %x", i, sectorEnd-2, usn, tail)
			continue
		}

		arrayEntryOffset := usaOffset + 2 + i*2
		if arrayEntryOffset+2 > len(result) {
			warn(w, "mft: update sequence array entry %d at offset %d is out of bounds (data length %d)", i, arrayEntryOffset, len(result))
			continue
		}
		copy(tail, result[arrayEntryOffset:arrayEntryOffset+2])
	}

	return result
}
