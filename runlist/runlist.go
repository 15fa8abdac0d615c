// Package runlist decodes NTFS's packed data-run encoding (the "runlist") into an ordered sequence of extents.
// A runlist describes the clusters backing a non-resident attribute value as a list of (length, offset-delta)
// pairs, where the offset is relative to the previous run's absolute cluster offset.
package runlist

import "github.com/go-forensics/ntfsrecover/varint"

// WarnFunc receives a non-fatal diagnostic message. Passing nil discards warnings.
type WarnFunc func(format string, args ...interface{})

func warn(w WarnFunc, format string, args ...interface{}) {
	if w != nil {
		w(format, args...)
	}
}

// Extent is one run of clusters backing a non-resident attribute: LengthClusters clusters starting at
// ClusterOffset, both relative to the start of the volume. Sparse is true for runs that have no backing clusters
// (an offset delta of zero under a zero-length offset field) -- the running ClusterOffset is left unchanged for
// those, matching NTFS's own convention, but the core never zero-fills sparse byte ranges: ToByteExtents maps a
// sparse run to the running offset like any other run.
type Extent struct {
	LengthClusters uint64
	ClusterOffset  int64
	Sparse         bool
}

// Decode parses a packed runlist body into an ordered list of Extents. Decoding stops (without error, only a
// warning through w) at the first malformed run header, the terminating zero header, or the end of body -- a
// truncated or corrupt runlist yields whatever extents were already decoded.
func Decode(body []byte, w WarnFunc) []Extent {
	extents := make([]Extent, 0)
	pos := 0
	var runningOffset int64

	for pos < len(body) {
		header := body[pos]
		if header == 0 {
			break
		}

		lengthLen := int(header & 0x0F)
		offsetLen := int(header >> 4)
		headerPos := pos
		pos++

		if lengthLen == 0 {
			warn(w, "runlist: malformed header 0x%02x at offset %d (zero length field)", header, headerPos)
			break
		}

		if pos+lengthLen+offsetLen > len(body) {
			warn(w, "runlist: header at offset %d needs %d bytes but only %d remain: %x", headerPos, lengthLen+offsetLen, len(body)-pos, body[pos:])
			break
		}

		length := varint.DecodeUnsigned(body[pos : pos+lengthLen])
		pos += lengthLen

		sparse := offsetLen == 0
		var delta int64
		if !sparse {
			delta = varint.Decode(body[pos:pos+offsetLen], true)
		}
		pos += offsetLen

		if !sparse {
			runningOffset += delta
		}

		extents = append(extents, Extent{
			LengthClusters: length,
			ClusterOffset:  runningOffset,
			Sparse:         sparse,
		})
	}

	return extents
}

// ByteExtent is an Extent converted to absolute byte offset and length using the volume's bytes-per-cluster.
type ByteExtent struct {
	Offset int64
	Length int64
}

// ToByteExtents converts cluster-addressed Extents into byte-addressed ByteExtents using bytesPerCluster.
func ToByteExtents(extents []Extent, bytesPerCluster int64) []ByteExtent {
	out := make([]ByteExtent, len(extents))
	for i, e := range extents {
		out[i] = ByteExtent{
			Offset: e.ClusterOffset * bytesPerCluster,
			Length: int64(e.LengthClusters) * bytesPerCluster,
		}
	}
	return out
}
