/*
Package mft parses NTFS Master File Table records: the 1024-byte slots that describe files and directories, the
typed attributes inside each record, and the handful of attribute payloads (FILE_NAME, STANDARD_INFORMATION,
ATTRIBUTE_LIST, INDEX_ROOT) a path resolver or directory lister needs to decode beyond their raw bytes.

Basic usage

Parse a 1024-byte slot with ParseRecord, which applies USA fixup and parses the attribute headers. Each attribute's
value is exposed as a deferred Producer; invoke it with a Source to get the logical bytes, whether the attribute is
resident or backed by a runlist elsewhere on the volume.
*/
package mft

import (
	"bytes"
	"fmt"

	"github.com/go-forensics/ntfsrecover/binutil"
	"github.com/go-forensics/ntfsrecover/rlog"
)

// WarnFunc receives a non-fatal diagnostic. A nil WarnFunc discards all warnings.
type WarnFunc = rlog.WarnFunc

func warn(w WarnFunc, format string, args ...interface{}) {
	if w != nil {
		w(format, args...)
	}
}

var fileSignature = []byte{'F', 'I', 'L', 'E'}

const recordSize = 1024

// FileReference is a 64-bit NTFS file reference: the low 48 bits index the MFT, the high 16 bits are a sequence
// number used to detect stale references to a reused record slot.
type FileReference struct {
	RecordNumber   uint64
	SequenceNumber uint16
}

// ParseFileReference parses an 8-byte little-endian slice into a FileReference.
func ParseFileReference(b []byte) (FileReference, error) {
	if len(b) != 8 {
		return FileReference{}, fmt.Errorf("mft: file reference must be 8 bytes, got %d", len(b))
	}
	r := binutil.NewLittleEndianReader(b)
	low := uint64(r.Uint32(0)) | uint64(r.Uint16(4))<<32
	return FileReference{
		RecordNumber:   low,
		SequenceNumber: r.Uint16(6),
	}, nil
}

// RecordNumberMasked masks off the high 16-bit sequence number, returning the plain MFT slot index a FileReference
// points at. Path resolution (package pathresolve) always follows this, never the raw 64-bit value.
func (f FileReference) RecordNumberMasked() uint64 {
	return f.RecordNumber & 0xFFFFFFFFFFFF
}

// RecordFlag is a bit mask of flags on an MFT record, for example whether it is in use or describes a directory.
type RecordFlag uint16

const (
	RecordFlagInUse       RecordFlag = 0x0001
	RecordFlagIsDirectory RecordFlag = 0x0002
	RecordFlagInExtend    RecordFlag = 0x0004
	RecordFlagIsIndex     RecordFlag = 0x0008
)

// Is reports whether f's bit mask contains c.
func (f RecordFlag) Is(c RecordFlag) bool {
	return f&c == c
}

// Record is one parsed 1024-byte MFT slot: its header fields and its attributes, keyed by canonical short name
// and then by stream name (the empty string denotes the unnamed default stream).
type Record struct {
	RecordNumber        int
	SequenceNumber      uint16
	HardLinkCount       int
	Flags               RecordFlag
	ActualSize          uint32
	AllocatedSize       uint32
	BaseRecordReference FileReference
	NextAttributeId     int
	Attributes          map[string]map[string]Attribute
}

// ParseRecord parses a 1024-byte MFT slot. A slot that does not begin with the "FILE" tag is not an error -- it is
// an absent slot, reported as a nil *Record so callers building an index can place a null entry without treating
// the gap as fatal.
func ParseRecord(chunk []byte, recordNumber int, w WarnFunc) (*Record, error) {
	if len(chunk) < 42 {
		return nil, fmt.Errorf("mft: record %d: data length should be at least 42 but is %d", recordNumber, len(chunk))
	}
	if !bytes.Equal(chunk[:4], fileSignature) {
		return nil, nil
	}

	r := binutil.NewLittleEndianReader(chunk)

	usaOffset := int(r.Uint16(0x04))
	usaCount := int(r.Uint16(0x06))
	fixedUp := ApplyFixup(chunk, usaOffset, usaCount, w)
	r = binutil.NewLittleEndianReader(fixedUp)

	firstAttributeOffset := int(r.Uint16(0x14))
	if firstAttributeOffset < 0 || firstAttributeOffset > len(fixedUp) {
		return nil, fmt.Errorf("mft: record %d: invalid first attribute offset %d (data length %d)", recordNumber, firstAttributeOffset, len(fixedUp))
	}

	baseRecordRef, err := ParseFileReference(r.Read(0x20, 8))
	if err != nil {
		return nil, fmt.Errorf("mft: record %d: unable to parse base record reference: %w", recordNumber, err)
	}

	attrs := ParseAttributes(fixedUp[firstAttributeOffset:], w)

	return &Record{
		RecordNumber:        recordNumber,
		SequenceNumber:      r.Uint16(0x10),
		HardLinkCount:       int(r.Uint16(0x12)),
		Flags:               RecordFlag(r.Uint16(0x16)),
		ActualSize:          r.Uint32(0x18),
		AllocatedSize:       r.Uint32(0x1C),
		BaseRecordReference: baseRecordRef,
		NextAttributeId:     int(r.Uint16(0x28)),
		Attributes:          attrs,
	}, nil
}

// Find returns the attribute with the given canonical short name and stream name (empty for the unnamed/default
// stream), and whether it was present.
func (rec *Record) Find(shortName, streamName string) (Attribute, bool) {
	byStream, ok := rec.Attributes[shortName]
	if !ok {
		return Attribute{}, false
	}
	a, ok := byStream[streamName]
	return a, ok
}
