package mft

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-forensics/ntfsrecover/binutil"
	"github.com/go-forensics/ntfsrecover/utf16le"
)

// windowsEpochOffset is the number of 100-nanosecond intervals between the Windows FILETIME epoch
// (1601-01-01T00:00:00Z) and the Unix epoch (1970-01-01T00:00:00Z).
const windowsEpochOffset = 116444736000000000

// ConvertFileTime converts an NTFS FILETIME value (100-nanosecond intervals since 1601-01-01 UTC) to a time.Time.
func ConvertFileTime(ft uint64) time.Time {
	unix100ns := int64(ft) - windowsEpochOffset
	return time.Unix(0, unix100ns*100).UTC()
}

// FileNameNamespace identifies which of NTFS's parallel naming conventions a FILE_NAME attribute was recorded
// under.
type FileNameNamespace byte

const (
	FileNameNamespacePosix       FileNameNamespace = 0
	FileNameNamespaceWin32       FileNameNamespace = 1
	FileNameNamespaceDos         FileNameNamespace = 2
	FileNameNamespaceWin32AndDos FileNameNamespace = 3
)

// FileName is the parsed payload of a FILE_NAME ($30) attribute.
type FileName struct {
	ParentDirectory   FileReference
	CreationTime      time.Time
	ModificationTime  time.Time
	MftChangeTime     time.Time
	AccessTime        time.Time
	AllocatedSize     uint64
	RealSize          uint64
	Flags             uint32
	Namespace         FileNameNamespace
	Name              string
}

// ParseFileName parses a FILE_NAME attribute's resident payload.
func ParseFileName(data []byte) (FileName, error) {
	if len(data) < 66 {
		return FileName{}, fmt.Errorf("mft: filename attribute data should be at least 66 bytes but is %d", len(data))
	}
	r := binutil.NewLittleEndianReader(data)

	parentRef, err := ParseFileReference(r.Read(0, 8))
	if err != nil {
		return FileName{}, fmt.Errorf("mft: parsing filename parent reference: %w", err)
	}

	nameLengthChars := int(r.Byte(64))
	namespace := FileNameNamespace(r.Byte(65))
	nameBytes, ok := r.TryRead(66, nameLengthChars*2)
	if !ok {
		return FileName{}, fmt.Errorf("mft: filename string at offset 66 length %d is out of bounds", nameLengthChars*2)
	}
	name, err := utf16le.DecodeLittleEndian(nameBytes)
	if err != nil {
		return FileName{}, fmt.Errorf("mft: decoding filename string: %w", err)
	}

	return FileName{
		ParentDirectory:   parentRef,
		CreationTime:      ConvertFileTime(r.Uint64(8)),
		ModificationTime:  ConvertFileTime(r.Uint64(16)),
		MftChangeTime:     ConvertFileTime(r.Uint64(24)),
		AccessTime:        ConvertFileTime(r.Uint64(32)),
		AllocatedSize:     r.Uint64(40),
		RealSize:          r.Uint64(48),
		Flags:             r.Uint32(56),
		Namespace:         namespace,
		Name:              name,
	}, nil
}

// StandardInformation is the parsed payload of a STANDARD_INFORMATION ($10) attribute.
type StandardInformation struct {
	CreationTime      time.Time
	ModificationTime  time.Time
	MftChangeTime     time.Time
	AccessTime        time.Time
	FilePermissions   uint32
}

// ParseStandardInformation parses a STANDARD_INFORMATION attribute's resident payload.
func ParseStandardInformation(data []byte) (StandardInformation, error) {
	if len(data) < 48 {
		return StandardInformation{}, fmt.Errorf("mft: standard_information data should be at least 48 bytes but is %d", len(data))
	}
	r := binutil.NewLittleEndianReader(data)
	return StandardInformation{
		CreationTime:     ConvertFileTime(r.Uint64(0)),
		ModificationTime: ConvertFileTime(r.Uint64(8)),
		MftChangeTime:    ConvertFileTime(r.Uint64(16)),
		AccessTime:       ConvertFileTime(r.Uint64(24)),
		FilePermissions:  r.Uint32(32),
	}, nil
}

// AttributeListEntry is one entry of an ATTRIBUTE_LIST ($20) attribute: a pointer to an attribute that actually
// lives in a different (extension) MFT record than the one the attribute list itself was found in.
type AttributeListEntry struct {
	Type          uint32
	ShortName     string
	Name          string
	StartingVcn   uint64
	BaseRecord    FileReference
	AttributeId   int
}

// ParseAttributeList parses an ATTRIBUTE_LIST attribute's resident payload into its entries. A malformed entry
// stops the scan (its own length field is what locates the next entry), keeping whichever entries were already
// parsed.
func ParseAttributeList(data []byte, w WarnFunc) []AttributeListEntry {
	var entries []AttributeListEntry
	pos := 0
	for pos+8 <= len(data) {
		r := binutil.NewLittleEndianReader(data[pos:])
		entryType := r.Uint32(0)
		entryLength := int(r.Uint16(4))
		if entryLength <= 0 {
			warn(w, "mft: attribute list entry at offset %d has non-positive length %d, stopping scan", pos, entryLength)
			break
		}
		if pos+entryLength > len(data) {
			warn(w, "mft: attribute list entry at offset %d declares length %d extending past data end, stopping scan", pos, entryLength)
			break
		}

		nameLength := int(r.Byte(6))
		nameOffset := int(r.Byte(7))
		name := ""
		if nameLength > 0 {
			nameBytes, ok := r.TryRead(nameOffset, nameLength*2)
			if !ok {
				warn(w, "mft: attribute list entry name at offset %d is out of bounds, skipping entry", pos)
				pos += entryLength
				continue
			}
			decoded, err := utf16le.DecodeLittleEndian(nameBytes)
			if err != nil {
				warn(w, "mft: decoding attribute list entry name at offset %d: %v", pos, err)
				pos += entryLength
				continue
			}
			name = decoded
		}

		baseRecord, err := ParseFileReference(r.Read(8, 8))
		if err != nil {
			warn(w, "mft: attribute list entry at offset %d: %v", pos, err)
			pos += entryLength
			continue
		}

		entries = append(entries, AttributeListEntry{
			Type:        entryType,
			ShortName:   AttributeTypeShortName(entryType),
			Name:        name,
			StartingVcn: r.Uint64(16),
			BaseRecord:  baseRecord,
			AttributeId: int(r.Uint16(24)),
		})

		pos += entryLength
	}
	return entries
}

// IndexEntry is one entry of an $INDEX_ROOT or $INDEX_ALLOCATION directory index: a child file reference and,
// for entries backing a directory's $I30 index, the child's FILE_NAME payload.
type IndexEntry struct {
	FileReference FileReference
	FileName      FileName
	IsLast        bool
}

const indexEntryFlagLast = 0x02
const indexEntryFlagHasSubnode = 0x01

// IndexRoot is the parsed payload of an INDEX_ROOT ($90) attribute for a directory's $I30 index.
type IndexRoot struct {
	// BytesPerIndexRecord is the size of each $INDEX_ALLOCATION buffer this directory's index, if it overflows
	// INDEX_ROOT, is split into. ParseIndexAllocationBlocks needs this to walk the buffers.
	BytesPerIndexRecord uint32
	Entries             []IndexEntry
}

// ParseIndexRoot parses an INDEX_ROOT attribute's resident payload. Only entries carrying a FILE_NAME payload are
// decoded; the synthetic end-of-index entry (IsLast) carries no name and is reported with a zero FileName.
func ParseIndexRoot(data []byte, w WarnFunc) (IndexRoot, error) {
	if len(data) < 32 {
		return IndexRoot{}, fmt.Errorf("mft: index_root data should be at least 32 bytes but is %d", len(data))
	}
	r := binutil.NewLittleEndianReader(data)
	bytesPerIndexRecord := r.Uint32(8)
	indexEntriesOffset := int(r.Uint32(16)) + 16
	indexLength := int(r.Uint32(20)) + 16

	if indexLength > len(data) {
		indexLength = len(data)
	}
	if indexEntriesOffset > indexLength {
		return IndexRoot{}, fmt.Errorf("mft: index_root entries offset %d exceeds index length %d", indexEntriesOffset, indexLength)
	}

	entries := parseIndexEntries(data[indexEntriesOffset:indexLength], w)
	return IndexRoot{BytesPerIndexRecord: bytesPerIndexRecord, Entries: entries}, nil
}

var indexAllocationSignature = []byte{'I', 'N', 'D', 'X'}

// ParseIndexAllocationBlocks parses a non-resident $INDEX_ALLOCATION attribute's produced bytes into its entries.
// The attribute's content is a sequence of fixed-size "INDX" buffers (recordSize bytes each, taken from the
// sibling INDEX_ROOT's BytesPerIndexRecord); each buffer is USA-fixed-up exactly like an MFT record before its
// own INDEX_HEADER and entries are parsed. A buffer that does not start with the INDX signature, or that is
// shorter than a buffer header, is skipped with a warning; this keeps a single corrupt directory block from
// hiding the rest of a large directory's entries.
func ParseIndexAllocationBlocks(data []byte, recordSize int, w WarnFunc) []IndexEntry {
	if recordSize <= 0 {
		warn(w, "mft: index_alloc: implausible record size %d, not parsing", recordSize)
		return nil
	}

	var entries []IndexEntry
	for pos := 0; pos+recordSize <= len(data); pos += recordSize {
		block := data[pos : pos+recordSize]
		if !bytes.Equal(block[:4], indexAllocationSignature) {
			warn(w, "mft: index_alloc block at offset %d does not start with INDX signature, skipping", pos)
			continue
		}

		r := binutil.NewLittleEndianReader(block)
		usaOffset := int(r.Uint16(4))
		usaCount := int(r.Uint16(6))
		fixedUp := ApplyFixup(block, usaOffset, usaCount, w)
		r = binutil.NewLittleEndianReader(fixedUp)

		const headerStart = 24
		if len(fixedUp) < headerStart+16 {
			warn(w, "mft: index_alloc block at offset %d is too short for its header, skipping", pos)
			continue
		}
		entriesOffset := int(r.Uint32(headerStart)) + headerStart
		indexLength := int(r.Uint32(headerStart+4)) + headerStart
		if indexLength > len(fixedUp) {
			indexLength = len(fixedUp)
		}
		if entriesOffset > indexLength {
			warn(w, "mft: index_alloc block at offset %d: entries offset %d exceeds index length %d, skipping", pos, entriesOffset, indexLength)
			continue
		}

		entries = append(entries, parseIndexEntries(fixedUp[entriesOffset:indexLength], w)...)
	}
	return entries
}

func parseIndexEntries(data []byte, w WarnFunc) []IndexEntry {
	var entries []IndexEntry
	pos := 0
	for pos+16 <= len(data) {
		r := binutil.NewLittleEndianReader(data[pos:])
		entryLength := int(r.Uint16(8))
		contentLength := int(r.Uint16(10))
		flags := r.Uint16(12)

		if entryLength < 16 {
			warn(w, "mft: index entry at offset %d has implausible length %d, stopping scan", pos, entryLength)
			break
		}
		if pos+entryLength > len(data) {
			warn(w, "mft: index entry at offset %d declares length %d extending past index end, stopping scan", pos, entryLength)
			break
		}

		isLast := flags&indexEntryFlagLast != 0
		entry := IndexEntry{IsLast: isLast}

		fileRef, err := ParseFileReference(r.Read(0, 8))
		if err != nil {
			warn(w, "mft: index entry at offset %d: %v", pos, err)
			pos += entryLength
			continue
		}
		entry.FileReference = fileRef

		if !isLast && contentLength > 0 {
			content, ok := r.TryRead(16, contentLength)
			if !ok {
				warn(w, "mft: index entry content at offset %d length %d is out of bounds, skipping", pos, contentLength)
				pos += entryLength
				continue
			}
			fileName, err := ParseFileName(content)
			if err != nil {
				warn(w, "mft: parsing index entry file name at offset %d: %v", pos, err)
				pos += entryLength
				continue
			}
			entry.FileName = fileName
		}

		entries = append(entries, entry)
		if isLast {
			break
		}
		pos += entryLength
	}
	return entries
}
