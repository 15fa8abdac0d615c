package mft

import (
	"fmt"
	"strconv"

	"github.com/go-forensics/ntfsrecover/binutil"
	"github.com/go-forensics/ntfsrecover/blockio"
	"github.com/go-forensics/ntfsrecover/runlist"
	"github.com/go-forensics/ntfsrecover/utf16le"
)

// attributeTypeNames maps the raw 32-bit attribute type code to its canonical short name, used as the outer key
// of Record.Attributes. Older NTFS versions also used 0x40 for $VOLUME_VERSION and 0xC0 for $SYMBOLIC_LINK; this
// table maps those codes to object_id and reparse.
var attributeTypeNames = map[uint32]string{
	0x10: "standard_info",
	0x20: "attr_list",
	0x30: "filename",
	0x40: "object_id",
	0x50: "security",
	0x60: "vol_name",
	0x70: "vol_info",
	0x80: "data",
	0x90: "index_root",
	0xA0: "index_alloc",
	0xB0: "bitmap",
	0xC0: "reparse",
	0xD0: "ea_info",
	0xE0: "ea",
	0xF0: "prop_set",
	0x100: "log_util",
}

// AttributeTypeShortName returns the canonical short name for a raw attribute type code, falling back to
// "unk_<decimal>" for a code this package does not recognize.
func AttributeTypeShortName(attrType uint32) string {
	if name, ok := attributeTypeNames[attrType]; ok {
		return name
	}
	return "unk_" + strconv.FormatUint(uint64(attrType), 10)
}

// AttributeFlag is a bit mask of flags on an attribute header, such as compression or sparseness.
type AttributeFlag uint16

const (
	AttributeFlagCompressed AttributeFlag = 0x0001
	AttributeFlagEncrypted  AttributeFlag = 0x4000
	AttributeFlagSparse     AttributeFlag = 0x8000
)

// Source is what a Producer needs to materialize an attribute's logical bytes: a positioned reader over the
// volume and the cluster size needed to turn a runlist into byte extents.
type Source struct {
	Reader          *blockio.Reader
	BytesPerCluster int64
}

// Producer is a deferred byte value: either the raw bytes of a resident attribute, or a runlist plus a real size
// describing where to read a non-resident attribute's content from the volume. Produce resolves either case into
// the attribute's logical bytes.
type Producer struct {
	resident bool
	data     []byte

	extents  []runlist.Extent
	realSize uint64
}

// NewResidentProducer wraps the inline bytes of a resident attribute.
func NewResidentProducer(data []byte) Producer {
	return Producer{resident: true, data: data}
}

// NewNonResidentProducer wraps a decoded runlist and the attribute's real (unpadded) size.
func NewNonResidentProducer(extents []runlist.Extent, realSize uint64) Producer {
	return Producer{resident: false, extents: extents, realSize: realSize}
}

// IsResident reports whether the attribute's value is stored inline in the MFT record.
func (p Producer) IsResident() bool {
	return p.resident
}

// Produce resolves the attribute into its logical bytes. For a resident attribute this is immediate; for a
// non-resident attribute it reads every extent of the runlist through src.Reader and truncates the result to the
// attribute's real size, since the last cluster is often padded.
func (p Producer) Produce(src Source) ([]byte, error) {
	if p.resident {
		return p.data, nil
	}
	if src.Reader == nil {
		return nil, fmt.Errorf("mft: non-resident attribute requires a volume reader")
	}
	byteExtents := runlist.ToByteExtents(p.extents, src.BytesPerCluster)
	ioExtents := make([]blockio.Extent, len(byteExtents))
	for i, e := range byteExtents {
		ioExtents[i] = blockio.Extent{Offset: e.Offset, Length: e.Length}
	}
	data, err := src.Reader.ReadExtents(ioExtents)
	if err != nil {
		return nil, fmt.Errorf("mft: reading non-resident attribute: %w", err)
	}
	if uint64(len(data)) > p.realSize {
		data = data[:p.realSize]
	}
	return data, nil
}

// Attribute is one parsed attribute header: its type, optional name, flags, and a Producer for its value.
type Attribute struct {
	Type       uint32
	ShortName  string
	Name       string
	Flags      AttributeFlag
	Id         int
	NonResident bool
	Producer   Producer
}

// attributeHeaderMinSize is the size of the common attribute header fields every attribute (resident or not)
// carries, before the resident/non-resident specific fields.
const attributeHeaderMinSize = 16

// ParseAttributes parses a sequence of attributes out of data, which begins at the first attribute of an MFT
// record and continues until the 0xFFFFFFFF end marker, the end of data, or an unrecoverable parse error.
//
// A malformed individual attribute (one whose declared size cannot hold its own header) stops the scan, keeping
// whatever attributes were parsed before it, since later attributes cannot reliably be located without a valid
// size field to skip by. A parse error from an attribute's payload-specific logic (name decode, runlist decode)
// is instead a per-attribute warning: that attribute is skipped by its declared size and scanning continues,
// because the size field -- and therefore the location of the next attribute -- is still trustworthy.
func ParseAttributes(data []byte, w WarnFunc) map[string]map[string]Attribute {
	result := make(map[string]map[string]Attribute)
	pos := 0
	for {
		if pos+4 > len(data) {
			break
		}
		attrType := binutil.NewLittleEndianReader(data[pos:]).Uint32(0)
		if attrType == 0xFFFFFFFF {
			break
		}

		if pos+attributeHeaderMinSize > len(data) {
			warn(w, "mft: attribute header at offset %d does not fit in remaining %d bytes", pos, len(data)-pos)
			break
		}
		r := binutil.NewLittleEndianReader(data[pos:])
		size := int(r.Uint32(4))
		if size < attributeHeaderMinSize {
			warn(w, "mft: attribute at offset %d has size %d, too small for its own header, stopping scan", pos, size)
			break
		}
		if pos+size > len(data) {
			warn(w, "mft: attribute at offset %d declares size %d extending past record end, stopping scan", pos, size)
			break
		}

		attr, err := parseAttribute(data[pos:pos+size], w)
		if err != nil {
			warn(w, "mft: skipping attribute at offset %d: %v", pos, err)
			pos += size
			continue
		}

		byStream, ok := result[attr.ShortName]
		if !ok {
			byStream = make(map[string]Attribute)
			result[attr.ShortName] = byStream
		}
		byStream[attr.Name] = attr

		pos += size
	}
	return result
}

func parseAttribute(raw []byte, w WarnFunc) (Attribute, error) {
	r := binutil.NewLittleEndianReader(raw)
	attrType := r.Uint32(0)
	nonResident := r.Byte(8) != 0
	nameLength := int(r.Byte(9))
	nameOffset := int(r.Uint16(10))
	flags := AttributeFlag(r.Uint16(12))
	id := int(r.Uint16(14))

	name := ""
	if nameLength > 0 {
		nameBytes, ok := r.TryRead(nameOffset, nameLength*2)
		if !ok {
			return Attribute{}, fmt.Errorf("attribute name at offset %d length %d is out of bounds", nameOffset, nameLength*2)
		}
		decoded, err := utf16le.DecodeLittleEndian(nameBytes)
		if err != nil {
			return Attribute{}, fmt.Errorf("decoding attribute name: %w", err)
		}
		name = decoded
	}

	var producer Producer
	if nonResident {
		if len(raw) < 0x40 {
			return Attribute{}, fmt.Errorf("non-resident attribute header too short (%d bytes)", len(raw))
		}
		realSize := r.Uint64(0x30)
		runlistOffset := int(r.Uint16(0x20))
		runlistBytes, ok := r.TryRead(runlistOffset, len(raw)-runlistOffset)
		if !ok {
			return Attribute{}, fmt.Errorf("runlist at offset %d is out of bounds", runlistOffset)
		}
		extents := runlist.Decode(runlistBytes, runlist.WarnFunc(w))
		producer = NewNonResidentProducer(extents, realSize)
	} else {
		if len(raw) < 0x18 {
			return Attribute{}, fmt.Errorf("resident attribute header too short (%d bytes)", len(raw))
		}
		contentLength := int(r.Uint32(0x10))
		contentOffset := int(r.Uint16(0x14))
		content, ok := r.TryRead(contentOffset, contentLength)
		if !ok {
			return Attribute{}, fmt.Errorf("resident content at offset %d length %d is out of bounds", contentOffset, contentLength)
		}
		producer = NewResidentProducer(binutil.Duplicate(content))
	}

	return Attribute{
		Type:        attrType,
		ShortName:   AttributeTypeShortName(attrType),
		Name:        name,
		Flags:       flags,
		Id:          id,
		NonResident: nonResident,
		Producer:    producer,
	}, nil
}
