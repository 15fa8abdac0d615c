// Package mftload reads the complete $MFT image off an NTFS volume, resolving the bootstrap chicken-and-egg
// problem: the volume's boot sector only points at the MFT's first record, and it's that first record's own
// DATA runlist that describes where the rest of the (possibly fragmented) MFT actually lives.
package mftload

import (
	"fmt"

	"github.com/go-forensics/ntfsrecover/blockio"
	"github.com/go-forensics/ntfsrecover/bootsect"
	"github.com/go-forensics/ntfsrecover/mft"
)

// bootstrapRecordCount is how many 1024-byte record slots are read from the MFT's declared start cluster before
// the self-describing first record's own runlist is known. One slot is enough to parse the record itself; NTFS
// volumes typically report a larger clusters-per-record hint, but the hint is advisory and this package only ever
// needs slot 0.
const bootstrapRecordCount = 1

// Load reads the $MFT's first record from its bootstrap location, then uses that record's own DATA runlist to
// re-read the complete MFT image. If the re-read image turns out to be shorter than the bootstrap read -- an
// MFT record we couldn't fully parse, for instance -- Load warns and returns the bootstrap read unchanged rather
// than truncating a valid image.
func Load(r *blockio.Reader, geom bootsect.Geometry, w mft.WarnFunc) ([]byte, error) {
	bootstrapOffset := int64(geom.MftStartCluster) * int64(geom.BytesPerCluster)
	bootstrapBytes := int64(bootstrapRecordCount * 1024)

	bootstrap, err := r.ReadAt(bootstrapOffset, bootstrapBytes)
	if err != nil {
		return nil, fmt.Errorf("mftload: bootstrap read of $MFT record 0: %w", err)
	}

	record, err := mft.ParseRecord(bootstrap, 0, w)
	if err != nil {
		return nil, fmt.Errorf("mftload: parsing $MFT bootstrap record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("mftload: $MFT bootstrap record does not carry a valid FILE signature")
	}

	dataAttr, ok := record.Find("data", "")
	if !ok {
		return nil, fmt.Errorf("mftload: $MFT bootstrap record has no unnamed DATA attribute")
	}

	src := mft.Source{Reader: r, BytesPerCluster: int64(geom.BytesPerCluster)}
	full, err := dataAttr.Producer.Produce(src)
	if err != nil {
		return nil, fmt.Errorf("mftload: reading full $MFT via its own runlist: %w", err)
	}

	if len(full) < len(bootstrap) {
		warn(w, "mftload: full $MFT read (%d bytes) is shorter than the bootstrap read (%d bytes), keeping bootstrap read", len(full), len(bootstrap))
		return bootstrap, nil
	}
	return full, nil
}

func warn(w mft.WarnFunc, format string, args ...interface{}) {
	if w != nil {
		w(format, args...)
	}
}
