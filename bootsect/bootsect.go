/*
	Package bootsect provides functions to parse the boot sector (also sometimes called Volume Boot Record, VBR, or
	$Boot file) of an NTFS volume.
*/
package bootsect

import (
	"fmt"

	"github.com/go-forensics/ntfsrecover/binutil"
)

// SupportedOemId is the 8-byte OEM id every valid NTFS boot sector carries: "NTFS" followed by four spaces.
const SupportedOemId = "NTFS    "

// BootSector represents the parsed data of an NTFS boot sector. The OemId should typically be "NTFS    " ("NTFS"
// followed by 4 trailing spaces) for a valid NTFS boot sector.
type BootSector struct {
	OemId                        string
	BytesPerSector               int
	SectorsPerCluster            int
	MediaDescriptor              byte
	SectorsPerTrack              int
	NumberofHeads                int
	HiddenSectors                int
	TotalSectors                 uint64
	MftClusterNumber             uint64
	MftMirrorClusterNumber       uint64
	FileRecordSegmentSizeInBytes int
	IndexBufferSizeInBytes       int
	VolumeSerialNumber           []byte
}

// Parse parses the data of an NTFS boot sector into a BootSector structure. It does not itself reject an
// unexpected OemId; callers that require a valid NTFS volume should compare BootSector.OemId against
// SupportedOemId themselves, since that mismatch is a fatal Geometry error for the caller, not a parse failure
// here.
func Parse(data []byte) (BootSector, error) {
	if len(data) < 80 {
		return BootSector{}, fmt.Errorf("boot sector data should be at least 80 bytes but is %d", len(data))
	}
	r := binutil.NewLittleEndianReader(data)
	bytesPerSector := int(r.Uint16(0x0B))
	sectorsPerCluster := int(int8(r.Byte(0x0D)))
	if sectorsPerCluster < 0 {
		// Quoth Wikipedia: The number of sectors in a cluster. If the value is negative, the amount of sectors is 2
		// to the power of the absolute value of this field.
		sectorsPerCluster = 1 << -sectorsPerCluster
	}
	bytesPerCluster := bytesPerSector * sectorsPerCluster
	return BootSector{
		OemId:                        string(r.Read(0x03, 8)),
		BytesPerSector:               bytesPerSector,
		SectorsPerCluster:            sectorsPerCluster,
		MediaDescriptor:              r.Byte(0x15),
		SectorsPerTrack:              int(r.Uint16(0x18)),
		NumberofHeads:                int(r.Uint16(0x1A)),
		HiddenSectors:                int(r.Uint16(0x1C)),
		TotalSectors:                 r.Uint64(0x28),
		MftClusterNumber:             r.Uint64(0x30),
		MftMirrorClusterNumber:       r.Uint64(0x38),
		FileRecordSegmentSizeInBytes: bytesOrClustersToBytes(r.Byte(0x40), bytesPerCluster),
		IndexBufferSizeInBytes:       bytesOrClustersToBytes(r.Byte(0x44), bytesPerCluster),
		VolumeSerialNumber:           binutil.Duplicate(r.Read(0x48, 8)),
	}, nil
}

func bytesOrClustersToBytes(b byte, bytesPerCluster int) int {
	// From Wikipedia:
	// A positive value denotes the number of clusters in a File Record Segment. A negative value denotes the amount of
	// bytes in a File Record Segment, in which case the size is 2 to the power of the absolute value.
	// (0xF6 = -10 -> 2^10 = 1024).
	i := int(int8(b))
	if i < 0 {
		return 1 << -i
	}
	return i * bytesPerCluster
}

// Geometry is the subset of BootSector the rest of the module needs to locate clusters on the volume, after any
// collaborator-supplied overrides have been applied.
type Geometry struct {
	BytesPerSector    int
	SectorsPerCluster int
	BytesPerCluster   int
	MftStartCluster   uint64
}

// Override builds a Geometry from this BootSector, replacing BytesPerSector and/or SectorsPerCluster with the
// given values when they are non-zero -- the "sector_size"/"cluster_size" collaborator configuration options.
func (b BootSector) Override(sectorSize, clusterSize int) Geometry {
	bps := b.BytesPerSector
	if sectorSize != 0 {
		bps = sectorSize
	}
	spc := b.SectorsPerCluster
	if clusterSize != 0 {
		spc = clusterSize
	}
	return Geometry{
		BytesPerSector:    bps,
		SectorsPerCluster: spc,
		BytesPerCluster:   bps * spc,
		MftStartCluster:   b.MftClusterNumber,
	}
}
