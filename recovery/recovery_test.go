package recovery_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-forensics/ntfsrecover/recovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecordSize = 1024

func buildBootSector(bytesPerSector uint16, sectorsPerCluster int8, oemID string) []byte {
	buf := make([]byte, 512)
	copy(buf[0x03:0x0B], []byte(oemID))
	binary.LittleEndian.PutUint16(buf[0x0B:0x0D], bytesPerSector)
	buf[0x0D] = byte(sectorsPerCluster)
	binary.LittleEndian.PutUint64(buf[0x30:0x38], 2) // MftClusterNumber, unused when MFTImage bypasses the loader
	return buf
}

func buildResidentAttr(attrType uint32, name string, content []byte) []byte {
	nameBytes := make([]byte, len(name)*2)
	for i, c := range name {
		binary.LittleEndian.PutUint16(nameBytes[i*2:i*2+2], uint16(c))
	}
	contentOffset := 0x18 + len(nameBytes)
	size := contentOffset + len(content)
	if size%8 != 0 {
		size += 8 - size%8
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], attrType)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(size))
	buf[9] = byte(len(name))
	binary.LittleEndian.PutUint16(buf[10:12], 0x18)
	binary.LittleEndian.PutUint32(buf[0x10:0x14], uint32(len(content)))
	binary.LittleEndian.PutUint16(buf[0x14:0x16], uint16(contentOffset))
	copy(buf[0x18:0x18+len(nameBytes)], nameBytes)
	copy(buf[contentOffset:contentOffset+len(content)], content)
	return buf
}

func buildEndMarker() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, 0xFFFFFFFF)
	return b
}

func buildFileNameContent(parentRecordNumber uint64, name string) []byte {
	nameUTF16 := make([]byte, len(name)*2)
	for i, c := range name {
		binary.LittleEndian.PutUint16(nameUTF16[i*2:i*2+2], uint16(c))
	}
	buf := make([]byte, 66+len(nameUTF16))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(parentRecordNumber))
	buf[64] = byte(len(name))
	copy(buf[66:], nameUTF16)
	return buf
}

func buildAttributeListEntryContent(attrType uint32, baseRecordNumber uint64) []byte {
	const entryLen = 32
	buf := make([]byte, entryLen)
	binary.LittleEndian.PutUint32(buf[0:4], attrType)
	binary.LittleEndian.PutUint16(buf[4:6], entryLen)
	buf[7] = 26
	binary.LittleEndian.PutUint32(buf[8:12], uint32(baseRecordNumber))
	return buf
}

func buildRecord(attrs []byte, firstAttrOffset int) []byte {
	chunk := make([]byte, testRecordSize)
	copy(chunk[0:4], []byte("FILE"))
	binary.LittleEndian.PutUint16(chunk[0x14:0x16], uint16(firstAttrOffset))
	binary.LittleEndian.PutUint32(chunk[0x18:0x1C], testRecordSize)
	binary.LittleEndian.PutUint32(chunk[0x1C:0x20], testRecordSize)
	copy(chunk[firstAttrOffset:], attrs)
	return chunk
}

// buildMftImage constructs a 3-record MFT image:
//   0: root, FILE_NAME "."
//   1: base record for "file.txt", whose DATA lives in record 2 via an $ATTRIBUTE_LIST
//   2: extension record holding the actual resident DATA attribute
func buildMftImage() []byte {
	const firstAttrOffset = 0x38

	rootAttrs := append(buildResidentAttr(0x30, "", buildFileNameContent(0, ".")), buildEndMarker()...)
	root := buildRecord(rootAttrs, firstAttrOffset)

	attrListContent := buildAttributeListEntryContent(0x80, 2)
	baseAttrs := append(buildResidentAttr(0x30, "", buildFileNameContent(0, "file.txt")), buildResidentAttr(0x20, "", attrListContent)...)
	baseAttrs = append(baseAttrs, buildEndMarker()...)
	base := buildRecord(baseAttrs, firstAttrOffset)

	extAttrs := append(buildResidentAttr(0x80, "", []byte("hello")), buildEndMarker()...)
	ext := buildRecord(extAttrs, firstAttrOffset)

	var image []byte
	image = append(image, root...)
	image = append(image, base...)
	image = append(image, ext...)
	return image
}

func TestOpenMergesAttributeListExtensionsIntoBaseRecord(t *testing.T) {
	bootSector := buildBootSector(512, 1, "NTFS    ")
	volumeBytes := make([]byte, 4096)
	copy(volumeBytes, bootSector)

	vol, err := recovery.Open(bytes.NewReader(volumeBytes), recovery.Options{MFTImage: buildMftImage()})
	require.NoError(t, err)
	require.Len(t, vol.Index, 3)

	_, ok := vol.Index[1].Find("data", "")
	require.True(t, ok, "expected record 1 to have a merged data attribute from its attribute list extension")

	primary, _, err := vol.Materialize(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), primary)
}

func TestOpenRejectsUnsupportedOemId(t *testing.T) {
	bootSector := buildBootSector(512, 1, "BADFS   ")
	volumeBytes := make([]byte, 4096)
	copy(volumeBytes, bootSector)

	_, err := recovery.Open(bytes.NewReader(volumeBytes), recovery.Options{MFTImage: buildMftImage()})
	require.Error(t, err)
	var recErr *recovery.Error
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, recovery.KindGeometry, recErr.Kind)
}

func TestVolumeResolveReconstructsPath(t *testing.T) {
	bootSector := buildBootSector(512, 1, "NTFS    ")
	volumeBytes := make([]byte, 4096)
	copy(volumeBytes, bootSector)

	vol, err := recovery.Open(bytes.NewReader(volumeBytes), recovery.Options{MFTImage: buildMftImage()})
	require.NoError(t, err)

	path, orphaned := vol.Resolve(1)
	assert.False(t, orphaned)
	assert.Equal(t, []string{"file.txt"}, path)
}

func TestVolumeMaterializeReadsMergedDataStream(t *testing.T) {
	bootSector := buildBootSector(512, 1, "NTFS    ")
	volumeBytes := make([]byte, 4096)
	copy(volumeBytes, bootSector)

	vol, err := recovery.Open(bytes.NewReader(volumeBytes), recovery.Options{MFTImage: buildMftImage()})
	require.NoError(t, err)

	primary, alternates, err := vol.Materialize(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), primary)
	assert.Empty(t, alternates)
}

func TestVolumeMaterializeMissingRecordIsError(t *testing.T) {
	bootSector := buildBootSector(512, 1, "NTFS    ")
	volumeBytes := make([]byte, 4096)
	copy(volumeBytes, bootSector)

	vol, err := recovery.Open(bytes.NewReader(volumeBytes), recovery.Options{MFTImage: buildMftImage()})
	require.NoError(t, err)

	_, _, err = vol.Materialize(99)
	assert.Error(t, err)
}
