package mft

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestRecord(attrs []byte, sequenceNumber uint16, flags RecordFlag, firstAttrOffset int) []byte {
	chunk := make([]byte, recordSize)
	copy(chunk[0:4], fileSignature)
	binary.LittleEndian.PutUint16(chunk[0x04:0x06], 0) // usaOffset, no fixup
	binary.LittleEndian.PutUint16(chunk[0x06:0x08], 0) // usaCount
	binary.LittleEndian.PutUint16(chunk[0x10:0x12], sequenceNumber)
	binary.LittleEndian.PutUint16(chunk[0x12:0x14], 1) // hard link count
	binary.LittleEndian.PutUint16(chunk[0x14:0x16], uint16(firstAttrOffset))
	binary.LittleEndian.PutUint16(chunk[0x16:0x18], uint16(flags))
	binary.LittleEndian.PutUint32(chunk[0x18:0x1C], 512)
	binary.LittleEndian.PutUint32(chunk[0x1C:0x20], 1024)
	binary.LittleEndian.PutUint16(chunk[0x28:0x2A], 5)
	copy(chunk[firstAttrOffset:], attrs)
	return chunk
}

func TestParseRecordNonFileSignatureYieldsNilWithoutError(t *testing.T) {
	chunk := make([]byte, recordSize)
	copy(chunk, []byte("BAAD"))

	rec, err := ParseRecord(chunk, 5, nil)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestParseRecordTooShortIsError(t *testing.T) {
	_, err := ParseRecord(make([]byte, 10), 0, nil)
	assert.Error(t, err)
}

func TestParseRecordParsesHeaderAndAttributes(t *testing.T) {
	attrs := append(buildResidentAttribute(0x10, "", make([]byte, 48)), buildEndMarker()...)
	chunk := buildTestRecord(attrs, 7, RecordFlagInUse|RecordFlagIsDirectory, 0x38)

	rec, err := ParseRecord(chunk, 42, nil)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, 42, rec.RecordNumber)
	assert.Equal(t, uint16(7), rec.SequenceNumber)
	assert.True(t, rec.Flags.Is(RecordFlagInUse))
	assert.True(t, rec.Flags.Is(RecordFlagIsDirectory))
	assert.False(t, rec.Flags.Is(RecordFlagInExtend))
	assert.Equal(t, uint32(512), rec.ActualSize)
	assert.Contains(t, rec.Attributes, "standard_info")
}

func TestRecordFindReturnsAttributeByShortNameAndStream(t *testing.T) {
	attrs := append(buildResidentAttribute(0x80, "", []byte("data")), buildEndMarker()...)
	chunk := buildTestRecord(attrs, 1, RecordFlagInUse, 0x38)

	rec, err := ParseRecord(chunk, 0, nil)
	require.NoError(t, err)

	attr, ok := rec.Find("data", "")
	assert.True(t, ok)
	produced, err := attr.Producer.Produce(Source{})
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), produced)

	_, ok = rec.Find("data", "nonexistent")
	assert.False(t, ok)
}

func TestParseFileReferenceMasksSequenceNumber(t *testing.T) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:4], 0x12345)
	binary.LittleEndian.PutUint16(b[4:6], 0)
	binary.LittleEndian.PutUint16(b[6:8], 99)

	ref, err := ParseFileReference(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x12345), ref.RecordNumberMasked())
	assert.Equal(t, uint16(99), ref.SequenceNumber)
}

func TestParseFileReferenceWrongLengthIsError(t *testing.T) {
	_, err := ParseFileReference(make([]byte, 4))
	assert.Error(t, err)
}
