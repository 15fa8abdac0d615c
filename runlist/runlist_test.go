package runlist_test

import (
	"encoding/hex"
	"testing"

	"github.com/go-forensics/ntfsrecover/runlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.Nilf(t, err, "unable to decode hex fixture: %v", err)
	return b
}

func TestDecodeTerminatorOnlyYieldsEmpty(t *testing.T) {
	extents := runlist.Decode([]byte{0x00}, nil)
	assert.Empty(t, extents)
}

func TestDecodeEmptyBodyYieldsEmpty(t *testing.T) {
	extents := runlist.Decode(nil, nil)
	assert.Empty(t, extents)
}

func TestDecodeMultiRunAccumulatesAbsoluteOffset(t *testing.T) {
	// Six-run, heavily fragmented $DATA runlist, as found in a real $MFT record.
	input := decodeHex(t, "3320c80000000c42e061a4b54507330dc8006fedb142365db3d89cfb32802b3a045b433d830054029301000000000000")

	extents := runlist.Decode(input, nil)

	expected := []runlist.Extent{
		{LengthClusters: 51232, ClusterOffset: 786432},
		{LengthClusters: 25056, ClusterOffset: 122795428},
		{LengthClusters: 51213, ClusterOffset: 117678867},
		{LengthClusters: 23862, ClusterOffset: 44071878},
		{LengthClusters: 11136, ClusterOffset: 50036736},
		{LengthClusters: 33597, ClusterOffset: 76448340},
	}
	assert.Equal(t, expected, extents)
}

func TestDecodeSparseRunKeepsOffsetAndFlags(t *testing.T) {
	// header 0x31: lengthLen=1, offsetLen=3 -> one normal run of 0x10 clusters at absolute offset 0x010203,
	// followed by header 0x01: lengthLen=1, offsetLen=0 -> a sparse run.
	input := []byte{
		0x31, 0x10, 0x03, 0x02, 0x01, // normal run: length 0x10, offset +0x010203
		0x01, 0x05, // sparse run: length 5, no offset bytes
		0x00, // terminator
	}

	extents := runlist.Decode(input, nil)

	require.Len(t, extents, 2)
	assert.Equal(t, runlist.Extent{LengthClusters: 0x10, ClusterOffset: 0x010203, Sparse: false}, extents[0])
	assert.Equal(t, runlist.Extent{LengthClusters: 5, ClusterOffset: 0x010203, Sparse: true}, extents[1])
}

func TestDecodeZeroLengthFieldIsMalformedAndStops(t *testing.T) {
	input := []byte{0x10, 0x01} // lengthLen=0, offsetLen=1: malformed per spec
	var warned bool
	extents := runlist.Decode(input, func(format string, args ...interface{}) { warned = true })
	assert.Empty(t, extents)
	assert.True(t, warned)
}

func TestDecodeHeaderExceedingBodyStops(t *testing.T) {
	input := []byte{0x11, 0x05} // claims 1 length byte + 1 offset byte, but only 1 byte follows
	var warned bool
	extents := runlist.Decode(input, func(format string, args ...interface{}) { warned = true })
	assert.Empty(t, extents)
	assert.True(t, warned)
}

func TestToByteExtents(t *testing.T) {
	extents := []runlist.Extent{
		{LengthClusters: 2, ClusterOffset: 10},
		{LengthClusters: 3, ClusterOffset: 20},
	}
	byteExtents := runlist.ToByteExtents(extents, 4096)
	assert.Equal(t, []runlist.ByteExtent{
		{Offset: 10 * 4096, Length: 2 * 4096},
		{Offset: 20 * 4096, Length: 3 * 4096},
	}, byteExtents)
}
