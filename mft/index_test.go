package mft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndexParsesEachSlotByPosition(t *testing.T) {
	attrs := append(buildResidentAttribute(0x10, "", make([]byte, 48)), buildEndMarker()...)
	record0 := buildTestRecord(attrs, 1, RecordFlagInUse, 0x38)
	emptySlot := make([]byte, recordSize)

	image := append(append([]byte{}, record0...), emptySlot...)

	records := BuildIndex(image, nil)
	require.Len(t, records, 2)
	require.NotNil(t, records[0])
	assert.Equal(t, 0, records[0].RecordNumber)
	assert.Nil(t, records[1])
}

func TestBuildIndexIgnoresTrailingPartialSlot(t *testing.T) {
	image := make([]byte, recordSize+100)
	records := BuildIndex(image, nil)
	assert.Len(t, records, 1)
}
