package binutil_test

import (
	"testing"

	"github.com/go-forensics/ntfsrecover/binutil"
	"github.com/stretchr/testify/assert"
)

func TestTryReadWithinBounds(t *testing.T) {
	r := binutil.NewLittleEndianReader([]byte{1, 2, 3, 4})
	data, ok := r.TryRead(1, 2)
	assert.True(t, ok)
	assert.Equal(t, []byte{2, 3}, data)
}

func TestTryReadOutOfBounds(t *testing.T) {
	r := binutil.NewLittleEndianReader([]byte{1, 2, 3, 4})
	_, ok := r.TryRead(3, 2)
	assert.False(t, ok)
}

func TestTryReadNegativeOffset(t *testing.T) {
	r := binutil.NewLittleEndianReader([]byte{1, 2, 3, 4})
	_, ok := r.TryRead(-1, 2)
	assert.False(t, ok)
}

func TestTryUint32WithinBounds(t *testing.T) {
	r := binutil.NewLittleEndianReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	v, ok := r.TryUint32(4)
	assert.True(t, ok)
	assert.Equal(t, uint32(0xFFFFFFFF), v)
}

func TestTryUint32OutOfBounds(t *testing.T) {
	r := binutil.NewLittleEndianReader([]byte{1, 2, 3})
	_, ok := r.TryUint32(0)
	assert.False(t, ok)
}
