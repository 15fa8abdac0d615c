package varint_test

import (
	"testing"

	"github.com/go-forensics/ntfsrecover/varint"
	"github.com/stretchr/testify/assert"
)

func TestDecodeEmptyYieldsZero(t *testing.T) {
	assert.Equal(t, int64(0), varint.Decode(nil, true))
	assert.Equal(t, int64(0), varint.Decode([]byte{}, false))
}

func TestDecodeUnsignedSmall(t *testing.T) {
	assert.Equal(t, int64(0x01), varint.Decode([]byte{0x01}, false))
	assert.Equal(t, int64(0x0201), varint.Decode([]byte{0x01, 0x02}, false))
}

func TestDecodeSignedPositiveTopBitClear(t *testing.T) {
	// Top bit clear: signed and unsigned interpretations agree.
	assert.Equal(t, varint.Decode([]byte{0x7F}, false), varint.Decode([]byte{0x7F}, true))
	assert.Equal(t, int64(0x7F), varint.Decode([]byte{0x7F}, true))
}

func TestDecodeSignedNegativeTopBitSet(t *testing.T) {
	// 0xFF as a signed single byte is -1.
	assert.Equal(t, int64(-1), varint.Decode([]byte{0xFF}, true))
	// 0x80 as a signed single byte is -128.
	assert.Equal(t, int64(-128), varint.Decode([]byte{0x80}, true))
}

func TestDecodeSignedNegativeMultiByte(t *testing.T) {
	// 0xFE 0xFF -> -2 in 16-bit two's complement.
	assert.Equal(t, int64(-2), varint.Decode([]byte{0xFE, 0xFF}, true))
}

func TestDecodeUnsignedNeverNegative(t *testing.T) {
	v := varint.Decode([]byte{0xFF}, false)
	assert.Equal(t, int64(0xFF), v)
}

func TestDecodeUnsignedHelper(t *testing.T) {
	assert.Equal(t, uint64(0xFF), varint.DecodeUnsigned([]byte{0xFF}))
}
