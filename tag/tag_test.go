package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFrozenKindBytes pins the kind byte values. These are wire contract:
// changing any of them breaks every stored self-describing payload.
func TestFrozenKindBytes(t *testing.T) {
	frozen := map[Kind]byte{
		Unit:     0x00,
		False:    0x01,
		True:     0x02,
		Uint8:    0x10,
		Uint16:   0x11,
		Uint32:   0x12,
		Uint64:   0x13,
		Int8:     0x14,
		Int16:    0x15,
		Int32:    0x16,
		Int64:    0x17,
		Float32:  0x18,
		Float64:  0x19,
		String:   0x20,
		Bytes:    0x21,
		Sequence: 0x30,
		Map:      0x31,
		Variant:  0x32,
	}
	for k, b := range frozen {
		assert.Equal(t, b, byte(k), "kind %v", k)
		assert.True(t, k.Valid(), "kind %v", k)
	}
}

func TestInvalidKinds(t *testing.T) {
	for _, b := range []byte{0x03, 0x0F, 0x1A, 0x22, 0x2F, 0x33, 0xFF} {
		assert.False(t, Kind(b).Valid(), "byte 0x%02x", b)
	}
}

func TestKindClassification(t *testing.T) {
	assert.True(t, Uint8.IsUint())
	assert.True(t, Uint64.IsUint())
	assert.False(t, Int8.IsUint())
	assert.True(t, Int64.IsInt())
	assert.False(t, Float32.IsInt())
	assert.True(t, Float64.IsFloat())
	assert.False(t, String.IsFloat())
}

func TestWidthMapping(t *testing.T) {
	for _, bits := range []uint8{8, 16, 32, 64} {
		assert.Equal(t, bits, ForUint(bits).Bits())
		assert.Equal(t, bits, ForInt(bits).Bits())
	}
	assert.Equal(t, uint8(32), ForFloat(32).Bits())
	assert.Equal(t, uint8(64), ForFloat(64).Bits())
	assert.Zero(t, String.Bits())
}
