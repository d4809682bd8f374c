package vellum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageByteLayout(t *testing.T) {
	// Positional framing carries no metadata at all: varint fields back to
	// back, strings and bytes behind a varint length.
	type small struct {
		A uint16 `vellum:"0"`
		B string `vellum:"1"`
		C bool   `vellum:"2"`
	}
	data, err := Storage.Marshal(&small{A: 300, B: "ab", C: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0xAC, 0x02, // A = 300 as varint
		0x02, 'a', 'b', // B, length-prefixed
		0x01, // C
	}, data)
}

func TestStorageFixedModeByteLayout(t *testing.T) {
	type small struct {
		A uint32 `vellum:"0"`
		B int16  `vellum:"1"`
	}
	enc := Encoding{Framing: FramingStorage, Mode: ModeFixed}
	data, err := enc.Marshal(&small{A: 0xDDEEFF00, B: -2})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x00, 0xFF, 0xEE, 0xDD, // A, little endian at declared width
		0xFE, 0xFF, // B, two's complement little endian
	}, data)

	var out small
	require.NoError(t, enc.Unmarshal(data, &out))
	assert.Equal(t, uint32(0xDDEEFF00), out.A)
	assert.Equal(t, int16(-2), out.B)
}

// TestStorageSchemaMismatchIsUndetectable pins the framing's documented
// fragility: decoding with a reordered schema does not fail cleanly, it
// reads garbage. Anyone tempted to "fix" this should reach for the
// field-tagged framing instead.
func TestStorageSchemaMismatchIsUndetectable(t *testing.T) {
	type v1 struct {
		X uint8  `vellum:"0"`
		S string `vellum:"1"`
	}
	type swapped struct {
		S string `vellum:"0"`
		X uint8  `vellum:"1"`
	}

	data, err := Storage.Marshal(&v1{X: 1, S: "ab"})
	require.NoError(t, err)

	var out swapped
	err = Storage.Unmarshal(data, &out)
	if err == nil {
		assert.NotEqual(t, "ab", out.S)
	} else {
		// The positions happened to misparse; either way the mismatch is
		// only caught incidentally.
		assert.Error(t, err)
	}
}

func TestStorageCannotSkipFields(t *testing.T) {
	r := newStorageReader(nil, ModeVariable)
	assert.ErrorIs(t, r.SkipField(), ErrUnsupportedShape)
}

func TestStorageRejectsInvalidUtf8(t *testing.T) {
	type s struct {
		S string `vellum:"0"`
	}
	var out s
	err := Storage.Unmarshal([]byte{0x02, 0xFF, 0xFE}, &out)
	assert.ErrorIs(t, err, ErrUtf8)
}

func TestStorageLengthBeyondBuffer(t *testing.T) {
	type s struct {
		B []byte `vellum:"0"`
	}
	var out s
	// Declared length 100 with two bytes remaining.
	err := Storage.Unmarshal([]byte{0x64, 0x01, 0x02}, &out)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestStorageEmptyComposites(t *testing.T) {
	type s struct {
		Tags  []string          `vellum:"0"`
		Attrs map[string]uint32 `vellum:"1"`
	}
	data, err := Storage.Marshal(&s{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, data)

	var out s
	require.NoError(t, Storage.Unmarshal(data, &out))
	assert.Empty(t, out.Tags)
	assert.Empty(t, out.Attrs)
}

func TestStorageArrays(t *testing.T) {
	type s struct {
		V [3]uint8 `vellum:"0"`
	}
	in := s{V: [3]uint8{1, 2, 3}}
	data, err := Storage.Marshal(&in)
	require.NoError(t, err)

	var out s
	require.NoError(t, Storage.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	// A shorter sequence cannot fill the array.
	var short s
	err = Storage.Unmarshal([]byte{0x02, 0x01, 0x02}, &short)
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}
