package vellum

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oy3o/vellum/value"
)

func TestDescriptiveByteLayout(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		want []byte
	}{
		{"Unit", value.Unit(), []byte{0x00}},
		{"False", value.Bool(false), []byte{0x01}},
		{"True", value.Bool(true), []byte{0x02}},
		{"Uint16", value.Uint(300, 16), []byte{0x11, 0xAC, 0x02}},
		{"Int64MinusOne", value.Int64(-1), []byte{0x17, 0x01}},
		{"String", value.String("x"), []byte{0x20, 0x01, 'x'}},
		{"Bytes", value.Bytes([]byte{0xAB}), []byte{0x21, 0x01, 0xAB}},
		{"Sequence", value.Sequence(value.Int64(1), value.String("x")),
			[]byte{0x30, 0x02, 0x17, 0x02, 0x20, 0x01, 'x'}},
		{"Variant", value.Variant(3, value.Unit()), []byte{0x32, 0x03, 0x00}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Descriptive.MarshalValue(tc.v)
			require.NoError(t, err)
			assert.Equal(t, tc.want, data)
		})
	}
}

// TestDescriptiveSchemaFreeRoundtrip decodes with no type information at
// all: the byte stream alone reconstructs the value tree.
func TestDescriptiveSchemaFreeRoundtrip(t *testing.T) {
	in := value.Sequence(value.Int64(1), value.String("x"))
	data, err := Descriptive.MarshalValue(in)
	require.NoError(t, err)

	out, err := Descriptive.UnmarshalValue(data)
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "got %s", out)
}

func TestDescriptiveSchemaFreeTree(t *testing.T) {
	in := value.Map(
		value.Pair(value.String("ok"), value.Bool(true)),
		value.Pair(value.String("pos"), value.Map(
			value.Pair(value.String("x"), value.Int(-3, 32)),
		)),
		value.Pair(value.String("raw"), value.Bytes([]byte{1, 2})),
		value.Pair(value.String("f"), value.Float64(1.5)),
		value.Pair(value.String("v"), value.Variant(2, value.String("s"))),
	)
	data, err := Descriptive.MarshalValue(in)
	require.NoError(t, err)

	out, err := Descriptive.UnmarshalValue(data)
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "got %s", out)
}

func TestDescriptiveStructsEncodeByName(t *testing.T) {
	// A typed struct and the equivalent name-keyed map produce the same
	// bytes, which is what makes the framing schema-free.
	data, err := Descriptive.Marshal(&point{X: 1, Y: 2})
	require.NoError(t, err)

	tree, err := Descriptive.UnmarshalValue(data)
	require.NoError(t, err)
	want := value.Map(
		value.Pair(value.String("X"), value.Int(1, 32)),
		value.Pair(value.String("Y"), value.Int(2, 32)),
	)
	assert.True(t, want.Equal(tree), "got %s", tree)
}

func TestDescriptiveInvalidTag(t *testing.T) {
	_, err := Descriptive.UnmarshalValue([]byte{0xFF})
	assert.ErrorIs(t, err, ErrInvalidTag)

	var out point
	assert.ErrorIs(t, Descriptive.Unmarshal([]byte{0xFF}, &out), ErrInvalidTag)
}

func TestDescriptiveKindMismatch(t *testing.T) {
	// A string where the schema expects an integer.
	data, err := Descriptive.MarshalValue(value.Map(
		value.Pair(value.String("X"), value.String("oops")),
		value.Pair(value.String("Y"), value.Int(2, 32)),
	))
	require.NoError(t, err)

	var out point
	assert.ErrorIs(t, Descriptive.Unmarshal(data, &out), ErrInvalidTag)
}

func TestDescriptiveCrossWidthDecode(t *testing.T) {
	// A reader that widened a field keeps decoding old payloads.
	type narrow struct {
		N uint16 `vellum:"0"`
	}
	type wide struct {
		N uint64 `vellum:"0"`
	}
	data, err := Descriptive.Marshal(&narrow{N: 300})
	require.NoError(t, err)

	var out wide
	require.NoError(t, Descriptive.Unmarshal(data, &out))
	assert.Equal(t, uint64(300), out.N)
}

func TestDescriptiveNarrowingOverflows(t *testing.T) {
	type wide struct {
		N uint64 `vellum:"0"`
	}
	type narrow struct {
		N uint8 `vellum:"0"`
	}
	data, err := Descriptive.Marshal(&wide{N: 300})
	require.NoError(t, err)

	var out narrow
	assert.ErrorIs(t, Descriptive.Unmarshal(data, &out), ErrIntegerOverflow)
}

// nestedSequences builds n levels of single-element sequences around a unit.
func nestedSequences(n int) []byte {
	return append(bytes.Repeat([]byte{0x30, 0x01}, n), 0x00)
}

func TestDescriptiveDepthLimitOnSchemaFreeDecode(t *testing.T) {
	// Nesting costs the attacker two bytes per level; the default limit has
	// to stop the recursion long before the stack does.
	_, err := Descriptive.UnmarshalValue(nestedSequences(100000))
	assert.ErrorIs(t, err, ErrMaxDepth)

	shallow := nestedSequences(3)
	out, err := Descriptive.UnmarshalValue(shallow)
	require.NoError(t, err)
	assert.True(t, value.Sequence(value.Sequence(value.Sequence(value.Unit()))).Equal(out))

	enc := Encoding{Framing: FramingDescriptive, MaxDepth: 2}
	_, err = enc.UnmarshalValue(shallow)
	assert.ErrorIs(t, err, ErrMaxDepth)
}

func TestDescriptiveDepthLimitOnSkippedField(t *testing.T) {
	// A hostile payload hiding behind an unknown field name goes through the
	// skip path, which walks it tag by tag and must hit the same limit.
	payload := []byte{0x31, 0x01, 0x20, 0x02, 'Z', 'z'}
	payload = append(payload, nestedSequences(100000)...)

	var out point
	err := Descriptive.Unmarshal(payload, &out)
	assert.ErrorIs(t, err, ErrMaxDepth)
}

func TestDescriptiveSchemaFreeErrorCarriesPath(t *testing.T) {
	// A sequence of two where the second element's string body is missing;
	// the failure names the element.
	data := []byte{0x30, 0x02, 0x17, 0x02, 0x20, 0x01}
	_, err := Descriptive.UnmarshalValue(data)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "[1]", ve.Path)
}

func TestDescriptiveUnknownFieldsSkipped(t *testing.T) {
	// Extra map entries with unknown names are skipped whole, even when
	// they hold nested composites.
	data, err := Descriptive.MarshalValue(value.Map(
		value.Pair(value.String("X"), value.Int(1, 32)),
		value.Pair(value.String("Legacy"), value.Sequence(value.Int64(1), value.Int64(2))),
		value.Pair(value.String("Y"), value.Int(2, 32)),
	))
	require.NoError(t, err)

	var out point
	require.NoError(t, Descriptive.Unmarshal(data, &out))
	assert.Equal(t, point{X: 1, Y: 2}, out)
}
