package vellum

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oy3o/vellum/buffer"
	"github.com/oy3o/vellum/value"
)

// --- Shared fixtures ---

type point struct {
	X int32 `vellum:"0"`
	Y int32 `vellum:"1"`
}

type record struct {
	ID    uint64            `vellum:"0"`
	Name  string            `vellum:"1"`
	Flags bool              `vellum:"2"`
	Tags  []string          `vellum:"3"`
	Attrs map[string]uint32 `vellum:"4"`
	Blob  []byte            `vellum:"5"`
	Pos   point             `vellum:"6"`
}

func sampleRecord() record {
	return record{
		ID:    42,
		Name:  "alpha",
		Flags: true,
		Tags:  []string{"x", "y"},
		Attrs: map[string]uint32{"b": 2, "a": 1},
		Blob:  []byte{0xDE, 0xAD},
		Pos:   point{X: -3, Y: 7},
	}
}

// message is a three-case tagged union: empty, numeric or text payload.
type message struct {
	kind uint64
	num  uint32
	text string
}

func (m *message) Discriminant() uint64 { return m.kind }

func (m *message) Payload() any {
	switch m.kind {
	case 1:
		return m.num
	case 2:
		return m.text
	}
	return nil
}

func (m *message) Select(disc uint64) (any, func(), error) {
	switch disc {
	case 0:
		return nil, func() { *m = message{} }, nil
	case 1:
		n := new(uint32)
		return n, func() { *m = message{kind: 1, num: *n} }, nil
	case 2:
		s := new(string)
		return s, func() { *m = message{kind: 2, text: *s} }, nil
	}
	return nil, nil, fmt.Errorf("%w: %d", ErrInvalidDiscriminant, disc)
}

func (m *message) Cases() []UnionCase {
	return []UnionCase{
		{Disc: 0, Name: "empty"},
		{Disc: 1, Name: "num", Type: reflect.TypeOf(uint32(0))},
		{Disc: 2, Name: "text", Type: reflect.TypeOf("")},
	}
}

// --- Encoding front-end ---

func TestRoundtripAllFramings(t *testing.T) {
	encodings := map[string]Encoding{
		"Storage":          Storage,
		"Wire":             Wire,
		"Descriptive":      Descriptive,
		"StorageFixed":     {Framing: FramingStorage, Mode: ModeFixed},
		"WireFixed":        {Framing: FramingWire, Mode: ModeFixed},
		"DescriptiveFixed": {Framing: FramingDescriptive, Mode: ModeFixed},
	}
	in := sampleRecord()
	for name, enc := range encodings {
		t.Run(name, func(t *testing.T) {
			data, err := enc.Marshal(&in)
			require.NoError(t, err)

			var out record
			require.NoError(t, enc.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	// Map entries are sorted by key at encode time, so two equal values
	// always produce identical bytes.
	in := sampleRecord()
	a, err := Storage.Marshal(&in)
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		b, err := Storage.Marshal(&in)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestMarshalTo(t *testing.T) {
	in := sampleRecord()
	grown, err := Storage.Marshal(&in)
	require.NoError(t, err)

	t.Run("ExactFit", func(t *testing.T) {
		dst := make([]byte, len(grown))
		p, err := Storage.MarshalTo(dst, &in)
		require.NoError(t, err)
		assert.Equal(t, grown, p)
	})

	t.Run("TooSmall", func(t *testing.T) {
		_, err := Storage.MarshalTo(make([]byte, 2), &in)
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	})
}

func TestDecodeConcatenatedValues(t *testing.T) {
	// Storage and descriptive values are self-delimiting, so one buffer can
	// carry several and Decode peels them off one at a time. The wire
	// framing is the exception, covered in wire_test.go.
	first := point{X: 1, Y: 2}
	second := point{X: -3, Y: 4}
	for name, enc := range map[string]Encoding{
		"Storage":     Storage,
		"Descriptive": Descriptive,
	} {
		t.Run(name, func(t *testing.T) {
			w := buffer.NewWriter(64)
			require.NoError(t, enc.Encode(w, &first))
			require.NoError(t, enc.Encode(w, &second))
			data, err := w.Result()
			require.NoError(t, err)

			r := buffer.NewReader(data)
			var a, b point
			require.NoError(t, enc.Decode(r, &a))
			require.NoError(t, enc.Decode(r, &b))
			assert.Equal(t, first, a)
			assert.Equal(t, second, b)
			assert.Zero(t, r.Remaining())
		})
	}
}

func TestUnmarshalTrailingData(t *testing.T) {
	in := point{X: 1, Y: 2}
	data, err := Storage.Marshal(&in)
	require.NoError(t, err)

	var out point
	err = Storage.Unmarshal(append(data, 0x00), &out)
	assert.ErrorIs(t, err, ErrTrailingData)
}

func TestUnmarshalTargetMustBePointer(t *testing.T) {
	assert.ErrorIs(t, Storage.Unmarshal([]byte{0}, record{}), ErrNotPointer)
	var p *record
	assert.ErrorIs(t, Storage.Unmarshal([]byte{0}, p), ErrNotPointer)
}

func TestMaxDepth(t *testing.T) {
	enc := Encoding{Framing: FramingDescriptive, MaxDepth: 2}

	ok := value.Sequence(value.Sequence(value.Int64(1)))
	_, err := enc.MarshalValue(ok)
	require.NoError(t, err)

	deep := value.Sequence(value.Sequence(value.Sequence(value.Int64(1))))
	_, err = enc.MarshalValue(deep)
	assert.ErrorIs(t, err, ErrMaxDepth)
}

func TestDepthLimitOnDecode(t *testing.T) {
	deep := value.Sequence(value.Sequence(value.Sequence(value.Int64(1))))
	data, err := Descriptive.MarshalValue(deep)
	require.NoError(t, err)

	type nested [][][]int64
	var out nested
	enc := Encoding{Framing: FramingDescriptive, MaxDepth: 2}
	err = enc.Unmarshal(data, &out)
	assert.ErrorIs(t, err, ErrMaxDepth)
}

func TestErrorCarriesPath(t *testing.T) {
	// Truncate inside a nested field so the failure path names it.
	in := sampleRecord()
	data, err := Storage.Marshal(&in)
	require.NoError(t, err)

	var out record
	err = Storage.Unmarshal(data[:len(data)-1], &out)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Path)
}

// --- Union dispatch ---

func TestUnionRoundtrip(t *testing.T) {
	encodings := map[string]Encoding{
		"Storage":     Storage,
		"Wire":        Wire,
		"Descriptive": Descriptive,
	}
	cases := []message{
		{kind: 0},
		{kind: 1, num: 7},
		{kind: 2, text: "hello"},
	}
	for name, enc := range encodings {
		t.Run(name, func(t *testing.T) {
			for _, in := range cases {
				data, err := enc.Marshal(&in)
				require.NoError(t, err)

				var out message
				require.NoError(t, enc.Unmarshal(data, &out))
				assert.Equal(t, in, out)
			}
		})
	}
}

func TestUnionInvalidDiscriminant(t *testing.T) {
	// Discriminant 9 is outside the declared case set.
	var out message
	err := Storage.Unmarshal([]byte{0x09}, &out)
	assert.ErrorIs(t, err, ErrInvalidDiscriminant)
}

// --- Value tree re-encode (format conversion core) ---

func TestValueTreeAcrossFramings(t *testing.T) {
	tree := value.Map(
		value.Pair(value.String("id"), value.Uint64(300)),
		value.Pair(value.String("items"), value.Sequence(value.Int64(-1), value.String("x"))),
	)

	// A descriptive round trip preserves the tree exactly.
	data, err := Descriptive.MarshalValue(tree)
	require.NoError(t, err)
	back, err := Descriptive.UnmarshalValue(data)
	require.NoError(t, err)
	assert.True(t, tree.Equal(back), "got %s", back)

	// The same tree encodes under the positional framing too; only the
	// self-describing framing can decode it back without a schema.
	_, err = Storage.MarshalValue(tree)
	require.NoError(t, err)

	_, err = Storage.UnmarshalValue(data)
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}

func TestCustomFramingRequiresHooks(t *testing.T) {
	enc := Encoding{Framing: FramingCustom}
	_, err := enc.Marshal(&point{})
	assert.ErrorIs(t, err, ErrUnsupportedShape)

	var p point
	assert.ErrorIs(t, enc.Unmarshal([]byte{0}, &p), ErrUnsupportedShape)
}
