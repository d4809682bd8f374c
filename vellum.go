// Package vellum is a compact binary serialization engine with three
// interchangeable framings over one data model: a positional framing for
// trusted storage, a field-tagged framing whose schemas can evolve without
// breaking deployed readers, and a fully self-describing framing that can be
// decoded with no schema at all.
//
// An Encoding value selects the framing, the integer mode and the diagnostic
// policy; the package-level Storage, Wire and Descriptive encodings cover the
// common configurations.
package vellum

import (
	"fmt"
	"reflect"

	"github.com/oy3o/vellum/buffer"
	"github.com/oy3o/vellum/value"
)

// Framing selects how composite boundaries and field identities are written.
type Framing uint8

const (
	// FramingStorage writes values positionally with no field metadata.
	// Most compact; encode and decode schemas must match exactly.
	FramingStorage Framing = iota

	// FramingWire tags struct fields with a numeric id and byte length, so
	// unknown fields are skippable and schemas can evolve.
	FramingWire

	// FramingDescriptive prefixes every value with a type tag and encodes
	// structs by field name. Decodable with no schema.
	FramingDescriptive

	// FramingCustom delegates framing to the Encoding's NewWriter and
	// NewReader hooks, which is how non-binary surfaces such as the JSON
	// adapter plug into the same dispatch.
	FramingCustom
)

// Mode selects the integer representation under the binary framings.
type Mode uint8

const (
	// ModeVariable writes integers as varints (signed ones zigzagged).
	ModeVariable Mode = iota

	// ModeFixed writes integers at their full declared width in
	// little-endian order. Floats and length prefixes are unaffected.
	ModeFixed
)

const defaultMaxDepth = 128

// Encoding is an immutable configuration of the engine. The zero value is
// the positional storage framing with varint integers. Encodings are safe
// for concurrent use; each call gets its own diagnostic context.
type Encoding struct {
	Framing Framing
	Mode    Mode

	// MaxDepth bounds value nesting during encode and decode. Zero means
	// the default limit; negative disables the check.
	MaxDepth int

	// Collect switches error handling from fail-fast to collecting
	// recoverable diagnostics (such as skipped unknown fields) and
	// returning them joined after the decode completes.
	Collect bool

	// NewWriter and NewReader supply the strategy for FramingCustom.
	NewWriter func(*buffer.Writer) FrameWriter
	NewReader func(*buffer.Reader) FrameReader
}

// The common configurations.
var (
	Storage     = Encoding{Framing: FramingStorage}
	Wire        = Encoding{Framing: FramingWire}
	Descriptive = Encoding{Framing: FramingDescriptive}
)

func (e Encoding) maxDepth() int {
	switch {
	case e.MaxDepth > 0:
		return e.MaxDepth
	case e.MaxDepth < 0:
		return 0
	default:
		return defaultMaxDepth
	}
}

func (e Encoding) frameWriter(w *buffer.Writer) (FrameWriter, error) {
	switch e.Framing {
	case FramingStorage:
		return newStorageWriter(w, e.Mode), nil
	case FramingWire:
		return newWireWriter(w, e.Mode), nil
	case FramingDescriptive:
		return newDescriptiveWriter(w, e.Mode), nil
	case FramingCustom:
		if e.NewWriter == nil {
			return nil, fmt.Errorf("%w: custom framing without NewWriter", ErrUnsupportedShape)
		}
		return e.NewWriter(w), nil
	}
	return nil, fmt.Errorf("%w: framing %d", ErrUnsupportedShape, e.Framing)
}

func (e Encoding) frameReader(r *buffer.Reader) (FrameReader, error) {
	var fr FrameReader
	switch e.Framing {
	case FramingStorage:
		fr = newStorageReader(r, e.Mode)
	case FramingWire:
		fr = newWireReader(r, e.Mode)
	case FramingDescriptive:
		fr = newDescriptiveReader(r, e.Mode)
	case FramingCustom:
		if e.NewReader == nil {
			return nil, fmt.Errorf("%w: custom framing without NewReader", ErrUnsupportedShape)
		}
		fr = e.NewReader(r)
	default:
		return nil, fmt.Errorf("%w: framing %d", ErrUnsupportedShape, e.Framing)
	}
	if dl, ok := fr.(DepthLimiter); ok {
		dl.SetMaxDepth(e.maxDepth())
	}
	return fr, nil
}

// Marshal encodes v under the encoding and returns the bytes.
func (e Encoding) Marshal(v any) ([]byte, error) {
	w := buffer.NewWriter(64)
	if err := e.Encode(w, v); err != nil {
		return nil, err
	}
	return w.Result()
}

// MarshalTo encodes v into dst without allocating. It fails with
// ErrCapacityExceeded when dst is too small, and returns the written prefix
// of dst otherwise.
func (e Encoding) MarshalTo(dst []byte, v any) ([]byte, error) {
	w := buffer.NewFixed(dst)
	if err := e.Encode(w, v); err != nil {
		return nil, err
	}
	return w.Result()
}

// Encode encodes v through an existing writer. Storage and descriptive
// values are self-delimiting, so several can be concatenated into one buffer
// and decoded back one at a time. Wire values are not: the top-level value
// claims the whole remaining region on decode, so concatenated wire values
// must be length-delimited by the caller.
func (e Encoding) Encode(w *buffer.Writer, v any) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return fmt.Errorf("%w: untyped nil", ErrUnsupportedShape)
	}
	d, err := Bind(rv.Type())
	if err != nil {
		return err
	}
	fw, err := e.frameWriter(w)
	if err != nil {
		return err
	}
	ctx := newContext(e.maxDepth(), e.Collect)
	s := &encodeState{ctx: ctx, w: fw}
	return ctx.finish(s.encode(rv, d))
}

// Unmarshal decodes data into v, which must be a non-nil pointer. The whole
// buffer must be consumed; leftover bytes fail with ErrTrailingData.
func (e Encoding) Unmarshal(data []byte, v any) error {
	r := buffer.NewReader(data)
	if err := e.Decode(r, v); err != nil {
		return err
	}
	if rem := r.Remaining(); rem != 0 {
		return fmt.Errorf("%w: %d bytes", ErrTrailingData, rem)
	}
	return nil
}

// Decode decodes one value from the reader into v, leaving the reader
// positioned after it. Under the wire framing the value extends to the end
// of the region, so the reader is always drained; a field id that repeats
// within one region fails with ErrDuplicateField.
func (e Encoding) Decode(r *buffer.Reader, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrNotPointer
	}
	d, err := Bind(rv.Type().Elem())
	if err != nil {
		return err
	}
	fr, err := e.frameReader(r)
	if err != nil {
		return err
	}
	ctx := newContext(e.maxDepth(), e.Collect)
	s := &decodeState{ctx: ctx, r: fr, positional: e.positional()}
	return ctx.finish(s.decode(rv.Elem(), d))
}

// positional reports whether struct decoding follows descriptor order
// instead of stream field reports.
func (e Encoding) positional() bool {
	return e.Framing == FramingStorage
}

// MarshalValue encodes a dynamic value tree and returns the bytes.
func (e Encoding) MarshalValue(v value.Value) ([]byte, error) {
	w := buffer.NewWriter(64)
	if err := e.EncodeValue(w, v); err != nil {
		return nil, err
	}
	return w.Result()
}

// EncodeValue encodes a dynamic value tree through an existing writer.
func (e Encoding) EncodeValue(w *buffer.Writer, v value.Value) error {
	fw, err := e.frameWriter(w)
	if err != nil {
		return err
	}
	ctx := newContext(e.maxDepth(), e.Collect)
	s := &encodeState{ctx: ctx, w: fw}
	return ctx.finish(s.encodeTree(v))
}

// DecodeValue decodes one value from the reader with no schema. Only
// self-describing framings support this.
func (e Encoding) DecodeValue(r *buffer.Reader) (value.Value, error) {
	fr, err := e.frameReader(r)
	if err != nil {
		return value.Value{}, err
	}
	vr, ok := fr.(ValueReader)
	if !ok {
		return value.Value{}, fmt.Errorf("%w: framing is not self-describing", ErrUnsupportedShape)
	}
	return vr.ReadValue()
}

// UnmarshalValue decodes a whole buffer into a dynamic value tree.
func (e Encoding) UnmarshalValue(data []byte) (value.Value, error) {
	r := buffer.NewReader(data)
	v, err := e.DecodeValue(r)
	if err != nil {
		return value.Value{}, err
	}
	if rem := r.Remaining(); rem != 0 {
		return value.Value{}, fmt.Errorf("%w: %d bytes", ErrTrailingData, rem)
	}
	return v, nil
}
