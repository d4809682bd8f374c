package jsontext

import (
	vellum "github.com/oy3o/vellum"
	"github.com/oy3o/vellum/buffer"
)

// Encoding plugs the JSON text framing into the engine's dispatch. It
// behaves like any other encoding: typed Marshal/Unmarshal through bound
// descriptors, and schema-free UnmarshalValue into a value tree.
var Encoding = vellum.Encoding{
	Framing: vellum.FramingCustom,
	NewWriter: func(w *buffer.Writer) vellum.FrameWriter {
		return NewWriter(w)
	},
	NewReader: func(r *buffer.Reader) vellum.FrameReader {
		return NewReader(r)
	},
}
