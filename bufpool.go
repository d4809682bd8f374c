package vellum

import (
	"sync"

	"github.com/oy3o/vellum/buffer"
)

// scratchPool reuses scratch writers for nested length-delimited bodies.
// This keeps deeply-nested field-tagged encodes from allocating a buffer per
// nesting level.
var scratchPool = sync.Pool{
	New: func() any {
		return buffer.NewWriter(256)
	},
}

// Anything that grew beyond this goes back to the allocator instead of the
// pool, so one oversized payload does not pin memory forever.
const maxPooledScratch = 64 * 1024

func getScratch() *buffer.Writer {
	return scratchPool.Get().(*buffer.Writer)
}

func putScratch(w *buffer.Writer) {
	if w.Len() > maxPooledScratch {
		return
	}
	w.Reset()
	scratchPool.Put(w)
}
