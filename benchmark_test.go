package vellum

import (
	"testing"
)

func benchmarkMarshal(b *testing.B, e Encoding) {
	in := sampleRecord()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Marshal(&in)
	}
}

func benchmarkUnmarshal(b *testing.B, e Encoding) {
	in := sampleRecord()
	data, err := e.Marshal(&in)
	if err != nil {
		b.Fatal(err)
	}
	var out record
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Unmarshal(data, &out)
	}
}

func BenchmarkStorageMarshal(b *testing.B)     { benchmarkMarshal(b, Storage) }
func BenchmarkStorageUnmarshal(b *testing.B)   { benchmarkUnmarshal(b, Storage) }
func BenchmarkWireMarshal(b *testing.B)        { benchmarkMarshal(b, Wire) }
func BenchmarkWireUnmarshal(b *testing.B)      { benchmarkUnmarshal(b, Wire) }
func BenchmarkDescriptiveMarshal(b *testing.B) { benchmarkMarshal(b, Descriptive) }
func BenchmarkDescriptiveUnmarshal(b *testing.B) {
	benchmarkUnmarshal(b, Descriptive)
}

func BenchmarkStorageMarshalTo(b *testing.B) {
	in := sampleRecord()
	data, err := Storage.Marshal(&in)
	if err != nil {
		b.Fatal(err)
	}
	buf := make([]byte, len(data))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Storage.MarshalTo(buf, &in)
	}
}

// Baseline with fixed-width primitives instead of varints, to see the cost of
// variable-length encoding on the same payload.
func BenchmarkStorageFixedMarshal(b *testing.B) {
	benchmarkMarshal(b, Encoding{Framing: FramingStorage, Mode: ModeFixed})
}
