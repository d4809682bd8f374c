package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	vellum "github.com/oy3o/vellum"
	"github.com/oy3o/vellum/jsontext"
	"github.com/oy3o/vellum/value"
)

// zstd frame magic, used to auto-decompress inputs.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func inspect(logger zerolog.Logger, cfg Config, input string) error {
	data, err := readInput(logger, input)
	if err != nil {
		return err
	}
	v, err := parse(cfg.From, data)
	if err != nil {
		return err
	}
	logger.Debug().Str("from", cfg.From).Int("bytes", len(data)).Msg("decoded payload")
	fmt.Println(v.String())
	return nil
}

func convert(logger zerolog.Logger, cfg Config, input, output string, compress bool) error {
	data, err := readInput(logger, input)
	if err != nil {
		return err
	}
	v, err := parse(cfg.From, data)
	if err != nil {
		return err
	}
	out, err := emit(cfg.To, v)
	if err != nil {
		return err
	}
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return err
		}
		out = enc.EncodeAll(out, nil)
	}
	logger.Info().
		Str("from", cfg.From).Str("to", cfg.To).
		Int("in_bytes", len(data)).Int("out_bytes", len(out)).
		Msg("converted payload")
	return writeOutput(output, out)
}

func readInput(logger zerolog.Logger, input string) ([]byte, error) {
	var data []byte
	var err error
	if input == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, zstdMagic) {
		logger.Debug().Msg("zstd input detected")
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	}
	return data, nil
}

func writeOutput(output string, data []byte) error {
	if output == "" || output == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(output, data, 0o644)
}

func parse(format string, data []byte) (value.Value, error) {
	switch format {
	case "descriptive":
		return vellum.Descriptive.UnmarshalValue(data)
	case "json":
		return jsontext.Encoding.UnmarshalValue(bytes.TrimSpace(data))
	case "cbor":
		var raw any
		if err := cbor.Unmarshal(data, &raw); err != nil {
			return value.Value{}, fmt.Errorf("parse cbor: %w", err)
		}
		return fromAny(raw)
	}
	return value.Value{}, fmt.Errorf("unknown input format %q", format)
}

func emit(format string, v value.Value) ([]byte, error) {
	switch format {
	case "descriptive":
		return vellum.Descriptive.MarshalValue(v)
	case "json":
		return jsontext.Encoding.MarshalValue(v)
	case "cbor":
		return cbor.Marshal(toAny(v))
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// toAny lowers a value tree to the generic shape cbor.Marshal understands.
func toAny(v value.Value) any {
	switch v.Kind {
	case value.KindUnit:
		return nil
	case value.KindBool:
		return v.B
	case value.KindUint:
		return v.U
	case value.KindInt:
		return v.I
	case value.KindFloat:
		if v.Bits == 32 {
			return float32(v.F)
		}
		return v.F
	case value.KindString:
		return v.S
	case value.KindBytes:
		return v.Raw
	case value.KindSequence:
		out := make([]any, len(v.Items))
		for i, it := range v.Items {
			out[i] = toAny(it)
		}
		return out
	case value.KindMap:
		out := make(map[any]any, len(v.Entries))
		for _, e := range v.Entries {
			out[toAny(e.Key)] = toAny(e.Val)
		}
		return out
	case value.KindVariant:
		body := any(nil)
		if v.Body != nil {
			body = toAny(*v.Body)
		}
		return map[any]any{v.Disc: body}
	}
	return nil
}

// fromAny lifts a decoded cbor value into a value tree.
func fromAny(raw any) (value.Value, error) {
	switch t := raw.(type) {
	case nil:
		return value.Unit(), nil
	case bool:
		return value.Bool(t), nil
	case uint64:
		return value.Uint64(t), nil
	case int64:
		return value.Int64(t), nil
	case float32:
		return value.Float32(t), nil
	case float64:
		return value.Float64(t), nil
	case string:
		return value.String(t), nil
	case []byte:
		return value.Bytes(t), nil
	case []any:
		items := make([]value.Value, len(t))
		for i, it := range t {
			v, err := fromAny(it)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.Sequence(items...), nil
	case map[any]any:
		entries := make([]value.Entry, 0, len(t))
		for k, it := range t {
			kv, err := fromAny(k)
			if err != nil {
				return value.Value{}, err
			}
			vv, err := fromAny(it)
			if err != nil {
				return value.Value{}, err
			}
			entries = append(entries, value.Pair(kv, vv))
		}
		return value.Map(entries...), nil
	case map[string]any:
		entries := make([]value.Entry, 0, len(t))
		for k, it := range t {
			vv, err := fromAny(it)
			if err != nil {
				return value.Value{}, err
			}
			entries = append(entries, value.Pair(value.String(k), vv))
		}
		return value.Map(entries...), nil
	}
	return value.Value{}, fmt.Errorf("unsupported cbor value %T", raw)
}
