// Package wire reads and writes the protobuf-framed messages used for keys,
// records, journals and envelopes.
//
// Parsing is strict: unknown field numbers, mismatched wire types and
// repeated singular fields are rejected rather than skipped. A corrupted
// byte therefore surfaces as an error instead of a silently different value.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Kind is the expected shape of a field in a Schema.
type Kind int

const (
	// Varint is a singular varint field (integers, enums, bools).
	Varint Kind = iota + 1

	// Bytes is a singular length-delimited field (bytes, strings, messages).
	Bytes

	// RepeatedBytes is a repeated length-delimited field.
	RepeatedBytes
)

// Schema maps field numbers to their expected kind.
type Schema map[protowire.Number]Kind

// Fields holds the decoded fields of one message.
type Fields struct {
	varints  map[protowire.Number]uint64
	bytes    map[protowire.Number][]byte
	repeated map[protowire.Number][][]byte
}

// Parse decodes b according to schema.
func Parse(b []byte, schema Schema) (*Fields, error) {
	f := &Fields{
		varints:  make(map[protowire.Number]uint64),
		bytes:    make(map[protowire.Number][]byte),
		repeated: make(map[protowire.Number][][]byte),
	}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("read tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		kind, ok := schema[num]
		if !ok {
			return nil, fmt.Errorf("unknown field %d", num)
		}

		switch kind {
		case Varint:
			if typ != protowire.VarintType {
				return nil, fmt.Errorf("field %d: wire type %d, want varint", num, typ)
			}
			if _, dup := f.varints[num]; dup {
				return nil, fmt.Errorf("field %d: repeated singular field", num)
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			f.varints[num] = v
			b = b[n:]

		case Bytes, RepeatedBytes:
			if typ != protowire.BytesType {
				return nil, fmt.Errorf("field %d: wire type %d, want bytes", num, typ)
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			v = append([]byte{}, v...)
			b = b[n:]

			if kind == RepeatedBytes {
				f.repeated[num] = append(f.repeated[num], v)
				continue
			}
			if _, dup := f.bytes[num]; dup {
				return nil, fmt.Errorf("field %d: repeated singular field", num)
			}
			f.bytes[num] = v

		default:
			return nil, fmt.Errorf("field %d: unsupported schema kind %d", num, kind)
		}
	}

	return f, nil
}

// Has reports whether a singular field was present.
func (f *Fields) Has(num protowire.Number) bool {
	if _, ok := f.varints[num]; ok {
		return true
	}
	_, ok := f.bytes[num]
	return ok
}

// Uint64 returns a varint field, or 0 if absent.
func (f *Fields) Uint64(num protowire.Number) uint64 {
	return f.varints[num]
}

// Int64 returns a varint field as a signed 64-bit integer.
func (f *Fields) Int64(num protowire.Number) int64 {
	return int64(f.varints[num])
}

// Int32 returns a varint field as a signed 32-bit integer.
func (f *Fields) Int32(num protowire.Number) int32 {
	return int32(f.varints[num])
}

// Bool returns a varint field as a bool.
func (f *Fields) Bool(num protowire.Number) bool {
	return protowire.DecodeBool(f.varints[num])
}

// Bytes returns a length-delimited field, or nil if absent.
func (f *Fields) Bytes(num protowire.Number) []byte {
	return f.bytes[num]
}

// String returns a length-delimited field as a string.
func (f *Fields) String(num protowire.Number) string {
	return string(f.bytes[num])
}

// Repeated returns every occurrence of a repeated field in wire order.
func (f *Fields) Repeated(num protowire.Number) [][]byte {
	return f.repeated[num]
}

// AppendVarint appends a varint field.
func AppendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// AppendInt64 appends a signed integer field using standard int64 encoding.
func AppendInt64(b []byte, num protowire.Number, v int64) []byte {
	return AppendVarint(b, num, uint64(v))
}

// AppendBool appends a bool field.
func AppendBool(b []byte, num protowire.Number, v bool) []byte {
	return AppendVarint(b, num, protowire.EncodeBool(v))
}

// AppendBytes appends a length-delimited field.
func AppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendString appends a string field.
func AppendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}
