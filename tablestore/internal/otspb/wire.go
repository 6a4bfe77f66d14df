// Package otspb provides the low-level protobuf wire primitives the request
// and response messages are built from. It never generates or consumes a
// .proto schema: message *shapes* live next to the callers that know what
// each field number means, and this package only appends/consumes the raw
// tag-length-value wire elements (spec §4 scopes protobuf to "field
// semantics", not full message definitions).
package otspb

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// AppendVarint appends a varint field.
func AppendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// AppendSint appends a signed integer using zigzag encoding, for fields
// (like a disabled TTL's -1 sentinel) that can go negative.
func AppendSint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

// ConsumeSint reverses AppendSint's zigzag encoding.
func ConsumeSint(v uint64) int64 {
	return protowire.DecodeZigZag(v)
}

// AppendBool appends a bool as a varint 0/1.
func AppendBool(b []byte, num protowire.Number, v bool) []byte {
	x := uint64(0)
	if v {
		x = 1
	}
	return AppendVarint(b, num, x)
}

// AppendBytes appends a length-delimited field.
func AppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendString appends a length-delimited string field.
func AppendString(b []byte, num protowire.Number, v string) []byte {
	return AppendBytes(b, num, []byte(v))
}

// AppendMessage appends an embedded message field already encoded by the
// caller into raw.
func AppendMessage(b []byte, num protowire.Number, raw []byte) []byte {
	return AppendBytes(b, num, raw)
}

// Field is one decoded (field number, wire type, raw value) triple. Varint
// values are in Varint; bytes/string/embedded-message values are in Bytes.
type Field struct {
	Num   protowire.Number
	Type  protowire.Type
	Varint uint64
	Bytes []byte
}

// ConsumeAll parses b into its top-level fields in order, without
// interpreting any of them -- callers match on Num and Type.
func ConsumeAll(b []byte) ([]Field, error) {
	var fields []Field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(protowire.ParseError(n), "otspb: consume tag")
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "otspb: consume varint")
			}
			fields = append(fields, Field{Num: num, Type: typ, Varint: v})
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "otspb: consume bytes")
			}
			fields = append(fields, Field{Num: num, Type: typ, Bytes: append([]byte(nil), v...)})
			b = b[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "otspb: consume fixed32")
			}
			fields = append(fields, Field{Num: num, Type: typ, Varint: uint64(v)})
			b = b[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "otspb: consume fixed64")
			}
			fields = append(fields, Field{Num: num, Type: typ, Varint: v})
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "otspb: consume unknown field")
			}
			b = b[n:]
		}
	}
	return fields, nil
}

// Find returns the first field with the given number, if any.
func Find(fields []Field, num protowire.Number) (Field, bool) {
	for _, f := range fields {
		if f.Num == num {
			return f, true
		}
	}
	return Field{}, false
}

// FindAll returns every field with the given number, in order.
func FindAll(fields []Field, num protowire.Number) []Field {
	var out []Field
	for _, f := range fields {
		if f.Num == num {
			out = append(out, f)
		}
	}
	return out
}
