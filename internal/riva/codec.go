package riva

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// message is a request type that can encode itself to protobuf wire format.
type message interface {
	marshalWire() []byte
}

// unmarshaler is a response type that can decode itself from protobuf wire format.
type unmarshaler interface {
	unmarshalWire(b []byte) error
}

// rawFrame passes an already-encoded message through the codec untouched.
type rawFrame []byte

// wireCodec is a grpc encoding.Codec for the hand-encoded message types.
// It registers under the "proto" name so the content-type stays application/grpc+proto.
type wireCodec struct{}

func (wireCodec) Name() string { return "proto" }

func (wireCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case message:
		return m.marshalWire(), nil
	case *rawFrame:
		return *m, nil
	default:
		return nil, fmt.Errorf("riva: cannot marshal %T", v)
	}
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case unmarshaler:
		return m.unmarshalWire(data)
	case *rawFrame:
		*m = append((*m)[:0], data...)
		return nil
	default:
		return fmt.Errorf("riva: cannot unmarshal into %T", v)
	}
}

// eachField walks the top-level fields of an encoded message.
// val holds the raw field value without its tag.
func eachField(b []byte, fn func(num protowire.Number, typ protowire.Type, val []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		if err := fn(num, typ, b[:m]); err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func consumeBytes(val []byte) ([]byte, error) {
	v, n := protowire.ConsumeBytes(val)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	return v, nil
}

func consumeVarint(val []byte) (uint64, error) {
	v, n := protowire.ConsumeVarint(val)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return v, nil
}
