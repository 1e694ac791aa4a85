package codec

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// StructPB encodes attribute maps as a google.protobuf.Struct message.
// Values must be representable by structpb.NewValue (nil, bool, numbers,
// strings, []byte, []any, map[string]any); numbers decode as float64.
// The zero value is ready to use.
type StructPB[M ~map[string]any] struct {
	// Deterministic makes Encode emit map entries in sorted order.
	Deterministic bool
}

var _ Codec[map[string]any] = StructPB[map[string]any]{}

func (c StructPB[M]) Encode(m M) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return proto.MarshalOptions{Deterministic: c.Deterministic}.Marshal(s)
}

func (c StructPB[M]) Decode(b []byte) (M, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return M(s.AsMap()), nil
}
