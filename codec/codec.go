// Package codec converts archived attribute snapshots to and from bytes.
//
// All codecs are generic over the value type; the cache uses them with
// idmap.Attrs. Formats without a native "any" type normalize values on the way
// back: JSON, msgpack and protobuf may return numbers as float64 or int64 and
// nested maps as map[string]any.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
