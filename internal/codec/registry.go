package codec

import (
	"encoding/json"
	"io"
	"reflect"
)

// Codec serializes and deserializes one Go type to/from a byte stream.
type Codec struct {
	Write func(w io.Writer, v any) error
	Read  func(r io.Reader) (any, error)
}

// Registry dispatches on a value's reflect.Type, falling back to JSON for
// anything unregistered (original_source's autostore.go falls back to
// pickle for the same reason: every value needs *some* codec, but only a
// few types get a specialized one).
type Registry struct {
	byType map[reflect.Type]Codec
}

func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]Codec)}
}

// Register installs a codec for exactly the type of sample.
func (r *Registry) Register(sample any, c Codec) {
	r.byType[reflect.TypeOf(sample)] = c
}

// For returns the codec to use when writing value, or the JSON fallback.
func (r *Registry) For(value any) Codec {
	if c, ok := r.byType[reflect.TypeOf(value)]; ok {
		return c
	}
	return jsonCodec
}

// ForRead returns the codec a Load should use; since the type of what's
// being read is generally unknown until bytes are decoded, this is always
// the JSON fallback unless a task overrides Load itself (see aqueduct.Loader).
func (r *Registry) ForRead() Codec {
	return jsonCodec
}

var jsonCodec = Codec{
	Write: func(w io.Writer, v any) error {
		enc := json.NewEncoder(w)
		return enc.Encode(v)
	},
	Read: func(r io.Reader) (any, error) {
		dec := json.NewDecoder(r)
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	},
}
