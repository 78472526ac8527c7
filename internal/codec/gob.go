package codec

import (
	"encoding/gob"
	"io"
)

// GobCoder encodes values with encoding/gob. Concrete types stored in interface values
// must be registered with gob.Register, decoding an unregistered type fails with ErrIO.
type GobCoder[T any] struct{}

func NewGobCoder[T any]() ByteCoder[T] {
	return GobCoder[T]{}
}

func (GobCoder[T]) Encode(value T, w io.Writer) error {
	// the value is wrapped in order to support interface types.
	if err := gob.NewEncoder(w).Encode(&gobEnvelope[T]{Value: value}); err != nil {
		return ioError("gob encoding", err)
	}
	return nil
}

func (GobCoder[T]) Decode(r io.Reader) (T, error) {
	var envelope gobEnvelope[T]
	if err := gob.NewDecoder(r).Decode(&envelope); err != nil {
		var zero T
		return zero, ioError("gob decoding", err)
	}
	return envelope.Value, nil
}

type gobEnvelope[T any] struct {
	Value T
}
