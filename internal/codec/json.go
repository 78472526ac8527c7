package codec

import (
	"io"

	"github.com/goccy/go-json"
)

type JSONCoder[T any] struct{}

func NewJSONCoder[T any]() ByteCoder[T] {
	return JSONCoder[T]{}
}

func (JSONCoder[T]) Encode(value T, w io.Writer) error {
	if err := json.NewEncoder(w).Encode(value); err != nil {
		return ioError("json encoding", err)
	}
	return nil
}

func (JSONCoder[T]) Decode(r io.Reader) (T, error) {
	var value T
	if err := json.NewDecoder(r).Decode(&value); err != nil {
		var zero T
		return zero, ioError("json decoding", err)
	}
	return value, nil
}
