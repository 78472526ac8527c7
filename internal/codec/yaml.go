package codec

import (
	"io"

	"github.com/goccy/go-yaml"
)

type YAMLCoder[T any] struct{}

func NewYAMLCoder[T any]() ByteCoder[T] {
	return YAMLCoder[T]{}
}

func (YAMLCoder[T]) Encode(value T, w io.Writer) error {
	b, err := yaml.Marshal(value)
	if err != nil {
		return ioError("yaml encoding", err)
	}
	if _, err := w.Write(b); err != nil {
		return ioError("write", err)
	}
	return nil
}

// Decode reads r until EOF, the stream should contain a single document.
func (YAMLCoder[T]) Decode(r io.Reader) (T, error) {
	var value T

	b, err := io.ReadAll(r)
	if err != nil {
		return value, ioError("read", err)
	}
	if len(b) == 0 {
		return value, ioError("yaml decoding", io.ErrUnexpectedEOF)
	}

	if err := yaml.Unmarshal(b, &value); err != nil {
		var zero T
		return zero, ioError("yaml decoding", err)
	}
	return value, nil
}
