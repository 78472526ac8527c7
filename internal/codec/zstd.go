package codec

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// ZstdCoder compresses the output of another coder, each encoded value is a complete zstd frame.
type ZstdCoder[T any] struct {
	inner ByteCoder[T]
}

func NewZstdCoder[T any](inner ByteCoder[T]) ByteCoder[T] {
	return ZstdCoder[T]{inner: inner}
}

func (c ZstdCoder[T]) Encode(value T, w io.Writer) error {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return ioError("zstd writer creation", err)
	}

	if err := c.inner.Encode(value, encoder); err != nil {
		encoder.Close()
		return err
	}

	if err := encoder.Close(); err != nil {
		return ioError("zstd compression", err)
	}
	return nil
}

func (c ZstdCoder[T]) Decode(r io.Reader) (T, error) {
	decoder, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		var zero T
		return zero, ioError("zstd reader creation", err)
	}
	defer decoder.Close()

	return c.inner.Decode(decoder)
}
