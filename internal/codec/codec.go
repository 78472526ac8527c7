package codec

import (
	"errors"
	"fmt"
	"io"
	"slices"
)

const (
	GOB_CODEC  = "gob"
	JSON_CODEC = "json"
	YAML_CODEC = "yaml"
)

var (
	ErrIO           = errors.New("codec i/o error")
	ErrUnknownCodec = errors.New("unknown codec")

	CODEC_NAMES = []string{GOB_CODEC, JSON_CODEC, YAML_CODEC}
)

// A ByteCoder moves single values to and from byte streams. Encode fails with ErrIO if the value cannot be
// serialized or written, Decode fails with ErrIO if the stream is truncated or corrupt or if the
// encoded type cannot be resolved.
type ByteCoder[T any] interface {
	Encode(value T, w io.Writer) error
	Decode(r io.Reader) (T, error)
}

// ForName returns the coder named name, the coder is wrapped in a zstd coder if compress is true.
func ForName[T any](name string, compress bool) (ByteCoder[T], error) {
	var coder ByteCoder[T]

	switch name {
	case GOB_CODEC:
		coder = NewGobCoder[T]()
	case JSON_CODEC:
		coder = NewJSONCoder[T]()
	case YAML_CODEC:
		coder = NewYAMLCoder[T]()
	default:
		return nil, fmt.Errorf("%w: %q, supported codecs are %v", ErrUnknownCodec, name, CODEC_NAMES)
	}

	if compress {
		coder = NewZstdCoder(coder)
	}
	return coder, nil
}

func IsKnownCodec(name string) bool {
	return slices.Contains(CODEC_NAMES, name)
}

func ioError(op string, err error) error {
	if errors.Is(err, ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
