package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int    `json:"x" yaml:"x"`
	Y int    `json:"y" yaml:"y"`
	L string `json:"label" yaml:"label"`
}

func TestCoders(t *testing.T) {
	for _, name := range CODEC_NAMES {
		name := name
		for _, compress := range []bool{false, true} {
			compress := compress
			testName := name
			if compress {
				testName += "+zstd"
			}

			t.Run(testName, func(t *testing.T) {
				coder, err := ForName[point](name, compress)
				require.NoError(t, err)

				t.Run("encode then decode", func(t *testing.T) {
					buf := bytes.NewBuffer(nil)
					require.NoError(t, coder.Encode(point{X: 1, Y: -2, L: "a"}, buf))

					p, err := coder.Decode(buf)
					require.NoError(t, err)
					assert.Equal(t, point{X: 1, Y: -2, L: "a"}, p)
				})

				t.Run("empty stream", func(t *testing.T) {
					_, err := coder.Decode(bytes.NewReader(nil))
					assert.ErrorIs(t, err, ErrIO)
				})

				t.Run("truncated stream", func(t *testing.T) {
					if name == YAML_CODEC && !compress {
						t.Skip("a truncated YAML document is often a valid document")
					}

					buf := bytes.NewBuffer(nil)
					require.NoError(t, coder.Encode(point{X: 1, Y: 2, L: "a long enough label"}, buf))

					truncated := buf.Bytes()[:buf.Len()/2]
					_, err := coder.Decode(bytes.NewReader(truncated))
					assert.ErrorIs(t, err, ErrIO)
				})

				t.Run("write failure", func(t *testing.T) {
					err := coder.Encode(point{X: 1}, failingWriter{})
					assert.ErrorIs(t, err, ErrIO)
				})
			})
		}
	}

	t.Run("unknown codec", func(t *testing.T) {
		_, err := ForName[int]("xml", false)
		assert.ErrorIs(t, err, ErrUnknownCodec)
		assert.False(t, IsKnownCodec("xml"))
		assert.True(t, IsKnownCodec(JSON_CODEC))
	})
}

func TestGobCoderInterfaceValues(t *testing.T) {
	coder := NewGobCoder[any]()

	t.Run("unregistered concrete type", func(t *testing.T) {
		err := coder.Encode(point{X: 1}, bytes.NewBuffer(nil))
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("builtin types", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		require.NoError(t, coder.Encode("hello", buf))

		v, err := coder.Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, "hello", v)
	})
}

func TestFrames(t *testing.T) {
	coder := NewJSONCoder[string]()

	t.Run("several values", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		require.NoError(t, EncodeAll(coder, []string{"zero", "one", "two"}, buf))

		values, err := DecodeAll(coder, buf)
		require.NoError(t, err)
		assert.Equal(t, []string{"zero", "one", "two"}, values)
	})

	t.Run("no values", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		require.NoError(t, EncodeAll(coder, nil, buf))

		values, err := DecodeAll(coder, buf)
		require.NoError(t, err)
		assert.Empty(t, values)
	})

	t.Run("truncated stream", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		require.NoError(t, EncodeAll(coder, []string{"zero", "one"}, buf))

		_, err := DecodeAll(coder, bytes.NewReader(buf.Bytes()[:buf.Len()-3]))
		assert.ErrorIs(t, err, ErrIO)

		_, err = DecodeAll(coder, bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("compressed gob frames", func(t *testing.T) {
		coder := NewZstdCoder(NewGobCoder[point]())
		points := []point{{X: 1}, {Y: 2}, {L: "c"}}

		buf := bytes.NewBuffer(nil)
		require.NoError(t, EncodeAll(coder, points, buf))

		values, err := DecodeAll(coder, buf)
		require.NoError(t, err)
		assert.Equal(t, points, values)
	})
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write failure")
}
