package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/inoxlang/eventlist/internal/utils"
)

const (
	MAX_FRAME_SIZE   = 64 << 20
	MAX_FRAME_COUNT  = 1 << 24
	FRAME_BUFFER_LEN = 4096
)

// EncodeAll writes the number of values followed by one length-prefixed frame per value.
func EncodeAll[T any](coder ByteCoder[T], values []T, w io.Writer) error {
	bufferedWriter := bufio.NewWriterSize(w, FRAME_BUFFER_LEN)

	var header [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(header[:], uint64(len(values)))
	if _, err := bufferedWriter.Write(header[:n]); err != nil {
		return ioError("write", err)
	}

	frame := bytes.NewBuffer(nil)

	for i, v := range values {
		frame.Reset()
		if err := coder.Encode(v, frame); err != nil {
			return fmt.Errorf("failed to encode value at index %d: %w", i, err)
		}

		n := binary.PutUvarint(header[:], uint64(frame.Len()))
		if _, err := bufferedWriter.Write(header[:n]); err != nil {
			return ioError("write", err)
		}
		if _, err := bufferedWriter.Write(frame.Bytes()); err != nil {
			return ioError("write", err)
		}
	}

	if err := bufferedWriter.Flush(); err != nil {
		return ioError("write", err)
	}
	return nil
}

// DecodeAll reads values written by EncodeAll.
func DecodeAll[T any](coder ByteCoder[T], r io.Reader) ([]T, error) {
	bufferedReader := bufio.NewReaderSize(r, FRAME_BUFFER_LEN)

	count, err := binary.ReadUvarint(bufferedReader)
	if err != nil {
		return nil, ioError("frame count", unexpectedEOF(err))
	}
	if count > MAX_FRAME_COUNT {
		return nil, ioError("frame count", fmt.Errorf("too many frames: %d", count))
	}

	values := make([]T, 0, utils.Min(count, FRAME_BUFFER_LEN))

	for i := uint64(0); i < count; i++ {
		size, err := binary.ReadUvarint(bufferedReader)
		if err != nil {
			return nil, ioError("frame size", unexpectedEOF(err))
		}
		if size > MAX_FRAME_SIZE {
			return nil, ioError("frame size", fmt.Errorf("frame %d is too large: %d bytes", i, size))
		}

		frame := make([]byte, size)
		if _, err := io.ReadFull(bufferedReader, frame); err != nil {
			return nil, ioError("frame", unexpectedEOF(err))
		}

		v, err := coder.Decode(bytes.NewReader(frame))
		if err != nil {
			return nil, fmt.Errorf("failed to decode value at index %d: %w", i, err)
		}
		values = append(values, v)
	}

	return values, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
