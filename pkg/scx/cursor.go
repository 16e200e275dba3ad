package scx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Cursor reads little-endian values from an in-memory SCX buffer.
// The buffer is never modified; only the position moves.
type Cursor struct {
	data []byte
	pos  int64
}

// NewCursor returns a cursor positioned at the start of data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Position returns the current absolute offset.
func (c *Cursor) Position() int64 {
	return c.pos
}

// Len returns the total buffer size.
func (c *Cursor) Len() int64 {
	return int64(len(c.data))
}

// Remaining returns the number of unread bytes. It is 0 when the cursor has
// been seeked past the end.
func (c *Cursor) Remaining() int64 {
	if c.pos >= int64(len(c.data)) {
		return 0
	}
	return int64(len(c.data)) - c.pos
}

// EOF reports whether no bytes remain.
func (c *Cursor) EOF() bool {
	return c.Remaining() == 0
}

// Seek moves the cursor like a file: whence is io.SeekStart, io.SeekCurrent
// or io.SeekEnd. Positions past the end are allowed; the next read fails.
func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = c.pos + offset
	case io.SeekEnd:
		abs = int64(len(c.data)) + offset
	default:
		return c.pos, &DecodeError{Offset: c.pos, Op: "seek", Err: fmt.Errorf("%w: whence %d", ErrInvalidSeek, whence)}
	}
	if abs < 0 {
		return c.pos, &DecodeError{Offset: c.pos, Op: "seek", Err: fmt.Errorf("%w: %d", ErrInvalidSeek, abs)}
	}
	c.pos = abs
	return abs, nil
}

// Skip advances over n bytes that must exist in the buffer.
func (c *Cursor) Skip(n int) error {
	if _, err := c.take(n, "skip"); err != nil {
		return err
	}
	return nil
}

// take returns the next n bytes and advances past them. Any read from a
// position past the end fails, including a zero-length one.
func (c *Cursor) take(n int, op string) ([]byte, error) {
	if n < 0 || c.pos > int64(len(c.data)) || c.Remaining() < int64(n) {
		return nil, &DecodeError{
			Offset: c.pos,
			Op:     op,
			Err:    fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedData, n, c.Remaining()),
		}
	}
	b := c.data[c.pos : c.pos+int64(n)]
	c.pos += int64(n)
	return b, nil
}

// ReadByte reads one unsigned byte.
func (c *Cursor) ReadByte() (byte, error) {
	b, err := c.take(1, "read byte")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a little-endian uint16.
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.take(2, "read uint16")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32 reads a little-endian uint32.
func (c *Cursor) ReadUint32() (uint32, error) {
	b, err := c.take(4, "read uint32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadFloat32 reads a little-endian IEEE-754 single.
func (c *Cursor) ReadFloat32() (float32, error) {
	b, err := c.take(4, "read float32")
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// ReadBytes returns a copy of the next n bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	b, err := c.take(n, "read bytes")
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadFixedString reads n raw bytes as a string without termination handling.
func (c *Cursor) ReadFixedString(n int) (string, error) {
	b, err := c.take(n, "read string")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadNullTerminatedFixedString consumes exactly n bytes and returns the
// bytes before the first zero.
func (c *Cursor) ReadNullTerminatedFixedString(n int) (string, error) {
	b, err := c.take(n, "read string")
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

func (c *Cursor) readFloats(dst []float32) error {
	for i := range dst {
		v, err := c.ReadFloat32()
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

func (c *Cursor) readBytes4() ([4]byte, error) {
	var out [4]byte
	b, err := c.take(4, "read color")
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}
