// Package fgdbfile implements the binary decoders for the File Geodatabase
// on-disk format: the byte cursor, table file headers, field descriptors,
// row values, and the Extended Shape Buffer geometry codec.
package fgdbfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"unicode/utf16"
)

// ByteCursor is a seekable little-endian reader over a single file.
//
// It is not safe for concurrent use: seeking and reading mutate cursor
// state, so a TableFile serializes access to its two cursors the way
// s57/internal/parser serializes access to a single ISO 8211 reader per
// file.
type ByteCursor struct {
	f    *os.File
	pos  int64
	size int64
}

// OpenCursor opens path read-only and wraps it in a ByteCursor positioned
// at offset 0.
func OpenCursor(path string) (*ByteCursor, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Kind: "file", Detail: path}
		}
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}
	return &ByteCursor{f: f, size: info.Size()}, nil
}

// Close releases the underlying file handle.
func (c *ByteCursor) Close() error {
	if c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	return err
}

// Position returns the current read offset.
func (c *ByteCursor) Position() int64 { return c.pos }

// Length returns the file size in bytes.
func (c *ByteCursor) Length() int64 { return c.size }

// Seek repositions the cursor. Seeking past EOF is allowed (per-read
// failures surface at the next read), seeking to a negative offset is not.
func (c *ByteCursor) Seek(offset int64) error {
	if offset < 0 {
		return &InvalidArgumentError{Reason: fmt.Sprintf("negative seek offset %d", offset)}
	}
	c.pos = offset
	return nil
}

// Skip advances the cursor by n bytes without reading them.
func (c *ByteCursor) Skip(n int64) error {
	return c.Seek(c.pos + n)
}

func (c *ByteCursor) readFull(n int) ([]byte, error) {
	if n < 0 {
		return nil, &InvalidArgumentError{Reason: fmt.Sprintf("negative read length %d", n)}
	}
	buf := make([]byte, n)
	read, err := c.f.ReadAt(buf, c.pos)
	if read == n {
		c.pos += int64(read)
		return buf, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, &IOError{Op: "read", Path: c.f.Name(), Err: fmt.Errorf("short read at offset %d: got %d of %d bytes: %w", c.pos, read, n, err)}
}

// ReadBytes reads and returns the next n bytes verbatim.
func (c *ByteCursor) ReadBytes(n int) ([]byte, error) {
	return c.readFull(n)
}

// ReadBytesInto reads len(buf) bytes into buf, returning the number of
// bytes read. Short reads are an I/O error, never silently padded.
func (c *ByteCursor) ReadBytesInto(buf []byte) (int, error) {
	read, err := c.f.ReadAt(buf, c.pos)
	if read == len(buf) {
		c.pos += int64(read)
		return read, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return read, &IOError{Op: "read", Path: c.f.Name(), Err: err}
}

// ReadU8 reads one unsigned byte.
func (c *ByteCursor) ReadU8() (uint8, error) {
	b, err := c.readFull(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a little-endian uint16.
func (c *ByteCursor) ReadU16() (uint16, error) {
	b, err := c.readFull(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian uint32.
func (c *ByteCursor) ReadU32() (uint32, error) {
	b, err := c.readFull(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU40 reads a 5-byte little-endian unsigned integer (used for row
// offsets when the index's offset_size is 5).
func (c *ByteCursor) ReadU40() (uint64, error) {
	b, err := c.readFull(5)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 4; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// ReadU48 reads a 6-byte little-endian unsigned integer (offset_size 6).
func (c *ByteCursor) ReadU48() (uint64, error) {
	b, err := c.readFull(6)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 5; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// ReadU64 reads a little-endian uint64.
func (c *ByteCursor) ReadU64() (uint64, error) {
	b, err := c.readFull(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadI16 reads a little-endian signed 16-bit integer.
func (c *ByteCursor) ReadI16() (int16, error) {
	v, err := c.ReadU16()
	return int16(v), err
}

// ReadI32 reads a little-endian signed 32-bit integer.
func (c *ByteCursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

// ReadI64 reads a little-endian signed 64-bit integer.
func (c *ByteCursor) ReadI64() (int64, error) {
	v, err := c.ReadU64()
	return int64(v), err
}

// ReadF32 reads a little-endian IEEE-754 single-precision float.
func (c *ByteCursor) ReadF32() (float32, error) {
	v, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 reads a little-endian IEEE-754 double-precision float.
func (c *ByteCursor) ReadF64() (float64, error) {
	v, err := c.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadUTF16 reads nChars UTF-16LE code units (2*nChars bytes) and decodes
// them to a Go string.
func (c *ByteCursor) ReadUTF16(nChars int) (string, error) {
	if nChars == 0 {
		return "", nil
	}
	raw, err := c.readFull(nChars * 2)
	if err != nil {
		return "", err
	}
	units := make([]uint16, nChars)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[i*2 : i*2+2])
	}
	return string(utf16.Decode(units)), nil
}

// ReadUTF8 reads nBytes raw bytes and decodes them as UTF-8.
func (c *ByteCursor) ReadUTF8(nBytes int) (string, error) {
	if nBytes == 0 {
		return "", nil
	}
	raw, err := c.readFull(nBytes)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadVarUint decodes an LEB128-style variable-length unsigned integer:
// each byte's low 7 bits are payload, the 0x80 bit marks continuation,
// groups are consumed in little-endian (least-significant-first) order.
func (c *ByteCursor) ReadVarUint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		if shift >= 64 {
			return 0, &FormatError{Reason: "variable-length integer too long"}
		}
		b, err := c.ReadU8()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// ZigZagDecode maps an unsigned integer back to the signed integer it
// encodes: even values are non-negative halves, odd values are the
// bitwise complement of their negative halves.
func ZigZagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// ZigZagEncode is the companion forward mapping, provided for tests and
// for any future encoder built against this decoder (round-trip laws).
func ZigZagEncode(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}
