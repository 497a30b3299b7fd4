package fgdbfile

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestCursorFixedWidthReads(t *testing.T) {
	data := make([]byte, 0, 64)
	data = append(data, 0x7f)
	data = binary.LittleEndian.AppendUint16(data, 0xbeef)
	data = binary.LittleEndian.AppendUint32(data, 0xdeadbeef)
	data = append(data, []byte{0x01, 0x02, 0x03, 0x04, 0x05}...)       // u40
	data = append(data, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}...) // u48
	data = binary.LittleEndian.AppendUint64(data, 1<<63|7)
	data = binary.LittleEndian.AppendUint32(data, math.Float32bits(3.5))
	data = binary.LittleEndian.AppendUint64(data, math.Float64bits(2.25))

	c, err := OpenCursor(writeTempFile(t, data))
	if err != nil {
		t.Fatalf("OpenCursor: %v", err)
	}
	defer c.Close()

	u8, err := c.ReadU8()
	if err != nil || u8 != 0x7f {
		t.Fatalf("ReadU8 = %v, %v", u8, err)
	}
	u16, err := c.ReadU16()
	if err != nil || u16 != 0xbeef {
		t.Fatalf("ReadU16 = %v, %v", u16, err)
	}
	u32, err := c.ReadU32()
	if err != nil || u32 != 0xdeadbeef {
		t.Fatalf("ReadU32 = %v, %v", u32, err)
	}
	u40, err := c.ReadU40()
	if err != nil || u40 != 0x0504030201 {
		t.Fatalf("ReadU40 = %x, %v", u40, err)
	}
	u48, err := c.ReadU48()
	if err != nil || u48 != 0x060504030201 {
		t.Fatalf("ReadU48 = %x, %v", u48, err)
	}
	u64, err := c.ReadU64()
	if err != nil || u64 != 1<<63|7 {
		t.Fatalf("ReadU64 = %x, %v", u64, err)
	}
	f32, err := c.ReadF32()
	if err != nil || f32 != 3.5 {
		t.Fatalf("ReadF32 = %v, %v", f32, err)
	}
	f64, err := c.ReadF64()
	if err != nil || f64 != 2.25 {
		t.Fatalf("ReadF64 = %v, %v", f64, err)
	}
}

func TestCursorNegativeSeekIsInvalidArgument(t *testing.T) {
	c, err := OpenCursor(writeTempFile(t, []byte{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	err = c.Seek(-1)
	if _, ok := err.(*InvalidArgumentError); !ok {
		t.Fatalf("expected *InvalidArgumentError, got %T (%v)", err, err)
	}
}

func TestCursorShortReadIsIOError(t *testing.T) {
	c, err := OpenCursor(writeTempFile(t, []byte{1, 2}))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, err = c.ReadU32()
	if _, ok := err.(*IOError); !ok {
		t.Fatalf("expected *IOError, got %T (%v)", err, err)
	}
}

func TestCursorUTF16AndUTF8(t *testing.T) {
	var data []byte
	for _, r := range "Nürnberg" {
		// Only BMP characters appear in practice; encode as 2-byte units.
		data = binary.LittleEndian.AppendUint16(data, uint16(r))
	}
	data = append(data, []byte("hello")...)

	c, err := OpenCursor(writeTempFile(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	s, err := c.ReadUTF16(len([]rune("Nürnberg")))
	if err != nil {
		t.Fatal(err)
	}
	if s != "Nürnberg" {
		t.Fatalf("ReadUTF16 = %q", s)
	}

	s2, err := c.ReadUTF8(5)
	if err != nil || s2 != "hello" {
		t.Fatalf("ReadUTF8 = %q, %v", s2, err)
	}
}

func TestReadVarUintAndZigZag(t *testing.T) {
	// 300 in LEB128: 0b1_0010_1100 -> bytes [0xAC, 0x02]
	c, err := OpenCursor(writeTempFile(t, []byte{0xAC, 0x02}))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	v, err := c.ReadVarUint()
	if err != nil || v != 300 {
		t.Fatalf("ReadVarUint = %d, %v", v, err)
	}

	cases := []int64{0, 1, -1, 63, -64, 12345, -12345, math.MaxInt32, math.MinInt32}
	for _, n := range cases {
		u := ZigZagEncode(n)
		if got := ZigZagDecode(u); got != n {
			t.Errorf("ZigZagDecode(ZigZagEncode(%d)) = %d", n, got)
		}
	}
}

func TestReadVarUintOverflow(t *testing.T) {
	data := make([]byte, 11)
	for i := range data {
		data[i] = 0xff
	}
	data[10] = 0x7f
	c, err := OpenCursor(writeTempFile(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, err = c.ReadVarUint()
	if _, ok := err.(*FormatError); !ok {
		t.Fatalf("expected *FormatError, got %T (%v)", err, err)
	}
}
