package fgdbfile

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestDecodeDateTime(t *testing.T) {
	// 1 day after epoch, at midnight UTC: 1899-12-31.
	data := binary.LittleEndian.AppendUint64(nil, math.Float64bits(1.0))
	c, err := OpenCursor(writeTempFile(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got, err := decodeDateTime(c)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("decodeDateTime(1.0) = %v, want %v", got, want)
	}
}

func TestDecodeTimeOnlyClampsOutOfRange(t *testing.T) {
	data := binary.LittleEndian.AppendUint64(nil, math.Float64bits(1.5))
	c, err := OpenCursor(writeTempFile(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	d, err := decodeTimeOnly(c)
	if err != nil {
		t.Fatal(err)
	}
	if d != 24*time.Hour {
		t.Fatalf("decodeTimeOnly(1.5) = %v, want clamped to 24h", d)
	}
}

func TestDecodeTimeOnlyNormalValue(t *testing.T) {
	// 12:41:53 as a fraction of a day.
	frac := (12*3600 + 41*60 + 53) / 86400.0
	data := binary.LittleEndian.AppendUint64(nil, math.Float64bits(frac))
	c, err := OpenCursor(writeTempFile(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	d, err := decodeTimeOnly(c)
	if err != nil {
		t.Fatal(err)
	}
	want := 12*time.Hour + 41*time.Minute + 53*time.Second
	diff := d - want
	if diff < 0 {
		diff = -diff
	}
	if diff > time.Millisecond {
		t.Fatalf("decodeTimeOnly = %v, want ~%v", d, want)
	}
}

func TestDecodeGUIDByteOrder(t *testing.T) {
	raw := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	id, err := decodeGUID(raw)
	if err != nil {
		t.Fatal(err)
	}
	want := "33221100-5544-7766-8899-aabbccddeeff"
	if id.String() != want {
		t.Fatalf("decodeGUID = %s, want %s", id.String(), want)
	}
}

func TestDecodeGUIDWrongLength(t *testing.T) {
	_, err := decodeGUID([]byte{1, 2, 3})
	if _, ok := err.(*FormatError); !ok {
		t.Fatalf("expected *FormatError, got %T (%v)", err, err)
	}
}

func TestDecodeRowBasic(t *testing.T) {
	fields := []FieldDescriptor{
		{Name: "OBJECTID", Type: FieldTypeObjectID, Required: true},
		{Name: "Code", Type: FieldTypeInt32, Nullable: true},
		{Name: "Text", Type: FieldTypeString, Nullable: true},
	}

	var data []byte
	data = append(data, 0x00) // null bitmap: neither Code nor Text is null
	data = binary.LittleEndian.AppendUint32(data, 7)
	data = append(data, 0x02) // var_uint length 2
	data = append(data, []byte("hi")...)

	c, err := OpenCursor(writeTempFile(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	values, err := decodeRow(c, fields, 42, uint32(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if values[0] != int64(42) {
		t.Fatalf("OBJECTID = %v, want 42", values[0])
	}
	if values[1] != int32(7) {
		t.Fatalf("Code = %v, want 7", values[1])
	}
	if values[2] != "hi" {
		t.Fatalf("Text = %v, want hi", values[2])
	}
}

func TestDecodeRowNullField(t *testing.T) {
	fields := []FieldDescriptor{
		{Name: "OBJECTID", Type: FieldTypeObjectID, Required: true},
		{Name: "Code", Type: FieldTypeInt32, Nullable: true},
		{Name: "Text", Type: FieldTypeString, Nullable: true},
	}

	var data []byte
	data = append(data, 0x01) // bit 0 set: Code is null
	data = append(data, 0x02)
	data = append(data, []byte("hi")...)

	c, err := OpenCursor(writeTempFile(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	values, err := decodeRow(c, fields, 1, uint32(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if values[1] != nil {
		t.Fatalf("Code = %v, want nil", values[1])
	}
	if values[2] != "hi" {
		t.Fatalf("Text = %v, want hi", values[2])
	}
}

func TestDecodeRowTrailingBytesTolerated(t *testing.T) {
	fields := []FieldDescriptor{
		{Name: "OBJECTID", Type: FieldTypeObjectID, Required: true},
		{Name: "Code", Type: FieldTypeInt32, Nullable: true},
	}

	var data []byte
	data = append(data, 0x00)
	data = binary.LittleEndian.AppendUint32(data, 99)
	data = append(data, 0xAA, 0xBB) // known anomaly: trailing unread bytes

	c, err := OpenCursor(writeTempFile(t, data))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	values, err := decodeRow(c, fields, 1, uint32(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if values[1] != int32(99) {
		t.Fatalf("Code = %v, want 99", values[1])
	}
	if c.Position() != int64(len(data)) {
		t.Fatalf("cursor left at %d, want %d", c.Position(), len(data))
	}
}
