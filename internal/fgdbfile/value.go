package fgdbfile

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// epoch is the FGDB date origin: 1899-12-30 00:00:00 in an unspecified
// zone (spec §4.3); all DateTime/DateOnly/DateTimeOffset values are a
// day-count offset from it, and we decode in UTC since no zone is ever
// persisted alongside the day count itself (DateTimeOffset carries its
// own explicit offset separately).
var epoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// DateTimeOffsetValue is the decoded value of a DateTimeOffset field:
// the underlying instant plus the persisted UTC offset in minutes.
type DateTimeOffsetValue struct {
	Time             time.Time
	UTCOffsetMinutes int16
}

// decodeScalarValue decodes a single value of the given field type from
// exactly byteLen bytes (used for fixed-width field defaults, where the
// descriptor records a default_len independent of the row payload).
func decodeScalarValue(c *ByteCursor, t FieldType, byteLen int) (v any, err error) {
	start := c.Position()
	defer func() {
		if err == nil {
			err = c.Seek(start + int64(byteLen))
		}
	}()
	switch t {
	case FieldTypeInt16:
		v, err := c.ReadI16()
		return v, err
	case FieldTypeInt32:
		v, err := c.ReadI32()
		return v, err
	case FieldTypeInt64:
		v, err := c.ReadI64()
		return v, err
	case FieldTypeSingle:
		v, err := c.ReadF32()
		return v, err
	case FieldTypeDouble:
		v, err := c.ReadF64()
		return v, err
	case FieldTypeDateTime:
		return decodeDateTime(c)
	case FieldTypeDateOnly:
		return decodeDateOnly(c)
	case FieldTypeTimeOnly:
		return decodeTimeOnly(c)
	case FieldTypeDateTimeOffset:
		return decodeDateTimeOffset(c)
	default:
		// Fall back to raw bytes for any type not expected here.
		return c.ReadBytes(byteLen)
	}
}

func decodeDateTime(c *ByteCursor) (time.Time, error) {
	days, err := c.ReadF64()
	if err != nil {
		return time.Time{}, err
	}
	return daysToTime(days), nil
}

func decodeDateOnly(c *ByteCursor) (time.Time, error) {
	days, err := c.ReadF64()
	if err != nil {
		return time.Time{}, err
	}
	t := daysToTime(days)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func decodeTimeOnly(c *ByteCursor) (time.Duration, error) {
	frac, err := c.ReadF64()
	if err != nil {
		return 0, err
	}
	// Clamp out-of-range fractions rather than erroring (spec §9: not
	// documented by the format owner for persisted values outside [0,1]).
	frac = math.Max(0, math.Min(1, frac))
	return time.Duration(frac * float64(24*time.Hour)), nil
}

func decodeDateTimeOffset(c *ByteCursor) (DateTimeOffsetValue, error) {
	days, err := c.ReadF64()
	if err != nil {
		return DateTimeOffsetValue{}, err
	}
	offsetMinutes, err := c.ReadI16()
	if err != nil {
		return DateTimeOffsetValue{}, err
	}
	return DateTimeOffsetValue{Time: daysToTime(days), UTCOffsetMinutes: offsetMinutes}, nil
}

func daysToTime(days float64) time.Time {
	wholeDays := math.Floor(days)
	frac := days - wholeDays
	t := epoch.AddDate(0, 0, int(wholeDays))
	return t.Add(time.Duration(frac * float64(24*time.Hour)))
}

// RowValues is the decoded value vector for one row, indexed the same
// way as the table's field list (spec §3, §4.2.4).
type RowValues []any

// decodeRow walks fields in declaration order, consuming a null-flags
// bitmap (one bit per nullable field, present only if at least one field
// is nullable) followed by each non-null field's payload. oid is used
// only to fill the ObjectID field, which is never itself present in the
// row blob.
func decodeRow(c *ByteCursor, fields []FieldDescriptor, oid int64, rowSize uint32) (RowValues, error) {
	nullableCount := 0
	for _, fd := range fields {
		if fd.Nullable {
			nullableCount++
		}
	}

	start := c.Position()
	var nullBits []byte
	if nullableCount > 0 {
		nBytes := (nullableCount + 7) / 8
		var err error
		nullBits, err = c.ReadBytes(nBytes)
		if err != nil {
			return nil, err
		}
	}

	values := make(RowValues, len(fields))
	nullIdx := 0
	for i, fd := range fields {
		isNull := false
		if fd.Nullable {
			isNull = nullBits[nullIdx/8]&(1<<uint(nullIdx%8)) != 0
			nullIdx++
		}

		if fd.Type == FieldTypeObjectID {
			values[i] = oid
			continue
		}
		if isNull {
			values[i] = nil
			continue
		}

		v, err := decodeFieldValue(c, fd)
		if err != nil {
			return nil, fmt.Errorf("field %q (%s): %w", fd.Name, fd.Type, err)
		}
		values[i] = v
	}

	consumed := c.Position() - start
	if int64(rowSize) < consumed {
		return nil, &FormatError{Reason: fmt.Sprintf("row overran declared size: consumed %d of %d bytes", consumed, rowSize)}
	}
	// Known anomaly: some generated tables leave a handful of unread
	// trailing bytes. Skip to the row boundary rather than erroring
	// (spec §4.2.4, §9).
	if remaining := int64(rowSize) - consumed; remaining > 0 {
		if err := c.Skip(remaining); err != nil {
			return nil, err
		}
	}

	return values, nil
}

func decodeFieldValue(c *ByteCursor, fd FieldDescriptor) (any, error) {
	switch fd.Type {
	case FieldTypeInt16:
		return c.ReadI16()
	case FieldTypeInt32:
		return c.ReadI32()
	case FieldTypeInt64:
		return c.ReadI64()
	case FieldTypeSingle:
		return c.ReadF32()
	case FieldTypeDouble:
		return c.ReadF64()
	case FieldTypeString, FieldTypeXML:
		n, err := c.ReadVarUint()
		if err != nil {
			return nil, err
		}
		return c.ReadUTF8(int(n))
	case FieldTypeDateTime:
		return decodeDateTime(c)
	case FieldTypeDateOnly:
		return decodeDateOnly(c)
	case FieldTypeTimeOnly:
		return decodeTimeOnly(c)
	case FieldTypeDateTimeOffset:
		return decodeDateTimeOffset(c)
	case FieldTypeGeometry:
		n, err := c.ReadVarUint()
		if err != nil {
			return nil, err
		}
		blob, err := c.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		return DecodeShapeBuffer(blob, fd.Geometry)
	case FieldTypeBlob:
		n, err := c.ReadVarUint()
		if err != nil {
			return nil, err
		}
		return c.ReadBytes(int(n))
	case FieldTypeGUID, FieldTypeGlobalID:
		raw, err := c.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		return decodeGUID(raw)
	case FieldTypeRaster:
		return nil, &UnsupportedFeatureError{Feature: "Raster field decoding"}
	default:
		return nil, &FormatError{Reason: fmt.Sprintf("cannot decode field of type %s", fd.Type)}
	}
}

// decodeGUID permutes the persisted byte sequence into the big-endian
// RFC 4122 order uuid.FromBytes expects: the on-disk {u32_le, u16_le,
// u16_le, [8]byte} layout's first three fields are byte-reversed (its
// last 8 bytes are already unchanged either way), i.e. disk bytes read
// as b3 b2 b1 b0  b5 b4  b7 b6  b8..b15 (spec §4.3, §9).
func decodeGUID(raw []byte) (uuid.UUID, error) {
	if len(raw) != 16 {
		return uuid.UUID{}, &FormatError{Reason: fmt.Sprintf("GUID must be 16 bytes, got %d", len(raw))}
	}
	var be [16]byte
	be[0], be[1], be[2], be[3] = raw[3], raw[2], raw[1], raw[0]
	be[4], be[5] = raw[5], raw[4]
	be[6], be[7] = raw[7], raw[6]
	copy(be[8:], raw[8:16])
	return uuid.FromBytes(be[:])
}
