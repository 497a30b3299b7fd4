package fgdbfile

import "fmt"

// FieldType enumerates the field value encodings a table schema can
// declare. Values match the persisted type byte exactly (spec §3).
type FieldType uint8

const (
	FieldTypeInt16          FieldType = 0
	FieldTypeInt32          FieldType = 1
	FieldTypeSingle         FieldType = 2
	FieldTypeDouble         FieldType = 3
	FieldTypeString         FieldType = 4
	FieldTypeDateTime       FieldType = 5
	FieldTypeObjectID       FieldType = 6
	FieldTypeGeometry       FieldType = 7
	FieldTypeBlob           FieldType = 8
	FieldTypeRaster         FieldType = 9
	FieldTypeGUID           FieldType = 10
	FieldTypeGlobalID       FieldType = 11
	FieldTypeXML            FieldType = 12
	FieldTypeInt64          FieldType = 13
	FieldTypeDateOnly       FieldType = 14
	FieldTypeTimeOnly       FieldType = 15
	FieldTypeDateTimeOffset FieldType = 16
)

// String returns a human-readable name for the field type, in the style
// of the teacher's small enum-to-string helpers (GeometryType.String()).
func (t FieldType) String() string {
	switch t {
	case FieldTypeInt16:
		return "Int16"
	case FieldTypeInt32:
		return "Int32"
	case FieldTypeSingle:
		return "Single"
	case FieldTypeDouble:
		return "Double"
	case FieldTypeString:
		return "String"
	case FieldTypeDateTime:
		return "DateTime"
	case FieldTypeObjectID:
		return "ObjectID"
	case FieldTypeGeometry:
		return "Geometry"
	case FieldTypeBlob:
		return "Blob"
	case FieldTypeRaster:
		return "Raster"
	case FieldTypeGUID:
		return "GUID"
	case FieldTypeGlobalID:
		return "GlobalID"
	case FieldTypeXML:
		return "XML"
	case FieldTypeInt64:
		return "Int64"
	case FieldTypeDateOnly:
		return "DateOnly"
	case FieldTypeTimeOnly:
		return "TimeOnly"
	case FieldTypeDateTimeOffset:
		return "DateTimeOffset"
	default:
		return "Unknown"
	}
}

// field flag bits shared by most field kinds (spec §4.2.2).
const (
	fieldFlagNullable = 1 << 0
	fieldFlagRequired = 1 << 1
	fieldFlagEditable = 1 << 2
)

// FieldDescriptor is the decoded per-field metadata record (spec §3).
type FieldDescriptor struct {
	Name        string
	Alias       string
	Type        FieldType
	Nullable    bool
	Required    bool
	Editable    bool
	Size        int64
	RawFlagByte uint8
	Default     any // decoded default value, nil if absent
	Geometry    *GeometryDef
	Raster      *RasterDef
}

// GeometryDef carries a geometry field's spatial reference WKT,
// quantization parameters, and declared extent (spec §3).
type GeometryDef struct {
	WKT string

	XOrigin, YOrigin, XYScale float64
	HasM                      bool
	MOrigin, MScale           float64
	HasZ                      bool
	ZOrigin, ZScale           float64

	XYTolerance float64
	MTolerance  float64
	ZTolerance  float64

	Extent GeometryExtent

	GridSizes []float64
}

// GeometryExtent is the declared spatial extent of a geometry field,
// independent of any persisted row's actual coordinates.
type GeometryExtent struct {
	XMin, YMin, XMax, YMax float64
	HasZ                   bool
	ZMin, ZMax             float64
	HasM                   bool
	MMin, MMax             float64
}

// RasterDef carries a raster field's column name, spatial reference, and
// raster kind; raster pixel data itself is never decoded (spec §1 Non-goals).
type RasterDef struct {
	ColumnName string
	WKT        string
	RasterType uint8
}

// decodeFieldDescriptors reads field_count field records starting at the
// cursor's current position, in declaration order (spec §4.2.1, §4.2.2).
// tableHasZ/tableHasM come from the table-level flags decoded alongside
// the field count, since a Geometry field's own flag byte only states
// whether M/Z quantization parameters are *present*, while the extent's
// optional z/m pairs are gated by the table-level flags per spec.
func decodeFieldDescriptors(c *ByteCursor, fieldCount int, tableHasZ, tableHasM bool) ([]FieldDescriptor, error) {
	fields := make([]FieldDescriptor, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		fd, err := decodeOneField(c, tableHasZ, tableHasM)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		fields = append(fields, fd)
	}
	return fields, nil
}

func decodeOneField(c *ByteCursor, tableHasZ, tableHasM bool) (FieldDescriptor, error) {
	var fd FieldDescriptor

	nameLen, err := c.ReadU8()
	if err != nil {
		return fd, err
	}
	fd.Name, err = c.ReadUTF16(int(nameLen))
	if err != nil {
		return fd, err
	}

	aliasLen, err := c.ReadU8()
	if err != nil {
		return fd, err
	}
	fd.Alias, err = c.ReadUTF16(int(aliasLen))
	if err != nil {
		return fd, err
	}

	typeByte, err := c.ReadU8()
	if err != nil {
		return fd, err
	}
	fd.Type = FieldType(typeByte)

	switch fd.Type {
	case FieldTypeObjectID:
		size, flags, err := readSizeFlags(c)
		if err != nil {
			return fd, err
		}
		fd.Size, fd.RawFlagByte = int64(size), flags
		fd.Required, fd.Nullable, fd.Editable = true, false, false

	case FieldTypeGeometry:
		if err := decodeGeometryField(c, &fd, tableHasZ, tableHasM); err != nil {
			return fd, err
		}

	case FieldTypeString, FieldTypeXML:
		if err := decodeVarDefaultField(c, &fd); err != nil {
			return fd, err
		}

	case FieldTypeBlob, FieldTypeGUID, FieldTypeGlobalID:
		size, flags, err := readSizeFlags(c)
		if err != nil {
			return fd, err
		}
		fd.Size, fd.RawFlagByte = int64(size), flags
		applyFlags(&fd, flags)

	case FieldTypeRaster:
		if err := decodeRasterField(c, &fd); err != nil {
			return fd, err
		}

	case FieldTypeInt16, FieldTypeInt32, FieldTypeInt64, FieldTypeSingle, FieldTypeDouble,
		FieldTypeDateTime, FieldTypeDateOnly, FieldTypeTimeOnly, FieldTypeDateTimeOffset:
		if err := decodeFixedDefaultField(c, &fd); err != nil {
			return fd, err
		}

	default:
		return fd, &FormatError{Reason: fmt.Sprintf("unknown field type code %d", typeByte)}
	}

	return fd, nil
}

func readSizeFlags(c *ByteCursor) (uint8, uint8, error) {
	size, err := c.ReadU8()
	if err != nil {
		return 0, 0, err
	}
	flags, err := c.ReadU8()
	if err != nil {
		return 0, 0, err
	}
	return size, flags, nil
}

func applyFlags(fd *FieldDescriptor, flags uint8) {
	fd.RawFlagByte = flags
	fd.Nullable = flags&fieldFlagNullable != 0
	fd.Required = flags&fieldFlagRequired != 0
	fd.Editable = flags&fieldFlagEditable != 0
}

// decodeVarDefaultField handles String/XML: size is a 4-byte length,
// followed by a var_uint-prefixed UTF-8 default consumed only when the
// editable flag is set AND default_len > 0 (spec §9: some generated
// tables record a length but no payload when not editable).
func decodeVarDefaultField(c *ByteCursor, fd *FieldDescriptor) error {
	size, err := c.ReadI32()
	if err != nil {
		return err
	}
	flags, err := c.ReadU8()
	if err != nil {
		return err
	}
	fd.Size = int64(size)
	applyFlags(fd, flags)

	defaultLen, err := c.ReadVarUint()
	if err != nil {
		return err
	}
	if flags&fieldFlagEditable != 0 && defaultLen > 0 {
		s, err := c.ReadUTF8(int(defaultLen))
		if err != nil {
			return err
		}
		fd.Default = s
	}
	return nil
}

// decodeFixedDefaultField handles the numeric/date field kinds: size,
// flags, then a one-byte default_len gating a fixed-width default value
// of the matching type.
func decodeFixedDefaultField(c *ByteCursor, fd *FieldDescriptor) error {
	size, flags, err := readSizeFlags(c)
	if err != nil {
		return err
	}
	fd.Size = int64(size)
	applyFlags(fd, flags)

	defaultLen, err := c.ReadU8()
	if err != nil {
		return err
	}
	if flags&fieldFlagEditable != 0 && defaultLen > 0 {
		def, err := decodeScalarValue(c, fd.Type, int(defaultLen))
		if err != nil {
			return err
		}
		fd.Default = def
	}
	return nil
}

func decodeGeometryField(c *ByteCursor, fd *FieldDescriptor, tableHasZ, tableHasM bool) error {
	size, flags, err := readSizeFlags(c)
	if err != nil {
		return err
	}
	fd.Size, fd.RawFlagByte = int64(size), flags
	fd.Nullable = flags&fieldFlagNullable != 0
	fd.Required = flags&fieldFlagRequired != 0
	fd.Editable = flags&fieldFlagEditable != 0

	wktLen, err := c.ReadI16()
	if err != nil {
		return err
	}
	wkt, err := c.ReadUTF16(int(wktLen) / 2)
	if err != nil {
		return err
	}

	geomFlags, err := c.ReadU8()
	if err != nil {
		return err
	}
	hasM := geomFlags&0x02 != 0
	hasZ := geomFlags&0x04 != 0

	def := &GeometryDef{WKT: wkt, HasM: hasM, HasZ: hasZ}

	if def.XOrigin, err = c.ReadF64(); err != nil {
		return err
	}
	if def.YOrigin, err = c.ReadF64(); err != nil {
		return err
	}
	if def.XYScale, err = c.ReadF64(); err != nil {
		return err
	}
	if hasM {
		if def.MOrigin, err = c.ReadF64(); err != nil {
			return err
		}
		if def.MScale, err = c.ReadF64(); err != nil {
			return err
		}
	}
	if hasZ {
		if def.ZOrigin, err = c.ReadF64(); err != nil {
			return err
		}
		if def.ZScale, err = c.ReadF64(); err != nil {
			return err
		}
	}
	if def.XYTolerance, err = c.ReadF64(); err != nil {
		return err
	}
	if hasM {
		if def.MTolerance, err = c.ReadF64(); err != nil {
			return err
		}
	}
	if hasZ {
		if def.ZTolerance, err = c.ReadF64(); err != nil {
			return err
		}
	}

	ext := GeometryExtent{HasZ: tableHasZ, HasM: tableHasM}
	if ext.XMin, err = c.ReadF64(); err != nil {
		return err
	}
	if ext.YMin, err = c.ReadF64(); err != nil {
		return err
	}
	if ext.XMax, err = c.ReadF64(); err != nil {
		return err
	}
	if ext.YMax, err = c.ReadF64(); err != nil {
		return err
	}
	if tableHasZ {
		if ext.ZMin, err = c.ReadF64(); err != nil {
			return err
		}
		if ext.ZMax, err = c.ReadF64(); err != nil {
			return err
		}
	}
	if tableHasM {
		if ext.MMin, err = c.ReadF64(); err != nil {
			return err
		}
		if ext.MMax, err = c.ReadF64(); err != nil {
			return err
		}
	}
	def.Extent = ext

	reserved, err := c.ReadU8()
	if err != nil {
		return err
	}
	if reserved != 0 {
		return &FormatError{Reason: fmt.Sprintf("geometry field %q: reserved byte = %d, want 0", fd.Name, reserved)}
	}

	gridCount, err := c.ReadI32()
	if err != nil {
		return err
	}
	if gridCount < 1 || gridCount > 3 {
		return &FormatError{Reason: fmt.Sprintf("geometry field %q: grid_count = %d, want 1..3", fd.Name, gridCount)}
	}
	def.GridSizes = make([]float64, gridCount)
	for i := range def.GridSizes {
		if def.GridSizes[i], err = c.ReadF64(); err != nil {
			return err
		}
	}

	fd.Geometry = def
	return nil
}

func decodeRasterField(c *ByteCursor, fd *FieldDescriptor) error {
	size, flags, err := readSizeFlags(c)
	if err != nil {
		return err
	}
	fd.Size, fd.RawFlagByte = int64(size), flags
	applyFlags(fd, flags)

	colNameLen, err := c.ReadU8()
	if err != nil {
		return err
	}
	colName, err := c.ReadUTF16(int(colNameLen))
	if err != nil {
		return err
	}

	wktLen, err := c.ReadI16()
	if err != nil {
		return err
	}
	wkt, err := c.ReadUTF16(int(wktLen) / 2)
	if err != nil {
		return err
	}

	magic, err := c.ReadU8()
	if err != nil {
		return err
	}
	if magic == 5 || magic == 7 {
		// Z quantization doubles.
		if _, err := c.ReadF64(); err != nil {
			return err
		}
		if _, err := c.ReadF64(); err != nil {
			return err
		}
		if magic == 7 {
			// M quantization doubles as well.
			if _, err := c.ReadF64(); err != nil {
				return err
			}
			if _, err := c.ReadF64(); err != nil {
				return err
			}
		}
	}

	rasterType, err := c.ReadU8()
	if err != nil {
		return err
	}
	if rasterType > 2 {
		return &FormatError{Reason: fmt.Sprintf("raster field %q: raster_type = %d, want 0..2", fd.Name, rasterType)}
	}

	fd.Raster = &RasterDef{ColumnName: colName, WKT: wkt, RasterType: rasterType}
	return nil
}
