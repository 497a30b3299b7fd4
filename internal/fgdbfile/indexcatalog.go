package fgdbfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// IndexKind classifies an entry in a table's .gdbindexes catalog relative
// to the field it references (spec §4.6).
type IndexKind int

const (
	AttributeIndex IndexKind = iota
	PrimaryIndex
	SpatialIndex
)

func (k IndexKind) String() string {
	switch k {
	case PrimaryIndex:
		return "PrimaryIndex"
	case SpatialIndex:
		return "SpatialIndex"
	default:
		return "AttributeIndex"
	}
}

// IndexEntry is one decoded record from a table's .gdbindexes file.
type IndexEntry struct {
	Name      string
	FieldName string
	Kind      IndexKind
}

// ReadIndexCatalog reads aXXXXXXXX.gdbindexes for the given table, if it
// exists. A missing file is not an error: it returns (nil, nil).
// fields is the table's own field schema, used to classify each entry's
// referenced field as ObjectID/Geometry/other (spec §4.6).
func ReadIndexCatalog(dir, baseName string, fields []FieldDescriptor) ([]IndexEntry, error) {
	path := filepath.Join(dir, baseName+".gdbindexes")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}

	c, err := OpenCursor(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	fieldTypeByName := make(map[string]FieldType, len(fields))
	for _, fd := range fields {
		fieldTypeByName[lower(fd.Name)] = fd.Type
	}

	num, err := c.ReadI32()
	if err != nil {
		return nil, err
	}

	entries := make([]IndexEntry, 0, num)
	for i := int32(0); i < num; i++ {
		entry, err := readOneIndexEntry(c, fieldTypeByName)
		if err != nil {
			return nil, fmt.Errorf("index entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func readOneIndexEntry(c *ByteCursor, fieldTypeByName map[string]FieldType) (IndexEntry, error) {
	var e IndexEntry

	nameLen, err := c.ReadI32()
	if err != nil {
		return e, err
	}
	e.Name, err = c.ReadUTF16(int(nameLen))
	if err != nil {
		return e, err
	}

	if _, err := c.ReadI16(); err != nil { // _h1
		return e, err
	}
	if _, err := c.ReadI32(); err != nil { // _h2
		return e, err
	}
	if _, err := c.ReadI16(); err != nil { // _h3
		return e, err
	}
	if _, err := c.ReadI32(); err != nil { // _h4
		return e, err
	}

	fieldLen, err := c.ReadI32()
	if err != nil {
		return e, err
	}
	e.FieldName, err = c.ReadUTF16(int(fieldLen))
	if err != nil {
		return e, err
	}

	if _, err := c.ReadI16(); err != nil { // _h5
		return e, err
	}

	t, known := fieldTypeByName[lower(e.FieldName)]
	switch {
	case known && t == FieldTypeObjectID:
		e.Kind = PrimaryIndex
	case known && t == FieldTypeGeometry:
		e.Kind = SpatialIndex
	default:
		e.Kind = AttributeIndex
	}
	// A SQL-like expression (not a bare identifier) never matches a
	// declared field and falls into AttributeIndex by construction.
	return e, nil
}
