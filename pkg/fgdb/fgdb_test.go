package fgdb

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func utf16LE(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = binary.LittleEndian.AppendUint16(out, uint16(r))
	}
	return out
}

// fieldBytesObjectID emits the OBJECTID field descriptor record.
func fieldBytesObjectID() []byte {
	var b []byte
	n := utf16LE("OBJECTID")
	b = append(b, byte(len(n)/2))
	b = append(b, n...)
	b = append(b, byte(len(n)/2))
	b = append(b, n...)
	b = append(b, 6, 4, 0x02)
	return b
}

// fieldBytesString emits a non-nullable String field descriptor record
// with no default value.
func fieldBytesString(name string) []byte {
	var b []byte
	n := utf16LE(name)
	b = append(b, byte(len(n)/2))
	b = append(b, n...)
	b = append(b, byte(len(n)/2))
	b = append(b, n...)
	b = append(b, 4)
	b = binary.LittleEndian.AppendUint32(b, 0) // size, unused
	b = append(b, 0x00)                        // flags: not nullable, not editable
	b = append(b, 0x00)                        // default_len var_uint = 0
	return b
}

// fieldBytesInt32 emits a non-nullable Int32 field descriptor record
// with no default value.
func fieldBytesInt32(name string) []byte {
	var b []byte
	n := utf16LE(name)
	b = append(b, byte(len(n)/2))
	b = append(b, n...)
	b = append(b, byte(len(n)/2))
	b = append(b, n...)
	b = append(b, 1, 4, 0x00, 0x00)
	return b
}

// buildTable writes a minimal v3 .gdbtable/.gdbtablx pair whose schema is
// [OBJECTID, Name string, Format int32] (all non-nullable), with one row
// per (name, format) pair.
func buildTable(t *testing.T, dir, baseName string, rows []struct {
	Name   string
	Format int32
}) {
	t.Helper()

	const fieldsOffset = 40

	var fields []byte
	fields = binary.LittleEndian.AppendUint32(fields, 0)
	fields = binary.LittleEndian.AppendUint32(fields, 3)
	fields = binary.LittleEndian.AppendUint32(fields, 0x100)
	fields = binary.LittleEndian.AppendUint16(fields, 3)
	fields = append(fields, fieldBytesObjectID()...)
	fields = append(fields, fieldBytesString("Name")...)
	fields = append(fields, fieldBytesInt32("Format")...)

	var rowBlobs [][]byte
	for _, r := range rows {
		var blob []byte
		nameBytes := []byte(r.Name)
		blob = append(blob, byte(len(nameBytes))) // var_uint, assumed < 128
		blob = append(blob, nameBytes...)
		blob = binary.LittleEndian.AppendUint32(blob, uint32(r.Format))
		rowBlobs = append(rowBlobs, blob)
	}

	offset := fieldsOffset + len(fields)
	rowOffsets := make([]int, len(rowBlobs))
	var rowSection []byte
	for i, blob := range rowBlobs {
		rowOffsets[i] = offset
		rowSection = binary.LittleEndian.AppendUint32(rowSection, uint32(len(blob)))
		rowSection = append(rowSection, blob...)
		offset += 4 + len(blob)
	}

	var dataFile []byte
	dataFile = binary.LittleEndian.AppendUint32(dataFile, 0x47444254)
	dataFile = binary.LittleEndian.AppendUint32(dataFile, uint32(len(rows)))
	dataFile = binary.LittleEndian.AppendUint32(dataFile, 64)
	dataFile = binary.LittleEndian.AppendUint32(dataFile, 0)
	dataFile = binary.LittleEndian.AppendUint32(dataFile, 0)
	dataFile = binary.LittleEndian.AppendUint32(dataFile, 0)
	dataFile = binary.LittleEndian.AppendUint64(dataFile, uint64(offset))
	dataFile = binary.LittleEndian.AppendUint64(dataFile, uint64(fieldsOffset))
	dataFile = append(dataFile, fields...)
	dataFile = append(dataFile, rowSection...)

	require.NoError(t, os.WriteFile(filepath.Join(dir, baseName+".gdbtable"), dataFile, 0o644))

	const offsetSize = 4
	offsetArrayLen := 1024 * offsetSize
	indexFile := make([]byte, 16+offsetArrayLen+16+1)
	binary.LittleEndian.PutUint32(indexFile[0:4], 3)
	binary.LittleEndian.PutUint32(indexFile[4:8], 1)
	binary.LittleEndian.PutUint32(indexFile[8:12], uint32(len(rows)))
	binary.LittleEndian.PutUint32(indexFile[12:16], offsetSize)
	for i, ro := range rowOffsets {
		binary.LittleEndian.PutUint32(indexFile[16+i*4:20+i*4], uint32(ro))
	}
	trailerStart := 16 + offsetArrayLen
	binary.LittleEndian.PutUint32(indexFile[trailerStart:trailerStart+4], 1)
	binary.LittleEndian.PutUint32(indexFile[trailerStart+4:trailerStart+8], 1)
	binary.LittleEndian.PutUint32(indexFile[trailerStart+8:trailerStart+12], 1)
	binary.LittleEndian.PutUint32(indexFile[trailerStart+12:trailerStart+16], 0)
	indexFile[trailerStart+16] = 0x01

	require.NoError(t, os.WriteFile(filepath.Join(dir, baseName+".gdbtablx"), indexFile, 0o644))
}

func buildFixtureGeodatabase(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	buildTable(t, dir, "a00000001", []struct {
		Name   string
		Format int32
	}{
		{"GDB_SystemCatalog", 0},
		{"GDB_DBTune", 0},
		{"Cities", 0},
	})
	buildTable(t, dir, "a00000003", []struct {
		Name   string
		Format int32
	}{
		{"Alice", 1},
		{"Bob", 2},
	})

	return dir
}

func TestOpenGeodatabaseCatalog(t *testing.T) {
	dir := buildFixtureGeodatabase(t)

	gdb, err := OpenGeodatabase(dir)
	require.NoError(t, err)
	defer gdb.Close()

	catalog := gdb.Catalog()
	require.Len(t, catalog, 3)
	require.Equal(t, "GDB_SystemCatalog", catalog[0].Name)
	require.True(t, catalog[0].IsSystemTable())
	require.True(t, catalog[1].IsSystemTable())
	require.False(t, catalog[2].IsSystemTable())
}

func TestOpenTableByNameAndReadRows(t *testing.T) {
	dir := buildFixtureGeodatabase(t)

	gdb, err := OpenGeodatabase(dir)
	require.NoError(t, err)
	defer gdb.Close()

	table, err := gdb.OpenTableByName("Cities")
	require.NoError(t, err)
	require.Equal(t, int64(2), table.MaxOID())

	row, err := table.ReadRow(1)
	require.NoError(t, err)
	require.Equal(t, "Alice", row.ValueByName("Name"))

	_, err = gdb.OpenTableByName("nonexistent")
	require.Error(t, err)
}

func TestTableRowCursorScansInOIDOrder(t *testing.T) {
	dir := buildFixtureGeodatabase(t)

	gdb, err := OpenGeodatabase(dir)
	require.NoError(t, err)
	defer gdb.Close()

	table, err := gdb.OpenTable(3)
	require.NoError(t, err)

	cursor, err := table.Rows(DefaultReadOptions())
	require.NoError(t, err)

	var names []string
	for {
		ok, err := cursor.Step()
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, cursor.Row().ValueByName("Name").(string))
	}
	require.Equal(t, []string{"Alice", "Bob"}, names)
}

func TestRowsRejectsWhereAndExtent(t *testing.T) {
	dir := buildFixtureGeodatabase(t)

	gdb, err := OpenGeodatabase(dir)
	require.NoError(t, err)
	defer gdb.Close()

	table, err := gdb.OpenTable(3)
	require.NoError(t, err)

	_, err = table.Rows(ReadOptions{Where: "Name = 'Alice'"})
	require.Error(t, err)

	_, err = table.Rows(ReadOptions{Extent: &Bounds{XMax: 1, YMax: 1}})
	require.Error(t, err)
}

func TestRowShapeNilWithoutGeometryField(t *testing.T) {
	dir := buildFixtureGeodatabase(t)

	gdb, err := OpenGeodatabase(dir)
	require.NoError(t, err)
	defer gdb.Close()

	table, err := gdb.OpenTable(3)
	require.NoError(t, err)

	row, err := table.ReadRow(1)
	require.NoError(t, err)
	require.Nil(t, row.Shape())
	require.Nil(t, row.ShapeBuffer())
}

func TestBoundsIntersects(t *testing.T) {
	a := Bounds{XMin: 0, YMin: 0, XMax: 10, YMax: 10}
	b := Bounds{XMin: 5, YMin: 5, XMax: 15, YMax: 15}
	c := Bounds{XMin: 20, YMin: 20, XMax: 30, YMax: 30}

	require.True(t, a.Intersects(b))
	require.False(t, a.Intersects(c))
	require.True(t, a.Contains(5, 5))
	require.False(t, a.Contains(50, 50))
}
