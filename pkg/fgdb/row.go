package fgdb

import (
	"github.com/ujr/fgdb/internal/fgdbfile"
)

// ShapeBuffer is the decoded, queryable view of a Geometry field's
// value (spec §3, §4.4): raw coordinates plus Query(i). Its zero
// value is not meaningful; obtain one from Row.ShapeBuffer.
type ShapeBuffer = fgdbfile.ShapeBuffer

// ShapeType classifies a ShapeBuffer's basic geometry kind.
type ShapeType = fgdbfile.ShapeType

// Shape is the materialized, tagged-variant view of a decoded geometry
// (spec §3): PointShape/MultipointShape/PolylineShape/PolygonShape/
// BoxShape/NullShape collapsed into one struct with a Tag discriminant.
// Obtain one from ShapeBuffer.ToShape.
type Shape = fgdbfile.Shape

// ShapeTag discriminates a Shape's variant.
type ShapeTag = fgdbfile.ShapeTag

// PointShape is one decoded {x,y,z,m,id} coordinate tuple.
type PointShape = fgdbfile.PointShape

// Part is one contiguous run of points within a Polyline or Polygon
// Shape.
type Part = fgdbfile.Part

// BoxShape is a derived, never-persisted envelope.
type BoxShape = fgdbfile.BoxShape

// Row is one decoded record, indexed the same way as its table's
// field list.
type Row struct {
	table  *Table
	oid    int64
	values fgdbfile.RowValues
}

// OID returns the row's object id.
func (r *Row) OID() int64 { return r.oid }

// Value returns the decoded value at the given field position, or nil
// if index is out of range.
func (r *Row) Value(index int) any {
	if index < 0 || index >= len(r.values) {
		return nil
	}
	return r.values[index]
}

// ValueByName returns the decoded value of the named field, or nil if
// the table has no such field.
func (r *Row) ValueByName(name string) any {
	idx := r.table.FieldIndex(name)
	if idx < 0 {
		return nil
	}
	return r.Value(idx)
}

// ShapeBuffer returns the row's raw, queryable geometry value, or nil if
// the table has no Geometry field or the field's value is null.
func (r *Row) ShapeBuffer() *ShapeBuffer {
	for i, fd := range r.table.Fields() {
		if fd.Type == fgdbfile.FieldTypeGeometry {
			sb, _ := r.values[i].(*fgdbfile.ShapeBuffer)
			return sb
		}
	}
	return nil
}

// Shape returns the row's geometry value materialized into a tagged
// Shape tree (spec §6.3: ShapeBuffer.to_shape), or nil under the same
// conditions as ShapeBuffer.
func (r *Row) Shape() *Shape {
	sb := r.ShapeBuffer()
	if sb == nil {
		return nil
	}
	return sb.ToShape()
}

// Cursor walks a table's live rows in increasing OID order, skipping
// tombstones, holding the table open for its lifetime.
type Cursor struct {
	table *Table
	inner *fgdbfile.RowCursor
}

// Step advances to the next live row, returning false once exhausted.
func (c *Cursor) Step() (bool, error) {
	return c.inner.Step()
}

// Row returns the current row. Valid only after Step returns true.
func (c *Cursor) Row() *Row {
	return &Row{table: c.table, oid: c.inner.OID(), values: c.inner.Values()}
}
