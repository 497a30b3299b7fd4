package fgdb

import (
	"github.com/ujr/fgdb/internal/fgdbfile"
)

// Field is a table's per-field metadata record.
type Field = fgdbfile.FieldDescriptor

// FieldType is the enum of field value encodings (spec §3).
type FieldType = fgdbfile.FieldType

// GeometryType is a table's declared geometry kind.
type GeometryType = fgdbfile.GeometryType

// IndexEntry is one decoded record from a table's index catalog.
type IndexEntry = fgdbfile.IndexEntry

// Table is an open handle to one table's pair of mandatory files.
//
// Obtain a Table with Geodatabase.OpenTable or OpenTableByName; it is
// owned by the Geodatabase that opened it and closed along with it.
type Table struct {
	tf      *fgdbfile.TableFile
	indexes []IndexEntry
}

func newTable(tf *fgdbfile.TableFile) *Table {
	return &Table{tf: tf}
}

// Close releases the table's two underlying file handles.
func (t *Table) Close() error { return t.tf.Close() }

// Fields returns the ordered field schema.
func (t *Table) Fields() []Field { return t.tf.Fields() }

// FieldIndex resolves a case-insensitive field name to its position in
// Fields(), or -1 if not found.
func (t *Table) FieldIndex(name string) int { return t.tf.FieldIndex(name) }

// Indexes returns the table's declared index catalog (.gdbindexes), read
// lazily on first call. A table with no such file has an empty list.
func (t *Table) Indexes() ([]IndexEntry, error) {
	if t.indexes != nil {
		return t.indexes, nil
	}
	entries, err := fgdbfile.ReadIndexCatalog(t.tf.Dir, t.tf.BaseName, t.tf.Fields())
	if err != nil {
		return nil, err
	}
	t.indexes = entries
	return entries, nil
}

// RowCount returns the number of live (non-deleted) rows.
func (t *Table) RowCount() int64 { return t.tf.RowCount() }

// MaxOID returns the highest object id ever issued, including tombstones.
func (t *Table) MaxOID() int64 { return t.tf.MaxOID() }

// GeometryType returns the table-level declared geometry kind.
func (t *Table) GeometryType() GeometryType { return t.tf.GeometryType() }

// HasZ reports the table-level Z flag.
func (t *Table) HasZ() bool { return t.tf.HasZ() }

// HasM reports the table-level M flag.
func (t *Table) HasM() bool { return t.tf.HasM() }

// Version returns the fields-section format version (3, 4, or 6).
func (t *Table) Version() int32 { return t.tf.Version() }

// ReadRow reads and decodes the row with the given 1-based OID. It
// returns (nil, nil) if the OID is out of range, tombstoned, or resolves
// to a deleted row.
func (t *Table) ReadRow(oid int64) (*Row, error) {
	values, err := t.tf.ReadRow(oid)
	if err != nil {
		return nil, err
	}
	if values == nil {
		return nil, nil
	}
	return &Row{table: t, oid: oid, values: values}, nil
}

// ReadRowBytes reads the raw row blob that follows oid's row_size prefix
// into buf without decoding it, and returns its size. When buf is nil or
// shorter than the row, only the size reaches the caller. It returns 0
// and no error for the no-row case.
func (t *Table) ReadRowBytes(oid int64, buf []byte) (int, error) {
	return t.tf.ReadRowBytes(oid, buf)
}

// Rows returns a cursor that scans live rows in increasing OID order.
// opts.Where and opts.Extent must be left zero; non-zero values return
// UnsupportedFeature, since no predicate or index evaluation exists.
func (t *Table) Rows(opts ReadOptions) (*Cursor, error) {
	if opts.Where != "" || opts.Extent != nil {
		return nil, &fgdbfile.UnsupportedFeatureError{Feature: "Where/Extent predicate evaluation"}
	}
	return &Cursor{table: t, inner: t.tf.Rows()}, nil
}
