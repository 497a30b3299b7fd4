package fgdbfile

import (
	"fmt"
	"path/filepath"
)

// GeometryType is the table-level declared geometry kind, carried in the
// low byte of the fields-section flags word (spec §4.2.1).
type GeometryType uint8

const (
	GeometryNull GeometryType = iota
	GeometryPoint
	GeometryMultipoint
	GeometryPolyline
	GeometryPolygon
	GeometryMultipatch
)

func (g GeometryType) String() string {
	switch g {
	case GeometryNull:
		return "Null"
	case GeometryPoint:
		return "Point"
	case GeometryMultipoint:
		return "Multipoint"
	case GeometryPolyline:
		return "Polyline"
	case GeometryPolygon:
		return "Polygon"
	case GeometryMultipatch:
		return "Multipatch"
	default:
		return "Unknown"
	}
}

// TableFile is the decoded handle to one table's pair of mandatory files
// (spec §4.2). It owns both cursors and is not safe for concurrent use.
type TableFile struct {
	BaseName string
	Dir      string

	dataCursor  *ByteCursor
	indexCursor *ByteCursor

	indexVersion uint32 // 3 or 4, from the .gdbtablx header
	offsetSize   int
	num1kBlocks  int
	numRows      int64 // MaxObjectID: highest id ever issued, incl. tombstones
	blockMap     *BlockMap

	dataRowCount  int64 // live row count, from the .gdbtable header
	maxEntrySize  uint32
	fieldsVersion int32

	geometryType GeometryType
	hasZ, hasM   bool
	utf8Text     bool

	fields          []FieldDescriptor
	fieldIndexByLC  map[string]int
	objectIDField   int // index into fields, -1 if absent (should never be)
	geometryField   int // index into fields, -1 if none
}

// baseNameFor formats the canonical "aXXXXXXXX" base name for a table id
// (spec §6.1).
func baseNameFor(id int64) (string, error) {
	if id < 1 {
		return "", &InvalidArgumentError{Reason: fmt.Sprintf("table id must be >= 1, got %d", id)}
	}
	return fmt.Sprintf("a%08x", id), nil
}

// OpenTableFile opens the data and index files for baseName under dir and
// decodes both headers plus the field schema (spec §4.2.1).
func OpenTableFile(dir, baseName string) (tf *TableFile, err error) {
	if baseName == "" {
		return nil, &InvalidArgumentError{Reason: "empty table base name"}
	}

	dataPath := filepath.Join(dir, baseName+".gdbtable")
	indexPath := filepath.Join(dir, baseName+".gdbtablx")

	dc, err := OpenCursor(dataPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			dc.Close()
		}
	}()

	ic, err := OpenCursor(indexPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			ic.Close()
		}
	}()

	tf = &TableFile{
		BaseName:      baseName,
		Dir:           dir,
		dataCursor:    dc,
		indexCursor:   ic,
		geometryField: -1,
		objectIDField: -1,
	}

	if err = tf.readIndexHeader(); err != nil {
		return nil, err
	}
	if err = tf.readDataHeader(); err != nil {
		return nil, err
	}

	return tf, nil
}

// Close releases both underlying file handles. Failure to close one file
// does not prevent closing the other.
func (tf *TableFile) Close() error {
	var err error
	if e := tf.dataCursor.Close(); e != nil {
		err = e
	}
	if e := tf.indexCursor.Close(); e != nil && err == nil {
		err = e
	}
	return err
}

func (tf *TableFile) readIndexHeader() error {
	c := tf.indexCursor
	version, err := c.ReadU32()
	if err != nil {
		return err
	}
	tf.indexVersion = version

	switch version {
	case 3:
		num1kBlocks, err := c.ReadU32()
		if err != nil {
			return err
		}
		numRows, err := c.ReadU32()
		if err != nil {
			return err
		}
		offsetSize, err := c.ReadU32()
		if err != nil {
			return err
		}
		if offsetSize != 4 && offsetSize != 5 && offsetSize != 6 {
			return &FormatError{Reason: fmt.Sprintf("index header: illegal offset_size %d", offsetSize)}
		}
		tf.num1kBlocks = int(num1kBlocks)
		tf.numRows = int64(numRows)
		tf.offsetSize = int(offsetSize)

		if num1kBlocks > 0 {
			trailerOffset := int64(16) + int64(1024)*int64(num1kBlocks)*int64(offsetSize)
			if err := c.Seek(trailerOffset); err != nil {
				return err
			}
			bitmapWords, err := c.ReadU32()
			if err != nil {
				return err
			}
			if bitmapWords != 0 {
				bitsForBlockmap, err := c.ReadU32()
				if err != nil {
					return err
				}
				if _, err := c.ReadU32(); err != nil { // num_1k_blocks_bis
					return err
				}
				if _, err := c.ReadU32(); err != nil { // leading_non_zero_words (unused, §9)
					return err
				}
				nBytes := (int(bitsForBlockmap) + 7) / 8
				raw, err := c.ReadBytes(nBytes)
				if err != nil {
					return err
				}
				if PopCount(raw) != int(num1kBlocks) {
					return &FormatError{Reason: "block map set-bit count does not match num_1k_blocks"}
				}
				tf.blockMap = NewBlockMap(raw, int(num1kBlocks))
			}
		}
		return nil

	case 4:
		num1kBlocks, err := c.ReadU32()
		if err != nil {
			return err
		}
		if _, err := c.ReadU32(); err != nil { // unknown1, §9
			return err
		}
		offsetSize, err := c.ReadU32()
		if err != nil {
			return err
		}
		if offsetSize != 4 && offsetSize != 5 && offsetSize != 6 {
			return &FormatError{Reason: fmt.Sprintf("index header: illegal offset_size %d", offsetSize)}
		}
		tf.num1kBlocks = int(num1kBlocks)
		tf.offsetSize = int(offsetSize)

		if num1kBlocks > 0 {
			// The 16-byte header ends at offset_size; num_rows and any
			// sparse-section bytes live in the trailer, past the offset
			// array (spec §4.2.1).
			trailerOffset := int64(16) + int64(1024)*int64(num1kBlocks)*int64(offsetSize)
			if err := c.Seek(trailerOffset); err != nil {
				return err
			}
			sectionBytes, err := c.ReadU64()
			if err != nil {
				return err
			}
			if sectionBytes > 0 {
				return &UnsupportedFeatureError{Feature: "sparse v4 index layout"}
			}
			numRows, err := c.ReadU64()
			if err != nil {
				return err
			}
			tf.numRows = int64(numRows)

			bitmapWords, err := c.ReadU32()
			if err != nil {
				return err
			}
			if bitmapWords != 0 {
				bitsForBlockmap, err := c.ReadU32()
				if err != nil {
					return err
				}
				if _, err := c.ReadU32(); err != nil {
					return err
				}
				nBytes := (int(bitsForBlockmap) + 7) / 8
				raw, err := c.ReadBytes(nBytes)
				if err != nil {
					return err
				}
				if PopCount(raw) != int(num1kBlocks) {
					return &FormatError{Reason: "block map set-bit count does not match num_1k_blocks"}
				}
				tf.blockMap = NewBlockMap(raw, int(num1kBlocks))
			}
		}
		return nil

	default:
		return &FormatError{Reason: fmt.Sprintf("unrecognized index header version %d", version)}
	}
}

func (tf *TableFile) readDataHeader() error {
	c := tf.dataCursor

	switch tf.indexVersion {
	case 3:
		if _, err := c.ReadU32(); err != nil { // magic
			return err
		}
		rowCount, err := c.ReadU32()
		if err != nil {
			return err
		}
		tf.dataRowCount = int64(rowCount)
		maxEntrySize, err := c.ReadU32()
		if err != nil {
			return err
		}
		tf.maxEntrySize = maxEntrySize
		for i := 0; i < 3; i++ {
			if _, err := c.ReadU32(); err != nil {
				return err
			}
		}
	case 4:
		for i := 0; i < 2; i++ {
			if _, err := c.ReadU32(); err != nil {
				return err
			}
		}
		maxEntrySize, err := c.ReadU32()
		if err != nil {
			return err
		}
		tf.maxEntrySize = maxEntrySize
		if _, err := c.ReadU32(); err != nil {
			return err
		}
		rowCount, err := c.ReadU64()
		if err != nil {
			return err
		}
		tf.dataRowCount = int64(rowCount)
	default:
		return &FormatError{Reason: fmt.Sprintf("unrecognized data header version %d", tf.indexVersion)}
	}

	if _, err := c.ReadU64(); err != nil { // file_size, unused
		return err
	}
	fieldsOffset, err := c.ReadU64()
	if err != nil {
		return err
	}
	if err := c.Seek(int64(fieldsOffset)); err != nil {
		return err
	}

	return tf.readFieldsSection()
}

func (tf *TableFile) readFieldsSection() error {
	c := tf.dataCursor

	if _, err := c.ReadI32(); err != nil { // header_size, unused
		return err
	}
	version, err := c.ReadI32()
	if err != nil {
		return err
	}
	if version != 3 && version != 4 && version != 6 {
		return &FormatError{Reason: fmt.Sprintf("unrecognized fields-section version %d", version)}
	}
	tf.fieldsVersion = version

	flags, err := c.ReadU32()
	if err != nil {
		return err
	}
	tf.geometryType = GeometryType(flags & 0xff)
	tf.hasM = flags&(1<<30) != 0
	tf.hasZ = flags&(1<<31) != 0
	tf.utf8Text = flags&(1<<8) != 0

	fieldCount, err := c.ReadI16()
	if err != nil {
		return err
	}

	fields, err := decodeFieldDescriptors(c, int(fieldCount), tf.hasZ, tf.hasM)
	if err != nil {
		return err
	}
	tf.fields = fields

	tf.fieldIndexByLC = make(map[string]int, len(fields))
	for i, fd := range fields {
		tf.fieldIndexByLC[lower(fd.Name)] = i
		if fd.Type == FieldTypeObjectID {
			tf.objectIDField = i
		}
		if fd.Type == FieldTypeGeometry {
			tf.geometryField = i
		}
	}
	return nil
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Fields returns the ordered field schema.
func (tf *TableFile) Fields() []FieldDescriptor { return tf.fields }

// FieldIndex resolves a case-insensitive field name to its position in
// Fields(), or -1 if not found.
func (tf *TableFile) FieldIndex(name string) int {
	if i, ok := tf.fieldIndexByLC[lower(name)]; ok {
		return i
	}
	return -1
}

// RowCount returns the number of live (non-deleted) rows.
func (tf *TableFile) RowCount() int64 { return tf.dataRowCount }

// MaxOID returns the highest object id ever issued, including tombstones.
func (tf *TableFile) MaxOID() int64 { return tf.numRows }

// GeometryType returns the table-level declared geometry kind.
func (tf *TableFile) GeometryType() GeometryType { return tf.geometryType }

// HasZ reports the table-level Z flag.
func (tf *TableFile) HasZ() bool { return tf.hasZ }

// HasM reports the table-level M flag.
func (tf *TableFile) HasM() bool { return tf.hasM }

// Version returns the fields-section format version (3, 4, or 6).
func (tf *TableFile) Version() int32 { return tf.fieldsVersion }

// resolveOffset implements OID -> data-file-offset resolution (spec
// §4.2.3). It returns offset 0 (never an error) when the row is deleted
// or was never created.
func (tf *TableFile) resolveOffset(oid int64) (uint64, error) {
	if oid < 1 || oid > tf.numRows {
		return 0, nil
	}
	oid0 := oid - 1

	var seekTo int64
	if tf.blockMap != nil {
		block := int(oid0 / 1024)
		if !tf.blockMap.HasBlock(block) {
			return 0, nil
		}
		n := tf.blockMap.Rank(block)
		seekTo = 16 + int64(tf.offsetSize)*(int64(n)*1024+oid0%1024)
	} else {
		seekTo = 16 + int64(tf.offsetSize)*oid0
	}

	if err := tf.indexCursor.Seek(seekTo); err != nil {
		return 0, err
	}

	var offset uint64
	var err error
	switch tf.offsetSize {
	case 4:
		var v uint32
		v, err = tf.indexCursor.ReadU32()
		offset = uint64(v)
	case 5:
		offset, err = tf.indexCursor.ReadU40()
	case 6:
		offset, err = tf.indexCursor.ReadU48()
	default:
		return 0, &FormatError{Reason: fmt.Sprintf("illegal offset_size %d", tf.offsetSize)}
	}
	return offset, err
}

// ReadRow reads and decodes the row with the given 1-based OID. It
// returns (nil, nil) — the no-row sentinel — if the OID is out of range,
// tombstoned, or resolves to offset 0.
func (tf *TableFile) ReadRow(oid int64) (RowValues, error) {
	offset, err := tf.resolveOffset(oid)
	if err != nil {
		return nil, err
	}
	if offset == 0 {
		return nil, nil
	}

	if err := tf.dataCursor.Seek(int64(offset)); err != nil {
		return nil, err
	}
	rowSize, err := tf.dataCursor.ReadU32()
	if err != nil {
		return nil, err
	}

	return decodeRow(tf.dataCursor, tf.fields, oid, rowSize)
}

// ReadRowBytes reads the raw row blob that follows oid's row_size prefix
// into buf without decoding it, and returns its size. When buf is nil or
// shorter than the row, the bytes go into a scratch buffer that is not
// returned, so only the size reaches the caller. It returns 0 bytes read
// and no error for the no-row case.
func (tf *TableFile) ReadRowBytes(oid int64, buf []byte) (int, error) {
	offset, err := tf.resolveOffset(oid)
	if err != nil {
		return 0, err
	}
	if offset == 0 {
		return 0, nil
	}
	if err := tf.dataCursor.Seek(int64(offset)); err != nil {
		return 0, err
	}
	rowSize, err := tf.dataCursor.ReadU32()
	if err != nil {
		return 0, err
	}
	if buf == nil || len(buf) < int(rowSize) {
		buf = make([]byte, rowSize)
	}
	return tf.dataCursor.ReadBytesInto(buf[:rowSize])
}

// RowCursor walks live rows in increasing OID order, skipping tombstones.
type RowCursor struct {
	tf     *TableFile
	oid    int64
	values RowValues
}

// Rows returns a cursor over all rows from OID 1 to MaxOID.
func (tf *TableFile) Rows() *RowCursor {
	return &RowCursor{tf: tf, oid: 0}
}

// Step advances to the next live row, returning false once exhausted.
func (rc *RowCursor) Step() (bool, error) {
	for {
		rc.oid++
		if rc.oid > rc.tf.numRows {
			return false, nil
		}
		values, err := rc.tf.ReadRow(rc.oid)
		if err != nil {
			return false, err
		}
		if values == nil {
			continue
		}
		rc.values = values
		return true, nil
	}
}

// OID returns the current row's object id.
func (rc *RowCursor) OID() int64 { return rc.oid }

// Values returns the current row's decoded value vector.
func (rc *RowCursor) Values() RowValues { return rc.values }
