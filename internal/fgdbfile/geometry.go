package fgdbfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ShapeType is the basic geometry kind decoded from the low byte of a
// shape buffer's type code (spec §4.4).
type ShapeType int

const (
	ShapeNull ShapeType = iota
	ShapePoint
	ShapeMultipoint
	ShapePolyline
	ShapePolygon
	ShapeMultipatch
)

func (t ShapeType) String() string {
	switch t {
	case ShapeNull:
		return "Null"
	case ShapePoint:
		return "Point"
	case ShapeMultipoint:
		return "Multipoint"
	case ShapePolyline:
		return "Polyline"
	case ShapePolygon:
		return "Polygon"
	case ShapeMultipatch:
		return "Multipatch"
	default:
		return "Unknown"
	}
}

// basicTypeKind classifies the low byte of a shape type code per the
// table in spec §4.4.
func basicTypeKind(code uint32) (ShapeType, error) {
	low := code & 0xff
	switch low {
	case 0:
		return ShapeNull, nil
	case 1, 9, 11, 21, 52:
		return ShapePoint, nil
	case 3, 10, 13, 23, 50:
		return ShapePolyline, nil
	case 5, 15, 19, 25, 51:
		return ShapePolygon, nil
	case 8, 18, 20, 28, 53:
		return ShapeMultipoint, nil
	case 31, 32, 54:
		return ShapeMultipatch, nil
	default:
		return ShapeNull, &FormatError{Reason: fmt.Sprintf("unknown shape type code %d", low)}
	}
}

// ShapeBuffer is the unparsed-but-queryable decode of a geometry blob
// (spec §3). Coordinates are retained in quantized integer space and
// converted to doubles on query.
type ShapeBuffer struct {
	Type ShapeType

	HasZ, HasM, HasID, MayHaveCurves bool
	IsEmpty                          bool

	NumPoints, NumParts, NumCurves int

	PartStart []int32 // length NumParts+1, [k] start, [k+1] is next part's start or NumPoints

	xs, ys     []float64
	zs, ms     []float64
	ids        []int32
	curves     []SegmentModifier
	Envelope   [4]float64 // xmin,ymin,xmax,ymax

	def *GeometryDef
}

// Query returns the decoded coordinate tuple for point index i.
func (s *ShapeBuffer) Query(i int) (x, y, z, m float64, id int32) {
	if s.IsEmpty && s.NumPoints == 1 {
		return math.NaN(), math.NaN(), 0, math.NaN(), 0
	}
	x, y = s.xs[i], s.ys[i]
	if s.HasZ {
		z = s.zs[i]
	}
	m = math.NaN()
	if s.HasM {
		m = s.ms[i]
	}
	if s.HasID {
		id = s.ids[i]
	}
	return
}

// Curves returns the decoded segment modifiers, ordered by strictly
// increasing SegmentIndex.
func (s *ShapeBuffer) Curves() []SegmentModifier { return s.curves }

// ShapeTag is the discriminant of a materialized Shape (spec §3).
type ShapeTag int

const (
	ShapeTagNull ShapeTag = iota
	ShapeTagPoint
	ShapeTagMultipoint
	ShapeTagPolyline
	ShapeTagPolygon
	ShapeTagBox
)

func (t ShapeTag) String() string {
	switch t {
	case ShapeTagNull:
		return "Null"
	case ShapeTagPoint:
		return "Point"
	case ShapeTagMultipoint:
		return "Multipoint"
	case ShapeTagPolyline:
		return "Polyline"
	case ShapeTagPolygon:
		return "Polygon"
	case ShapeTagBox:
		return "Box"
	default:
		return "Unknown"
	}
}

// PointShape is one decoded {x,y,z,m,id} coordinate tuple (spec §3).
type PointShape struct {
	X, Y, Z, M float64
	ID         int32
}

// Part is one contiguous run of points within a Polyline or Polygon
// Shape, as named by PartStartIndices (spec §8 scenario 4).
type Part struct {
	Points []PointShape
}

// BoxShape is a derived envelope, never itself persisted in a geometry
// blob (spec §3).
type BoxShape struct {
	XMin, YMin, XMax, YMax float64
	HasZ                   bool
	ZMin, ZMax             float64
	HasM                   bool
	MMin, MMax             float64
}

// Shape is the materialized, tagged-variant view of a decoded geometry
// (spec §3): PointShape/MultipointShape/PolylineShape/PolygonShape/
// BoxShape/NullShape collapsed into one struct with a Tag discriminant,
// in the style of the teacher's own Geometry/GeometryType pair. Callers
// dispatch on Tag; only the fields documented for that tag are
// meaningful.
type Shape struct {
	Tag ShapeTag

	Point  PointShape   // meaningful for ShapeTagPoint
	Points []PointShape // meaningful for ShapeTagMultipoint, ShapeTagPolyline, ShapeTagPolygon

	PartStartIndices []int32 // ShapeTagPolyline, ShapeTagPolygon
	Curves           []SegmentModifier

	Box BoxShape // meaningful for ShapeTagBox
}

// Parts splits a Polyline or Polygon Shape's Points by PartStartIndices.
// A Point or Multipoint shape has no parts of its own and is returned as
// a single part holding all of its points — the "parts is self"
// convenience view described in spec §9, not a copy of shared state.
func (s *Shape) Parts() []Part {
	switch s.Tag {
	case ShapeTagPolyline, ShapeTagPolygon:
		if len(s.PartStartIndices) < 2 {
			return nil
		}
		parts := make([]Part, 0, len(s.PartStartIndices)-1)
		for i := 0; i+1 < len(s.PartStartIndices); i++ {
			start, end := s.PartStartIndices[i], s.PartStartIndices[i+1]
			parts = append(parts, Part{Points: s.Points[start:end]})
		}
		return parts
	case ShapeTagPoint:
		return []Part{{Points: []PointShape{s.Point}}}
	case ShapeTagMultipoint:
		return []Part{{Points: s.Points}}
	default:
		return nil
	}
}

// ToShape materializes the buffer into a tagged Shape tree (spec §3,
// §6.3). An empty buffer of any kind — including the opaque Multipatch
// case — collapses to a Shape tagged ShapeTagNull (a new value per call).
func (s *ShapeBuffer) ToShape() *Shape {
	if s.IsEmpty {
		return &Shape{Tag: ShapeTagNull}
	}

	switch s.Type {
	case ShapeNull:
		return &Shape{Tag: ShapeTagNull}

	case ShapePoint:
		x, y, z, m, id := s.Query(0)
		return &Shape{Tag: ShapeTagPoint, Point: PointShape{X: x, Y: y, Z: z, M: m, ID: id}}

	case ShapeMultipoint:
		return &Shape{Tag: ShapeTagMultipoint, Points: s.points()}

	case ShapePolyline:
		return &Shape{
			Tag:              ShapeTagPolyline,
			Points:           s.points(),
			PartStartIndices: append([]int32(nil), s.PartStart...),
			Curves:           s.curves,
		}

	case ShapePolygon:
		return &Shape{
			Tag:              ShapeTagPolygon,
			Points:           s.points(),
			PartStartIndices: append([]int32(nil), s.PartStart...),
			Curves:           s.curves,
		}

	default:
		return &Shape{Tag: ShapeTagNull}
	}
}

func (s *ShapeBuffer) points() []PointShape {
	out := make([]PointShape, s.NumPoints)
	for i := range out {
		x, y, z, m, id := s.Query(i)
		out[i] = PointShape{X: x, Y: y, Z: z, M: m, ID: id}
	}
	return out
}

// ToShape materializes a declared geometry extent as a derived BoxShape
// (spec §3: "not persisted; derived").
func (e GeometryExtent) ToShape() *Shape {
	return &Shape{
		Tag: ShapeTagBox,
		Box: BoxShape{
			XMin: e.XMin, YMin: e.YMin, XMax: e.XMax, YMax: e.YMax,
			HasZ: e.HasZ, ZMin: e.ZMin, ZMax: e.ZMax,
			HasM: e.HasM, MMin: e.MMin, MMax: e.MMax,
		},
	}
}

// DecodeShapeBuffer decodes one Extended Shape Buffer blob (spec §4.4).
// def may be nil for Null, Point and Multipatch shapes and for empty
// shapes; a non-empty multipoint, polyline or polygon needs the field's
// quantization parameters to convert integer deltas to real coordinates.
func DecodeShapeBuffer(blob []byte, def *GeometryDef) (*ShapeBuffer, error) {
	if len(blob) < 4 {
		return nil, &FormatError{Reason: "geometry blob shorter than 4 bytes"}
	}
	code := binary.LittleEndian.Uint32(blob[0:4])
	kind, err := basicTypeKind(code)
	if err != nil {
		return nil, err
	}

	sb := &ShapeBuffer{
		Type:          kind,
		HasZ:          code&(1<<31) != 0,
		HasM:          code&(1<<30) != 0,
		MayHaveCurves: code&(1<<29) != 0,
		HasID:         code&(1<<28) != 0,
		def:           def,
	}

	if kind == ShapeNull {
		return sb, nil
	}

	br := &byteReader{b: blob, pos: 4}

	switch kind {
	case ShapePoint:
		return decodePointBuffer(sb, br, def)
	case ShapeMultipatch:
		// Opaque per spec §1 Non-goals: recognized, not decoded further.
		sb.IsEmpty = true
		return sb, nil
	default:
		return decodeMultiPartBuffer(sb, br, def, kind)
	}
}

// byteReader is a tiny in-memory cursor over an already-read blob; the
// geometry decoder works on a fully-buffered slice (the row decoder has
// already read the var_uint-prefixed blob into memory) rather than the
// file-backed ByteCursor. Its readVarUint applies the same LEB128 rules
// as ByteCursor.ReadVarUint, and it shares ZigZagDecode.
type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) remaining() int { return len(r.b) - r.pos }

func (r *byteReader) readBytes(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, &FormatError{Reason: "geometry blob truncated"}
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) readU32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) readI32() (int32, error) {
	v, err := r.readU32()
	return int32(v), err
}

func (r *byteReader) readF64() (float64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (r *byteReader) readVarUint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		if shift >= 64 {
			return 0, &FormatError{Reason: "variable-length integer too long"}
		}
		if r.remaining() < 1 {
			return 0, &FormatError{Reason: "geometry blob truncated mid variable-length integer"}
		}
		b := r.b[r.pos]
		r.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

func decodePointBuffer(sb *ShapeBuffer, br *byteReader, def *GeometryDef) (*ShapeBuffer, error) {
	x, err := br.readF64()
	if err != nil {
		return nil, err
	}
	y, err := br.readF64()
	if err != nil {
		return nil, err
	}

	if math.IsNaN(x) {
		sb.IsEmpty = true
		sb.NumPoints = 1
		sb.NumParts = 0
		sb.xs, sb.ys = []float64{math.NaN()}, []float64{math.NaN()}
		return sb, nil
	}

	sb.NumPoints = 1
	sb.xs, sb.ys = []float64{x}, []float64{y}

	if sb.HasZ {
		z, err := br.readF64()
		if err != nil {
			return nil, err
		}
		sb.zs = []float64{z}
	}
	if sb.HasM {
		m, err := br.readF64()
		if err != nil {
			return nil, err
		}
		sb.ms = []float64{m}
	} else {
		sb.ms = []float64{math.NaN()}
	}
	if sb.HasID {
		id, err := br.readI32()
		if err != nil {
			return nil, err
		}
		sb.ids = []int32{id}
	}
	_ = def
	return sb, nil
}

func decodeMultiPartBuffer(sb *ShapeBuffer, br *byteReader, def *GeometryDef, kind ShapeType) (*ShapeBuffer, error) {
	for i := 0; i < 4; i++ {
		v, err := br.readF64()
		if err != nil {
			return nil, err
		}
		sb.Envelope[i] = v
	}
	envelopeEmpty := math.IsNaN(sb.Envelope[0])

	numParts := 1
	if kind == ShapePolyline || kind == ShapePolygon {
		n, err := br.readI32()
		if err != nil {
			return nil, err
		}
		numParts = int(n)
	}

	numPoints, err := br.readI32()
	if err != nil {
		return nil, err
	}
	sb.NumPoints = int(numPoints)

	if kind == ShapeMultipoint {
		sb.NumParts = 0
	} else {
		sb.NumParts = numParts
	}

	if envelopeEmpty || sb.NumPoints == 0 {
		sb.IsEmpty = true
		if kind != ShapeMultipoint {
			sb.NumParts = 0
		}
		sb.xs, sb.ys = nil, nil
		return sb, nil
	}

	if kind == ShapePolyline || kind == ShapePolygon {
		starts := make([]int32, numParts+1)
		for i := 0; i < numParts; i++ {
			v, err := br.readI32()
			if err != nil {
				return nil, err
			}
			starts[i] = v
		}
		starts[numParts] = numPoints
		sb.PartStart = starts
	}

	if def == nil {
		return nil, &InvalidArgumentError{Reason: "non-null geometry requires a GeometryDef for quantization"}
	}

	sb.xs = make([]float64, sb.NumPoints)
	sb.ys = make([]float64, sb.NumPoints)
	var ix, iy int64
	for i := 0; i < sb.NumPoints; i++ {
		dx, err := br.readVarUint()
		if err != nil {
			return nil, err
		}
		dy, err := br.readVarUint()
		if err != nil {
			return nil, err
		}
		ix += ZigZagDecode(dx)
		iy += ZigZagDecode(dy)
		sb.xs[i] = def.XOrigin + float64(ix)/def.XYScale
		sb.ys[i] = def.YOrigin + float64(iy)/def.XYScale
	}

	if sb.HasZ {
		if _, err := br.readF64(); err != nil { // zmin
			return nil, err
		}
		if _, err := br.readF64(); err != nil { // zmax
			return nil, err
		}
		sb.zs = make([]float64, sb.NumPoints)
		var iz int64
		for i := 0; i < sb.NumPoints; i++ {
			dz, err := br.readVarUint()
			if err != nil {
				return nil, err
			}
			iz += ZigZagDecode(dz)
			sb.zs[i] = def.ZOrigin + float64(iz)/def.ZScale
		}
	}

	if sb.HasM {
		if _, err := br.readF64(); err != nil { // mmin
			return nil, err
		}
		if _, err := br.readF64(); err != nil { // mmax
			return nil, err
		}
		sb.ms = make([]float64, sb.NumPoints)
		var im int64
		for i := 0; i < sb.NumPoints; i++ {
			dm, err := br.readVarUint()
			if err != nil {
				return nil, err
			}
			im += ZigZagDecode(dm)
			sb.ms[i] = def.MOrigin + float64(im)/def.MScale
		}
	}

	if sb.MayHaveCurves {
		numCurves, err := br.readI32()
		if err != nil {
			return nil, err
		}
		sb.NumCurves = int(numCurves)
		if sb.NumCurves > 0 {
			curves, err := decodeSegmentModifiers(br, sb.NumCurves, sb.NumPoints)
			if err != nil {
				return nil, err
			}
			sb.curves = curves
		}
	}

	if sb.HasID {
		sb.ids = make([]int32, sb.NumPoints)
		for i := 0; i < sb.NumPoints; i++ {
			id, err := br.readI32()
			if err != nil {
				return nil, err
			}
			sb.ids[i] = id
		}
	}

	return sb, nil
}
