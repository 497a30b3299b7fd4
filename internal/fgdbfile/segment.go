package fgdbfile

import (
	"fmt"
	"math"
)

// SegmentKind identifies the curve type code of a segment modifier
// (spec §4.4.3).
type SegmentKind int32

const (
	SegmentCircularArc SegmentKind = 1
	SegmentCubicBezier SegmentKind = 4
	SegmentEllipticArc SegmentKind = 5
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentCircularArc:
		return "CircularArc"
	case SegmentCubicBezier:
		return "CubicBezier"
	case SegmentEllipticArc:
		return "EllipticArc"
	default:
		return "Unknown"
	}
}

// CircularArcFlags decodes the bit layout of a CircularArc modifier's
// flags word (spec §4.4.3).
type CircularArcFlags int32

func (f CircularArcFlags) Empty() bool            { return f&(1<<0) != 0 }
func (f CircularArcFlags) CounterClockwise() bool { return f&(1<<3) != 0 }
func (f CircularArcFlags) Minor() bool            { return f&(1<<4) != 0 }
func (f CircularArcFlags) Line() bool             { return f&(1<<5) != 0 }
func (f CircularArcFlags) Point() bool            { return f&(1<<6) != 0 }
func (f CircularArcFlags) InteriorPointDefined() bool { return f&(1<<7) != 0 }

// SegmentModifier promotes the straight segment between vertices
// SegmentIndex and SegmentIndex+1 into a curved segment.
type SegmentModifier struct {
	SegmentIndex int
	Kind         SegmentKind

	// CircularArc payload.
	D1, D2 float64
	Flags  CircularArcFlags

	// CubicBezier payload.
	CP1X, CP1Y, CP2X, CP2Y float64

	// EllipticArc payload (D1..D5 reused; Flags shared with CircularArc's
	// field since both are an i32 immediately following the doubles).
	D3, D4, D5 float64
}

// decodeSegmentModifiers reads numCurves consecutive segment modifier
// records (spec §4.4.3), validating that segment_index is strictly
// increasing and within [0, numPoints).
func decodeSegmentModifiers(br *byteReader, numCurves, numPoints int) ([]SegmentModifier, error) {
	out := make([]SegmentModifier, 0, numCurves)
	prevIndex := -1
	for i := 0; i < numCurves; i++ {
		idx, err := br.readI32()
		if err != nil {
			return nil, err
		}
		segIndex := int(idx)
		if segIndex <= prevIndex || segIndex >= numPoints {
			return nil, &FormatError{Reason: fmt.Sprintf("segment modifier %d: segment_index %d out of order or out of range [0,%d)", i, segIndex, numPoints)}
		}
		prevIndex = segIndex

		kindCode, err := br.readI32()
		if err != nil {
			return nil, err
		}

		mod := SegmentModifier{SegmentIndex: segIndex, Kind: SegmentKind(kindCode)}
		switch mod.Kind {
		case SegmentCircularArc:
			d1, err := br.readF64()
			if err != nil {
				return nil, err
			}
			d2, err := br.readF64()
			if err != nil {
				return nil, err
			}
			flags, err := br.readI32()
			if err != nil {
				return nil, err
			}
			mod.D1, mod.D2, mod.Flags = d1, d2, CircularArcFlags(flags)
		case SegmentCubicBezier:
			vals := make([]float64, 4)
			for j := range vals {
				v, err := br.readF64()
				if err != nil {
					return nil, err
				}
				vals[j] = v
			}
			mod.CP1X, mod.CP1Y, mod.CP2X, mod.CP2Y = vals[0], vals[1], vals[2], vals[3]
		case SegmentEllipticArc:
			vals := make([]float64, 5)
			for j := range vals {
				v, err := br.readF64()
				if err != nil {
					return nil, err
				}
				vals[j] = v
			}
			flags, err := br.readI32()
			if err != nil {
				return nil, err
			}
			mod.D1, mod.D2, mod.D3, mod.D4, mod.D5 = vals[0], vals[1], vals[2], vals[3], vals[4]
			mod.Flags = CircularArcFlags(flags)
		default:
			return nil, &FormatError{Reason: fmt.Sprintf("segment modifier %d: unknown curve_type %d", i, kindCode)}
		}

		out = append(out, mod)
	}
	return out, nil
}

// ArcLength computes the length of a CircularArc segment between two
// known endpoints, per spec §4.4.4. A Point-flagged arc (coincident
// SP/EP/CP) has zero length by convention.
func (m SegmentModifier) ArcLength(sx, sy, ex, ey float64) float64 {
	if m.Kind != SegmentCircularArc {
		return 0
	}
	if m.Flags.Point() {
		return 0
	}
	if m.Flags.Line() {
		dx, dy := ex-sx, ey-sy
		return math.Sqrt(dx*dx + dy*dy)
	}
	// D1, D2 carry the center coordinates in the common (non-line,
	// non-point) layout; radius is the distance from center to either
	// endpoint.
	dx, dy := sx-m.D1, sy-m.D2
	radius := math.Sqrt(dx*dx + dy*dy)
	chordDx, chordDy := ex-sx, ey-sy
	chord := math.Sqrt(chordDx*chordDx + chordDy*chordDy)
	if radius == 0 {
		return 0
	}
	halfAngle := math.Asin(clamp(chord/(2*radius), -1, 1))
	central := 2 * halfAngle
	if !m.Flags.Minor() {
		central = 2*math.Pi - central
	}
	return radius * central
}

// bezierLengthTolerance is the default recursive-subdivision cutoff
// from spec §4.4.4.
const bezierLengthTolerance = 1e-8

// BezierLength computes the length of a CubicBezier segment between two
// known endpoints by recursive subdivision, per spec §4.4.4: split at
// t=0.5 while the scaffold-minus-chord length exceeds tol, otherwise
// approximate as the average of chord and scaffold length.
func (m SegmentModifier) BezierLength(sx, sy, ex, ey float64) float64 {
	if m.Kind != SegmentCubicBezier {
		return 0
	}
	return bezierSubdivide(sx, sy, m.CP1X, m.CP1Y, m.CP2X, m.CP2Y, ex, ey, bezierLengthTolerance)
}

func bezierSubdivide(p0x, p0y, p1x, p1y, p2x, p2y, p3x, p3y, tol float64) float64 {
	chord := dist(p0x, p0y, p3x, p3y)
	scaffold := dist(p0x, p0y, p1x, p1y) + dist(p1x, p1y, p2x, p2y) + dist(p2x, p2y, p3x, p3y)
	if scaffold-chord <= tol {
		return 0.5 * (chord + scaffold)
	}

	// De Casteljau split at t=0.5.
	p01x, p01y := midpoint(p0x, p0y, p1x, p1y)
	p12x, p12y := midpoint(p1x, p1y, p2x, p2y)
	p23x, p23y := midpoint(p2x, p2y, p3x, p3y)
	p012x, p012y := midpoint(p01x, p01y, p12x, p12y)
	p123x, p123y := midpoint(p12x, p12y, p23x, p23y)
	midX, midY := midpoint(p012x, p012y, p123x, p123y)

	left := bezierSubdivide(p0x, p0y, p01x, p01y, p012x, p012y, midX, midY, tol)
	right := bezierSubdivide(midX, midY, p123x, p123y, p23x, p23y, p3x, p3y, tol)
	return left + right
}

func dist(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	return math.Sqrt(dx*dx + dy*dy)
}

func midpoint(x1, y1, x2, y2 float64) (float64, float64) {
	return (x1 + x2) / 2, (y1 + y2) / 2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
