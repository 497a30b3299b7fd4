package fgdb

import "math"

// Bounds is a 2D axis-aligned bounding box in the geodatabase's spatial
// reference.
type Bounds struct {
	XMin, YMin, XMax, YMax float64
}

// Intersects reports whether b and other share any area, including
// touching edges.
func (b Bounds) Intersects(other Bounds) bool {
	return b.XMin <= other.XMax && b.XMax >= other.XMin &&
		b.YMin <= other.YMax && b.YMax >= other.YMin
}

// Contains reports whether the point (x,y) lies within b, inclusive of
// its edges.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.XMin && x <= b.XMax && y >= b.YMin && y <= b.YMax
}

// Union returns the smallest bounds containing both b and other.
func (b Bounds) Union(other Bounds) Bounds {
	return Bounds{
		XMin: math.Min(b.XMin, other.XMin),
		YMin: math.Min(b.YMin, other.YMin),
		XMax: math.Max(b.XMax, other.XMax),
		YMax: math.Max(b.YMax, other.YMax),
	}
}

// IsEmpty reports whether b has not been set to any real extent.
func (b Bounds) IsEmpty() bool {
	return b.XMin == 0 && b.YMin == 0 && b.XMax == 0 && b.YMax == 0
}
