package fgdb

import (
	"github.com/dhconnelly/rtreego"
)

// tableExtentEntry is one geodatabase table's declared geometry extent,
// indexed for fast spatial filtering over the catalog (not persisted:
// derived from each Geometry field's GeometryDef.Extent at index-build
// time, spec §3).
type tableExtentEntry struct {
	ID     int64
	Name   string
	Format int64
	Extent Bounds
}

// Bounds implements rtreego.Spatial.
func (e tableExtentEntry) Bounds() rtreego.Rect {
	point := rtreego.Point{e.Extent.XMin, e.Extent.YMin}
	lengths := []float64{
		e.Extent.XMax - e.Extent.XMin,
		e.Extent.YMax - e.Extent.YMin,
	}
	if lengths[0] <= 0 {
		lengths[0] = 1e-9
	}
	if lengths[1] <= 0 {
		lengths[1] = 1e-9
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}

// ExtentIndex answers "which tables cover this region" over a
// geodatabase's catalog without opening every table to inspect its
// geometry field. Build once with BuildExtentIndex; it reflects the
// catalog at build time and is not updated by later OpenTable calls.
type ExtentIndex struct {
	entries []tableExtentEntry
	rtree   *rtreego.Rtree
}

// BuildExtentIndex opens every user table with a Geometry field
// (skipping system tables) and indexes its declared extent.
func BuildExtentIndex(g *Geodatabase) (*ExtentIndex, error) {
	tree := rtreego.NewTree(2, 5, 10)
	idx := &ExtentIndex{rtree: tree}

	for _, entry := range g.catalog {
		if entry.IsSystemTable() {
			continue
		}
		t, err := g.OpenTable(entry.ID)
		if err != nil {
			continue
		}
		for _, fd := range t.Fields() {
			if fd.Geometry == nil {
				continue
			}
			ext := fd.Geometry.Extent
			tee := tableExtentEntry{
				ID:     entry.ID,
				Name:   entry.Name,
				Format: entry.Format,
				Extent: Bounds{
					XMin: ext.XMin, YMin: ext.YMin,
					XMax: ext.XMax, YMax: ext.YMax,
				},
			}
			idx.entries = append(idx.entries, tee)
			tree.Insert(tee)
			break
		}
	}

	return idx, nil
}

// TablesInExtent returns the catalog entries whose declared geometry
// extent intersects bounds.
func (idx *ExtentIndex) TablesInExtent(bounds Bounds) []CatalogEntry {
	point := rtreego.Point{bounds.XMin, bounds.YMin}
	lengths := []float64{bounds.XMax - bounds.XMin, bounds.YMax - bounds.YMin}
	if lengths[0] <= 0 {
		lengths[0] = 1e-9
	}
	if lengths[1] <= 0 {
		lengths[1] = 1e-9
	}
	rect, _ := rtreego.NewRect(point, lengths)

	var out []CatalogEntry
	for _, sp := range idx.rtree.SearchIntersect(rect) {
		tee := sp.(tableExtentEntry)
		out = append(out, CatalogEntry{ID: tee.ID, Name: tee.Name, Format: tee.Format})
	}
	return out
}
