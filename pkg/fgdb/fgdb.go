package fgdb

import (
	"fmt"
	"os"
	"strings"

	"github.com/ujr/fgdb/internal/fgdbfile"
)

// systemTablePrefix is the case-insensitive prefix identifying a system
// table (spec §4.5, GLOSSARY).
const systemTablePrefix = "gdb_"

// CatalogEntry names one table stored in a geodatabase.
type CatalogEntry struct {
	ID     int64
	Name   string
	Format int64
}

// IsSystemTable reports whether the entry's name begins with the
// case-insensitive "GDB_" prefix.
func (e CatalogEntry) IsSystemTable() bool {
	return strings.HasPrefix(strings.ToLower(e.Name), systemTablePrefix)
}

// Geodatabase is an open handle to a File Geodatabase directory.
//
// Create one with OpenGeodatabase. A Geodatabase owns every Table handed
// out by OpenTable; closing it closes all of them.
type Geodatabase struct {
	dir     string
	catalog []CatalogEntry

	opened map[int64]*Table
}

// OpenGeodatabase opens dir, verifies it exists, and builds the table
// catalog by reading the implicit system table (id 1, spec §3, §4.5).
func OpenGeodatabase(dir string) (*Geodatabase, error) {
	return OpenGeodatabaseWithOptions(dir, DefaultOpenOptions())
}

// OpenGeodatabaseWithOptions is OpenGeodatabase with explicit options.
func OpenGeodatabaseWithOptions(dir string, opts OpenOptions) (*Geodatabase, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &fgdbfile.NotFoundError{Kind: "directory", Detail: dir}
	}

	gdb := &Geodatabase{dir: dir, opened: make(map[int64]*Table)}

	catalog, err := readCatalog(dir)
	if err != nil {
		if opts.RequireSystemCatalog {
			return nil, err
		}
		catalog = nil
	}
	gdb.catalog = catalog
	return gdb, nil
}

func readCatalog(dir string) ([]CatalogEntry, error) {
	tf, err := fgdbfile.OpenTableFile(dir, "a00000001")
	if err != nil {
		return nil, err
	}
	defer tf.Close()

	// spec §4.5: the system catalog's schema is positional, not
	// name-based — field[1] is the table name, field[2] its format code.
	fields := tf.Fields()
	if len(fields) < 3 {
		return nil, &fgdbfile.FormatError{Reason: fmt.Sprintf("system catalog: expected at least 3 fields, got %d", len(fields))}
	}

	var entries []CatalogEntry
	rows := tf.Rows()
	for {
		ok, err := rows.Step()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		values := rows.Values()

		name, ok := values[1].(string)
		if !ok || name == "" {
			return nil, &fgdbfile.FormatError{Reason: fmt.Sprintf("system catalog row %d: null or missing name", rows.OID())}
		}

		var format int64
		switch v := values[2].(type) {
		case int32:
			format = int64(v)
		case int64:
			format = v
		}

		entries = append(entries, CatalogEntry{ID: rows.OID(), Name: name, Format: format})
	}
	return entries, nil
}

// Catalog returns the geodatabase's table catalog in insertion order.
func (g *Geodatabase) Catalog() []CatalogEntry { return g.catalog }

// OpenTable opens a table by its 1-based numeric id.
func (g *Geodatabase) OpenTable(id int64) (*Table, error) {
	if t, ok := g.opened[id]; ok {
		return t, nil
	}
	baseName := fmt.Sprintf("a%08x", id)
	tf, err := fgdbfile.OpenTableFile(g.dir, baseName)
	if err != nil {
		return nil, err
	}
	t := newTable(tf)
	g.opened[id] = t
	return t, nil
}

// OpenTableByName opens a table by name: exact case-sensitive match
// first, then a case-insensitive fallback (spec §4.5).
func (g *Geodatabase) OpenTableByName(name string) (*Table, error) {
	for _, e := range g.catalog {
		if e.Name == name {
			return g.OpenTable(e.ID)
		}
	}
	for _, e := range g.catalog {
		if strings.EqualFold(e.Name, name) {
			return g.OpenTable(e.ID)
		}
	}
	return nil, &fgdbfile.NotFoundError{Kind: "table", Detail: name}
}

// Close closes every table this Geodatabase has opened.
func (g *Geodatabase) Close() error {
	var firstErr error
	for _, t := range g.opened {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	g.opened = make(map[int64]*Table)
	return firstErr
}
