package fgdb

// OpenOptions configures OpenGeodatabase behavior.
type OpenOptions struct {
	// RequireSystemCatalog: if true, open fails when table 1 cannot be
	// read as the system catalog, rather than yielding an empty catalog.
	// Default: true.
	RequireSystemCatalog bool
}

// DefaultOpenOptions returns open options with defaults.
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{
		RequireSystemCatalog: true,
	}
}

// ReadOptions configures row scanning via Table.Rows.
//
// Where and Extent are accepted for forward compatibility with a future
// query planner; non-zero values are rejected with UnsupportedFeature,
// since no index or predicate evaluation is implemented.
type ReadOptions struct {
	// Where is a SQL-like predicate, not evaluated in this release.
	Where string

	// Extent restricts the scan to rows whose geometry intersects it,
	// not evaluated in this release.
	Extent *Bounds
}

// DefaultReadOptions returns read options with defaults (unrestricted
// full-table scan).
func DefaultReadOptions() ReadOptions {
	return ReadOptions{}
}
