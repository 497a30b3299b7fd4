// Package fgdb provides a clean public API for reading Esri File
// Geodatabase (FGDB) containers.
//
// A File Geodatabase is a directory of binary table files. Open one with
// OpenGeodatabase, enumerate its catalog with Catalog, and open any table
// by id or name with OpenTable. Rows are read by Object ID or scanned in
// order with a Cursor; geometry fields decode into Shape values.
//
// Example:
//
//	gdb, err := fgdb.OpenGeodatabase("/tmp/cities.gdb")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gdb.Close()
//
//	table, err := gdb.OpenTableByName("Cities")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	row, err := table.ReadRow(1)
package fgdb
