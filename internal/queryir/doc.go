// Package queryir provides the query intermediate representation used by
// every statistics call.
//
// A query names one record table (runtime, syscall, file, proc) and an
// optional predicate. Predicates are built from ad-hoc attribute
// constraints by Filter, which enforces a per-table allow-list of
// queryable attributes:
//
//	syscall  iid, pid, sysc, fid, res
//	proc     iid, pid, ppid, live, res, cmdline, environ
//	file     iid, fid, path
//	runtime  iid, item
//
// Attributes outside the allow-list are dropped, not rejected. Analysis
// tooling passes whatever constraints it has at hand and gets the widest
// selection the table supports.
//
// ARCHITECTURE:
//
//	[Attrs] → Filter → [Predicate] ─┐
//	                   [Select/Aggregate] → Validate → querysql.Compile → SQL
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backends can switch
// exhaustively:
//
//	switch q := query.(type) {
//	case Select:
//	    // rows
//	case Aggregate:
//	    // scalar or grouped
//	}
//
// Table and column names are never taken from caller input without
// passing through the schema tables in schema.go; values are always
// carried as parameters.
package queryir
