package queryir

import "slices"

// Table names a record table.
type Table string

// Record tables.
const (
	TableRuntime Table = "runtime"
	TableSyscall Table = "syscall"
	TableFile    Table = "file"
	TableProc    Table = "proc"
)

// tableSchema describes which columns of a table may be read, filtered on,
// aggregated and grouped by.
type tableSchema struct {
	columns   []string // every column, schema order
	queryable []string // attributes accepted by Filter
	numeric   []string // columns valid for SUM/AVG/MIN/MAX
	groupable []string // columns valid for GROUP BY
}

var schemas = map[Table]tableSchema{
	TableRuntime: {
		columns:   []string{"iid", "item", "value"},
		queryable: []string{"iid", "item"},
	},
	TableSyscall: {
		columns:   []string{"iid", "seq", "stamp", "pid", "sysc", "fid", "res", "elapsed", "aux1", "aux2"},
		queryable: []string{"iid", "pid", "sysc", "fid", "res"},
		numeric:   []string{"stamp", "pid", "sysc", "fid", "res", "elapsed", "aux1", "aux2"},
		groupable: []string{"pid", "fid", "sysc"},
	},
	TableFile: {
		columns:   []string{"iid", "seq", "fid", "path"},
		queryable: []string{"iid", "fid", "path"},
		numeric:   []string{"fid"},
		groupable: []string{"fid"},
	},
	TableProc: {
		columns:   []string{"iid", "pid", "ppid", "live", "res", "btime", "elapsed", "utime", "stime", "cmdline", "environ"},
		queryable: []string{"iid", "pid", "ppid", "live", "res", "cmdline", "environ"},
		numeric:   []string{"pid", "ppid", "live", "res", "btime", "elapsed", "utime", "stime"},
		groupable: []string{"pid", "ppid"},
	},
}

// Tables returns every known table name.
func Tables() []Table {
	return []Table{TableRuntime, TableSyscall, TableFile, TableProc}
}

// Known reports whether t is a record table.
func (t Table) Known() bool {
	_, ok := schemas[t]
	return ok
}

// Columns returns the table's columns in schema order.
func (t Table) Columns() []string {
	return slices.Clone(schemas[t].columns)
}

// Queryable returns the attributes Filter accepts for the table.
func (t Table) Queryable() []string {
	return slices.Clone(schemas[t].queryable)
}

// HasColumn reports whether col is a column of the table.
func (t Table) HasColumn(col string) bool {
	return slices.Contains(schemas[t].columns, col)
}

// IsQueryable reports whether attr is on the table's filter allow-list.
func (t Table) IsQueryable(attr string) bool {
	return slices.Contains(schemas[t].queryable, attr)
}

// IsNumeric reports whether col can be summed or averaged.
func (t Table) IsNumeric(col string) bool {
	return slices.Contains(schemas[t].numeric, col)
}

// IsGroupable reports whether col can be used in GROUP BY.
func (t Table) IsGroupable(col string) bool {
	return slices.Contains(schemas[t].groupable, col)
}
