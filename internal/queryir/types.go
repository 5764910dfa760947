package queryir

// Query represents an abstract query over one record table.
//
// This is a sealed interface - only types in this package implement it.
// Backend compilers switch exhaustively over the concrete types.
//
// Query types:
//   - Select: row access with filtering
//   - Aggregate: COUNT/SUM/AVG/MIN/MAX over one column, optionally grouped
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal_value
//   - And: all predicates must be true
//
// There is no OR: ad-hoc analysis constraints always narrow a selection.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select reads columns from a table.
//
// Semantics:
//
//	SELECT [DISTINCT] <columns> FROM <from> WHERE <filter> ORDER BY <stable key>
//
// Rows always come back in a deterministic order: the table's natural key,
// or the selected column itself for a single-column DISTINCT select.
type Select struct {
	From     Table
	Columns  []string  // empty = every column of the table, in schema order
	Filter   Predicate // nil = no filter
	Distinct bool
}

func (Select) queryNode() {}

// AggFunc is an SQL aggregate function.
type AggFunc string

// Aggregate functions supported by the backend.
const (
	Count AggFunc = "COUNT"
	Sum   AggFunc = "SUM"
	Avg   AggFunc = "AVG"
	Min   AggFunc = "MIN"
	Max   AggFunc = "MAX"
)

// Aggregate computes one aggregate over a numeric column.
//
// Semantics:
//
//	SELECT [<group_by>,] <func>(<column>) FROM <from> WHERE <filter>
//	[GROUP BY <group_by> ORDER BY <group_by>]
//
// Column may be "*" for Count. Ungrouped aggregates over an empty
// selection yield a single NULL row (0 for COUNT); callers map NULL to 0.
type Aggregate struct {
	From    Table
	Func    AggFunc
	Column  string
	Filter  Predicate
	GroupBy string // empty = no grouping
}

func (Aggregate) queryNode() {}

// Equals represents a field-equals-literal predicate.
//
// Value must be a string, bool, int, int64 or float64 (or a named type
// with one of those kinds, such as sysc.Code). Booleans are stored as
// 0/1 integers.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// And represents a conjunction of predicates. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
