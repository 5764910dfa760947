package queryir

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidationError reports a query that cannot be compiled.
type ValidationError struct {
	Field   string // which part of the query is invalid
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query %s: %s", e.Field, e.Message)
}

// Validate checks a query against the table schemas.
//
// Rules:
//  1. The table must exist
//  2. Selected columns must belong to the table
//  3. SUM/AVG/MIN/MAX need a numeric column; COUNT also accepts "*"
//  4. GROUP BY needs a groupable column
//  5. Predicate fields must be on the table's allow-list and values must
//     be scalars
//
// Validate is a pure function with no side effects. All problems found are
// joined into one error.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)
	if len(v.errs) == 0 {
		return nil
	}
	if len(v.errs) == 1 {
		return v.errs[0]
	}
	msgs := make([]string, len(v.errs))
	for i, e := range v.errs {
		msgs[i] = e.Error()
	}
	return &ValidationError{Field: "query", Message: strings.Join(msgs, "; ")}
}

// validator accumulates errors during traversal.
type validator struct {
	errs []*ValidationError
}

func (v *validator) fail(field, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.fail("query", "nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Aggregate:
		v.validateAggregate(query)
	case *Aggregate:
		v.validateAggregate(*query)
	default:
		v.fail("query", "unsupported query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if !sel.From.Known() {
		v.fail("table", "unknown table %q", sel.From)
		return
	}
	for _, col := range sel.Columns {
		if !sel.From.HasColumn(col) {
			v.fail("column", "table %s has no column %q", sel.From, col)
		}
	}
	v.validatePredicate(sel.From, sel.Filter)
}

func (v *validator) validateAggregate(agg Aggregate) {
	if !agg.From.Known() {
		v.fail("table", "unknown table %q", agg.From)
		return
	}

	switch agg.Func {
	case Count:
		if agg.Column != "*" && !agg.From.HasColumn(agg.Column) {
			v.fail("column", "table %s has no column %q", agg.From, agg.Column)
		}
	case Sum, Avg, Min, Max:
		if !agg.From.IsNumeric(agg.Column) {
			v.fail("column", "column %q of table %s is not numeric", agg.Column, agg.From)
		}
	default:
		v.fail("func", "unsupported aggregate %q", agg.Func)
	}

	if agg.GroupBy != "" && !agg.From.IsGroupable(agg.GroupBy) {
		v.fail("group_by", "cannot group table %s by %q", agg.From, agg.GroupBy)
	}

	v.validatePredicate(agg.From, agg.Filter)
}

func (v *validator) validatePredicate(table Table, p Predicate) {
	switch pred := p.(type) {
	case nil:
		// no filter
	case Equals:
		v.validateEquals(table, pred)
	case *Equals:
		v.validateEquals(table, *pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(table, sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(table, sub)
		}
	default:
		v.fail("filter", "unsupported predicate type %T", p)
	}
}

func (v *validator) validateEquals(table Table, eq Equals) {
	if !table.IsQueryable(eq.Field) {
		v.fail("filter", "attribute %q is not queryable on table %s", eq.Field, table)
	}
	if !isScalar(eq.Value) {
		v.fail("filter", "attribute %q has non-scalar value %T", eq.Field, eq.Value)
	}
}

func isScalar(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
