package queryir

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/roach88/ftrac/internal/sysc"
)

// Attrs is a set of attribute = value constraints, as given by ad-hoc
// analysis callers.
type Attrs map[string]any

// Filter builds a predicate for table from attrs.
//
// Only attributes on the table's allow-list are used; anything else is
// dropped without error (see Unknown to report them). The remaining
// constraints are combined with AND in attribute-name order so the same
// attrs always compile to the same SQL.
//
// A "sysc" constraint given as an operation name ("read") is translated
// to its code; a numeric string is taken as the code itself.
//
// Returns nil when no constraint survives, meaning "all rows".
func Filter(table Table, attrs Attrs) (Predicate, error) {
	if !table.Known() {
		return nil, &ValidationError{Field: "table", Message: fmt.Sprintf("unknown table %q", table)}
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if table.IsQueryable(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	preds := make([]Predicate, 0, len(keys))
	for _, k := range keys {
		v := attrs[k]
		if k == "sysc" {
			code, err := syscallCode(v)
			if err != nil {
				return nil, err
			}
			v = code
		}
		preds = append(preds, Equals{Field: k, Value: v})
	}

	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

// Unknown returns the attributes of attrs that Filter would drop for table,
// sorted.
func Unknown(table Table, attrs Attrs) []string {
	var dropped []string
	for k := range attrs {
		if !table.IsQueryable(k) {
			dropped = append(dropped, k)
		}
	}
	sort.Strings(dropped)
	return dropped
}

func syscallCode(v any) (sysc.Code, error) {
	switch val := v.(type) {
	case sysc.Code:
		return val, nil
	case int:
		return sysc.Code(val), nil
	case int64:
		return sysc.Code(val), nil
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return sysc.Code(n), nil
		}
		return sysc.Lookup(val)
	default:
		return 0, &ValidationError{Field: "sysc", Message: fmt.Sprintf("unsupported value type %T", v)}
	}
}
