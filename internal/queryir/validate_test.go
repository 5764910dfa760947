package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidQueries(t *testing.T) {
	queries := map[string]Query{
		"select all": Select{From: TableSyscall},
		"select columns": Select{
			From:    TableProc,
			Columns: []string{"pid", "elapsed"},
			Filter:  Equals{Field: "live", Value: true},
		},
		"distinct pointer": &Select{From: TableSyscall, Columns: []string{"pid"}, Distinct: true},
		"sum":              Aggregate{From: TableSyscall, Func: Sum, Column: "aux1"},
		"count star":       Aggregate{From: TableFile, Func: Count, Column: "*"},
		"count text":       Aggregate{From: TableProc, Func: Count, Column: "cmdline"},
		"grouped": &Aggregate{
			From: TableSyscall, Func: Sum, Column: "aux1", GroupBy: "pid",
			Filter: And{Predicates: []Predicate{Equals{Field: "sysc", Value: 3}}},
		},
	}

	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, Validate(q))
		})
	}
}

func TestValidate_InvalidQueries(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		field string
	}{
		{"nil", nil, "query"},
		{"unknown table", Select{From: "nope"}, "table"},
		{"unknown column", Select{From: TableFile, Columns: []string{"size"}}, "column"},
		{"sum text", Aggregate{From: TableProc, Func: Sum, Column: "cmdline"}, "column"},
		{"bad func", Aggregate{From: TableProc, Func: "MEDIAN", Column: "elapsed"}, "func"},
		{"bad group", Aggregate{From: TableProc, Func: Sum, Column: "elapsed", GroupBy: "cmdline"}, "group_by"},
		{"filter not allowed", Select{From: TableSyscall, Filter: Equals{Field: "elapsed", Value: 1}}, "filter"},
		{"nil value", Select{From: TableSyscall, Filter: Equals{Field: "pid", Value: nil}}, "filter"},
		{"slice value", Select{From: TableSyscall, Filter: Equals{Field: "pid", Value: []int{1}}}, "filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			require.Error(t, err)
			ve, ok := err.(*ValidationError)
			require.True(t, ok, "want *ValidationError, got %T", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	err := Validate(Aggregate{From: TableProc, Func: Sum, Column: "cmdline", GroupBy: "environ"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not numeric")
	assert.Contains(t, err.Error(), "cannot group")
}
