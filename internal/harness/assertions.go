package harness

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/ftrac/internal/queryir"
	"github.com/roach88/ftrac/internal/record"
	"github.com/roach88/ftrac/internal/stats"
)

// tolerance is the absolute difference under which two floats are equal.
const tolerance = 1e-9

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

func mismatch(typ string, expected, actual any) error {
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%v", expected),
		Actual:   fmt.Sprintf("%v", actual),
	}
}

// evaluateAssertion dispatches one assertion. Query errors are returned
// as is, failed expectations as *AssertionError.
func evaluateAssertion(ctx context.Context, eng *stats.Engine, result *Result, a Assertion) error {
	attrs := whereAttrs(a.Where)

	switch a.Type {
	case AssertAggregate:
		return assertAggregate(ctx, eng, a, attrs)
	case AssertGroup:
		return assertGroup(ctx, eng, a, attrs)
	case AssertThroughput:
		return assertThroughput(ctx, eng, a, attrs)
	case AssertCDF:
		return assertCDF(ctx, eng, a, attrs)
	case AssertProcs:
		return assertProcs(ctx, eng, a, attrs)
	case AssertProcess:
		return assertProcess(result.Sessions, a, attrs)
	case AssertWarnings:
		return assertWarnings(result.Imports[a.Session], a)
	case AssertImportError:
		return assertImportError(result.Imports[a.Session], a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// whereAttrs widens YAML integers to int64, the type the store reads back.
func whereAttrs(where map[string]any) queryir.Attrs {
	if where == nil {
		return nil
	}
	attrs := make(queryir.Attrs, len(where))
	for k, v := range where {
		if i, ok := v.(int); ok {
			v = int64(i)
		}
		attrs[k] = v
	}
	return attrs
}

func assertAggregate(ctx context.Context, eng *stats.Engine, a Assertion, attrs queryir.Attrs) error {
	op, err := stats.ParseOp(a.Op)
	if err != nil {
		return err
	}
	got, err := eng.Aggregate(ctx, queryir.Table(a.Table), a.Column, op, attrs)
	if err != nil {
		return err
	}
	if !floatEqual(got, *a.Value) {
		return mismatch(AssertAggregate, *a.Value, got)
	}
	return nil
}

func assertGroup(ctx context.Context, eng *stats.Engine, a Assertion, attrs queryir.Attrs) error {
	groups, err := eng.GroupedSum(ctx, queryir.Table(a.Table), a.Column, a.By, attrs)
	if err != nil {
		return err
	}
	got := make([]GroupExpect, len(groups))
	for i, g := range groups {
		got[i] = GroupExpect{Key: g.Key, Value: g.Value}
	}
	if !groupsEqual(got, a.Groups) {
		return mismatch(AssertGroup, a.Groups, got)
	}
	return nil
}

func assertThroughput(ctx context.Context, eng *stats.Engine, a Assertion, attrs queryir.Attrs) error {
	rows, err := eng.Throughput(ctx, a.Syscall, a.By, attrs)
	if err != nil {
		return err
	}
	got := make([]GroupExpect, len(rows))
	for i, r := range rows {
		got[i] = GroupExpect{Key: r.Key, Value: r.Rate}
	}
	if !groupsEqual(got, a.Groups) {
		return mismatch(AssertThroughput, a.Groups, got)
	}
	return nil
}

func assertCDF(ctx context.Context, eng *stats.Engine, a Assertion, attrs queryir.Attrs) error {
	weight, err := stats.ParseWeight(a.Weight)
	if err != nil {
		return err
	}
	opts := stats.CDFOptions{VThreshold: a.VThreshold, RThreshold: a.RThreshold, Weight: weight}
	points, err := eng.CDF(ctx, queryir.Table(a.Table), a.Column, opts, attrs)
	if err != nil {
		return err
	}

	got := make([][2]float64, len(points))
	for i, p := range points {
		got[i] = [2]float64{p.Value, p.Ratio}
	}
	equal := len(got) == len(a.Points)
	for i := 0; equal && i < len(got); i++ {
		equal = floatEqual(got[i][0], a.Points[i][0]) && floatEqual(got[i][1], a.Points[i][1])
	}
	if !equal {
		return mismatch(AssertCDF, a.Points, got)
	}
	return nil
}

func assertProcs(ctx context.Context, eng *stats.Engine, a Assertion, attrs queryir.Attrs) error {
	pids, err := eng.Processes(ctx, attrs)
	if err != nil {
		return err
	}
	if !slices.Equal(pids, a.PIDs) && !(len(pids) == 0 && len(a.PIDs) == 0) {
		return mismatch(AssertProcs, a.PIDs, pids)
	}
	return nil
}

// assertProcess finds the single process record matching every where
// entry and checks the expect entries against it (subset match).
func assertProcess(sessions []record.Session, a Assertion, attrs queryir.Attrs) error {
	var matches []map[string]any
	for _, s := range sessions {
		for _, p := range s.Processes {
			fields := processFields(p)
			if subsetMatch(fields, attrs) {
				matches = append(matches, fields)
			}
		}
	}

	if len(matches) != 1 {
		return &AssertionError{
			Type:     AssertProcess,
			Expected: fmt.Sprintf("exactly one process where %s", formatFields(attrs)),
			Actual:   fmt.Sprintf("%d processes", len(matches)),
		}
	}
	if !subsetMatch(matches[0], a.Expect) {
		return mismatch(AssertProcess, formatFields(a.Expect), formatFields(matches[0]))
	}
	return nil
}

func assertWarnings(o ImportOutcome, a Assertion) error {
	if o.Err != nil {
		return &AssertionError{
			Type:     AssertWarnings,
			Expected: fmt.Sprintf("successful import with %d warnings", *a.Count),
			Actual:   fmt.Sprintf("import failed: %v", o.Err),
		}
	}
	if got := len(o.Result.Warnings); got != *a.Count {
		msgs := make([]string, got)
		for i, w := range o.Result.Warnings {
			msgs[i] = w.String()
		}
		return mismatch(AssertWarnings, fmt.Sprintf("%d warnings", *a.Count), fmt.Sprintf("%d warnings %q", got, msgs))
	}
	return nil
}

func assertImportError(o ImportOutcome, a Assertion) error {
	if got := o.ErrorKind(); got != a.Error {
		if got == "" {
			got = "successful import"
		}
		return mismatch(AssertImportError, a.Error, got)
	}
	return nil
}

// processFields is the field view of p that where and expect refer to.
func processFields(p record.ProcessRecord) map[string]any {
	return map[string]any{
		"iid":     p.SessionID,
		"pid":     p.PID,
		"ppid":    p.PPID,
		"live":    p.Live,
		"res":     p.Res,
		"btime":   p.BTime,
		"elapsed": p.Elapsed,
		"utime":   p.UTime,
		"stime":   p.STime,
		"cmdline": p.Cmdline,
		"environ": p.Environ,
	}
}

// subsetMatch reports whether every entry of want is present in got.
// Numbers compare by value regardless of their Go type.
func subsetMatch(got map[string]any, want map[string]any) bool {
	for k, w := range want {
		g, ok := got[k]
		if !ok {
			return false
		}
		gf, gNum := toFloat(g)
		wf, wNum := toFloat(w)
		if gNum && wNum {
			if !floatEqual(gf, wf) {
				return false
			}
			continue
		}
		if g != w {
			return false
		}
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func groupsEqual(got, want []GroupExpect) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i].Key != want[i].Key || !floatEqual(got[i].Value, want[i].Value) {
			return false
		}
	}
	return true
}

// formatFields renders fields as "k=v" pairs sorted by key.
func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, fields[k])
	}
	return strings.Join(parts, ", ")
}
