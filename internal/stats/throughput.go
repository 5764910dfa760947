package stats

import (
	"context"
	"fmt"
	"maps"

	"github.com/roach88/ftrac/internal/queryir"
	"github.com/roach88/ftrac/internal/sysc"
)

// Throughput is the service rate of one syscall for one group key.
//
// For read and write Work is the number of bytes transferred (sum of
// aux1); for every other operation it is the number of calls. Rate is
// Work divided by the total elapsed time, 0 when nothing took time.
type Throughput struct {
	Key     int64   `json:"key"`
	Work    float64 `json:"work"`
	Elapsed float64 `json:"elapsed"`
	Rate    float64 `json:"rate"`
}

// Throughput computes per-key throughput of the named syscall, grouped by
// pid or fid. A "sysc" entry in attrs is overridden by name.
func (e *Engine) Throughput(ctx context.Context, name, groupBy string, attrs queryir.Attrs) ([]Throughput, error) {
	code, err := sysc.Lookup(name)
	if err != nil {
		return nil, err
	}
	if groupBy != "pid" && groupBy != "fid" {
		return nil, fmt.Errorf("throughput: cannot group by %q (want pid or fid)", groupBy)
	}

	scoped := maps.Clone(attrs)
	if scoped == nil {
		scoped = queryir.Attrs{}
	}
	scoped["sysc"] = code

	pred, err := e.filter(queryir.TableSyscall, scoped)
	if err != nil {
		return nil, err
	}

	elapsed, err := e.store.Groups(ctx, queryir.Aggregate{
		From: queryir.TableSyscall, Func: queryir.Sum, Column: "elapsed", Filter: pred, GroupBy: groupBy,
	})
	if err != nil {
		return nil, fmt.Errorf("throughput elapsed: %w", err)
	}

	work := queryir.Aggregate{From: queryir.TableSyscall, Func: queryir.Count, Column: "*", Filter: pred, GroupBy: groupBy}
	if code.IsIO() {
		work.Func, work.Column = queryir.Sum, "aux1"
	}
	amounts, err := e.store.Groups(ctx, work)
	if err != nil {
		return nil, fmt.Errorf("throughput work: %w", err)
	}

	// Both aggregates share filter and grouping so their keys line up.
	byKey := make(map[int64]float64, len(amounts))
	for _, g := range amounts {
		byKey[g.Key] = g.Value
	}

	out := make([]Throughput, 0, len(elapsed))
	for _, g := range elapsed {
		t := Throughput{Key: g.Key, Work: byKey[g.Key], Elapsed: g.Value}
		if t.Elapsed > 0 {
			t.Rate = t.Work / t.Elapsed
		}
		out = append(out, t)
	}
	return out, nil
}
