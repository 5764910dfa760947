package stats

import (
	"context"

	"github.com/roach88/ftrac/internal/queryir"
)

// Processes returns the pids matching attrs, ascending.
//
// Attributes are applied to both the syscall and proc tables. A pid must
// satisfy every table that attrs constrains; with no usable constraint
// every pid in proc is returned.
func (e *Engine) Processes(ctx context.Context, attrs queryir.Attrs) ([]int64, error) {
	scPred, err := queryir.Filter(queryir.TableSyscall, attrs)
	if err != nil {
		return nil, err
	}
	procPred, err := queryir.Filter(queryir.TableProc, attrs)
	if err != nil {
		return nil, err
	}
	if dropped := unknownToBoth(attrs); len(dropped) > 0 {
		e.logger.Debug("ignoring attributes not queryable on syscall or proc", "attrs", dropped)
	}

	var fromSyscall []int64
	if scPred != nil {
		fromSyscall, err = e.pids(ctx, queryir.TableSyscall, scPred)
		if err != nil {
			return nil, err
		}
		if procPred == nil {
			return fromSyscall, nil
		}
	}

	fromProc, err := e.pids(ctx, queryir.TableProc, procPred)
	if err != nil {
		return nil, err
	}
	if scPred == nil {
		return fromProc, nil
	}
	return intersectSorted(fromSyscall, fromProc), nil
}

func (e *Engine) pids(ctx context.Context, table queryir.Table, pred queryir.Predicate) ([]int64, error) {
	return e.store.Ints(ctx, queryir.Select{From: table, Columns: []string{"pid"}, Filter: pred, Distinct: true})
}

func unknownToBoth(attrs queryir.Attrs) []string {
	var dropped []string
	for _, k := range queryir.Unknown(queryir.TableSyscall, attrs) {
		if !queryir.TableProc.IsQueryable(k) {
			dropped = append(dropped, k)
		}
	}
	return dropped
}

func intersectSorted(a, b []int64) []int64 {
	out := []int64{}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
