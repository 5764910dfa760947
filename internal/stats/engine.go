package stats

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/roach88/ftrac/internal/queryir"
	"github.com/roach88/ftrac/internal/record"
	"github.com/roach88/ftrac/internal/store"
)

// Op is an aggregate operation.
type Op string

// Aggregate operations.
const (
	OpCount   Op = "count"
	OpSum     Op = "sum"
	OpAverage Op = "average"
	OpStddev  Op = "stddev"
)

// Ops lists the supported operations.
var Ops = []Op{OpCount, OpSum, OpAverage, OpStddev}

// ParseOp validates an operation name.
func ParseOp(s string) (Op, error) {
	for _, op := range Ops {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown aggregate op %q (want count, sum, average or stddev)", s)
}

// Group is the aggregate of one group key.
type Group struct {
	Key   int64   `json:"key"`
	Value float64 `json:"value"`
}

// Engine answers statistical queries over a store.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for dropped-attribute diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine reading from st.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// filter builds the predicate for table, logging attributes it drops.
func (e *Engine) filter(table queryir.Table, attrs queryir.Attrs) (queryir.Predicate, error) {
	if dropped := queryir.Unknown(table, attrs); len(dropped) > 0 {
		e.logger.Debug("ignoring attributes not queryable on table", "table", table, "attrs", dropped)
	}
	return queryir.Filter(table, attrs)
}

// Aggregate computes op over column of the rows of table matching attrs.
//
// For OpCount an empty column counts rows. Sum, average and stddev over an
// empty selection are 0. stddev is the population standard deviation.
func (e *Engine) Aggregate(ctx context.Context, table queryir.Table, column string, op Op, attrs queryir.Attrs) (float64, error) {
	pred, err := e.filter(table, attrs)
	if err != nil {
		return 0, err
	}

	switch op {
	case OpCount:
		if column == "" {
			column = "*"
		}
		return e.store.Scalar(ctx, queryir.Aggregate{From: table, Func: queryir.Count, Column: column, Filter: pred})
	case OpSum:
		return e.store.Scalar(ctx, queryir.Aggregate{From: table, Func: queryir.Sum, Column: column, Filter: pred})
	case OpAverage:
		return e.store.Scalar(ctx, queryir.Aggregate{From: table, Func: queryir.Avg, Column: column, Filter: pred})
	case OpStddev:
		values, err := e.values(ctx, table, column, pred)
		if err != nil {
			return 0, err
		}
		return Stddev(values), nil
	default:
		return 0, fmt.Errorf("unknown aggregate op %q", op)
	}
}

// GroupedSum sums column per distinct value of groupBy, ordered by key.
func (e *Engine) GroupedSum(ctx context.Context, table queryir.Table, column, groupBy string, attrs queryir.Attrs) ([]Group, error) {
	pred, err := e.filter(table, attrs)
	if err != nil {
		return nil, err
	}

	rows, err := e.store.Groups(ctx, queryir.Aggregate{
		From:    table,
		Func:    queryir.Sum,
		Column:  column,
		Filter:  pred,
		GroupBy: groupBy,
	})
	if err != nil {
		return nil, err
	}

	groups := make([]Group, len(rows))
	for i, r := range rows {
		groups[i] = Group{Key: r.Key, Value: r.Value}
	}
	return groups, nil
}

// Runtime returns the runtime environment of a session.
func (e *Engine) Runtime(ctx context.Context, iid int64) (record.RuntimeEnv, error) {
	return e.store.Runtime(ctx, iid)
}

// Sessions returns the ids of all stored sessions.
func (e *Engine) Sessions(ctx context.Context) ([]int64, error) {
	return e.store.Sessions(ctx)
}

// values selects one numeric column.
func (e *Engine) values(ctx context.Context, table queryir.Table, column string, pred queryir.Predicate) ([]float64, error) {
	if !table.IsNumeric(column) {
		return nil, &queryir.ValidationError{
			Field:   "column",
			Message: fmt.Sprintf("column %q of table %s is not numeric", column, table),
		}
	}
	return e.store.Floats(ctx, queryir.Select{From: table, Columns: []string{column}, Filter: pred})
}

// Mean returns the arithmetic mean of values, 0 when empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stddev returns the population standard deviation of values, 0 when
// empty.
func Stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
