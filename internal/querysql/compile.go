package querysql

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/ftrac/internal/queryir"
)

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// Every row-returning query carries an ORDER BY with a total tiebreaker so
// results come back in the same order on every run. Values are always bound
// as ? parameters, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Column aliases used by compiled aggregates.
const (
	GroupColumn = "grp"
	ValueColumn = "value"
)

// stableOrder is the tiebreaker ORDER BY for each table. syscall and file
// rows keep the order they appeared in their log.
var stableOrder = map[queryir.Table]string{
	queryir.TableSyscall: "iid ASC, seq ASC",
	queryir.TableFile:    "iid ASC, seq ASC",
	queryir.TableProc:    "iid ASC, pid ASC",
	queryir.TableRuntime: "iid ASC, item COLLATE BINARY ASC",
}

// textColumns are ordered with COLLATE BINARY.
var textColumns = map[string]bool{
	"path":    true,
	"cmdline": true,
	"environ": true,
	"item":    true,
	"value":   true,
}

// Compile validates q and converts it to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Aggregate:
		return c.compileAggregate(query)
	case *queryir.Aggregate:
		return c.compileAggregate(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	selectClause := "*"
	if len(q.Columns) > 0 {
		selectClause = strings.Join(q.Columns, ", ")
	}
	if q.Distinct {
		selectClause = "DISTINCT " + selectClause
	}

	whereClause, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}

	// DISTINCT rows have no seq to order by, so order by what was selected.
	orderBy := stableOrder[q.From]
	if q.Distinct && len(q.Columns) > 0 {
		keys := make([]string, len(q.Columns))
		for i, col := range q.Columns {
			keys[i] = orderKey(col)
		}
		orderBy = strings.Join(keys, ", ")
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		selectClause,
		q.From,
		whereClause,
		orderBy)

	return sql, params, nil
}

// compileAggregate compiles an Aggregate. SUM/AVG/MIN/MAX over no rows
// yield 0 rather than NULL.
func (c *SQLCompiler) compileAggregate(q queryir.Aggregate) (string, []any, error) {
	var expr string
	if q.Func == queryir.Count {
		expr = fmt.Sprintf("COUNT(%s)", q.Column)
	} else {
		expr = fmt.Sprintf("COALESCE(%s(%s), 0)", q.Func, q.Column)
	}
	expr += " AS " + ValueColumn

	whereClause, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}

	if q.GroupBy == "" {
		// Single row; nothing to order.
		return fmt.Sprintf("SELECT %s FROM %s%s", expr, q.From, whereClause), params, nil
	}

	sql := fmt.Sprintf("SELECT %s AS %s, %s FROM %s%s GROUP BY %s ORDER BY %s",
		q.GroupBy, GroupColumn,
		expr,
		q.From,
		whereClause,
		q.GroupBy,
		orderKey(q.GroupBy))

	return sql, params, nil
}

func orderKey(col string) string {
	if textColumns[col] {
		return col + " COLLATE BINARY ASC"
	}
	return col + " ASC"
}

func (c *SQLCompiler) compileWhere(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + sql, params, nil
}

// compilePredicate compiles a queryir.Predicate to SQL WHERE clause fragment.
// Values are never interpolated.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "field = ?".
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value for %s: %w", eq.Field, err)
	}
	return fmt.Sprintf("%s = ?", eq.Field), []any{param}, nil
}

// compileAnd compiles an And predicate to conjunction with AND.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	var sqlParts []string
	var allParams []any

	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}

// valueToParam converts a filter value to the type stored in SQLite.
// Conversion goes by kind, so named types such as sysc.Code bind like
// their underlying type. Booleans are stored as 0/1 integers and every
// integer kind widens to int64.
func valueToParam(v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		if rv.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
