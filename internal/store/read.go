package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ftrac/internal/queryir"
	"github.com/roach88/ftrac/internal/record"
	"github.com/roach88/ftrac/internal/sysc"
)

// ErrSessionNotFound is returned when no runtime rows exist for a session.
var ErrSessionNotFound = errors.New("session not found")

// Column lists used by the typed readers. seq is internal and never read
// back.
var (
	syscallColumns = []string{"iid", "stamp", "pid", "sysc", "fid", "res", "elapsed", "aux1", "aux2"}
	fileColumns    = []string{"iid", "fid", "path"}
	procColumns    = []string{"iid", "pid", "ppid", "live", "res", "btime", "elapsed", "utime", "stime", "cmdline", "environ"}
)

// Group is one row of a grouped aggregate.
type Group struct {
	Key   int64
	Value float64
}

// ImportRecord is one row of the import audit trail.
type ImportRecord struct {
	ID         string
	SessionID  int64
	Dir        string
	ImportedAt time.Time
}

// Sessions returns the ids of every stored session in ascending order.
func (s *Store) Sessions(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT iid FROM runtime ORDER BY iid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return ids, nil
}

// Runtime returns the runtime environment of session iid.
// Returns ErrSessionNotFound if the session has not been imported.
func (s *Store) Runtime(ctx context.Context, iid int64) (record.RuntimeEnv, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item, value FROM runtime
		WHERE iid = ?
		ORDER BY item COLLATE BINARY ASC
	`, iid)
	if err != nil {
		return nil, fmt.Errorf("query runtime: %w", err)
	}
	defer rows.Close()

	env := record.RuntimeEnv{}
	for rows.Next() {
		var item, value string
		if err := rows.Scan(&item, &value); err != nil {
			return nil, fmt.Errorf("scan runtime: %w", err)
		}
		env[item] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runtime: %w", err)
	}

	if len(env) == 0 {
		return nil, fmt.Errorf("runtime of session %d: %w", iid, ErrSessionNotFound)
	}
	return env, nil
}

// ReadSession returns every record of session iid.
// Returns ErrSessionNotFound if the session has not been imported.
func (s *Store) ReadSession(ctx context.Context, iid int64) (record.Session, error) {
	env, err := s.Runtime(ctx, iid)
	if err != nil {
		return record.Session{}, err
	}

	bySession := queryir.Equals{Field: "iid", Value: iid}

	syscalls, err := s.Syscalls(ctx, bySession)
	if err != nil {
		return record.Session{}, err
	}
	files, err := s.Files(ctx, bySession)
	if err != nil {
		return record.Session{}, err
	}
	procs, err := s.Processes(ctx, bySession)
	if err != nil {
		return record.Session{}, err
	}

	return record.Session{
		ID:        iid,
		Runtime:   env,
		Syscalls:  syscalls,
		Files:     files,
		Processes: procs,
	}, nil
}

// Syscalls returns the syscall events matching pred (nil for all), in log
// order.
func (s *Store) Syscalls(ctx context.Context, pred queryir.Predicate) ([]record.SyscallEvent, error) {
	rows, err := s.query(ctx, queryir.Select{From: queryir.TableSyscall, Columns: syscallColumns, Filter: pred})
	if err != nil {
		return nil, fmt.Errorf("query syscalls: %w", err)
	}
	defer rows.Close()

	events := []record.SyscallEvent{}
	for rows.Next() {
		var ev record.SyscallEvent
		var code int64
		if err := rows.Scan(
			&ev.SessionID, &ev.Stamp, &ev.PID, &code, &ev.FID,
			&ev.Res, &ev.Elapsed, &ev.Aux1, &ev.Aux2,
		); err != nil {
			return nil, fmt.Errorf("scan syscall: %w", err)
		}
		ev.Sysc = sysc.Code(code)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate syscalls: %w", err)
	}
	return events, nil
}

// Files returns the file records matching pred (nil for all), in log order.
func (s *Store) Files(ctx context.Context, pred queryir.Predicate) ([]record.FileRecord, error) {
	rows, err := s.query(ctx, queryir.Select{From: queryir.TableFile, Columns: fileColumns, Filter: pred})
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	files := []record.FileRecord{}
	for rows.Next() {
		var f record.FileRecord
		if err := rows.Scan(&f.SessionID, &f.FID, &f.Path); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

// Processes returns the process records matching pred (nil for all),
// ordered by session then pid.
func (s *Store) Processes(ctx context.Context, pred queryir.Predicate) ([]record.ProcessRecord, error) {
	rows, err := s.query(ctx, queryir.Select{From: queryir.TableProc, Columns: procColumns, Filter: pred})
	if err != nil {
		return nil, fmt.Errorf("query processes: %w", err)
	}
	defer rows.Close()

	procs := []record.ProcessRecord{}
	for rows.Next() {
		var p record.ProcessRecord
		var live int64
		if err := rows.Scan(
			&p.SessionID, &p.PID, &p.PPID, &live, &p.Res, &p.BTime,
			&p.Elapsed, &p.UTime, &p.STime, &p.Cmdline, &p.Environ,
		); err != nil {
			return nil, fmt.Errorf("scan process: %w", err)
		}
		p.Live = live != 0
		procs = append(procs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processes: %w", err)
	}
	return procs, nil
}

// Imports returns the audit trail of session iid, oldest first.
func (s *Store) Imports(ctx context.Context, iid int64) ([]ImportRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, iid, dir, imported_at FROM imports
		WHERE iid = ?
		ORDER BY id COLLATE BINARY ASC
	`, iid)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	imports := []ImportRecord{}
	for rows.Next() {
		var rec ImportRecord
		var at string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Dir, &at); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		rec.ImportedAt, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse import time %q: %w", at, err)
		}
		imports = append(imports, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imports: %w", err)
	}
	return imports, nil
}

// Scalar runs an ungrouped aggregate and returns its single value.
// SUM/AVG/MIN/MAX over an empty selection yield 0.
func (s *Store) Scalar(ctx context.Context, q queryir.Aggregate) (float64, error) {
	if q.GroupBy != "" {
		return 0, fmt.Errorf("scalar aggregate: unexpected group by %q", q.GroupBy)
	}

	sqlStr, params, err := s.compiler.Compile(q)
	if err != nil {
		return 0, err
	}

	var value float64
	if err := s.db.QueryRowContext(ctx, sqlStr, params...).Scan(&value); err != nil {
		return 0, fmt.Errorf("scalar aggregate: %w", err)
	}
	return value, nil
}

// Groups runs a grouped aggregate. Groups are ordered by key.
func (s *Store) Groups(ctx context.Context, q queryir.Aggregate) ([]Group, error) {
	if q.GroupBy == "" {
		return nil, fmt.Errorf("grouped aggregate: no group by column")
	}

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("grouped aggregate: %w", err)
	}
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.Key, &g.Value); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// Floats runs a single-column select and returns the column as float64.
func (s *Store) Floats(ctx context.Context, q queryir.Select) ([]float64, error) {
	if len(q.Columns) != 1 {
		return nil, fmt.Errorf("select values: want exactly one column, got %d", len(q.Columns))
	}

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select values: %w", err)
	}
	defer rows.Close()

	values := []float64{}
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate values: %w", err)
	}
	return values, nil
}

// Ints runs a single-column select over an integer column.
func (s *Store) Ints(ctx context.Context, q queryir.Select) ([]int64, error) {
	if len(q.Columns) != 1 {
		return nil, fmt.Errorf("select ints: want exactly one column, got %d", len(q.Columns))
	}

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select ints: %w", err)
	}
	defer rows.Close()

	values := []int64{}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan int: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ints: %w", err)
	}
	return values, nil
}

// query compiles q and runs it.
func (s *Store) query(ctx context.Context, q queryir.Query) (*sql.Rows, error) {
	sqlStr, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	return s.rawQuery(ctx, sqlStr, params...)
}
