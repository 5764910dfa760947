package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ftrac/internal/record"
)

// sessionTables are cleared at the start of every import, in this order.
var sessionTables = []string{"runtime", "syscall", "file", "proc"}

// ImportTx writes one session's records atomically.
//
// Syscall and file rows are numbered in insertion order (seq), which is
// the order reads return them in. Nothing written through an ImportTx is
// visible to other connections until Commit.
type ImportTx struct {
	tx        *sql.Tx
	sessionID int64

	runtimeStmt *sql.Stmt
	syscallStmt *sql.Stmt
	fileStmt    *sql.Stmt
	procStmt    *sql.Stmt

	syscallSeq int64
	fileSeq    int64
	done       bool
}

// BeginImport starts the import of session iid. Any rows previously stored
// for iid are deleted inside the same transaction, so a committed import
// always replaces the session as a whole.
//
// The caller must Commit or Rollback the returned transaction; deferring
// Rollback right after BeginImport covers every exit path.
func (s *Store) BeginImport(ctx context.Context, iid int64) (*ImportTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}

	it := &ImportTx{tx: tx, sessionID: iid}
	if err := it.prepare(ctx); err != nil {
		it.Rollback()
		return nil, err
	}
	return it, nil
}

func (t *ImportTx) prepare(ctx context.Context) error {
	for _, table := range sessionTables {
		// table names come from sessionTables, never from input
		if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE iid = ?", t.sessionID); err != nil {
			return fmt.Errorf("begin import: clear %s: %w", table, err)
		}
	}

	var err error
	if t.runtimeStmt, err = t.tx.PrepareContext(ctx, `
		INSERT INTO runtime (iid, item, value) VALUES (?, ?, ?)
	`); err != nil {
		return fmt.Errorf("begin import: prepare runtime: %w", err)
	}
	if t.syscallStmt, err = t.tx.PrepareContext(ctx, `
		INSERT INTO syscall
		(iid, seq, stamp, pid, sysc, fid, res, elapsed, aux1, aux2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`); err != nil {
		return fmt.Errorf("begin import: prepare syscall: %w", err)
	}
	if t.fileStmt, err = t.tx.PrepareContext(ctx, `
		INSERT INTO file (iid, seq, fid, path) VALUES (?, ?, ?, ?)
	`); err != nil {
		return fmt.Errorf("begin import: prepare file: %w", err)
	}
	if t.procStmt, err = t.tx.PrepareContext(ctx, `
		INSERT INTO proc
		(iid, pid, ppid, live, res, btime, elapsed, utime, stime, cmdline, environ)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`); err != nil {
		return fmt.Errorf("begin import: prepare proc: %w", err)
	}
	return nil
}

// SessionID returns the session this transaction imports.
func (t *ImportTx) SessionID() int64 {
	return t.sessionID
}

// InsertRuntime stores the runtime environment, one row per key in sorted
// key order.
func (t *ImportTx) InsertRuntime(ctx context.Context, env record.RuntimeEnv) error {
	for _, key := range env.Keys() {
		if _, err := t.runtimeStmt.ExecContext(ctx, t.sessionID, key, env[key]); err != nil {
			return fmt.Errorf("insert runtime %q: %w", key, err)
		}
	}
	return nil
}

// InsertSyscall appends a syscall event. The event's SessionID is ignored
// in favour of the transaction's session.
func (t *ImportTx) InsertSyscall(ctx context.Context, ev record.SyscallEvent) error {
	t.syscallSeq++
	_, err := t.syscallStmt.ExecContext(ctx,
		t.sessionID,
		t.syscallSeq,
		ev.Stamp,
		ev.PID,
		int64(ev.Sysc),
		ev.FID,
		ev.Res,
		ev.Elapsed,
		ev.Aux1,
		ev.Aux2,
	)
	if err != nil {
		return fmt.Errorf("insert syscall %d: %w", t.syscallSeq, err)
	}
	return nil
}

// InsertFile appends a file identity.
func (t *ImportTx) InsertFile(ctx context.Context, f record.FileRecord) error {
	t.fileSeq++
	if _, err := t.fileStmt.ExecContext(ctx, t.sessionID, t.fileSeq, f.FID, f.Path); err != nil {
		return fmt.Errorf("insert file %d: %w", f.FID, err)
	}
	return nil
}

// InsertProcess stores a reconciled process. A second row for the same
// pid violates the (iid, pid) uniqueness constraint.
func (t *ImportTx) InsertProcess(ctx context.Context, p record.ProcessRecord) error {
	_, err := t.procStmt.ExecContext(ctx,
		t.sessionID,
		p.PID,
		p.PPID,
		boolToInt(p.Live),
		p.Res,
		p.BTime,
		p.Elapsed,
		p.UTime,
		p.STime,
		p.Cmdline,
		p.Environ,
	)
	if err != nil {
		return fmt.Errorf("insert process %d: %w", p.PID, err)
	}
	return nil
}

// RecordImport adds an audit row for this import run.
func (t *ImportTx) RecordImport(ctx context.Context, id, dir string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO imports (id, iid, dir, imported_at) VALUES (?, ?, ?, ?)
	`, id, t.sessionID, dir, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

// Commit makes the import visible.
func (t *ImportTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.closeStmts()
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Rollback discards the import. Calling Rollback after Commit is a no-op,
// so it is safe to defer.
func (t *ImportTx) Rollback() error {
	if t.done {
		return nil
	}
	t.closeStmts()
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback import: %w", err)
	}
	return nil
}

func (t *ImportTx) closeStmts() {
	for _, stmt := range []*sql.Stmt{t.runtimeStmt, t.syscallStmt, t.fileStmt, t.procStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
