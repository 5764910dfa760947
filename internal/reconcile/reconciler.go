package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/roach88/ftrac/internal/record"
	"github.com/roach88/ftrac/internal/store"
)

// Reconciler imports session directories into a store.
//
// Thread-safety: a Reconciler may be shared, but imports serialize on the
// store's single connection.
type Reconciler struct {
	store   *store.Store
	logger  *slog.Logger
	ids     IDGenerator
	clock   Clock
	metrics *Metrics
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger warnings and progress are written to.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithIDGenerator sets the generator for import run ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Reconciler) { r.ids = g }
}

// WithClock sets the clock used for the imported_at audit column.
func WithClock(c Clock) Option {
	return func(r *Reconciler) { r.clock = c }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// New creates a Reconciler writing to st.
func New(st *store.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:    UUIDv7Generator{},
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result summarizes one import.
type Result struct {
	SessionID    int64     `json:"iid"`
	ImportID     string    `json:"import_id"`
	Dir          string    `json:"dir"`
	RuntimeItems int       `json:"runtime_items"`
	Syscalls     int       `json:"syscalls"`
	Files        int       `json:"files"`
	Processes    int       `json:"processes"`
	Warnings     []Warning `json:"warnings"`
}

// Reconcile imports the session directory dir.
//
// The session's previous rows are replaced atomically. A missing or
// unusable mandatory log aborts the import with *MissingLogError or
// *MalformedLogError and leaves the store untouched; problems with single
// lines or optional logs are recovered and reported in Result.Warnings.
func (r *Reconciler) Reconcile(ctx context.Context, dir string) (res *Result, err error) {
	began := time.Now()
	warns := newWarnSink(r.logger.With("dir", dir))
	defer func() {
		r.metrics.observe(res, warns.skipped, time.Since(began), err)
	}()

	if err := checkMandatory(dir); err != nil {
		return nil, err
	}

	env, iid, sessionStart, err := r.readRuntime(dir, warns)
	if err != nil {
		return nil, err
	}

	tx, err := r.store.BeginImport(ctx, iid)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", dir, err)
	}
	defer tx.Rollback()

	res = &Result{SessionID: iid, Dir: dir, RuntimeItems: len(env)}

	if err := tx.InsertRuntime(ctx, env); err != nil {
		return nil, err
	}
	if res.Syscalls, err = r.importSyscalls(ctx, tx, dir, sessionStart, warns); err != nil {
		return nil, err
	}
	if res.Files, err = r.importFiles(ctx, tx, dir, warns); err != nil {
		return nil, err
	}

	procs, err := r.reconcileProcesses(dir, env, warns)
	if err != nil {
		return nil, err
	}
	for _, p := range procs.records(iid, sessionStart) {
		if err := tx.InsertProcess(ctx, p); err != nil {
			return nil, err
		}
	}
	res.Processes = len(procs)

	res.ImportID = r.ids.Generate()
	if err := tx.RecordImport(ctx, res.ImportID, dir, r.clock.Now()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	res.Warnings = warns.list
	if res.Warnings == nil {
		res.Warnings = []Warning{}
	}

	r.logger.Info("session imported",
		"iid", iid,
		"import_id", res.ImportID,
		"syscalls", res.Syscalls,
		"files", res.Files,
		"processes", res.Processes,
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// readRuntime parses runtime.log and extracts the mandatory session id and
// start time.
func (r *Reconciler) readRuntime(dir string, warns *warnSink) (record.RuntimeEnv, int64, float64, error) {
	path := filepath.Join(dir, RuntimeLog)
	env := record.RuntimeEnv{}

	err := scanLog(path, warns.skipper(RuntimeLog), func(lineNo int, line string) error {
		key, value, err := parseRuntimeLine(line)
		if err != nil {
			warns.skipLine(RuntimeLog, lineNo, err)
			return nil
		}
		env[key] = value
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}

	iid, ok := env.Int(record.KeySessionID)
	if !ok {
		return nil, 0, 0, &MalformedLogError{Path: path, Reason: "missing or invalid session id (iid)"}
	}
	start, ok := env.Float(record.KeyStart)
	if !ok {
		return nil, 0, 0, &MalformedLogError{Path: path, Reason: "missing or invalid session start (start)"}
	}
	return env, iid, start, nil
}

// importSyscalls streams sysc.log into tx, normalizing timestamps onto the
// session time axis.
func (r *Reconciler) importSyscalls(ctx context.Context, tx *store.ImportTx, dir string, sessionStart float64, warns *warnSink) (int, error) {
	count := 0
	prev, havePrev := 0.0, false

	err := scanLog(filepath.Join(dir, SyscallLog), warns.skipper(SyscallLog), func(lineNo int, line string) error {
		ev, ts, err := parseSyscallLine(line)
		if err != nil {
			warns.skipLine(SyscallLog, lineNo, err)
			return nil
		}

		if havePrev && ts < prev {
			warns.add(SyscallLog, lineNo, "timestamp %.6f earlier than previous %.6f", ts, prev)
		}
		prev, havePrev = ts, true

		ev.Stamp = ts - sessionStart
		if ev.Stamp < 0 {
			warns.add(SyscallLog, lineNo, "timestamp %.6f before session start, clamped to 0", ts)
			ev.Stamp = 0
		}

		if err := tx.InsertSyscall(ctx, ev); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// importFiles streams file.log into tx.
func (r *Reconciler) importFiles(ctx context.Context, tx *store.ImportTx, dir string, warns *warnSink) (int, error) {
	count := 0
	err := scanLog(filepath.Join(dir, FileLog), warns.skipper(FileLog), func(lineNo int, line string) error {
		f, err := parseFileLine(line)
		if err != nil {
			warns.skipLine(FileLog, lineNo, err)
			return nil
		}
		if err := tx.InsertFile(ctx, f); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// reconcileProcesses folds every available process source, lowest rank
// first, into one partial per pid.
func (r *Reconciler) reconcileProcesses(dir string, env record.RuntimeEnv, warns *warnSink) (processTable, error) {
	procs := processTable{}

	clktck, okTck := env.Float(record.KeyClockTick)
	sysbtime, okBoot := env.Float(record.KeyBootTime)
	tickOK := okTck && okBoot && clktck > 0 && sysbtime > 0
	conv := ticks{clktck: clktck, sysbtime: sysbtime}

	for _, src := range processSources {
		path := filepath.Join(dir, src.name)
		present, err := exists(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", src.name, err)
		}
		if !present {
			r.logger.Debug("process source absent", "log", src.name)
			continue
		}
		if src.usesTicks && !tickOK {
			warns.add(src.name, 0, "skipped: runtime log lacks usable clktck/sysbtime")
			continue
		}

		err = scanLog(path, warns.skipper(src.name), func(lineNo int, line string) error {
			pid, p, err := src.parse(line, conv)
			if err != nil {
				warns.skipLine(src.name, lineNo, err)
				return nil
			}
			if pid < 0 {
				warns.skipLine(src.name, lineNo, fmt.Errorf("negative pid %d", pid))
				return nil
			}
			procs.merge(pid, p)
			return nil
		})

		var malformed *MalformedLogError
		if errors.As(err, &malformed) {
			warns.add(src.name, 0, "skipped: %s", malformed.Reason)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return procs, nil
}
