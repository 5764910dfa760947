package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roach88/ftrac/internal/record"
	"github.com/roach88/ftrac/internal/sysc"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession builds a small session with three reads, one write,
// two files and two processes.
func createTestSession(iid int64) record.Session {
	return record.Session{
		ID:      iid,
		Runtime: record.RuntimeEnv{"iid": "1", "start": "1000.0", "hostname": "box"},
		Syscalls: []record.SyscallEvent{
			{Stamp: 0, PID: 5, Sysc: sysc.Read, FID: 1, Res: 100, Elapsed: 0.5, Aux1: 100},
			{Stamp: 0.25, PID: 5, Sysc: sysc.Read, FID: 1, Res: 200, Elapsed: 1.0, Aux1: 200, Aux2: 100},
			{Stamp: 0.5, PID: 6, Sysc: sysc.Write, FID: 2, Res: 50, Elapsed: 0.25, Aux1: 50},
			{Stamp: 1, PID: 6, Sysc: sysc.Read, FID: 2, Res: 300, Elapsed: 1.5, Aux1: 300},
		},
		Files: []record.FileRecord{
			{FID: 2, Path: "/tmp/b"},
			{FID: 1, Path: "/tmp/a"},
		},
		Processes: []record.ProcessRecord{
			{PID: 5, PPID: 1, Live: false, BTime: -1.5, Elapsed: 2.5, Cmdline: "/bin/cat"},
			{PID: 6, PPID: 5, Live: true, Elapsed: 1, UTime: 0.25, Cmdline: "/bin/sh", Environ: "HOME=/root"},
		},
	}
}

var importCounter atomic.Int64

// importTestSession writes sess through an ImportTx and commits it.
func importTestSession(t *testing.T, s *Store, sess record.Session) {
	t.Helper()
	ctx := context.Background()

	tx, err := s.BeginImport(ctx, sess.ID)
	if err != nil {
		t.Fatalf("BeginImport() failed: %v", err)
	}
	defer tx.Rollback()

	if err := tx.InsertRuntime(ctx, sess.Runtime); err != nil {
		t.Fatalf("InsertRuntime() failed: %v", err)
	}
	for _, ev := range sess.Syscalls {
		if err := tx.InsertSyscall(ctx, ev); err != nil {
			t.Fatalf("InsertSyscall() failed: %v", err)
		}
	}
	for _, f := range sess.Files {
		if err := tx.InsertFile(ctx, f); err != nil {
			t.Fatalf("InsertFile() failed: %v", err)
		}
	}
	for _, p := range sess.Processes {
		if err := tx.InsertProcess(ctx, p); err != nil {
			t.Fatalf("InsertProcess() failed: %v", err)
		}
	}
	if err := tx.RecordImport(ctx, fmt.Sprintf("import-%d", importCounter.Add(1)), "/data/session", time.Unix(0, 0)); err != nil {
		t.Fatalf("RecordImport() failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
}
