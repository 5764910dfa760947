package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/ftrac/internal/reconcile"
	"github.com/roach88/ftrac/internal/stats"
	"github.com/roach88/ftrac/internal/store"
	"github.com/roach88/ftrac/internal/testutil"
)

// Run imports every session of the scenario into a fresh in-memory store
// and evaluates its assertions.
//
// Import failures are not errors of Run: they are recorded per session and
// checked by import_error assertions. Run returns an error only when the
// harness itself cannot proceed.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	root, err := os.MkdirTemp("", "ftrac-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create session root: %w", err)
	}
	defer os.RemoveAll(root)

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := reconcile.New(st,
		reconcile.WithLogger(discard),
		reconcile.WithIDGenerator(testutil.NewFixedGenerator()),
		reconcile.WithClock(testutil.NewFixedClock()),
	)

	result := NewResult()
	for i, sess := range scenario.Sessions {
		dir := filepath.Join(root, fmt.Sprintf("session-%d", i))
		if err := writeSession(dir, sess); err != nil {
			return nil, fmt.Errorf("sessions[%d]: %w", i, err)
		}
		res, err := rec.Reconcile(ctx, dir)
		result.Imports = append(result.Imports, ImportOutcome{Result: res, Err: err})
	}

	iids, err := st.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, iid := range iids {
		sess, err := st.ReadSession(ctx, iid)
		if err != nil {
			return nil, fmt.Errorf("failed to read session %d: %w", iid, err)
		}
		result.Sessions = append(result.Sessions, sess)
	}

	eng := stats.New(st, stats.WithLogger(discard))
	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(ctx, eng, result, a); err != nil {
			result.AddError("assertion %d (%s): %v", i, a.Type, err)
		}
	}
	return result, nil
}

// writeSession lays out one session directory.
func writeSession(dir string, sess SessionSpec) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if sess.Runtime != nil {
		keys := make([]string, 0, len(sess.Runtime))
		for k := range sess.Runtime {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = k + ":" + sess.Runtime[k]
		}
		if err := writeLog(dir, reconcile.RuntimeLog, lines); err != nil {
			return err
		}
	}

	for name, lines := range sess.Logs {
		if err := writeLog(dir, name, lines); err != nil {
			return err
		}
	}
	for name, content := range sess.Raw {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func writeLog(dir, name string, lines []string) error {
	var b strings.Builder
	b.WriteString("# " + name + "\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644)
}
