package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ftrac/internal/config"
	"github.com/roach88/ftrac/internal/testutil"
)

// sessionDir has three reads of 100/200/300 bytes and one write, by pids
// 5 and 6.
func sessionDir(t *testing.T) string {
	return testutil.MinimalSession(t, "1").
		Log("sysc.log",
			"1000.0,5,3,1,100,0.5,100,0",
			"1000.25,5,3,1,200,1.0,200,100",
			"1000.5,6,4,2,50,0.25,50,0",
			"1001.0,6,3,2,300,1.5,300,0",
		).
		Log("file.log", "1:/tmp/a", "2:/tmp/b").
		Log("taskstat.log", "5,1,0,0,1000,2.5,/bin/cat").
		Log("ptrace.log", "6,5,0,1002,50,25,/bin/sh,").
		Path()
}

type cliRun struct {
	code   int
	stdout string
	stderr string
}

func execCLI(t *testing.T, args ...string) cliRun {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return cliRun{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// importedDB returns a database holding sessionDir.
func importedDB(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvVar, "")
	db := filepath.Join(t.TempDir(), "ftrac.db")
	run := execCLI(t, "--db", db, "import", sessionDir(t))
	require.Equal(t, ExitSuccess, run.code, run.stderr)
	return db
}

func decodeData(t *testing.T, raw string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &resp), raw)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestImport_Text(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	db := filepath.Join(t.TempDir(), "ftrac.db")

	run := execCLI(t, "--db", db, "import", sessionDir(t))
	require.Equal(t, ExitSuccess, run.code, run.stderr)
	assert.Contains(t, run.stdout, "imported session 1")
	assert.Contains(t, run.stdout, "4 syscalls, 2 files, 2 processes, 0 warnings")
}

func TestImport_JSON(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	db := filepath.Join(t.TempDir(), "ftrac.db")

	run := execCLI(t, "--db", db, "--format", "json", "import", sessionDir(t))
	require.Equal(t, ExitSuccess, run.code, run.stderr)

	var res struct {
		Imports []struct {
			SessionID int64  `json:"iid"`
			ImportID  string `json:"import_id"`
			Syscalls  int    `json:"syscalls"`
		} `json:"imports"`
	}
	decodeData(t, run.stdout, &res)
	require.Len(t, res.Imports, 1)
	assert.Equal(t, int64(1), res.Imports[0].SessionID)
	assert.Equal(t, 4, res.Imports[0].Syscalls)
	assert.NotEmpty(t, res.Imports[0].ImportID)
}

func TestImport_MissingLogIsCommandError(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	db := filepath.Join(t.TempDir(), "ftrac.db")
	dir := testutil.MinimalSession(t, "1").Remove("file.log").Path()

	run := execCLI(t, "--db", db, "import", dir)
	assert.Equal(t, ExitCommandError, run.code)
	assert.Contains(t, run.stderr, ErrCodeMissingLog)
	assert.Contains(t, run.stderr, "file.log")

	sessions := execCLI(t, "--db", db, "sessions")
	assert.Equal(t, "no sessions imported\n", sessions.stdout)
}

func TestImport_MalformedRuntimeIsFailure(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	db := filepath.Join(t.TempDir(), "ftrac.db")
	dir := testutil.MinimalSession(t, "1").Raw("runtime.log", "iid:1\nstart:1000\n").Path()

	run := execCLI(t, "--db", db, "import", dir)
	assert.Equal(t, ExitFailure, run.code)
	assert.Contains(t, run.stderr, ErrCodeMalformedLog)
}

func TestImport_MetricsFile(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	tmp := t.TempDir()
	metrics := filepath.Join(tmp, "ftrac.prom")

	run := execCLI(t, "--db", filepath.Join(tmp, "ftrac.db"), "import", "--metrics-file", metrics, sessionDir(t))
	require.Equal(t, ExitSuccess, run.code, run.stderr)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ftrac_import_runs_total{outcome="success"} 1`)
	assert.Contains(t, string(data), `ftrac_import_rows_total{table="syscall"} 4`)
}

func TestAggregate(t *testing.T) {
	db := importedDB(t)

	sum := execCLI(t, "--db", db, "aggregate", "--column", "aux1", "--op", "sum", "--where", "sysc=read")
	require.Equal(t, ExitSuccess, sum.code, sum.stderr)
	assert.Equal(t, "600\n", sum.stdout)

	avg := execCLI(t, "--db", db, "aggregate", "-c", "aux1", "--op", "average", "-w", "sysc=3", "-w", "iid=1")
	require.Equal(t, ExitSuccess, avg.code, avg.stderr)
	assert.Equal(t, "200\n", avg.stdout)

	count := execCLI(t, "--db", db, "aggregate", "--table", "proc")
	require.Equal(t, ExitSuccess, count.code, count.stderr)
	assert.Equal(t, "2\n", count.stdout)

	empty := execCLI(t, "--db", db, "aggregate", "--column", "aux1", "--op", "sum", "--where", "sysc=unlink")
	require.Equal(t, ExitSuccess, empty.code, empty.stderr)
	assert.Equal(t, "0\n", empty.stdout)
}

func TestAggregate_Errors(t *testing.T) {
	db := importedDB(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad op", []string{"aggregate", "--column", "aux1", "--op", "median"}},
		{"sum without column", []string{"aggregate", "--op", "sum"}},
		{"bad where", []string{"aggregate", "--where", "pid"}},
		{"unknown table", []string{"aggregate", "--table", "bogus"}},
		{"text column", []string{"aggregate", "--table", "file", "--column", "path", "--op", "sum"}},
		{"unknown syscall", []string{"aggregate", "--where", "sysc=teleport"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := execCLI(t, append([]string{"--db", db}, tt.args...)...)
			assert.Equal(t, ExitCommandError, run.code)
			assert.Contains(t, run.stderr, ErrCodeInvalidQuery)
		})
	}
}

func TestGroup(t *testing.T) {
	db := importedDB(t)

	run := execCLI(t, "--db", db, "--format", "json", "group", "--column", "aux1", "--by", "pid", "--where", "sysc=read")
	require.Equal(t, ExitSuccess, run.code, run.stderr)

	var res GroupResult
	decodeData(t, run.stdout, &res)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, int64(5), res.Groups[0].Key)
	assert.Equal(t, 300.0, res.Groups[0].Value)
	assert.Equal(t, int64(6), res.Groups[1].Key)
	assert.Equal(t, 300.0, res.Groups[1].Value)
}

func TestThroughput(t *testing.T) {
	db := importedDB(t)

	run := execCLI(t, "--db", db, "--format", "json", "throughput", "--syscall", "read", "--where", "iid=1")
	require.Equal(t, ExitSuccess, run.code, run.stderr)

	var res ThroughputResult
	decodeData(t, run.stdout, &res)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 300.0, res.Rows[0].Work)
	assert.Equal(t, 200.0, res.Rows[0].Rate)
	assert.Equal(t, 200.0, res.Rows[1].Rate)

	missing := execCLI(t, "--db", db, "throughput")
	assert.Equal(t, ExitCommandError, missing.code)
	assert.Contains(t, missing.stderr, "syscall")
}

func TestCDF(t *testing.T) {
	db := importedDB(t)

	run := execCLI(t, "--db", db, "--format", "json", "cdf", "--table", "syscall", "--column", "aux1", "--where", "sysc=read")
	require.Equal(t, ExitSuccess, run.code, run.stderr)

	var res CDFResult
	decodeData(t, run.stdout, &res)
	assert.Equal(t, "sum", res.Weight)
	require.Len(t, res.Points, 3)
	assert.Equal(t, 100.0, res.Points[0].Value)
	assert.Equal(t, 1.0, res.Points[2].Ratio)

	empty := execCLI(t, "--db", db, "cdf", "--table", "syscall", "--column", "aux1", "--where", "sysc=unlink")
	require.Equal(t, ExitSuccess, empty.code, empty.stderr)
	assert.Equal(t, "0\t0\n", empty.stdout)

	negative := execCLI(t, "--db", db, "cdf", "--column", "elapsed", "--vthreshold", "-1")
	assert.Equal(t, ExitCommandError, negative.code)
	assert.Contains(t, negative.stderr, ErrCodeInvalidQuery)
}

func TestCDF_WeightFromConfig(t *testing.T) {
	db := importedDB(t)
	cfg := filepath.Join(t.TempDir(), "ftrac.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("cdf:\n  weight: count\n"), 0o644))

	run := execCLI(t, "--db", db, "--config", cfg, "--format", "json", "cdf", "--column", "elapsed")
	require.Equal(t, ExitSuccess, run.code, run.stderr)

	var res CDFResult
	decodeData(t, run.stdout, &res)
	assert.Equal(t, "count", res.Weight)
	require.Len(t, res.Points, 2)
	assert.Equal(t, 0.5, res.Points[0].Ratio)

	override := execCLI(t, "--db", db, "--config", cfg, "--format", "json", "cdf", "--column", "elapsed", "--weight", "sum")
	require.Equal(t, ExitSuccess, override.code, override.stderr)
	decodeData(t, override.stdout, &res)
	assert.Equal(t, "sum", res.Weight)
}

func TestSummary(t *testing.T) {
	db := importedDB(t)

	run := execCLI(t, "--db", db, "summary", "--where", "iid=1")
	require.Equal(t, ExitSuccess, run.code, run.stderr)
	assert.Contains(t, run.stdout, "read")
	assert.Contains(t, run.stdout, "write")
	assert.Contains(t, run.stdout, "read: 600 bytes")
}

func TestProcs(t *testing.T) {
	db := importedDB(t)

	all := execCLI(t, "--db", db, "procs")
	require.Equal(t, ExitSuccess, all.code, all.stderr)
	assert.Equal(t, "5\n6\n", all.stdout)

	writers := execCLI(t, "--db", db, "procs", "--where", "sysc=write")
	require.Equal(t, ExitSuccess, writers.code, writers.stderr)
	assert.Equal(t, "6\n", writers.stdout)
}

func TestRuntimeAndSessions(t *testing.T) {
	db := importedDB(t)

	sessions := execCLI(t, "--db", db, "sessions")
	require.Equal(t, ExitSuccess, sessions.code, sessions.stderr)
	assert.Equal(t, "1\n", sessions.stdout)

	rt := execCLI(t, "--db", db, "runtime", "--session", "1")
	require.Equal(t, ExitSuccess, rt.code, rt.stderr)
	assert.Contains(t, rt.stdout, "hostname: tracehost\n")

	missing := execCLI(t, "--db", db, "runtime", "--session", "9")
	assert.Equal(t, ExitCommandError, missing.code)
	assert.Contains(t, missing.stderr, ErrCodeNotFound)
}

func TestSyscalls(t *testing.T) {
	t.Setenv(config.EnvVar, "")

	run := execCLI(t, "--db", filepath.Join(t.TempDir(), "ftrac.db"), "syscalls")
	require.Equal(t, ExitSuccess, run.code, run.stderr)
	assert.Contains(t, run.stdout, "3    read\n")
	assert.Contains(t, run.stdout, "206  closedir\n")
}

func TestExecute_CommandErrors(t *testing.T) {
	t.Setenv(config.EnvVar, "")

	badFormat := execCLI(t, "--format", "xml", "syscalls")
	assert.Equal(t, ExitCommandError, badFormat.code)
	assert.Contains(t, badFormat.stderr, "invalid format")

	unknown := execCLI(t, "frobnicate")
	assert.Equal(t, ExitCommandError, unknown.code)
	assert.Contains(t, unknown.stderr, "unknown command")

	cfg := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("log_level: loud\n"), 0o644))
	badConfig := execCLI(t, "--config", cfg, "syscalls")
	assert.Equal(t, ExitCommandError, badConfig.code)
	assert.Contains(t, badConfig.stderr, "log_level")
}

func TestConfigDatabaseUsedWithoutFlag(t *testing.T) {
	tmp := t.TempDir()
	db := filepath.Join(tmp, "from-config.db")
	cfg := filepath.Join(tmp, "ftrac.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("database: "+db+"\n"), 0o644))
	t.Setenv(config.EnvVar, cfg)

	run := execCLI(t, "import", sessionDir(t))
	require.Equal(t, ExitSuccess, run.code, run.stderr)

	_, err := os.Stat(db)
	assert.NoError(t, err)
}
