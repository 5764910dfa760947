package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// SessionDir writes tracer log files into a temporary session directory.
//
// Example:
//
//	dir := testutil.NewSessionDir(t).
//	    Runtime(map[string]string{"iid": "1", "start": "1000"}).
//	    Log("sysc.log", "1000.5,5,3,1,100,0.25,100,0").
//	    Log("file.log", "1:/tmp/a").
//	    Path()
type SessionDir struct {
	t   testing.TB
	dir string
}

// NewSessionDir creates an empty session directory under t.TempDir().
func NewSessionDir(t testing.TB) *SessionDir {
	t.Helper()
	return &SessionDir{t: t, dir: t.TempDir()}
}

// Path returns the directory path.
func (s *SessionDir) Path() string {
	return s.dir
}

// Log writes name with a "# name" header followed by lines.
func (s *SessionDir) Log(name string, lines ...string) *SessionDir {
	s.t.Helper()
	content := "# " + name + "\n"
	for _, l := range lines {
		content += l + "\n"
	}
	return s.Raw(name, content)
}

// Raw writes name with exactly content, no header added.
func (s *SessionDir) Raw(name, content string) *SessionDir {
	s.t.Helper()
	if err := os.WriteFile(filepath.Join(s.dir, name), []byte(content), 0o644); err != nil {
		s.t.Fatalf("write %s: %v", name, err)
	}
	return s
}

// Runtime writes runtime.log with one "key:value" line per entry, keys
// sorted.
func (s *SessionDir) Runtime(env map[string]string) *SessionDir {
	s.t.Helper()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ":" + env[k]
	}
	return s.Log("runtime.log", lines...)
}

// Remove deletes name from the directory.
func (s *SessionDir) Remove(name string) *SessionDir {
	s.t.Helper()
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		s.t.Fatalf("remove %s: %v", name, err)
	}
	return s
}

// MinimalSession writes the smallest valid session: runtime metadata with
// the given id, start 1000, clock ticks and boot time, and empty syscall
// and file logs.
func MinimalSession(t testing.TB, iid string) *SessionDir {
	t.Helper()
	return NewSessionDir(t).
		Runtime(map[string]string{
			"iid":      iid,
			"start":    "1000",
			"clktck":   "100",
			"sysbtime": "1000",
			"hostname": "tracehost",
		}).
		Log("sysc.log").
		Log("file.log")
}

// CSV joins fields with commas.
func CSV(fields ...string) string {
	return strings.Join(fields, ",")
}
