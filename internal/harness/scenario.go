package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ftrac/internal/reconcile"
)

// Scenario defines an end-to-end test: session logs to import and
// assertions over the imported records.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sessions are imported in order.
	Sessions []SessionSpec `yaml:"sessions"`

	// Assertions are evaluated after every session has been imported.
	Assertions []Assertion `yaml:"assertions"`
}

// SessionSpec describes one session directory.
type SessionSpec struct {
	// Runtime is written as runtime.log, one "key:value" line per entry.
	Runtime map[string]string `yaml:"runtime,omitempty"`

	// Logs maps a log name to its lines. A header line is added.
	Logs map[string][]string `yaml:"logs,omitempty"`

	// Raw maps a log name to its exact content.
	Raw map[string]string `yaml:"raw,omitempty"`
}

// Assertion validates the imported records or the import outcome.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Session indexes Sessions (warnings, import_error).
	Session int `yaml:"session,omitempty"`

	// Query shape (aggregate, group, cdf, throughput).
	Table   string         `yaml:"table,omitempty"`
	Column  string         `yaml:"column,omitempty"`
	Op      string         `yaml:"op,omitempty"`
	By      string         `yaml:"by,omitempty"`
	Syscall string         `yaml:"syscall,omitempty"`
	Where   map[string]any `yaml:"where,omitempty"`

	// CDF options.
	VThreshold float64 `yaml:"vthreshold,omitempty"`
	RThreshold float64 `yaml:"rthreshold,omitempty"`
	Weight     string  `yaml:"weight,omitempty"`

	// Expectations; which one applies depends on Type.
	Value  *float64       `yaml:"value,omitempty"`
	Groups []GroupExpect  `yaml:"groups,omitempty"`
	Points [][2]float64   `yaml:"points,omitempty"`
	PIDs   []int64        `yaml:"pids,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
	Count  *int           `yaml:"count,omitempty"`
	Error  string         `yaml:"error,omitempty"`
}

// GroupExpect is one expected (key, value) row.
type GroupExpect struct {
	Key   int64   `yaml:"key"`
	Value float64 `yaml:"value"`
}

// Assertion type constants.
const (
	AssertAggregate   = "aggregate"
	AssertGroup       = "group"
	AssertThroughput  = "throughput"
	AssertCDF         = "cdf"
	AssertProcs       = "procs"
	AssertProcess     = "process"
	AssertWarnings    = "warnings"
	AssertImportError = "import_error"
)

// Import error kinds reported by import_error and in snapshots.
const (
	ErrorMissingLog   = "missing_log"
	ErrorMalformedLog = "malformed_log"
	ErrorOther        = "error"
)

// knownLogs are the file names a session may contain.
var knownLogs = []string{
	reconcile.RuntimeLog,
	reconcile.SyscallLog,
	reconcile.FileLog,
	reconcile.ProcLog,
	reconcile.PtraceLog,
	reconcile.TaskstatLog,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Sessions) == 0 {
		return fmt.Errorf("sessions list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, sess := range s.Sessions {
		for name := range sess.Logs {
			if !slices.Contains(knownLogs, name) {
				return fmt.Errorf("sessions[%d]: unknown log %q", i, name)
			}
		}
		for name := range sess.Raw {
			if !slices.Contains(knownLogs, name) {
				return fmt.Errorf("sessions[%d]: unknown log %q", i, name)
			}
			if _, dup := sess.Logs[name]; dup {
				return fmt.Errorf("sessions[%d]: %s given both as logs and raw", i, name)
			}
		}
		if _, ok := sess.Logs[reconcile.RuntimeLog]; ok && sess.Runtime != nil {
			return fmt.Errorf("sessions[%d]: runtime given both as a map and a log", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, len(s.Sessions)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, sessions int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Session < 0 || a.Session >= sessions {
		return fmt.Errorf("assertions[%d]: session %d out of range", index, a.Session)
	}

	switch a.Type {
	case AssertAggregate:
		if a.Table == "" || a.Op == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: table, op and value are required for aggregate", index)
		}
	case AssertGroup:
		if a.Table == "" || a.Column == "" || a.By == "" {
			return fmt.Errorf("assertions[%d]: table, column and by are required for group", index)
		}
	case AssertThroughput:
		if a.Syscall == "" || a.By == "" {
			return fmt.Errorf("assertions[%d]: syscall and by are required for throughput", index)
		}
	case AssertCDF:
		if a.Table == "" || a.Column == "" || len(a.Points) == 0 {
			return fmt.Errorf("assertions[%d]: table, column and points are required for cdf", index)
		}
	case AssertProcs:
		if a.PIDs == nil {
			return fmt.Errorf("assertions[%d]: pids is required for procs (use [] for none)", index)
		}
	case AssertProcess:
		if len(a.Where) == 0 || len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: where and expect are required for process", index)
		}
	case AssertWarnings:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for warnings", index)
		}
	case AssertImportError:
		switch a.Error {
		case ErrorMissingLog, ErrorMalformedLog, ErrorOther:
		default:
			return fmt.Errorf("assertions[%d]: error must be %s, %s or %s", index, ErrorMissingLog, ErrorMalformedLog, ErrorOther)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
