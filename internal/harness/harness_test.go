package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/precedence.yaml")
	require.NoError(t, err)

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ReimportReplacesSession(t *testing.T) {
	session := SessionSpec{
		Runtime: map[string]string{"iid": "9", "start": "0"},
		Logs: map[string][]string{
			"sysc.log": {"1,5,3,1,10,0.5,10,0"},
			"file.log": {"1:/a"},
		},
	}
	count := 1.0
	scenario := &Scenario{
		Name:        "reimport",
		Description: "Importing a session twice keeps one copy",
		Sessions:    []SessionSpec{session, session},
		Assertions: []Assertion{
			{Type: AssertAggregate, Table: "syscall", Op: "count", Value: &count},
			{Type: AssertAggregate, Table: "file", Op: "count", Value: &count},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)

	require.Len(t, result.Imports, 2)
	assert.Equal(t, "import-1", result.Imports[0].Result.ImportID)
	assert.Equal(t, "import-2", result.Imports[1].Result.ImportID)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, int64(9), result.Sessions[0].ID)
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	wrong := 42.0
	zero := 0
	scenario := &Scenario{
		Name:        "failing",
		Description: "Every assertion is wrong",
		Sessions: []SessionSpec{{
			Runtime: map[string]string{"iid": "1", "start": "0"},
			Logs: map[string][]string{
				"sysc.log":     {"1,5,3,1,10,0.5,10,0"},
				"file.log":     {},
				"taskstat.log": {"5,1,0,0,0,1,/bin/x"},
			},
		}},
		Assertions: []Assertion{
			{Type: AssertAggregate, Table: "syscall", Column: "aux1", Op: "sum", Value: &wrong},
			{Type: AssertProcs, PIDs: []int64{6}},
			{Type: AssertProcess, Where: map[string]any{"pid": 5}, Expect: map[string]any{"cmdline": "/bin/y"}},
			{Type: AssertProcess, Where: map[string]any{"pid": 77}, Expect: map[string]any{"live": true}},
			{Type: AssertImportError, Error: ErrorMissingLog},
			{Type: AssertWarnings, Count: &zero},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "Expected: 42")
	assert.Contains(t, result.Errors[0], "Actual: 10")
	assert.Contains(t, result.Errors[1], "Actual: [5]")
	assert.Contains(t, result.Errors[2], "cmdline=/bin/y")
	assert.Contains(t, result.Errors[3], "0 processes")
	assert.Contains(t, result.Errors[4], "successful import")
}

func TestRun_QueryErrorIsAssertionFailure(t *testing.T) {
	value := 0.0
	scenario := &Scenario{
		Name:        "bad_query",
		Description: "Averaging a text column",
		Sessions: []SessionSpec{{
			Runtime: map[string]string{"iid": "1", "start": "0"},
			Logs:    map[string][]string{"sysc.log": {}, "file.log": {}},
		}},
		Assertions: []Assertion{
			{Type: AssertAggregate, Table: "proc", Column: "cmdline", Op: "average", Value: &value},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertion 0 (aggregate)")
}

func TestImportOutcome_ErrorKind(t *testing.T) {
	assert.Equal(t, "", ImportOutcome{}.ErrorKind())
	assert.Equal(t, ErrorOther, ImportOutcome{Err: assert.AnError}.ErrorKind())
}
