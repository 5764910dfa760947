package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ftrac/internal/record"
)

// Snapshot returns the canonical JSON view of a run: per-session import
// outcomes and the stored records. Import errors appear as their kind only
// since their messages carry temporary paths.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	imports := make([]any, len(result.Imports))
	for i, o := range result.Imports {
		if o.Err != nil {
			imports[i] = map[string]any{"error": o.ErrorKind()}
			continue
		}
		warnings := make([]any, len(o.Result.Warnings))
		for j, w := range o.Result.Warnings {
			warnings[j] = map[string]any{
				"log":     w.Log,
				"line":    w.Line,
				"message": w.Message,
			}
		}
		imports[i] = map[string]any{
			"iid":       o.Result.SessionID,
			"import_id": o.Result.ImportID,
			"warnings":  warnings,
		}
	}

	sessions := make([]any, len(result.Sessions))
	for i, s := range result.Sessions {
		sessions[i] = s.Snapshot()
	}

	return record.MarshalCanonical(map[string]any{
		"scenario": scenarioName,
		"imports":  imports,
		"sessions": sessions,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against the golden
// file named scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
