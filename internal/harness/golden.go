package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/synthase/internal/ir"
)

// Snapshot renders a scenario result as canonical JSON: the scenario name,
// the run token and, per query, either the canonical result value (header,
// architecture, classification, hits without scores) or the error code.
func Snapshot(name string, result *Result) ([]byte, error) {
	queries := make(ir.IRArray, len(result.Queries))
	for i, q := range result.Queries {
		if q.Error != "" {
			queries[i] = ir.IRObject{
				"header": ir.IRString(q.Header),
				"error":  ir.IRString(q.Error),
			}
			continue
		}
		queries[i] = ir.ResultValue(ir.Result{
			Header:         q.Header,
			Hits:           q.Hits,
			Classification: q.Classification,
		})
	}
	return ir.MarshalCanonical(ir.IRObject{
		"scenario_name": ir.IRString(name),
		"run_id":        ir.IRString(result.RunID),
		"results":       queries,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
