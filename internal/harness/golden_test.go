package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/synthase/internal/ir"
)

func TestSnapshot_Canonical(t *testing.T) {
	result := &Result{
		RunID: "run-1",
		Queries: []QueryResult{
			{
				Header:         "q1",
				Classification: []string{"PKS"},
				Hits: []ir.Hit{
					{Type: "KS", Family: "PKS_KS", Start: 1, End: 420, EValue: 1e-50, BitScore: 300},
				},
			},
			{Header: "q2", Error: "INVALID_HIT"},
		},
	}

	data, err := Snapshot("demo", result)
	require.NoError(t, err)

	want := `{"results":[` +
		`{"architecture":"KS","classification":["PKS"],"header":"q1","hits":[{"end":420,"family":"PKS_KS","start":1,"truncated":false,"type":"KS"}]},` +
		`{"error":"INVALID_HIT","header":"q2"}` +
		`],"run_id":"run-1","scenario_name":"demo"}`
	assert.Equal(t, want, string(data))
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/nr-pks-and-nrps.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAssertGolden_ExistingResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/fragment-merge.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, scenario.Name, result))
}
