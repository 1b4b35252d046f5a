package resolve

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/overlap"
	"github.com/roach88/synthase/internal/testutil"
)

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, ByEValue, m)

	m, err = ParseMetric("bitscore")
	require.NoError(t, err)
	assert.Equal(t, ByBitScore, m)

	_, err = ParseMetric("coverage")
	assert.Error(t, err)
}

func TestResolveGroupByEValue(t *testing.T) {
	group := []ir.Hit{
		testutil.ScoredHit("KS", 0, 100, 1e-10, 50),
		testutil.ScoredHit("KS", 5, 100, 1e-50, 40),
		testutil.ScoredHit("KS", 5, 110, 1e-20, 90),
	}
	got := New().ResolveGroup(group)
	assert.Equal(t, group[1], got)
}

func TestResolveGroupByBitScoreUsesFamilyThreshold(t *testing.T) {
	families := ir.NewFamilyTable([]ir.Family{
		{Name: "PKS_KS", Type: "KS", BitScore: 100},
		{Name: "CLF", Type: "KS", BitScore: 400},
	})
	group := []ir.Hit{
		{Type: "KS", Family: "CLF", Start: 0, End: 100, BitScore: 300},    // 0.75
		{Type: "KS", Family: "PKS_KS", Start: 0, End: 100, BitScore: 150}, // 1.5
	}
	got := New(WithMetric(ByBitScore), WithFamilies(families)).ResolveGroup(group)
	assert.Equal(t, "PKS_KS", got.Family)

	raw := New(WithMetric(ByBitScore)).ResolveGroup(group)
	assert.Equal(t, "CLF", raw.Family, "raw score without thresholds")
}

func TestResolveGroupByBitScoreMixedThresholds(t *testing.T) {
	families := ir.NewFamilyTable([]ir.Family{
		{Name: "PKS_KS", Type: "KS", BitScore: 300},
		{Name: "PKS", Type: "KS"},
	})
	group := []ir.Hit{
		{Type: "KS", Family: "PKS", Start: 0, End: 100, BitScore: 20},
		{Type: "KS", Family: "PKS_KS", Start: 0, End: 100, BitScore: 900},
	}
	got := New(WithMetric(ByBitScore), WithFamilies(families)).ResolveGroup(group)
	assert.Equal(t, "PKS_KS", got.Family, "scores compared raw when a threshold is missing")

	swapped := []ir.Hit{group[1], group[0]}
	assert.Equal(t, 0, New(WithMetric(ByBitScore), WithFamilies(families)).Best(swapped))
}

func TestResolveGroupByLength(t *testing.T) {
	group := []ir.Hit{
		testutil.Hit("A", 0, 100),
		testutil.Hit("A", 0, 150),
		testutil.Hit("A", 10, 120),
	}
	got := New(WithMetric(ByLength)).ResolveGroup(group)
	assert.Equal(t, 150, got.End)
}

func TestResolveGroupTiesKeepStartOrder(t *testing.T) {
	group := []ir.Hit{
		testutil.FamilyHit("KS", "first", 0, 100),
		testutil.FamilyHit("KS", "second", 2, 100),
	}
	assert.Equal(t, "first", New().ResolveGroup(group).Family)
	assert.Equal(t, "first", New(WithMetric(ByBitScore)).ResolveGroup(group).Family)
}

func TestResolveSingletonIsIdentity(t *testing.T) {
	for _, m := range ValidMetrics {
		h := testutil.ScoredHit("C", 0, 100, 1e-5, 10)
		assert.Equal(t, h, New(WithMetric(m)).ResolveGroup([]ir.Hit{h}), string(m))
	}
}

func TestResolveEmptyGroupPanics(t *testing.T) {
	assert.Panics(t, func() { New().ResolveGroup(nil) })
}

func TestEpimerizationRetypesRepresentative(t *testing.T) {
	c := testutil.FamilyHit("C", "Condensation", 0, 100)
	e := testutil.FamilyHit("E", "NRPS-para261", 80, 100)
	groups := overlap.Collect([]ir.Hit{c, e}, overlap.DefaultThreshold)
	require.Len(t, groups, 1)

	got := New().Resolve(slices.Values(groups))
	require.Len(t, got, 1)
	assert.Equal(t, "E", got[0].Type)
	assert.Equal(t, "Condensation", got[0].Family)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, 100, got[0].End)
}

func TestAdjacencyRulesCanBeDisabled(t *testing.T) {
	group := []ir.Hit{
		testutil.Hit("C", 0, 100),
		testutil.Hit("E", 80, 100),
	}
	got := New(WithAdjacencyRules()).ResolveGroup(group)
	assert.Equal(t, "C", got.Type)
}

func TestFirstAdjacencyRuleWins(t *testing.T) {
	rules := []ir.AdjacencyRule{
		{Name: "first", Representative: "KS", Candidate: "AT", Target: "X"},
		{Name: "second", Representative: "KS", Candidate: "AT", Target: "Y"},
	}
	group := []ir.Hit{
		testutil.ScoredHit("KS", 0, 100, 1e-30, 0),
		testutil.ScoredHit("AT", 5, 100, 1e-3, 0),
	}
	got := New(WithAdjacencyRules(rules...)).ResolveGroup(group)
	assert.Equal(t, "X", got.Type)
}

func TestResolveDoesNotMutateGroup(t *testing.T) {
	group := []ir.Hit{
		testutil.Hit("C", 0, 100),
		testutil.Hit("E", 80, 100),
	}
	New().ResolveGroup(group)
	assert.Equal(t, "C", group[0].Type)
}
