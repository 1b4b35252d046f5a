package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() Result {
	return Result{
		Header: "AN6791.2",
		Hits: []Hit{
			{Type: "KS", Family: "PKS_KS", Start: 9, End: 430, EValue: 1e-100, BitScore: 696.5},
			{Type: "AT", Family: "PKS_AT", Start: 540, End: 840},
		},
		Classification: []string{"PKS", "Type I PKS", "NR-PKS"},
	}
}

func TestResultIDDeterminism(t *testing.T) {
	id1, err := ResultID(sampleResult())
	require.NoError(t, err)
	id2, err := ResultID(sampleResult())
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestResultIDIgnoresScores(t *testing.T) {
	a := sampleResult()
	b := sampleResult()
	b.Hits[0].EValue = 0
	b.Hits[0].BitScore = 1

	assert.Equal(t, MustResultID(a), MustResultID(b))
}

func TestResultIDChangesWithContent(t *testing.T) {
	base := MustResultID(sampleResult())

	retyped := sampleResult()
	retyped.Hits[1].Type = "ACP"
	assert.NotEqual(t, base, MustResultID(retyped))

	relabelled := sampleResult()
	relabelled.Classification = []string{"PKS"}
	assert.NotEqual(t, base, MustResultID(relabelled))

	truncated := sampleResult()
	truncated.Hits[0].Truncated = true
	assert.NotEqual(t, base, MustResultID(truncated))
}

func TestRuleGraphHash(t *testing.T) {
	build := func(evaluator Expr) *RuleGraph {
		return NewRuleGraph([]Rule{
			{Name: "Hybrid", Domains: []string{"KS", "A", "C"}, Expr: evaluator},
		}, []Node{{Title: "Hybrid"}})
	}

	h1, err := RuleGraphHash(build(nil))
	require.NoError(t, err)
	h2, err := RuleGraphHash(build(AllOf(3)))
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "default condition hashes like explicit conjunction")

	h3, err := RuleGraphHash(build(And{L: Term(0), R: Or{L: Term(1), R: Term(2)}}))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
