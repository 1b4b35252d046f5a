package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHitLen(t *testing.T) {
	assert.Equal(t, 100, Hit{Start: 0, End: 100}.Len())
	assert.Equal(t, 0, Hit{Start: 5, End: 5}.Len())
}

func TestHitSlice(t *testing.T) {
	seq := "ACDEFGHIKL"

	tests := []struct {
		name string
		hit  Hit
		want string
	}{
		{"interior", Hit{Start: 2, End: 4}, "CDE"},
		{"whole", Hit{Start: 1, End: 10}, seq},
		{"clipped end", Hit{Start: 8, End: 50}, "IKL"},
		{"zero start", Hit{Start: 0, End: 2}, "AC"},
		{"past end", Hit{Start: 20, End: 30}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.hit.Slice(seq))
		})
	}
}

func TestSortByStartIsStable(t *testing.T) {
	hits := []Hit{
		{Type: "B", Start: 10},
		{Type: "A", Start: 5},
		{Type: "C", Start: 10},
	}
	SortByStart(hits)
	assert.Equal(t, "A-B-C", Architecture(hits))
}

func TestCloneHitsIsIndependent(t *testing.T) {
	orig := []Hit{{Type: "KS"}}
	clone := CloneHits(orig)
	clone[0].Type = "AT"
	assert.Equal(t, "KS", orig[0].Type)

	assert.NotNil(t, CloneHits(nil))
}

func TestArchitecture(t *testing.T) {
	hits := []Hit{{Type: "KS"}, {Type: "AT"}, {Type: "ACP"}}
	assert.Equal(t, "KS-AT-ACP", Architecture(hits))
	assert.Equal(t, "", Architecture(nil))
}

func TestAdjacencyMatches(t *testing.T) {
	c := Hit{Type: "C", Start: 0, End: 100}
	e := Hit{Type: "E", Start: 80, End: 100}

	assert.True(t, Epimerization.Matches(c, e))
	assert.False(t, Epimerization.Matches(e, c), "orientation matters")

	longE := Hit{Type: "E", Start: 0, End: 200}
	assert.False(t, Epimerization.Matches(c, longE), "candidate must be shorter")

	got, ok := ApplyAdjacency(DefaultAdjacencyRules(), c, e)
	assert.True(t, ok)
	assert.Equal(t, "E", got.Type)
	assert.Equal(t, "C", c.Type, "input not mutated")

	_, ok = ApplyAdjacency(nil, c, e)
	assert.False(t, ok)
}

func TestGroupByClassification(t *testing.T) {
	results := []Result{
		{Header: "a", Classification: []string{"PKS", "Type I PKS", "HR-PKS"}},
		{Header: "b", Classification: []string{"PKS", "Type I PKS", "NR-PKS"}},
		{Header: "c"},
	}
	groups := GroupByClassification(results)

	assert.Equal(t, []string{"a", "b"}, groups["PKS"])
	assert.Equal(t, []string{"a"}, groups["HR-PKS"])
	assert.Equal(t, []string{"c"}, groups[""])
}
