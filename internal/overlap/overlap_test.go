package overlap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/testutil"
)

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b ir.Hit
		want bool
	}{
		{"identical", testutil.Hit("KS", 0, 100), testutil.Hit("KS", 0, 100), true},
		{"ninety percent", testutil.Hit("KS", 0, 100), testutil.Hit("KS", 10, 110), true},
		{"tail only", testutil.Hit("KS", 0, 100), testutil.Hit("KS", 90, 200), false},
		{"contained short hit", testutil.Hit("C", 0, 100), testutil.Hit("E", 80, 100), true},
		{"disjoint", testutil.Hit("KS", 0, 100), testutil.Hit("AT", 150, 250), false},
		{"touching", testutil.Hit("KS", 0, 100), testutil.Hit("AT", 100, 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b, DefaultThreshold))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a, DefaultThreshold), "symmetric")
		})
	}
}

func TestGroupsAnchorsOnFirstMember(t *testing.T) {
	hits := []ir.Hit{
		testutil.Hit("A", 0, 100),
		testutil.Hit("A", 10, 110),
		testutil.Hit("A", 90, 200),
		testutil.Hit("A", 180, 290),
		testutil.Hit("A", 180, 300),
	}

	groups := Collect(hits, DefaultThreshold)
	require.Len(t, groups, 3)
	assert.Equal(t, hits[0:2], groups[0])
	assert.Equal(t, hits[2:3], groups[1])
	assert.Equal(t, hits[3:5], groups[2])
}

func TestGroupsSingletonsWhenNothingOverlaps(t *testing.T) {
	hits := testutil.Hits("KS", "AT", "DH", "ER", "KR", "ACP")
	groups := Collect(hits, DefaultThreshold)

	require.Len(t, groups, len(hits))
	for i, g := range groups {
		assert.Equal(t, []ir.Hit{hits[i]}, g)
	}
}

func TestGroupsSortsCopy(t *testing.T) {
	hits := []ir.Hit{
		testutil.Hit("AT", 200, 300),
		testutil.Hit("KS", 0, 100),
	}
	groups := Collect(hits, DefaultThreshold)

	require.Len(t, groups, 2)
	assert.Equal(t, "KS", groups[0][0].Type)
	assert.Equal(t, "AT", hits[0].Type, "input order untouched")
}

func TestGroupsEmpty(t *testing.T) {
	assert.Empty(t, Collect(nil, DefaultThreshold))
	for range Groups([]ir.Hit{}, DefaultThreshold) {
		t.Fatal("no groups expected")
	}
}

func TestGroupsCoverEveryHitOnce(t *testing.T) {
	hits := []ir.Hit{
		testutil.Hit("C", 0, 100),
		testutil.Hit("E", 80, 100),
		testutil.Hit("A", 120, 500),
		testutil.Hit("A", 130, 490),
		testutil.Hit("T", 600, 660),
	}
	total := 0
	for g := range Groups(hits, DefaultThreshold) {
		assert.NotEmpty(t, g)
		total += len(g)
	}
	assert.Equal(t, len(hits), total)
}

func TestGroupsEarlyStop(t *testing.T) {
	hits := testutil.Hits("KS", "AT", "ACP")
	count := 0
	for range Groups(hits, DefaultThreshold) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
