// Package overlap partitions the hits on a query into clusters of
// overlapping hits, ready for the resolver to pick one representative each.
package overlap

import (
	"iter"
	"slices"

	"github.com/roach88/synthase/internal/ir"
)

// DefaultThreshold is the minimum overlap fraction used when none is
// configured.
const DefaultThreshold = 0.9

// Overlaps reports whether a and b share at least threshold of the length
// of either hit.
func Overlaps(a, b ir.Hit, threshold float64) bool {
	overlap := float64(max(0, min(a.End, b.End)-max(a.Start, b.Start)))
	return overlap >= threshold*float64(a.Len()) || overlap >= threshold*float64(b.Len())
}

// Groups yields clusters of overlapping hits in start order.
//
// Each group is anchored on its first hit: following hits join while they
// overlap that anchor, and the first one that does not starts the next
// group. Membership is therefore not transitive. Two hits that both overlap
// the anchor need not overlap each other, and a hit overlapping only a
// later member still closes the group.
//
// The input is not modified. Every hit appears in exactly one group and no
// group is empty. Each yielded slice is owned by the caller.
func Groups(hits []ir.Hit, threshold float64) iter.Seq[[]ir.Hit] {
	sorted := ir.CloneHits(hits)
	ir.SortByStart(sorted)

	return func(yield func([]ir.Hit) bool) {
		for i := 0; i < len(sorted); {
			current := sorted[i]
			j := i + 1
			for j < len(sorted) && Overlaps(current, sorted[j], threshold) {
				j++
			}
			if !yield(slices.Clone(sorted[i:j])) {
				return
			}
			i = j
		}
	}
}

// Collect materializes every group of hits.
func Collect(hits []ir.Hit, threshold float64) [][]ir.Hit {
	groups := [][]ir.Hit{}
	for g := range Groups(hits, threshold) {
		groups = append(groups, g)
	}
	return groups
}
