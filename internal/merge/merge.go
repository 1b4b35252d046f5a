// Package merge coalesces adjacent fragments of the same domain family and
// flags hits too short to be a full domain.
package merge

import (
	"fmt"

	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/overlap"
)

// Options controls fragment merging and truncation handling.
type Options struct {
	// Coverage is the fraction of the family length below which a hit is
	// treated as a fragment, and which two merged fragments must exceed.
	Coverage float64 `json:"coverage"`
	// Tolerance is the allowed relative deviation of a merged span from the
	// family length.
	Tolerance float64 `json:"tolerance"`
	// MinCoverage is the coverage below which a hit counts as truncated.
	MinCoverage float64 `json:"min_coverage"`
	// Discard removes truncated hits instead of flagging them.
	Discard bool `json:"discard"`
}

// DefaultOptions returns coverage 0.5, tolerance 0.1, min coverage 0.2,
// flagging rather than discarding.
func DefaultOptions() Options {
	return Options{
		Coverage:    0.5,
		Tolerance:   0.1,
		MinCoverage: 0.2,
	}
}

// Validate checks that every fraction is within range.
func (o Options) Validate() error {
	if o.Coverage <= 0 || o.Coverage > 1 {
		return fmt.Errorf("merge coverage must be in (0, 1], got %v", o.Coverage)
	}
	if o.Tolerance < 0 || o.Tolerance >= 1 {
		return fmt.Errorf("merge tolerance must be in [0, 1), got %v", o.Tolerance)
	}
	if o.MinCoverage < 0 || o.MinCoverage > 1 {
		return fmt.Errorf("merge min_coverage must be in [0, 1], got %v", o.MinCoverage)
	}
	return nil
}

// Merger merges fragments using family lengths from a family table.
// It is read-only after construction and safe for concurrent use.
type Merger struct {
	opts      Options
	families  *ir.FamilyTable
	threshold float64
	rules     []ir.AdjacencyRule
}

// New creates a Merger. rules are the adjacency rules re-tested on each
// neighbouring pair that overlaps by at least threshold.
func New(families *ir.FamilyTable, opts Options, threshold float64, rules ...ir.AdjacencyRule) *Merger {
	return &Merger{
		opts:      opts,
		families:  families,
		threshold: threshold,
		rules:     append([]ir.AdjacencyRule(nil), rules...),
	}
}

// Merge returns a start-sorted copy of hits with fragments merged and short
// hits flagged as truncated (or removed in discard mode).
//
// Pairs are scanned left to right. For each pair that overlaps by the
// merger's threshold the adjacency rules are tested with the left hit as
// representative, then the right. Hits that merely sit next to each other
// keep their types. When the
// pair is mergeable the left hit is extended to the right hit's end, the
// right hit is dropped and the same position is examined again against its
// new neighbour. Scans repeat until nothing changes, so Merge is
// idempotent as long as the adjacency rules do not retype in a cycle.
func (m *Merger) Merge(hits []ir.Hit) []ir.Hit {
	out := ir.CloneHits(hits)
	ir.SortByStart(out)

	maxPasses := (len(out) + 1) * (len(m.rules) + 2)
	for pass := 0; pass < maxPasses; pass++ {
		var changed bool
		out, changed = m.mergePass(out)
		if changed {
			continue
		}
		if !m.opts.Discard {
			break
		}
		kept := m.dropTruncated(out)
		if len(kept) == len(out) {
			return kept
		}
		out = kept
	}
	if m.opts.Discard {
		return m.dropTruncated(out)
	}
	return m.flagTruncated(out)
}

func (m *Merger) mergePass(hits []ir.Hit) ([]ir.Hit, bool) {
	changed := false
	for i := 0; i+1 < len(hits); {
		if m.retype(hits[i : i+2]) {
			changed = true
		}
		if m.Mergeable(hits[i], hits[i+1]) {
			hits[i].End = hits[i+1].End
			hits = append(hits[:i+1], hits[i+2:]...)
			changed = true
			continue
		}
		i++
	}
	return hits, changed
}

// retype applies the adjacency rules to an overlapping pair, left hit as
// representative first. It reports whether either type changed.
func (m *Merger) retype(pair []ir.Hit) bool {
	prev, next := pair[0], pair[1]
	if !overlap.Overlaps(prev, next, m.threshold) {
		return false
	}
	if retyped, ok := ir.ApplyAdjacency(m.rules, prev, next); ok {
		pair[0] = retyped
		return retyped.Type != prev.Type
	}
	if retyped, ok := ir.ApplyAdjacency(m.rules, next, prev); ok {
		pair[1] = retyped
		return retyped.Type != next.Type
	}
	return false
}

// Mergeable reports whether prev and next are fragments of one domain:
// same family with a known length, each covering less than Coverage of it,
// together covering more than Coverage, and spanning within Tolerance of
// the family length.
func (m *Merger) Mergeable(prev, next ir.Hit) bool {
	if prev.Family != next.Family {
		return false
	}
	length, ok := m.familyLength(prev)
	if !ok {
		return false
	}
	if float64(prev.Len())/length >= m.opts.Coverage || float64(next.Len())/length >= m.opts.Coverage {
		return false
	}
	span := float64(next.End - prev.Start)
	if span < length*(1-m.opts.Tolerance) || span > length*(1+m.opts.Tolerance) {
		return false
	}
	return float64(prev.Len()+next.Len())/length > m.opts.Coverage
}

// Coverage returns the fraction of the family length covered by h, or
// false when the family length is unknown.
func (m *Merger) Coverage(h ir.Hit) (float64, bool) {
	length, ok := m.familyLength(h)
	if !ok {
		return 0, false
	}
	return float64(h.Len()) / length, true
}

func (m *Merger) familyLength(h ir.Hit) (float64, bool) {
	fam, ok := m.families.LookupHit(h)
	if !ok || fam.Length <= 0 {
		return 0, false
	}
	return float64(fam.Length), true
}

func (m *Merger) truncated(h ir.Hit) bool {
	cov, ok := m.Coverage(h)
	return ok && cov < m.opts.MinCoverage
}

func (m *Merger) flagTruncated(hits []ir.Hit) []ir.Hit {
	for i := range hits {
		if m.truncated(hits[i]) {
			hits[i].Truncated = true
		}
	}
	return hits
}

func (m *Merger) dropTruncated(hits []ir.Hit) []ir.Hit {
	kept := make([]ir.Hit, 0, len(hits))
	for _, h := range hits {
		if !m.truncated(h) {
			kept = append(kept, h)
		}
	}
	return kept
}
