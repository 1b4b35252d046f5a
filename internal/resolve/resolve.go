// Package resolve picks one representative hit per overlap group.
package resolve

import (
	"fmt"
	"iter"

	"github.com/roach88/synthase/internal/ir"
)

// Metric selects how hits in a group are ranked.
type Metric string

const (
	// ByEValue ranks by ascending e-value.
	ByEValue Metric = "evalue"
	// ByBitScore ranks by descending bit score relative to the family's
	// specific-hit threshold. A group where any member's threshold is
	// unknown is ranked on raw scores throughout.
	ByBitScore Metric = "bitscore"
	// ByLength ranks by descending hit length.
	ByLength Metric = "length"
)

// ValidMetrics lists the accepted ranking metrics.
var ValidMetrics = []Metric{ByEValue, ByBitScore, ByLength}

// ParseMetric converts a configuration string into a Metric.
// An empty string selects ByEValue.
func ParseMetric(s string) (Metric, error) {
	if s == "" {
		return ByEValue, nil
	}
	for _, m := range ValidMetrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown rank metric %q (valid: evalue, bitscore, length)", s)
}

// Resolver chooses group representatives. It is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	metric   Metric
	families *ir.FamilyTable
	rules    []ir.AdjacencyRule
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetric sets the ranking metric.
func WithMetric(m Metric) Option {
	return func(r *Resolver) {
		r.metric = m
	}
}

// WithFamilies supplies family bit-score thresholds for ByBitScore.
func WithFamilies(t *ir.FamilyTable) Option {
	return func(r *Resolver) {
		r.families = t
	}
}

// WithAdjacencyRules replaces the default adjacency rules.
func WithAdjacencyRules(rules ...ir.AdjacencyRule) Option {
	return func(r *Resolver) {
		r.rules = append([]ir.AdjacencyRule(nil), rules...)
	}
}

// New creates a Resolver ranking by e-value with the default adjacency rules.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		metric: ByEValue,
		rules:  ir.DefaultAdjacencyRules(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metric returns the configured ranking metric.
func (r *Resolver) Metric() Metric {
	return r.metric
}

// Best returns the index of the top-ranked hit. Ties keep the earliest
// hit. Returns -1 for an empty group.
func (r *Resolver) Best(group []ir.Hit) int {
	normalize := r.metric == ByBitScore && r.allThresholds(group)
	best := -1
	var bestKey float64
	for i, h := range group {
		key := r.key(h, normalize)
		if best < 0 || key < bestKey {
			best, bestKey = i, key
		}
	}
	return best
}

// allThresholds reports whether every hit's family has a known bit-score
// threshold, so normalized scores are comparable across the group.
func (r *Resolver) allThresholds(group []ir.Hit) bool {
	for _, h := range group {
		if _, ok := r.threshold(h); !ok {
			return false
		}
	}
	return true
}

func (r *Resolver) threshold(h ir.Hit) (float64, bool) {
	fam, ok := r.families.LookupHit(h)
	if !ok || fam.BitScore <= 0 {
		return 0, false
	}
	return fam.BitScore, true
}

// key maps a hit to a value where lower ranks first.
func (r *Resolver) key(h ir.Hit, normalize bool) float64 {
	switch r.metric {
	case ByBitScore:
		score := h.BitScore
		if t, ok := r.threshold(h); normalize && ok {
			score /= t
		}
		return -score
	case ByLength:
		return -float64(h.Len())
	default:
		return h.EValue
	}
}

// ResolveGroup returns the representative of a non-empty group.
//
// After ranking, every other member is tested against the adjacency rules
// in declared order. The first rule satisfied retypes the representative
// and resolution stops. A group of one is returned unchanged.
func (r *Resolver) ResolveGroup(group []ir.Hit) ir.Hit {
	if len(group) == 0 {
		panic("resolve: empty overlap group")
	}
	bi := r.Best(group)
	rep := group[bi]
	for i, cand := range group {
		if i == bi {
			continue
		}
		if retyped, ok := ir.ApplyAdjacency(r.rules, rep, cand); ok {
			return retyped
		}
	}
	return rep
}

// Resolve maps ResolveGroup over a sequence of groups.
func (r *Resolver) Resolve(groups iter.Seq[[]ir.Hit]) []ir.Hit {
	out := []ir.Hit{}
	for g := range groups {
		out = append(out, r.ResolveGroup(g))
	}
	return out
}
