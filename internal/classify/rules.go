// Package classify evaluates a rule graph against a resolved hit list and
// produces a hierarchical classification path.
package classify

import (
	"slices"

	"github.com/roach88/synthase/internal/ir"
)

// Requirements reports, for each required type of rule in order, whether a
// distinct hit satisfies it. A hit claimed by one requirement cannot
// satisfy another, so ["KS", "KS"] needs two KS hits.
func Requirements(rule ir.Rule, hits []ir.Hit) []bool {
	claimed := make([]bool, len(hits))
	met := make([]bool, len(rule.Domains))
	for i, typ := range rule.Domains {
		for j, h := range hits {
			if claimed[j] || h.Type != typ || !rule.Allows(h) {
				continue
			}
			claimed[j] = true
			met[i] = true
			break
		}
	}
	return met
}

// SatisfiedBy reports whether hits satisfy the rule's condition.
func SatisfiedBy(rule ir.Rule, hits []ir.Hit) bool {
	return rule.Condition().Eval(Requirements(rule, hits))
}

// RenameDomains applies the rule's rename directives in order and returns
// the renamed copy. hits is not modified.
func RenameDomains(rule ir.Rule, hits []ir.Hit) []ir.Hit {
	out := ir.CloneHits(hits)
	for _, rn := range rule.Renames {
		triggered := len(rn.After) == 0
		for i := range out {
			if !triggered {
				triggered = slices.Contains(rn.After, out[i].Type)
				continue
			}
			if out[i].Type == rn.From {
				out[i].Type = rn.To
			}
		}
	}
	return out
}
