package ir

import (
	"slices"
)

// Rename rewrites every hit of type From to type To once a hit whose type
// is in After has been seen. An empty After renames from the first hit.
type Rename struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	After []string `json:"after,omitempty"`
}

// Rule is a named classification rule.
//
// Domains lists the required type codes in order; duplicates express
// multiplicity. Filters optionally restrict, per type code, which families
// (by name or accession) may satisfy a requirement of that type. Expr is the
// compiled form of Evaluator; when nil, all requirements must be met.
type Rule struct {
	Name      string              `json:"name"`
	Domains   []string            `json:"domains"`
	Filters   map[string][]string `json:"filters,omitempty"`
	Evaluator string              `json:"evaluator,omitempty"`
	Renames   []Rename            `json:"renames,omitempty"`
	Expr      Expr                `json:"-"`
}

// Condition returns the compiled expression, defaulting to AllOf(len(Domains)).
func (r Rule) Condition() Expr {
	if r.Expr != nil {
		return r.Expr
	}
	return AllOf(len(r.Domains))
}

// Allows reports whether h passes the rule's family filter for its type.
// Types without a filter accept every family.
func (r Rule) Allows(h Hit) bool {
	allowed, ok := r.Filters[h.Type]
	if !ok {
		return true
	}
	return slices.Contains(allowed, h.Family) || (h.Accession != "" && slices.Contains(allowed, h.Accession))
}

// Node is one position in the classification hierarchy. Title names a rule.
type Node struct {
	Title    string `json:"title"`
	Children []Node `json:"children,omitempty"`
}

// RuleGraph is a compiled set of rules plus the ordered forest that
// determines evaluation order.
type RuleGraph struct {
	Rules     []Rule `json:"rules"`
	Hierarchy []Node `json:"hierarchy"`

	index map[string]int
}

// NewRuleGraph indexes rules by name. With duplicate names the first wins;
// validation reports duplicates separately.
func NewRuleGraph(rules []Rule, hierarchy []Node) *RuleGraph {
	g := &RuleGraph{
		Rules:     rules,
		Hierarchy: hierarchy,
		index:     make(map[string]int, len(rules)),
	}
	for i, r := range rules {
		if _, dup := g.index[r.Name]; !dup {
			g.index[r.Name] = i
		}
	}
	return g
}

// Rule looks up a rule by name.
func (g *RuleGraph) Rule(name string) (Rule, bool) {
	if g == nil {
		return Rule{}, false
	}
	if g.index != nil {
		i, ok := g.index[name]
		if !ok {
			return Rule{}, false
		}
		return g.Rules[i], true
	}
	for _, r := range g.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Walk visits every node depth-first in hierarchy order.
func Walk(nodes []Node, fn func(n Node, depth int)) {
	var walk func([]Node, int)
	walk = func(ns []Node, depth int) {
		for _, n := range ns {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
}
