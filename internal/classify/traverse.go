package classify

import (
	"github.com/roach88/synthase/internal/ir"
)

// Traverse walks nodes depth-first. At each sibling level the first rule
// satisfied by hits is accepted; its renames are applied, then its
// children are evaluated against the renamed hits. Returns the accepted
// titles from root to leaf and the final hit list. Nodes whose title has no
// rule in graph never match.
func Traverse(graph *ir.RuleGraph, nodes []ir.Node, hits []ir.Hit) ([]string, []ir.Hit) {
	path := []string{}
	current := ir.CloneHits(hits)
	for level := nodes; len(level) > 0; {
		matched := false
		for _, node := range level {
			rule, ok := graph.Rule(node.Title)
			if !ok || !SatisfiedBy(rule, current) {
				continue
			}
			path = append(path, node.Title)
			current = RenameDomains(rule, current)
			level = node.Children
			matched = true
			break
		}
		if !matched {
			break
		}
	}
	return path, current
}

// Classifier classifies hit lists against one compiled rule graph.
// It is read-only after construction and safe for concurrent use.
type Classifier struct {
	graph *ir.RuleGraph
}

// New creates a Classifier for graph.
func New(graph *ir.RuleGraph) *Classifier {
	return &Classifier{graph: graph}
}

// Graph returns the classifier's rule graph.
func (c *Classifier) Graph() *ir.RuleGraph {
	return c.graph
}

// Classify traverses the graph from its roots. An empty path means no
// rule matched; it is not an error.
func (c *Classifier) Classify(hits []ir.Hit) ([]string, []ir.Hit) {
	if c.graph == nil {
		return []string{}, ir.CloneHits(hits)
	}
	return Traverse(c.graph, c.graph.Hierarchy, hits)
}
