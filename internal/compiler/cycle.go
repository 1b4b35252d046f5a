package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/synthase/internal/ir"
)

// CycleWarning describes adjacency rules that can retype hits in a loop,
// e.g. C becomes E and E becomes C. The fragment merger re-scans until
// nothing changes, so such a loop only stops at the merger's pass limit
// and its output is no longer a fixed point.
type CycleWarning struct {
	Path    []string `json:"path"`
	Rules   []string `json:"rules"`
	Message string   `json:"message"`
}

// AnalyzeRetypeCycles reports every strongly connected set of type codes in
// the graph whose edges are Representative -> Target. Rules whose target
// equals their representative never change a hit and add no edge.
//
// Warnings are ordered by their first type code; an acyclic rule set
// returns an empty list.
func AnalyzeRetypeCycles(rules []ir.AdjacencyRule) []CycleWarning {
	graph := buildRetypeGraph(rules)
	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) < 2 {
			continue
		}
		path := reconstructCyclePath(scc, graph)
		warnings = append(warnings, CycleWarning{
			Path:    path,
			Rules:   rulesOnCycle(rules, scc),
			Message: fmt.Sprintf("adjacency rules retype in a cycle: %s", strings.Join(path, " -> ")),
		})
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// retypeGraph maps a type code to the sorted type codes it can become.
type retypeGraph map[string][]string

func buildRetypeGraph(rules []ir.AdjacencyRule) retypeGraph {
	graph := make(retypeGraph)
	for _, r := range rules {
		if graph[r.Target] == nil {
			graph[r.Target] = []string{}
		}
		if r.Representative == r.Target {
			continue
		}
		if !slices.Contains(graph[r.Representative], r.Target) {
			graph[r.Representative] = append(graph[r.Representative], r.Target)
		}
	}
	for node := range graph {
		slices.Sort(graph[node])
	}
	return graph
}

func rulesOnCycle(rules []ir.AdjacencyRule, scc []string) []string {
	var names []string
	for _, r := range rules {
		if slices.Contains(scc, r.Representative) && slices.Contains(scc, r.Target) && r.Representative != r.Target {
			names = append(names, r.Name)
		}
	}
	return names
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order and each component is returned sorted,
// so output is deterministic.
func tarjanSCC(graph retypeGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath walks edges inside the component from its first
// member until it returns there.
func reconstructCyclePath(scc []string, graph retypeGraph) []string {
	start := scc[0]
	path := []string{start}
	visited := map[string]bool{start: true}
	for current := start; ; {
		next := ""
		for _, neighbor := range graph[current] {
			if neighbor == start || (slices.Contains(scc, neighbor) && !visited[neighbor]) {
				next = neighbor
				break
			}
		}
		if next == "" {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		visited[next] = true
		current = next
	}
}
