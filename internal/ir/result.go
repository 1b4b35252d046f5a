package ir

import (
	"slices"
)

// Result is the outcome of running one query through the pipeline.
type Result struct {
	Header         string   `json:"header"`
	Sequence       string   `json:"sequence,omitempty"`
	Hits           []Hit    `json:"hits"`
	Classification []string `json:"classification"`
}

// Architecture returns the hyphen-joined hit types.
func (r Result) Architecture() string {
	return Architecture(r.Hits)
}

// Classified reports whether any rule matched.
func (r Result) Classified() bool {
	return len(r.Classification) > 0
}

// GroupByClassification groups result headers under every level of their
// classification path. Unclassified results are collected under "".
// Headers keep input order.
func GroupByClassification(results []Result) map[string][]string {
	groups := make(map[string][]string)
	for _, r := range results {
		if !r.Classified() {
			groups[""] = append(groups[""], r.Header)
			continue
		}
		for _, label := range r.Classification {
			if !slices.Contains(groups[label], r.Header) {
				groups[label] = append(groups[label], r.Header)
			}
		}
	}
	return groups
}
