package ir

// AdjacencyRule retypes a group representative when a specific other hit
// sits in the same overlap group (or directly beside it after merging).
type AdjacencyRule struct {
	Name             string `json:"name" toml:"name"`
	Representative   string `json:"representative" toml:"representative"`
	Candidate        string `json:"candidate" toml:"candidate"`
	CandidateShorter bool   `json:"candidate_shorter,omitempty" toml:"candidate_shorter"`
	Target           string `json:"target" toml:"target"`
}

// Matches reports whether rep and cand satisfy the rule's predicate.
func (r AdjacencyRule) Matches(rep, cand Hit) bool {
	if rep.Type != r.Representative || cand.Type != r.Candidate {
		return false
	}
	return !r.CandidateShorter || cand.Len() < rep.Len()
}

// Epimerization turns a condensation representative into an epimerization
// domain when a shorter E hit shares its group.
var Epimerization = AdjacencyRule{
	Name:             "epimerization",
	Representative:   "C",
	Candidate:        "E",
	CandidateShorter: true,
	Target:           "E",
}

// DefaultAdjacencyRules returns the built-in rule set.
func DefaultAdjacencyRules() []AdjacencyRule {
	return []AdjacencyRule{Epimerization}
}

// ApplyAdjacency tests rules in order and returns rep retyped by the first
// matching rule.
func ApplyAdjacency(rules []AdjacencyRule, rep, cand Hit) (Hit, bool) {
	for _, r := range rules {
		if r.Matches(rep, cand) {
			rep.Type = r.Target
			return rep, true
		}
	}
	return rep, false
}
