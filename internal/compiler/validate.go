package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/synthase/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// Rule errors (E201-E209)
	ErrRuleNameEmpty     = "E201" // rule name is required
	ErrDuplicateRule     = "E202" // two rules share a name
	ErrRuleNoDomains     = "E203" // rule requires no domains
	ErrEvaluatorIndex    = "E204" // evaluator references a missing requirement
	ErrUnknownType       = "E205" // type code not in family table
	ErrInvalidRename     = "E206" // rename with empty or identical from/to
	ErrFilterNotRequired = "E207" // filter on a type the rule does not require

	// Hierarchy errors (E210-E219)
	ErrEmptyHierarchy   = "E210" // hierarchy has no roots
	ErrUnknownTitle     = "E211" // hierarchy title with no rule
	ErrDuplicateSibling = "E212" // same title twice at one level

	// Family table errors (E220-E229)
	ErrFamilyIncomplete = "E220" // family without name or type
	ErrDuplicateFamily  = "E221" // two families share a name
	ErrNegativeFamily   = "E222" // negative length or bit score

	// Adjacency errors (E230-E239)
	ErrAdjacencyIncomplete = "E230" // adjacency rule missing a type code
)

// ValidationError represents a semantic problem in a compiled document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateRuleGraph checks a compiled rule graph. Returns all errors found
// (does not fail fast). Type codes are checked only when families is
// non-empty; types produced by renames count as known.
func ValidateRuleGraph(g *ir.RuleGraph, families *ir.FamilyTable) []ValidationError {
	var errs []ValidationError

	known := knownTypes(g, families)
	seen := make(map[string]bool)
	for i, rule := range g.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if rule.Name != "" {
			field = fmt.Sprintf("rules[%s]", rule.Name)
		}
		errs = append(errs, validateRule(rule, field, known)...)

		if rule.Name != "" && seen[rule.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate rule name %q", rule.Name),
				Code:    ErrDuplicateRule,
			})
		}
		seen[rule.Name] = true
	}

	if len(g.Hierarchy) == 0 {
		errs = append(errs, ValidationError{
			Field:   "hierarchy",
			Message: "hierarchy must have at least one root",
			Code:    ErrEmptyHierarchy,
		})
	}
	errs = append(errs, validateNodes(g, g.Hierarchy, "hierarchy")...)

	return errs
}

func validateRule(rule ir.Rule, field string, known map[string]bool) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(rule.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".name",
			Message: "name is required and must be non-empty",
			Code:    ErrRuleNameEmpty,
		})
	}
	if len(rule.Domains) == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".domains",
			Message: "at least one required domain type is needed",
			Code:    ErrRuleNoDomains,
		})
	}
	if highest := ir.MaxIndex(rule.Condition()); highest >= len(rule.Domains) {
		errs = append(errs, ValidationError{
			Field:   field + ".evaluator",
			Message: fmt.Sprintf("references requirement %d but rule has %d domain(s)", highest, len(rule.Domains)),
			Code:    ErrEvaluatorIndex,
		})
	}

	checkType := func(typ, where string) {
		if known != nil && !known[typ] {
			errs = append(errs, ValidationError{
				Field:   where,
				Message: fmt.Sprintf("unknown domain type %q", typ),
				Code:    ErrUnknownType,
			})
		}
	}
	for j, typ := range rule.Domains {
		checkType(typ, fmt.Sprintf("%s.domains[%d]", field, j))
	}
	for _, typ := range sortedKeys(rule.Filters) {
		if !slices.Contains(rule.Domains, typ) {
			errs = append(errs, ValidationError{
				Field:   field + ".filters." + typ,
				Message: fmt.Sprintf("filter on type %q which the rule does not require", typ),
				Code:    ErrFilterNotRequired,
			})
		}
	}
	for j, rn := range rule.Renames {
		where := fmt.Sprintf("%s.renames[%d]", field, j)
		if rn.From == "" || rn.To == "" || rn.From == rn.To {
			errs = append(errs, ValidationError{
				Field:   where,
				Message: fmt.Sprintf("rename %q -> %q must name two different types", rn.From, rn.To),
				Code:    ErrInvalidRename,
			})
		}
		checkType(rn.From, where+".from")
		for _, typ := range rn.After {
			checkType(typ, where+".after")
		}
	}
	return errs
}

func validateNodes(g *ir.RuleGraph, nodes []ir.Node, field string) []ValidationError {
	var errs []ValidationError
	siblings := make(map[string]bool)
	for i, n := range nodes {
		where := fmt.Sprintf("%s[%d]", field, i)
		if _, ok := g.Rule(n.Title); !ok {
			errs = append(errs, ValidationError{
				Field:   where,
				Message: fmt.Sprintf("unknown rule %q", n.Title),
				Code:    ErrUnknownTitle,
			})
		}
		if siblings[n.Title] {
			errs = append(errs, ValidationError{
				Field:   where,
				Message: fmt.Sprintf("rule %q appears twice at this level and can never match the second time", n.Title),
				Code:    ErrDuplicateSibling,
			})
		}
		siblings[n.Title] = true
		errs = append(errs, validateNodes(g, n.Children, where+".children")...)
	}
	return errs
}

// knownTypes returns nil when families is empty, disabling type checks.
func knownTypes(g *ir.RuleGraph, families *ir.FamilyTable) map[string]bool {
	if families.Len() == 0 {
		return nil
	}
	known := make(map[string]bool)
	for _, typ := range families.Types() {
		known[typ] = true
	}
	for _, rule := range g.Rules {
		for _, rn := range rule.Renames {
			known[rn.To] = true
		}
	}
	return known
}

// ValidateFamilies checks a compiled family table.
func ValidateFamilies(t *ir.FamilyTable) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, f := range t.Families() {
		field := fmt.Sprintf("families[%d]", i)
		if f.Name != "" {
			field = fmt.Sprintf("families[%s]", f.Name)
		}
		if f.Name == "" || f.Type == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "family requires both name and type",
				Code:    ErrFamilyIncomplete,
			})
		}
		if f.Name != "" && seen[f.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate family name %q", f.Name),
				Code:    ErrDuplicateFamily,
			})
		}
		seen[f.Name] = true
		if f.Length < 0 || f.BitScore < 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "length and bitscore must not be negative",
				Code:    ErrNegativeFamily,
			})
		}
	}
	return errs
}

// ValidateAdjacency checks adjacency rules for missing type codes.
func ValidateAdjacency(rules []ir.AdjacencyRule) []ValidationError {
	var errs []ValidationError
	for i, r := range rules {
		if r.Representative == "" || r.Candidate == "" || r.Target == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("adjacency[%d]", i),
				Message: "representative, candidate and target are required",
				Code:    ErrAdjacencyIncomplete,
			})
		}
	}
	return errs
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
