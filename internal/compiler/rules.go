package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/synthase/internal/classify"
	"github.com/roach88/synthase/internal/ir"
)

// CompileRuleGraph compiles a rule graph document:
//
//	rules: [{name: "PKS", domains: ["KS"], evaluator: "0", ...}, ...]
//	hierarchy: ["Hybrid", {PKS: ["HR-PKS", "PR-PKS"]}, "NRPS"]
//
// Filters may be a list of {type, domains} or a struct keyed by type.
// Hierarchy entries may be a rule name, {title, children}, or a single-key
// struct mapping a rule name to its children. Evaluators are parsed into
// expression trees here; semantic checks are left to ValidateRuleGraph.
func CompileRuleGraph(v cue.Value) (*ir.RuleGraph, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &CompileError{Field: "rules", Message: "rules is required", Pos: v.Pos()}
	}
	rules, err := parseRules(rulesVal)
	if err != nil {
		return nil, err
	}

	hierVal := v.LookupPath(cue.ParsePath("hierarchy"))
	if !hierVal.Exists() {
		return nil, &CompileError{Field: "hierarchy", Message: "hierarchy is required", Pos: v.Pos()}
	}
	hierarchy, err := parseNodes(hierVal, "hierarchy")
	if err != nil {
		return nil, err
	}

	return ir.NewRuleGraph(rules, hierarchy), nil
}

func parseRules(v cue.Value) ([]ir.Rule, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: "rules", Message: "must be a list", Pos: v.Pos()}
	}
	rules := []ir.Rule{}
	for i := 0; iter.Next(); i++ {
		rule, err := parseRule(iter.Value(), fmt.Sprintf("rules[%d]", i))
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parseRule(v cue.Value, field string) (ir.Rule, error) {
	var rule ir.Rule
	var err error

	if rule.Name, err = requiredString(v, "name", field); err != nil {
		return rule, err
	}
	if rule.Domains, err = stringList(v, "domains", field); err != nil {
		return rule, err
	}
	if rule.Evaluator, err = optionalString(v, "evaluator", field); err != nil {
		return rule, err
	}
	rule.Expr, err = classify.Parse(rule.Evaluator)
	if err != nil {
		return rule, &CompileError{
			Field:   field + ".evaluator",
			Message: err.Error(),
			Pos:     v.LookupPath(cue.ParsePath("evaluator")).Pos(),
		}
	}

	if f := v.LookupPath(cue.ParsePath("filters")); f.Exists() {
		if rule.Filters, err = parseFilters(f, field+".filters"); err != nil {
			return rule, err
		}
	}
	if r := v.LookupPath(cue.ParsePath("renames")); r.Exists() {
		if rule.Renames, err = parseRenames(r, field+".renames"); err != nil {
			return rule, err
		}
	}
	return rule, nil
}

func parseFilters(v cue.Value, field string) (map[string][]string, error) {
	filters := make(map[string][]string)

	switch v.Kind() {
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			fams, err := toStrings(iter.Value(), field+"."+iter.Label())
			if err != nil {
				return nil, err
			}
			filters[iter.Label()] = append(filters[iter.Label()], fams...)
		}
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			entry := iter.Value()
			entryField := fmt.Sprintf("%s[%d]", field, i)
			typ, err := requiredString(entry, "type", entryField)
			if err != nil {
				return nil, err
			}
			fams, err := stringList(entry, "domains", entryField)
			if err != nil {
				return nil, err
			}
			filters[typ] = append(filters[typ], fams...)
		}
	default:
		return nil, &CompileError{Field: field, Message: "must be a list or struct", Pos: v.Pos()}
	}
	return filters, nil
}

func parseRenames(v cue.Value, field string) ([]ir.Rename, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list", Pos: v.Pos()}
	}
	renames := []ir.Rename{}
	for i := 0; iter.Next(); i++ {
		entry := iter.Value()
		entryField := fmt.Sprintf("%s[%d]", field, i)
		var rn ir.Rename
		if rn.From, err = requiredString(entry, "from", entryField); err != nil {
			return nil, err
		}
		if rn.To, err = requiredString(entry, "to", entryField); err != nil {
			return nil, err
		}
		if a := entry.LookupPath(cue.ParsePath("after")); a.Exists() {
			if rn.After, err = toStrings(a, entryField+".after"); err != nil {
				return nil, err
			}
		}
		renames = append(renames, rn)
	}
	return renames, nil
}

func parseNodes(v cue.Value, field string) ([]ir.Node, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list", Pos: v.Pos()}
	}
	nodes := []ir.Node{}
	for i := 0; iter.Next(); i++ {
		node, err := parseNode(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func parseNode(v cue.Value, field string) (ir.Node, error) {
	switch v.Kind() {
	case cue.StringKind:
		title, err := v.String()
		if err != nil {
			return ir.Node{}, formatCUEError(err)
		}
		return ir.Node{Title: title}, nil

	case cue.StructKind:
		if t := v.LookupPath(cue.ParsePath("title")); t.Exists() {
			title, err := t.String()
			if err != nil {
				return ir.Node{}, &CompileError{Field: field + ".title", Message: "must be a string", Pos: t.Pos()}
			}
			node := ir.Node{Title: title}
			if c := v.LookupPath(cue.ParsePath("children")); c.Exists() {
				if node.Children, err = parseNodes(c, field+".children"); err != nil {
					return ir.Node{}, err
				}
			}
			return node, nil
		}

		iter, err := v.Fields()
		if err != nil {
			return ir.Node{}, formatCUEError(err)
		}
		var node ir.Node
		count := 0
		for iter.Next() {
			count++
			node.Title = iter.Label()
			if node.Children, err = parseNodes(iter.Value(), field+"."+iter.Label()); err != nil {
				return ir.Node{}, err
			}
		}
		if count != 1 {
			return ir.Node{}, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("compact node must have exactly one rule name, found %d", count),
				Pos:     v.Pos(),
			}
		}
		return node, nil

	default:
		return ir.Node{}, &CompileError{
			Field:   field,
			Message: "must be a rule name, {title, children} or {name: [children]}",
			Pos:     v.Pos(),
		}
	}
}

func requiredString(v cue.Value, name, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", &CompileError{Field: field + "." + name, Message: name + " is required", Pos: v.Pos()}
	}
	s, err := f.String()
	if err != nil {
		return "", &CompileError{Field: field + "." + name, Message: "must be a string", Pos: f.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, name, field string) (string, error) {
	if !v.LookupPath(cue.ParsePath(name)).Exists() {
		return "", nil
	}
	return requiredString(v, name, field)
}

func stringList(v cue.Value, name, field string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return []string{}, nil
	}
	return toStrings(f, field+"."+name)
}

func toStrings(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: v.Pos()}
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}
