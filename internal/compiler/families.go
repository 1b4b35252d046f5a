package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/synthase/internal/ir"
)

// CompileFamilies compiles a family table. The table is read from the
// "families" field when present, otherwise from the document itself, and
// may be a list of entries or a struct of entries keyed by accession:
//
//	families: {
//		smart00825: {name: "PKS_KS", type: "KS", length: 298, bitscore: 210.5}
//	}
//
// A struct key is used as the accession when the entry has none. Unknown
// entry fields (such as "pssm") are ignored.
func CompileFamilies(v cue.Value) (*ir.FamilyTable, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	table, field := v, "families"
	if f := v.LookupPath(cue.ParsePath("families")); f.Exists() {
		table = f
	}

	families := []ir.Family{}
	switch table.Kind() {
	case cue.ListKind:
		iter, err := table.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			fam, err := parseFamily(iter.Value(), "", fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			families = append(families, fam)
		}
	case cue.StructKind:
		iter, err := table.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			label := iter.Label()
			if label == "adjacency" || label == "families" {
				continue
			}
			fam, err := parseFamily(iter.Value(), label, field+"."+label)
			if err != nil {
				return nil, err
			}
			families = append(families, fam)
		}
	default:
		return nil, &CompileError{Field: field, Message: "must be a list or struct of families", Pos: table.Pos()}
	}

	return ir.NewFamilyTable(families), nil
}

func parseFamily(v cue.Value, key, field string) (ir.Family, error) {
	var fam ir.Family
	var err error

	if v.Kind() != cue.StructKind {
		return fam, &CompileError{Field: field, Message: "family must be a struct", Pos: v.Pos()}
	}
	if fam.Name, err = requiredString(v, "name", field); err != nil {
		return fam, err
	}
	if fam.Type, err = requiredString(v, "type", field); err != nil {
		return fam, err
	}
	if fam.Accession, err = optionalString(v, "accession", field); err != nil {
		return fam, err
	}
	if fam.Accession == "" && key != "" && key != fam.Name {
		fam.Accession = key
	}
	if fam.Superfamily, err = optionalString(v, "superfamily", field); err != nil {
		return fam, err
	}

	if l := v.LookupPath(cue.ParsePath("length")); l.Exists() {
		n, err := l.Int64()
		if err != nil {
			return fam, &CompileError{Field: field + ".length", Message: "must be an integer", Pos: l.Pos()}
		}
		fam.Length = int(n)
	}
	if b := v.LookupPath(cue.ParsePath("bitscore")); b.Exists() {
		f, err := b.Float64()
		if err != nil {
			return fam, &CompileError{Field: field + ".bitscore", Message: "must be a number", Pos: b.Pos()}
		}
		fam.BitScore = f
	}
	return fam, nil
}

// CompileAdjacency compiles the optional "adjacency" list of a family
// table or settings document. Returns nil when the field is absent.
func CompileAdjacency(v cue.Value) ([]ir.AdjacencyRule, error) {
	a := v.LookupPath(cue.ParsePath("adjacency"))
	if !a.Exists() {
		return nil, nil
	}
	iter, err := a.List()
	if err != nil {
		return nil, &CompileError{Field: "adjacency", Message: "must be a list", Pos: a.Pos()}
	}
	rules := []ir.AdjacencyRule{}
	for i := 0; iter.Next(); i++ {
		entry := iter.Value()
		field := fmt.Sprintf("adjacency[%d]", i)
		var rule ir.AdjacencyRule
		if rule.Name, err = optionalString(entry, "name", field); err != nil {
			return nil, err
		}
		if rule.Representative, err = requiredString(entry, "representative", field); err != nil {
			return nil, err
		}
		if rule.Candidate, err = requiredString(entry, "candidate", field); err != nil {
			return nil, err
		}
		if rule.Target, err = requiredString(entry, "target", field); err != nil {
			return nil, err
		}
		if s := entry.LookupPath(cue.ParsePath("candidate_shorter")); s.Exists() {
			if rule.CandidateShorter, err = s.Bool(); err != nil {
				return nil, &CompileError{Field: field + ".candidate_shorter", Message: "must be a bool", Pos: s.Pos()}
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
