package ir

import (
	"slices"
)

// Family describes one conserved-domain family from the family table.
// Length and BitScore are zero when unknown.
type Family struct {
	Name        string  `json:"name"`
	Accession   string  `json:"accession,omitempty"`
	Type        string  `json:"type"`
	Length      int     `json:"length,omitempty"`
	BitScore    float64 `json:"bitscore,omitempty"`
	Superfamily string  `json:"superfamily,omitempty"`
}

// FamilyTable indexes families by name and by accession. A nil table
// behaves as an empty one.
type FamilyTable struct {
	families    []Family
	byName      map[string]int
	byAccession map[string]int
}

// NewFamilyTable builds a table from families in declaration order.
// Later entries with a duplicate name or accession shadow earlier ones.
func NewFamilyTable(families []Family) *FamilyTable {
	t := &FamilyTable{
		families:    slices.Clone(families),
		byName:      make(map[string]int, len(families)),
		byAccession: make(map[string]int, len(families)),
	}
	for i, f := range t.families {
		if f.Name != "" {
			t.byName[f.Name] = i
		}
		if f.Accession != "" {
			t.byAccession[f.Accession] = i
		}
	}
	return t
}

// Lookup finds a family by name, then by accession.
func (t *FamilyTable) Lookup(key string) (Family, bool) {
	if t == nil || key == "" {
		return Family{}, false
	}
	if i, ok := t.byName[key]; ok {
		return t.families[i], true
	}
	if i, ok := t.byAccession[key]; ok {
		return t.families[i], true
	}
	return Family{}, false
}

// LookupHit finds the family of a hit by family name, then accession.
func (t *FamilyTable) LookupHit(h Hit) (Family, bool) {
	if f, ok := t.Lookup(h.Family); ok {
		return f, true
	}
	return t.Lookup(h.Accession)
}

// Families returns a copy of all families in declaration order.
func (t *FamilyTable) Families() []Family {
	if t == nil {
		return []Family{}
	}
	return slices.Clone(t.families)
}

// Len returns the number of families.
func (t *FamilyTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.families)
}

// Types returns the sorted set of type codes in the table.
func (t *FamilyTable) Types() []string {
	seen := make(map[string]bool)
	types := []string{}
	for _, f := range t.Families() {
		if f.Type != "" && !seen[f.Type] {
			seen[f.Type] = true
			types = append(types, f.Type)
		}
	}
	slices.Sort(types)
	return types
}

// ByType groups family names under their type code.
func (t *FamilyTable) ByType() map[string][]string {
	out := make(map[string][]string)
	for _, f := range t.Families() {
		out[f.Type] = append(out[f.Type], f.Name)
	}
	return out
}
