package cdd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/synthase/internal/ir"
)

// ReadSkeleton reads a family skeleton: a ">TYPE" line followed by one
// family short name or accession per line, repeated for each type.
//
//	>KS
//	PKS_KS
//	smart00825
//	>AT
//	PKS_AT
//
// Each listed key becomes a family of the preceding type whose name and
// accession are both the key until Annotate resolves it.
func ReadSkeleton(r io.Reader) ([]ir.Family, error) {
	var (
		families []ir.Family
		typ      string
		line     int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		switch {
		case text == "":
		case strings.HasPrefix(text, ">"):
			typ = strings.TrimSpace(text[1:])
			if typ == "" {
				return nil, &LineError{File: "skeleton", Line: line, Err: fmt.Errorf("empty type header")}
			}
		case typ == "":
			return nil, &LineError{File: "skeleton", Line: line, Err: fmt.Errorf("family %q before any type header", text)}
		default:
			families = append(families, ir.Family{Name: text, Accession: text, Type: typ})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read skeleton: %w", err)
	}
	return families, nil
}

// Resolve replaces each skeleton key with the profile's short name and
// accession. Keys not in db keep the key as their name and lose the
// placeholder accession. A profile listed twice keeps its first type.
func (db *DB) Resolve(families []ir.Family) []ir.Family {
	out := make([]ir.Family, 0, len(families))
	seen := make(map[string]bool)
	for _, f := range families {
		if e, ok := db.Lookup(f.Name); ok {
			f.Name, f.Accession = e.Name, e.Accession
		} else if f.Accession == f.Name {
			f.Accession = ""
		}
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, f)
	}
	return out
}

type familyDoc struct {
	Name        string  `yaml:"name"`
	Accession   string  `yaml:"accession,omitempty"`
	Type        string  `yaml:"type"`
	Length      int     `yaml:"length,omitempty"`
	BitScore    float64 `yaml:"bitscore,omitempty"`
	Superfamily string  `yaml:"superfamily,omitempty"`
}

type adjacencyDoc struct {
	Name             string `yaml:"name,omitempty"`
	Representative   string `yaml:"representative"`
	Candidate        string `yaml:"candidate"`
	CandidateShorter bool   `yaml:"candidate_shorter,omitempty"`
	Target           string `yaml:"target"`
}

type tableDoc struct {
	Families  []familyDoc    `yaml:"families"`
	Adjacency []adjacencyDoc `yaml:"adjacency,omitempty"`
}

// WriteTable writes families and adjacency rules as a YAML family table
// that the family loader reads back unchanged.
func WriteTable(w io.Writer, families []ir.Family, adjacency []ir.AdjacencyRule) error {
	doc := tableDoc{Families: make([]familyDoc, len(families))}
	for i, f := range families {
		doc.Families[i] = familyDoc(f)
	}
	for _, r := range adjacency {
		doc.Adjacency = append(doc.Adjacency, adjacencyDoc(r))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode family table: %w", err)
	}
	return enc.Close()
}
