// Package testutil provides builders shared by package tests.
package testutil

import (
	"github.com/roach88/synthase/internal/ir"
)

// Hit builds a hit whose family defaults to its type code.
func Hit(typ string, start, end int) ir.Hit {
	return ir.Hit{Type: typ, Family: typ, Start: start, End: end}
}

// FamilyHit builds a hit with an explicit family.
func FamilyHit(typ, family string, start, end int) ir.Hit {
	return ir.Hit{Type: typ, Family: family, Start: start, End: end}
}

// ScoredHit builds a hit with an e-value and bit score.
func ScoredHit(typ string, start, end int, evalue, bitscore float64) ir.Hit {
	h := Hit(typ, start, end)
	h.EValue = evalue
	h.BitScore = bitscore
	return h
}

// Hits builds a run of consecutive, non-overlapping hits from type codes,
// each 100 residues long with a 10 residue gap.
func Hits(types ...string) []ir.Hit {
	hits := make([]ir.Hit, len(types))
	for i, typ := range types {
		start := 1 + i*110
		hits[i] = Hit(typ, start, start+100)
	}
	return hits
}

// Query builds a query over hits.
func Query(header string, hits ...ir.Hit) ir.Query {
	return ir.Query{Header: header, Hits: hits}
}

// Types returns the type codes of hits in order.
func Types(hits []ir.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Type
	}
	return out
}
