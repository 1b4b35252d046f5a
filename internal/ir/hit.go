package ir

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Hit is one conserved-domain detection on a query sequence.
//
// Type is the broad functional class (KS, AT, ACP, C, E, ...) and may be
// reassigned by adjacency rules or renames. Family is the specific domain
// family and never changes once ingested.
type Hit struct {
	Type      string  `json:"type"`
	Family    string  `json:"family"`
	Accession string  `json:"accession,omitempty"`
	Start     int     `json:"start"`
	End       int     `json:"end"`
	EValue    float64 `json:"evalue"`
	BitScore  float64 `json:"bitscore"`
	Truncated bool    `json:"truncated,omitempty"`
}

// Len returns End - Start. Every overlap and coverage computation uses this
// convention.
func (h Hit) Len() int {
	return h.End - h.Start
}

// Slice returns the segment of seq covered by the hit, clipped to the
// sequence bounds.
func (h Hit) Slice(seq string) string {
	start := max(h.Start-1, 0)
	end := min(h.End, len(seq))
	if start >= end {
		return ""
	}
	return seq[start:end]
}

func (h Hit) String() string {
	return fmt.Sprintf("%s [%s] %d-%d", h.Family, h.Type, h.Start, h.End)
}

// Query is a single protein sequence and the hits detected on it.
// Each query owns its hits; no hit is shared between queries.
type Query struct {
	Header   string `json:"header"`
	Sequence string `json:"sequence,omitempty"`
	Hits     []Hit  `json:"hits"`
}

// CloneHits returns an independent copy of hits. Hit holds no references,
// so a shallow copy is sufficient. Never returns nil.
func CloneHits(hits []Hit) []Hit {
	out := make([]Hit, len(hits))
	copy(out, hits)
	return out
}

// SortByStart sorts hits in place by ascending start. Equal starts keep
// their relative order.
func SortByStart(hits []Hit) {
	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(a.Start, b.Start)
	})
}

// Architecture renders the hit types in order, joined by hyphens
// (e.g. "KS-AT-DH-ER-KR-ACP").
func Architecture(hits []Hit) string {
	types := make([]string, len(hits))
	for i, h := range hits {
		types[i] = h.Type
	}
	return strings.Join(types, "-")
}
