package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix leaves
// room for algorithm migration.
const (
	DomainResult    = "synthase/result/v1"
	DomainRuleGraph = "synthase/rulegraph/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HitValue is the float-free canonical form of a hit.
func HitValue(h Hit) IRObject {
	return IRObject{
		"type":      IRString(h.Type),
		"family":    IRString(h.Family),
		"start":     IRInt(h.Start),
		"end":       IRInt(h.End),
		"truncated": IRBool(h.Truncated),
	}
}

// ResultValue is the canonical form of a result: header, architecture,
// classification path and hits. Scores are omitted.
func ResultValue(r Result) IRObject {
	hits := make(IRArray, len(r.Hits))
	for i, h := range r.Hits {
		hits[i] = HitValue(h)
	}
	return IRObject{
		"header":         IRString(r.Header),
		"architecture":   IRString(r.Architecture()),
		"classification": Strings(r.Classification),
		"hits":           hits,
	}
}

// ResultID computes the content-addressed ID of a result. Identical
// classifications of identical inputs get identical IDs across runs.
func ResultID(r Result) (string, error) {
	canonical, err := MarshalCanonical(ResultValue(r))
	if err != nil {
		return "", fmt.Errorf("ResultID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}

// RuleGraphHash fingerprints a rule graph so persisted runs record which
// rules produced them. Evaluators hash by their compiled form.
func RuleGraphHash(g *RuleGraph) (string, error) {
	rules := make(IRArray, len(g.Rules))
	for i, r := range g.Rules {
		filters := IRObject{}
		for typ, fams := range r.Filters {
			filters[typ] = Strings(fams)
		}
		renames := make(IRArray, len(r.Renames))
		for j, rn := range r.Renames {
			renames[j] = IRObject{
				"from":  IRString(rn.From),
				"to":    IRString(rn.To),
				"after": Strings(rn.After),
			}
		}
		rules[i] = IRObject{
			"name":      IRString(r.Name),
			"domains":   Strings(r.Domains),
			"filters":   filters,
			"condition": IRString(r.Condition().String()),
			"renames":   renames,
		}
	}
	obj := IRObject{
		"rules":     rules,
		"hierarchy": nodesValue(g.Hierarchy),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RuleGraphHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRuleGraph, canonical), nil
}

func nodesValue(nodes []Node) IRArray {
	arr := make(IRArray, len(nodes))
	for i, n := range nodes {
		arr[i] = IRObject{
			"title":    IRString(n.Title),
			"children": nodesValue(n.Children),
		}
	}
	return arr
}

// MustResultID is like ResultID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustResultID(r Result) string {
	id, err := ResultID(r)
	if err != nil {
		panic(err)
	}
	return id
}
