package store

import (
	"context"
	"fmt"
	"strings"
)

// Predicate filters the stored results of a run.
//
// This is a sealed interface; only types in this package implement it so
// compilePredicate can switch over every case. Values are always bound as
// parameters, never interpolated into SQL.
//
// Predicate types:
//   - Equals: result column = value
//   - HasLabel: classification path contains label at any level
//   - HasType: result has a hit of the domain type
//   - And: all predicates must be true
type Predicate interface {
	predicateNode()
}

// Equals compares a result column with a value. Field is one of header,
// architecture or label (the deepest classification label, "" when
// unclassified).
type Equals struct {
	Field string
	Value string
}

// HasLabel matches results filed under Label at any level of their path.
type HasLabel struct {
	Label string
}

// HasType matches results with at least one hit of domain type Type.
type HasType struct {
	Type string
}

// And matches when every predicate matches. An empty And matches all.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode()   {}
func (HasLabel) predicateNode() {}
func (HasType) predicateNode()  {}
func (And) predicateNode()      {}

// filterColumns are the result columns Equals may reference.
var filterColumns = map[string]bool{
	"header":       true,
	"architecture": true,
	"label":        true,
}

// compileFilter builds the ordinal query for a run. Results always come
// back in input order.
func compileFilter(runID string, where Predicate) (string, []any, error) {
	clause, params, err := compilePredicate(where)
	if err != nil {
		return "", nil, err
	}
	query := "SELECT ordinal FROM results WHERE run_id = ? AND " + clause + " ORDER BY ordinal ASC"
	return query, append([]any{runID}, params...), nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case Equals:
		if !filterColumns[pred.Field] {
			return "", nil, fmt.Errorf("unknown filter field %q", pred.Field)
		}
		return pred.Field + " = ?", []any{pred.Value}, nil
	case HasLabel:
		return "EXISTS (SELECT 1 FROM json_each(results.classification) WHERE json_each.value = ?)",
			[]any{pred.Label}, nil
	case HasType:
		return "EXISTS (SELECT 1 FROM hits h WHERE h.run_id = results.run_id AND h.result_ordinal = results.ordinal AND h.type = ?)",
			[]any{pred.Type}, nil
	case And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			clause, subParams, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+clause+")")
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// FindResults returns the entries of a run matching where, in ordinal
// order. A nil predicate matches every entry. Returns ErrRunNotFound for
// an unknown ID.
func (s *Store) FindResults(ctx context.Context, runID string, where Predicate) ([]Entry, error) {
	query, params, err := compileFilter(runID, where)
	if err != nil {
		return nil, err
	}
	_, entries, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("filter results: %w", err)
	}
	defer rows.Close()

	match := make(map[int]bool)
	for rows.Next() {
		var ordinal int
		if err := rows.Scan(&ordinal); err != nil {
			return nil, fmt.Errorf("scan ordinal: %w", err)
		}
		match[ordinal] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ordinals: %w", err)
	}

	out := []Entry{}
	for _, e := range entries {
		if match[e.Ordinal] {
			out = append(out, e)
		}
	}
	return out, nil
}
