package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/synthase/internal/ir"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is a run with result counts.
type RunSummary struct {
	Run
	Results    int `json:"results"`
	Classified int `json:"classified"`
}

// ClassCount is the number of results under one classification label.
// Label "" counts unclassified results.
type ClassCount struct {
	Label   string   `json:"label"`
	Count   int      `json:"count"`
	Headers []string `json:"headers"`
}

// ListRuns returns all runs ordered by seq.
// Returns an empty slice (not nil) when the store has no runs.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.seq, r.graph_hash, r.settings, r.queries,
		       COUNT(res.ordinal),
		       COALESCE(SUM(CASE WHEN res.label <> '' THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN results res ON res.run_id = r.id
		GROUP BY r.id
		ORDER BY r.seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.ID, &rs.Seq, &rs.GraphHash, &rs.Settings, &rs.Queries, &rs.Results, &rs.Classified); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a run and its results in ordinal order, each with its
// hits in ordinal order. Returns ErrRunNotFound for an unknown ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, []Entry, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, graph_hash, settings, queries
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Seq, &run.GraphHash, &run.Settings, &run.Queries)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, nil, fmt.Errorf("read run: %w", err)
	}

	entries, err := s.readEntries(ctx, id)
	if err != nil {
		return Run{}, nil, err
	}
	hits, err := s.readHits(ctx, id)
	if err != nil {
		return Run{}, nil, err
	}
	for i := range entries {
		if hs, ok := hits[entries[i].Ordinal]; ok {
			entries[i].Result.Hits = hs
		}
	}
	return run, entries, nil
}

func (s *Store) readEntries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ordinal, header, sequence, classification
		FROM results
		WHERE run_id = ?
		ORDER BY ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e              Entry
			classification string
		)
		if err := rows.Scan(&e.Ordinal, &e.Result.Header, &e.Result.Sequence, &classification); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		path, err := unmarshalClassification(classification)
		if err != nil {
			return nil, err
		}
		e.Result.Classification = path
		e.Result.Hits = []ir.Hit{}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return entries, nil
}

func (s *Store) readHits(ctx context.Context, runID string) (map[int][]ir.Hit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT result_ordinal, type, family, accession, start_pos, end_pos, evalue, bitscore, truncated
		FROM hits
		WHERE run_id = ?
		ORDER BY result_ordinal ASC, ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query hits: %w", err)
	}
	defer rows.Close()

	hits := make(map[int][]ir.Hit)
	for rows.Next() {
		var (
			ordinal   int
			h         ir.Hit
			truncated int
		)
		if err := rows.Scan(&ordinal, &h.Type, &h.Family, &h.Accession, &h.Start, &h.End, &h.EValue, &h.BitScore, &truncated); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		h.Truncated = truncated != 0
		hits[ordinal] = append(hits[ordinal], h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return hits, nil
}

// CountByClassification groups a run's results under every level of their
// classification path. Entries are sorted by label with the unclassified
// group ("") first.
func (s *Store) CountByClassification(ctx context.Context, runID string) ([]ClassCount, error) {
	_, entries, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	results := make([]ir.Result, len(entries))
	for i, e := range entries {
		results[i] = e.Result
	}

	return CountResults(results), nil
}

// CountResults groups results under every level of their classification
// path, sorted by label with the unclassified group ("") first.
func CountResults(results []ir.Result) []ClassCount {
	groups := ir.GroupByClassification(results)
	labels := make([]string, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	counts := make([]ClassCount, len(labels))
	for i, l := range labels {
		counts[i] = ClassCount{Label: l, Count: len(groups[l]), Headers: groups[l]}
	}
	return counts
}
