package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/synthase/internal/ir"
)

// Run identifies one classification batch.
type Run struct {
	ID        string `json:"id"`
	Seq       int64  `json:"seq"`
	GraphHash string `json:"graph_hash"`
	Settings  string `json:"settings"`
	Queries   int    `json:"queries"`
}

// Entry is a result at its position in the run's input.
type Entry struct {
	Ordinal int       `json:"ordinal"`
	Result  ir.Result `json:"result"`
}

// WriteRun inserts a run record. Seq is assigned by the store as one past
// the highest existing seq; the caller's Seq is ignored.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	settings := run.Settings
	if settings == "" {
		settings = "{}"
	}
	// WHERE true disambiguates the upsert clause from a join condition.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seq, graph_hash, settings, queries)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?
		FROM runs WHERE true
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.GraphHash,
		settings,
		run.Queries,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteResults inserts results and their hits for a run in one
// transaction. The run must already exist (foreign key constraint).
// Entries already present at the same ordinal are left unchanged.
func (s *Store) WriteResults(ctx context.Context, runID string, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write results: begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		inserted, err := writeResult(ctx, tx, runID, e)
		if err != nil {
			return fmt.Errorf("write results: %s: %w", e.Result.Header, err)
		}
		if !inserted {
			continue
		}
		for i, h := range e.Result.Hits {
			if err := writeHit(ctx, tx, runID, e.Ordinal, i, h); err != nil {
				return fmt.Errorf("write results: %s: hit %d: %w", e.Result.Header, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write results: commit: %w", err)
	}
	return nil
}

func writeResult(ctx context.Context, tx *sql.Tx, runID string, e Entry) (bool, error) {
	id, err := ir.ResultID(e.Result)
	if err != nil {
		return false, err
	}
	classification, err := marshalClassification(e.Result.Classification)
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO results
		(run_id, ordinal, id, header, sequence, architecture, classification, label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		e.Ordinal,
		id,
		e.Result.Header,
		e.Result.Sequence,
		e.Result.Architecture(),
		classification,
		label(e.Result.Classification),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func writeHit(ctx context.Context, tx *sql.Tx, runID string, resultOrdinal, ordinal int, h ir.Hit) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO hits
		(run_id, result_ordinal, ordinal, type, family, accession, start_pos, end_pos, evalue, bitscore, truncated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		resultOrdinal,
		ordinal,
		h.Type,
		h.Family,
		h.Accession,
		h.Start,
		h.End,
		h.EValue,
		h.BitScore,
		boolToInt(h.Truncated),
	)
	return err
}
