package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/testutil"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(id string) Run {
	return Run{
		ID:        id,
		GraphHash: "test-graph-hash",
		Settings:  `{"rank":"evalue"}`,
		Queries:   2,
	}
}

// createTestEntries returns one classified and one unclassified entry.
func createTestEntries() []Entry {
	ks := testutil.ScoredHit("KS", 1, 400, 1e-100, 350.5)
	ks.Family = "PKS_KS"
	ks.Accession = "smart00825"
	at := testutil.FamilyHit("AT", "PKS_AT", 450, 800)
	at.Truncated = true
	return []Entry{
		{Ordinal: 0, Result: ir.Result{
			Header:         "seq1",
			Sequence:       "MKV",
			Hits:           []ir.Hit{ks, at},
			Classification: []string{"PKS", "Type I PKS", "NR-PKS"},
		}},
		{Ordinal: 1, Result: ir.Result{
			Header:         "seq2",
			Hits:           []ir.Hit{},
			Classification: []string{},
		}},
	}
}
