package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRun_AssignsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, createTestRun("run-b")))
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-a")))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, int64(1), runs[0].Seq)
	assert.Equal(t, "run-a", runs[1].ID)
	assert.Equal(t, int64(2), runs[1].Seq)
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1")
	require.NoError(t, s.WriteRun(ctx, run))
	run.GraphHash = "other"
	require.NoError(t, s.WriteRun(ctx, run))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "test-graph-hash", runs[0].GraphHash, "first write wins")
	assert.Equal(t, int64(1), runs[0].Seq)
}

func TestWriteRun_DefaultSettings(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, Run{ID: "r", GraphHash: "g"}))
	run, _, err := s.ReadRun(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "{}", run.Settings)
}

func TestWriteResults_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1")))
	entries := createTestEntries()
	require.NoError(t, s.WriteResults(ctx, "run-1", entries))
	require.NoError(t, s.WriteResults(ctx, "run-1", entries))

	var results, hits int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&results))
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM hits").Scan(&hits))
	assert.Equal(t, 2, results)
	assert.Equal(t, 2, hits)
}

func TestWriteResults_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteResults(context.Background(), "missing", createTestEntries())
	require.Error(t, err)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&n))
	assert.Zero(t, n, "failed batch is rolled back")
}

func TestWriteResults_StoresArchitectureAndLabel(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1")))
	require.NoError(t, s.WriteResults(ctx, "run-1", createTestEntries()))

	var arch, label, classification string
	err := s.db.QueryRow(
		"SELECT architecture, label, classification FROM results WHERE ordinal = 0",
	).Scan(&arch, &label, &classification)
	require.NoError(t, err)
	assert.Equal(t, "KS-AT", arch)
	assert.Equal(t, "NR-PKS", label)
	assert.Equal(t, `["PKS","Type I PKS","NR-PKS"]`, classification)
}
