package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/merge"
	"github.com/roach88/synthase/internal/resolve"
	"github.com/roach88/synthase/internal/store"
	"github.com/roach88/synthase/internal/testutil"
)

func testGraph() *ir.RuleGraph {
	return ir.NewRuleGraph(
		[]ir.Rule{
			{Name: "PKS", Domains: []string{"KS"}},
			{Name: "Type I PKS", Domains: []string{"KS", "AT"}},
			{Name: "NRPS", Domains: []string{"A"}, Renames: []ir.Rename{{From: "ACP", To: "T"}}},
		},
		[]ir.Node{
			{Title: "PKS", Children: []ir.Node{{Title: "Type I PKS"}}},
			{Title: "NRPS"},
		},
	)
}

func testConfig() Config {
	return Config{
		Families: ir.NewFamilyTable([]ir.Family{
			{Name: "PKS_KS", Type: "KS", Length: 400},
			{Name: "PKS_AT", Type: "AT", Length: 300},
			{Name: "PP-binding", Type: "ACP", Length: 70},
			{Name: "A_NRPS", Type: "A", Length: 400},
			{Name: "Condensation", Type: "C", Length: 300},
			{Name: "NRPS-para261", Type: "E", Length: 300},
		}),
		Graph:   testGraph(),
		Workers: 4,
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithRunTokenGenerator(testutil.NewFixedRunGenerator("run-1"))}, opts...)
	e, err := New(testConfig(), opts...)
	require.NoError(t, err)
	return e
}

func pksQuery(header string) ir.Query {
	strong := testutil.ScoredHit("KS", 1, 400, 1e-100, 400)
	strong.Family = "PKS_KS"
	weak := testutil.ScoredHit("KS", 10, 390, 1e-20, 90)
	weak.Family = "PKS_KS"
	return testutil.Query(header,
		weak,
		testutil.FamilyHit("AT", "PKS_AT", 450, 750),
		strong,
		testutil.FamilyHit("ACP", "PP-binding", 800, 870),
	)
}

func TestNew_AppliesDefaults(t *testing.T) {
	e := newTestEngine(t)
	cfg := e.Config()
	assert.Equal(t, 0.9, cfg.OverlapThreshold)
	assert.Equal(t, resolve.ByEValue, cfg.Rank)
	assert.Equal(t, merge.DefaultOptions(), cfg.Merge)
	assert.Equal(t, ir.DefaultAdjacencyRules(), cfg.Adjacency)
	assert.NotEmpty(t, e.GraphHash())
}

func TestNew_RequiresGraph(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorContains(t, err, "rule graph is required")
}

func TestNew_RejectsBadSettings(t *testing.T) {
	cfg := testConfig()
	cfg.Rank = "coverage"
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Workers = -1
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestProcess_Pipeline(t *testing.T) {
	e := newTestEngine(t)
	q := pksQuery("seq1")
	before := ir.CloneHits(q.Hits)

	res, err := e.Process(q)
	require.NoError(t, err)

	assert.Equal(t, "seq1", res.Header)
	assert.Equal(t, []string{"PKS", "Type I PKS"}, res.Classification)
	assert.Equal(t, "KS-AT-ACP", res.Architecture())
	assert.Equal(t, 1e-100, res.Hits[0].EValue, "strongest KS represents the group")
	assert.Equal(t, before, q.Hits, "input hits are not modified")
}

func TestProcess_EpimerizationAndRename(t *testing.T) {
	e := newTestEngine(t)
	q := testutil.Query("nrps",
		testutil.FamilyHit("A", "A_NRPS", 1, 400),
		testutil.FamilyHit("ACP", "PP-binding", 420, 490),
		testutil.FamilyHit("C", "Condensation", 500, 800),
		testutil.FamilyHit("E", "NRPS-para261", 520, 790),
	)

	res, err := e.Process(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"NRPS"}, res.Classification)
	assert.Equal(t, "A-T-E", res.Architecture())
}

func TestProcess_KeepsModuleBoundaries(t *testing.T) {
	e := newTestEngine(t)
	q := testutil.Query("two-modules",
		testutil.FamilyHit("C", "Condensation", 1, 300),
		testutil.FamilyHit("A", "A_NRPS", 320, 720),
		testutil.FamilyHit("ACP", "PP-binding", 740, 810),
		testutil.FamilyHit("E", "NRPS-para261", 830, 1030),
		testutil.FamilyHit("C", "Condensation", 1050, 1350),
		testutil.FamilyHit("A", "A_NRPS", 1370, 1770),
		testutil.FamilyHit("ACP", "PP-binding", 1790, 1860),
	)

	res, err := e.Process(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"NRPS"}, res.Classification)
	assert.Equal(t, "C-A-T-E-C-A-T", res.Architecture())
}

func TestProcess_MergesFragments(t *testing.T) {
	e := newTestEngine(t)
	q := testutil.Query("frag",
		testutil.FamilyHit("KS", "PKS_KS", 0, 160),
		testutil.FamilyHit("KS", "PKS_KS", 250, 390),
	)

	res, err := e.Process(q)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, 0, res.Hits[0].Start)
	assert.Equal(t, 390, res.Hits[0].End)
	assert.Equal(t, []string{"PKS"}, res.Classification)
}

func TestProcess_EmptyAndUnclassified(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Process(testutil.Query("empty"))
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.Equal(t, []string{}, res.Classification)
	assert.False(t, res.Classified())

	res, err = e.Process(testutil.Query("at-only", testutil.FamilyHit("AT", "PKS_AT", 1, 300)))
	require.NoError(t, err)
	assert.False(t, res.Classified())
	assert.Equal(t, "AT", res.Architecture())
}

func TestProcess_InvalidHit(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Process(testutil.Query("bad", testutil.Hit("KS", 100, 50)))
	require.Error(t, err)
	assert.True(t, IsInvalidHit(err))
	assert.Contains(t, err.Error(), "query=bad")
}

func TestProcessBatch_OrderAndIsolation(t *testing.T) {
	e := newTestEngine(t)
	queries := []ir.Query{
		pksQuery("q0"),
		testutil.Query("q1", testutil.Hit("KS", 10, 5)),
		pksQuery("q2"),
		testutil.Query("q3"),
	}

	batch, err := e.ProcessBatch(context.Background(), queries)
	require.NoError(t, err)

	assert.Equal(t, "run-1", batch.RunID)
	require.Len(t, batch.Outcomes, 4)
	for i, o := range batch.Outcomes {
		assert.Equal(t, queries[i].Header, o.Result.Header, "outcome %d out of order", i)
	}
	assert.NoError(t, batch.Outcomes[0].Err)
	assert.True(t, IsInvalidHit(batch.Outcomes[1].Err))
	assert.NoError(t, batch.Outcomes[2].Err)
	assert.NoError(t, batch.Outcomes[3].Err)
	assert.Equal(t, 1, batch.Failed())
	assert.Len(t, batch.Results(), 3)
}

func TestProcessBatch_MatchesSequentialProcessing(t *testing.T) {
	e := newTestEngine(t)
	var queries []ir.Query
	for i := range 50 {
		if i%2 == 0 {
			queries = append(queries, pksQuery(uuid.NewString()))
		} else {
			queries = append(queries, testutil.Query(uuid.NewString(), testutil.Hits("A", "ACP", "C")...))
		}
	}

	batch, err := e.ProcessBatch(context.Background(), queries)
	require.NoError(t, err)
	for i, q := range queries {
		want, err := e.Process(q)
		require.NoError(t, err)
		assert.Equal(t, want, batch.Outcomes[i].Result)
	}
}

func TestProcessBatch_RecoversPanic(t *testing.T) {
	e := newTestEngine(t)
	e.classifier = nil // Classify on a nil *Classifier dereferences

	batch, err := e.ProcessBatch(context.Background(), []ir.Query{pksQuery("boom")})
	require.NoError(t, err)
	require.Len(t, batch.Outcomes, 1)
	assert.True(t, IsPanic(batch.Outcomes[0].Err))
	assert.Equal(t, "boom", batch.Outcomes[0].Result.Header)
}

func TestProcessBatch_Cancelled(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := e.ProcessBatch(ctx, []ir.Query{pksQuery("a"), pksQuery("b")})
	require.NoError(t, err)
	for _, o := range batch.Outcomes {
		assert.True(t, IsCancelled(o.Err))
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestProcessBatch_Empty(t *testing.T) {
	e := newTestEngine(t)
	batch, err := e.ProcessBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, batch.Outcomes)
}

func TestProcessBatch_Persists(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e := newTestEngine(t, WithStore(s))
	queries := []ir.Query{
		pksQuery("q0"),
		testutil.Query("q1", testutil.Hit("KS", 10, 5)),
		testutil.Query("q2"),
	}
	batch, err := e.ProcessBatch(context.Background(), queries)
	require.NoError(t, err)

	run, entries, err := s.ReadRun(context.Background(), batch.RunID)
	require.NoError(t, err)
	assert.Equal(t, e.GraphHash(), run.GraphHash)
	assert.Equal(t, 3, run.Queries)
	assert.Contains(t, run.Settings, `"rank":"evalue"`)

	require.Len(t, entries, 2, "failed queries are not stored")
	assert.Equal(t, 0, entries[0].Ordinal)
	assert.Equal(t, batch.Outcomes[0].Result, entries[0].Result)
	assert.Equal(t, 2, entries[1].Ordinal)
}

func TestProcess_ConcurrentUse(t *testing.T) {
	e := newTestEngine(t)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Process(pksQuery("c"))
			assert.NoError(t, err)
			assert.Equal(t, []string{"PKS", "Type I PKS"}, res.Classification)
		}()
	}
	wg.Wait()
}

func TestUUIDv7Generator(t *testing.T) {
	token := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, token, UUIDv7Generator{}.Generate())
}

func TestConfigWorkers(t *testing.T) {
	assert.Equal(t, 1, Config{Workers: 8}.workers(0))
	assert.Equal(t, 3, Config{Workers: 8}.workers(3))
	assert.Equal(t, 2, Config{Workers: 2}.workers(10))
	assert.GreaterOrEqual(t, Config{}.workers(100), 1)
}
