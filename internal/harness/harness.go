package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/synthase/internal/engine"
	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/store"
	"github.com/roach88/synthase/internal/testutil"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// fixed run token so results are reproducible.
//
// Execution flow:
// 1. Load configuration (defaults for any path not given)
// 2. Classify all queries as one batch, persisting to the store
// 3. Check per-query expectations in query order
// 4. Evaluate batch assertions
//
// The returned error is non-nil only when the scenario could not be run;
// failed expectations are reported on Result.
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := engine.LoadConfig(scenario.Settings, scenario.Families, scenario.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	eng, err := engine.New(cfg,
		engine.WithRunTokenGenerator(testutil.NewFixedRunGenerator(scenario.RunToken)),
		engine.WithStore(st),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	queries := make([]ir.Query, len(scenario.Queries))
	for i, q := range scenario.Queries {
		queries[i] = q.Query()
	}

	ctx := context.Background()
	batch, err := eng.ProcessBatch(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("failed to run batch: %w", err)
	}

	result := NewResult()
	result.RunID = batch.RunID
	for _, o := range batch.Outcomes {
		result.Queries = append(result.Queries, queryResult(o))
	}

	for _, q := range scenario.Queries {
		e, ok := scenario.Expect[q.Header]
		if !ok {
			continue
		}
		got, _ := result.Query(q.Header)
		for _, msg := range checkExpectation(got, e) {
			result.AddError(fmt.Sprintf("%s: %s", q.Header, msg))
		}
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
		RunID: batch.RunID,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func queryResult(o engine.Outcome) QueryResult {
	qr := QueryResult{
		Header:         o.Result.Header,
		Classification: o.Result.Classification,
		Architecture:   o.Result.Architecture(),
		Hits:           o.Result.Hits,
	}
	if o.Err != nil {
		var qe *engine.QueryError
		if errors.As(o.Err, &qe) {
			qr.Error = string(qe.Code)
		} else {
			qr.Error = o.Err.Error()
		}
	}
	return qr
}

// checkExpectation compares one query's observed result with e.
func checkExpectation(got QueryResult, e Expectation) []string {
	var msgs []string
	if got.Error != e.Error {
		if e.Error == "" {
			return []string{fmt.Sprintf("unexpected error %s", got.Error)}
		}
		msgs = append(msgs, fmt.Sprintf("expected error %s, got %q", e.Error, got.Error))
	}
	if e.Classification != nil && !slices.Equal(got.Classification, e.Classification) {
		msgs = append(msgs, fmt.Sprintf("expected classification %s, got %s",
			formatPath(e.Classification), formatPath(got.Classification)))
	}
	if e.Unclassified && len(got.Classification) > 0 {
		msgs = append(msgs, fmt.Sprintf("expected unclassified, got %s", formatPath(got.Classification)))
	}
	if e.Architecture != nil && got.Architecture != *e.Architecture {
		msgs = append(msgs, fmt.Sprintf("expected architecture %q, got %q", *e.Architecture, got.Architecture))
	}
	return msgs
}

func formatPath(path []string) string {
	return "[" + strings.Join(path, " > ") + "]"
}
