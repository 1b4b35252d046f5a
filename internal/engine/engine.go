package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/synthase/internal/classify"
	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/merge"
	"github.com/roach88/synthase/internal/overlap"
	"github.com/roach88/synthase/internal/resolve"
	"github.com/roach88/synthase/internal/store"
)

// Engine runs queries through the pipeline.
//
// Thread-safety model:
//   - Process(): safe from any goroutine
//   - ProcessBatch(): safe from any goroutine; each call is one run
//
// INVARIANTS:
//   - Config never changes after construction
//   - Batch outcomes are in input order regardless of worker scheduling
type Engine struct {
	cfg        Config
	resolver   *resolve.Resolver
	merger     *merge.Merger
	classifier *classify.Classifier
	runGen     RunTokenGenerator
	store      *store.Store
	graphHash  string
}

// Option allows configuration of engine collaborators.
type Option func(*Engine)

// WithRunTokenGenerator sets the batch run token source.
// Default: UUIDv7Generator.
func WithRunTokenGenerator(g RunTokenGenerator) Option {
	return func(e *Engine) {
		e.runGen = g
	}
}

// WithStore persists every batch to s.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// New creates an Engine for cfg. Zero-valued tunables take their defaults;
// the rule graph is required.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hash, err := ir.RuleGraphHash(cfg.Graph)
	if err != nil {
		return nil, fmt.Errorf("hash rule graph: %w", err)
	}

	e := &Engine{
		cfg: cfg,
		resolver: resolve.New(
			resolve.WithMetric(cfg.Rank),
			resolve.WithFamilies(cfg.Families),
			resolve.WithAdjacencyRules(cfg.Adjacency...),
		),
		merger:     merge.New(cfg.Families, cfg.Merge, cfg.OverlapThreshold, cfg.Adjacency...),
		classifier: classify.New(cfg.Graph),
		runGen:     UUIDv7Generator{},
		graphHash:  hash,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// GraphHash returns the content hash of the rule graph.
func (e *Engine) GraphHash() string {
	return e.graphHash
}

// Process runs one query through grouping, resolution, merging and
// classification. The query is not modified.
func (e *Engine) Process(q ir.Query) (ir.Result, error) {
	for i, h := range q.Hits {
		if h.End < h.Start {
			return ir.Result{}, NewInvalidHitError(q.Header, i, h.Start, h.End)
		}
	}

	groups := overlap.Groups(q.Hits, e.cfg.OverlapThreshold)
	resolved := e.resolver.Resolve(groups)
	merged := e.merger.Merge(resolved)
	path, hits := e.classifier.Classify(merged)

	res := ir.Result{
		Header:         q.Header,
		Sequence:       q.Sequence,
		Hits:           hits,
		Classification: path,
	}

	slog.Debug("query processed",
		"query", q.Header,
		"input_hits", len(q.Hits),
		"resolved", len(resolved),
		"final_hits", len(hits),
		"architecture", res.Architecture(),
	)
	if !res.Classified() {
		slog.Warn("query not classified",
			"query", q.Header,
			"architecture", res.Architecture(),
		)
	}
	return res, nil
}

// Outcome is the result of one query in a batch. Err is non-nil when the
// query failed; Result then carries only the header and sequence.
type Outcome struct {
	Result ir.Result
	Err    error
}

// Batch is the outcome of one ProcessBatch call.
type Batch struct {
	RunID    string
	Outcomes []Outcome
}

// Results returns the successful results in input order.
func (b Batch) Results() []ir.Result {
	out := []ir.Result{}
	for _, o := range b.Outcomes {
		if o.Err == nil {
			out = append(out, o.Result)
		}
	}
	return out
}

// Failed counts outcomes with an error.
func (b Batch) Failed() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// ProcessBatch processes queries concurrently and returns one outcome per
// query in input order. When ctx is cancelled, queries not yet dispatched
// get a cancellation error; queries already running finish.
//
// The returned error is non-nil only when persisting the batch fails.
func (e *Engine) ProcessBatch(ctx context.Context, queries []ir.Query) (Batch, error) {
	batch := Batch{
		RunID:    e.runGen.Generate(),
		Outcomes: make([]Outcome, len(queries)),
	}
	slog.Info("batch starting",
		"run", batch.RunID,
		"queries", len(queries),
		"workers", e.cfg.workers(len(queries)),
	)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range e.cfg.workers(len(queries)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				batch.Outcomes[i] = e.processIsolated(queries[i])
			}
		}()
	}

	next := 0
dispatch:
	for ; next < len(queries); next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- next:
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(queries); i++ {
		batch.Outcomes[i] = Outcome{
			Result: stub(queries[i]),
			Err:    NewCancelledError(queries[i].Header, ctx.Err()),
		}
	}

	for i, o := range batch.Outcomes {
		if o.Err != nil {
			slog.Error("query failed",
				"run", batch.RunID,
				"index", i,
				"query", queries[i].Header,
				"error", o.Err,
			)
		}
	}
	slog.Info("batch finished",
		"run", batch.RunID,
		"queries", len(queries),
		"failed", batch.Failed(),
	)

	if e.store != nil {
		if err := e.persist(ctx, batch); err != nil {
			return batch, err
		}
	}
	return batch, nil
}

// processIsolated converts a panic in any stage into a QueryError so one
// query cannot take down the batch.
func (e *Engine) processIsolated(q ir.Query) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Result: stub(q), Err: NewPanicError(q.Header, r)}
		}
	}()
	res, err := e.Process(q)
	if err != nil {
		return Outcome{Result: stub(q), Err: err}
	}
	return Outcome{Result: res}
}

func (e *Engine) persist(ctx context.Context, b Batch) error {
	settings, err := e.cfg.SettingsJSON()
	if err != nil {
		return err
	}
	// Persist even when the batch context was cancelled.
	ctx = context.WithoutCancel(ctx)
	run := store.Run{
		ID:        b.RunID,
		GraphHash: e.graphHash,
		Settings:  settings,
		Queries:   len(b.Outcomes),
	}
	if err := e.store.WriteRun(ctx, run); err != nil {
		return fmt.Errorf("persist run %s: %w", b.RunID, err)
	}

	entries := make([]store.Entry, 0, len(b.Outcomes))
	for i, o := range b.Outcomes {
		if o.Err == nil {
			entries = append(entries, store.Entry{Ordinal: i, Result: o.Result})
		}
	}
	if err := e.store.WriteResults(ctx, b.RunID, entries); err != nil {
		return fmt.Errorf("persist run %s: %w", b.RunID, err)
	}
	slog.Info("run persisted", "run", b.RunID, "results", len(entries))
	return nil
}

func stub(q ir.Query) ir.Result {
	return ir.Result{
		Header:         q.Header,
		Sequence:       q.Sequence,
		Hits:           []ir.Hit{},
		Classification: []string{},
	}
}
