// Package harness runs conformance scenarios against the classification
// pipeline.
//
// A scenario is a YAML file naming the configuration to load (rule graph,
// family table and settings, each optional), a batch of queries with their
// raw hits, and what should come out: per-query expectations and
// batch-level assertions.
//
//	name: nr-pks
//	description: Non-reducing PKS resolves overlapping KS hits
//	queries:
//	  - header: seq1
//	    hits:
//	      - {type: KS, family: PKS_KS, start: 1, end: 420, evalue: 1e-120}
//	      - {type: AT, family: PKS_AT, start: 520, end: 830}
//	expect:
//	  seq1:
//	    classification: [PKS, Type I PKS, NR-PKS]
//	    architecture: KS-AT
//	assertions:
//	  - {type: classified_count, count: 1}
//
// Run executes the batch through a real engine backed by an in-memory
// store, with a fixed run token so output is reproducible. RunWithGolden
// additionally snapshots the canonical JSON of every result and compares it
// with testdata/golden/<name>.golden.
package harness
