// Package engine runs queries through the classification pipeline.
//
// Each query passes through four stages in order:
//
//  1. Overlap grouping: hits are clustered by mutual coverage
//  2. Resolution: one representative per cluster, with adjacency retyping
//  3. Merging: adjacent same-family fragments are coalesced and short hits
//     are flagged or discarded
//  4. Classification: the rule graph is traversed depth-first for a label
//     path, applying domain renames
//
// Every stage works on copies, so a query's input hits are never modified.
//
// Batches run on a bounded worker pool. Outcomes keep input order and each
// query is isolated: an invalid hit or a panic in one query is reported on
// that query's outcome and the rest of the batch continues. Configuration
// is read-only once the engine is built, so workers share it without
// locking.
package engine
