// Package store provides SQLite-backed persistence for classification runs.
//
// A run is one batch of queries classified under one rule graph. Each run
// stores its results in input order, and each result stores its final hits
// in domain order.
//
// # Ordering
//
//   - Runs are numbered by a store-assigned seq, never by wall-clock time
//   - Results and hits are always read back ORDER BY ordinal
//
// # Idempotency
//
// Every insert uses ON CONFLICT DO NOTHING, so writing the same run twice
// leaves the first copy in place.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
