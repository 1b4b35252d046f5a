// Package ir provides the shared data model for synthase: domain hits,
// queries, family tables, classification rules, rule graphs and results.
//
// This package contains type definitions and canonical serialization only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Hit coordinates are 1-based and inclusive; Len() is End - Start
//   - Pipeline stages never mutate their inputs, they return copies
//   - Canonical JSON forbids floats, so content IDs never depend on scores
//   - All JSON tags use snake_case
package ir
