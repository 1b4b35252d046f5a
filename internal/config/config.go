// Package config loads pipeline settings from TOML.
//
// Every field has a default, so an absent file or an empty document is a
// valid configuration:
//
//	[overlap]
//	threshold = 0.9
//
//	[resolve]
//	rank = "evalue"         # evalue | bitscore | length
//
//	[merge]
//	coverage = 0.5
//	tolerance = 0.1
//	min_coverage = 0.2
//	discard = false
//
//	[engine]
//	workers = 0             # 0 = one per CPU
//
//	[[adjacency]]
//	name = "epimerization"
//	representative = "C"
//	candidate = "E"
//	candidate_shorter = true
//	target = "E"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/merge"
	"github.com/roach88/synthase/internal/overlap"
	"github.com/roach88/synthase/internal/resolve"
)

// Settings holds pipeline tuning. Adjacency is nil unless the file
// declares [[adjacency]] tables; callers fall back to the family table's
// rules and then to the built-in rule.
type Settings struct {
	Overlap   OverlapSettings    `toml:"overlap" json:"overlap"`
	Resolve   ResolveSettings    `toml:"resolve" json:"resolve"`
	Merge     MergeSettings      `toml:"merge" json:"merge"`
	Engine    EngineSettings     `toml:"engine" json:"engine"`
	Adjacency []ir.AdjacencyRule `toml:"adjacency" json:"adjacency,omitempty"`
}

// OverlapSettings configures the overlap grouper.
type OverlapSettings struct {
	Threshold float64 `toml:"threshold" json:"threshold"`
}

// ResolveSettings configures the group resolver.
type ResolveSettings struct {
	Rank string `toml:"rank" json:"rank"`
}

// MergeSettings configures the fragment merger.
type MergeSettings struct {
	Coverage    float64 `toml:"coverage" json:"coverage"`
	Tolerance   float64 `toml:"tolerance" json:"tolerance"`
	MinCoverage float64 `toml:"min_coverage" json:"min_coverage"`
	Discard     bool    `toml:"discard" json:"discard"`
}

// EngineSettings configures batch execution.
type EngineSettings struct {
	Workers int `toml:"workers" json:"workers"`
}

// Default returns the built-in settings.
func Default() Settings {
	m := merge.DefaultOptions()
	return Settings{
		Overlap: OverlapSettings{Threshold: overlap.DefaultThreshold},
		Resolve: ResolveSettings{Rank: string(resolve.ByEValue)},
		Merge: MergeSettings{
			Coverage:    m.Coverage,
			Tolerance:   m.Tolerance,
			MinCoverage: m.MinCoverage,
			Discard:     m.Discard,
		},
	}
}

// Load reads settings from path. An empty path returns Default().
func Load(path string) (Settings, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are rejected so typos do not silently fall back to defaults.
func Parse(data []byte) (Settings, error) {
	s := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Settings{}, fmt.Errorf("unknown settings key: %s", strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return Settings{}, fmt.Errorf("parse settings at %d:%d: %w", row, col, err)
		}
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks ranges and enums.
func (s Settings) Validate() error {
	if s.Overlap.Threshold <= 0 || s.Overlap.Threshold > 1 {
		return fmt.Errorf("overlap threshold must be in (0, 1], got %v", s.Overlap.Threshold)
	}
	if _, err := resolve.ParseMetric(s.Resolve.Rank); err != nil {
		return err
	}
	if err := s.MergeOptions().Validate(); err != nil {
		return err
	}
	if s.Engine.Workers < 0 {
		return fmt.Errorf("engine workers must not be negative, got %d", s.Engine.Workers)
	}
	for i, r := range s.Adjacency {
		if r.Representative == "" || r.Candidate == "" || r.Target == "" {
			return fmt.Errorf("adjacency[%d]: representative, candidate and target are required", i)
		}
	}
	return nil
}

// Metric returns the parsed ranking metric.
func (s Settings) Metric() resolve.Metric {
	m, err := resolve.ParseMetric(s.Resolve.Rank)
	if err != nil {
		return resolve.ByEValue
	}
	return m
}

// MergeOptions converts the merge section into merger options.
func (s Settings) MergeOptions() merge.Options {
	return merge.Options{
		Coverage:    s.Merge.Coverage,
		Tolerance:   s.Merge.Tolerance,
		MinCoverage: s.Merge.MinCoverage,
		Discard:     s.Merge.Discard,
	}
}
