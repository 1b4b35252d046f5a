package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/roach88/synthase/internal/compiler"
	"github.com/roach88/synthase/internal/config"
	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/merge"
	"github.com/roach88/synthase/internal/overlap"
	"github.com/roach88/synthase/internal/resolve"
)

// Config is everything the pipeline needs. It is read-only once passed to
// New.
type Config struct {
	Families         *ir.FamilyTable
	Graph            *ir.RuleGraph
	OverlapThreshold float64
	Rank             resolve.Metric
	Adjacency        []ir.AdjacencyRule
	Merge            merge.Options
	// Workers bounds batch concurrency. Zero means one per CPU.
	Workers int
}

// DefaultConfig returns the built-in family table and rule graph with
// default settings.
func DefaultConfig() (Config, error) {
	return LoadConfig("", "", "")
}

// LoadConfig assembles a Config from a TOML settings file, a family table
// document and a rule graph document. Any empty path selects the built-in
// default for that part.
//
// Adjacency rules come from the settings file if it declares any, else
// from the family document, else the built-in epimerization rule.
func LoadConfig(settingsPath, familiesPath, rulesPath string) (Config, error) {
	settings, err := config.Load(settingsPath)
	if err != nil {
		return Config{}, err
	}

	var (
		families  *ir.FamilyTable
		adjacency []ir.AdjacencyRule
	)
	if familiesPath == "" {
		families, adjacency, err = compiler.DefaultFamilies()
	} else {
		families, adjacency, err = compiler.LoadFamilies(familiesPath)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load families: %w", err)
	}

	var graph *ir.RuleGraph
	if rulesPath == "" {
		graph, err = compiler.DefaultRuleGraph()
	} else {
		graph, err = compiler.LoadRuleGraph(rulesPath, families)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load rules: %w", err)
	}

	switch {
	case settings.Adjacency != nil:
		adjacency = settings.Adjacency
	case adjacency == nil:
		adjacency = ir.DefaultAdjacencyRules()
	}
	if errs := compiler.ValidateAdjacency(adjacency); len(errs) > 0 {
		return Config{}, compiler.ValidationErrors(errs)
	}
	for _, w := range compiler.AnalyzeRetypeCycles(adjacency) {
		slog.Warn("adjacency rules form a retype cycle",
			"path", strings.Join(w.Path, " -> "),
			"rules", w.Rules,
		)
	}

	cfg := Config{
		Families:         families,
		Graph:            graph,
		OverlapThreshold: settings.Overlap.Threshold,
		Rank:             settings.Metric(),
		Adjacency:        adjacency,
		Merge:            settings.MergeOptions(),
		Workers:          settings.Engine.Workers,
	}
	slog.Debug("pipeline configured",
		"families", families.Len(),
		"rules", len(graph.Rules),
		"rank", cfg.Rank,
		"overlap_threshold", cfg.OverlapThreshold,
		"adjacency", len(adjacency),
	)
	return cfg, nil
}

// Validate checks that the config can drive a pipeline.
func (c Config) Validate() error {
	if c.Graph == nil {
		return fmt.Errorf("engine config: rule graph is required")
	}
	if c.OverlapThreshold <= 0 || c.OverlapThreshold > 1 {
		return fmt.Errorf("engine config: overlap threshold must be in (0, 1], got %v", c.OverlapThreshold)
	}
	if _, err := resolve.ParseMetric(string(c.Rank)); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if err := c.Merge.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("engine config: workers must not be negative, got %d", c.Workers)
	}
	return nil
}

func (c Config) workers(jobs int) int {
	n := c.Workers
	if n == 0 {
		n = runtime.NumCPU()
	}
	return max(1, min(n, jobs))
}

// settingsValue is the recorded form of a config's tunables.
type settingsValue struct {
	OverlapThreshold float64            `json:"overlap_threshold"`
	Rank             resolve.Metric     `json:"rank"`
	Merge            merge.Options      `json:"merge"`
	Adjacency        []ir.AdjacencyRule `json:"adjacency"`
	Families         int                `json:"families"`
}

// SettingsJSON renders the tunables stored alongside a run.
func (c Config) SettingsJSON() (string, error) {
	data, err := json.Marshal(settingsValue{
		OverlapThreshold: c.OverlapThreshold,
		Rank:             c.Rank,
		Merge:            c.Merge,
		Adjacency:        c.Adjacency,
		Families:         c.Families.Len(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	return string(data), nil
}

// withDefaults fills zero-valued tunables.
func (c Config) withDefaults() Config {
	if c.OverlapThreshold == 0 {
		c.OverlapThreshold = overlap.DefaultThreshold
	}
	if c.Rank == "" {
		c.Rank = resolve.ByEValue
	}
	if c.Merge == (merge.Options{}) {
		c.Merge = merge.DefaultOptions()
	}
	if c.Adjacency == nil {
		c.Adjacency = ir.DefaultAdjacencyRules()
	}
	return c
}
