package compiler

import (
	"embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/synthase/internal/ir"
)

//go:embed defaults/*.cue
var defaultFS embed.FS

var (
	defaultsOnce     sync.Once
	defaultGraph     *ir.RuleGraph
	defaultFamilies  *ir.FamilyTable
	defaultAdjacency []ir.AdjacencyRule
	defaultsErr      error
)

func loadDefaults() {
	ctx := cuecontext.New()

	rules, err := compileEmbedded(ctx, "defaults/rules.cue")
	if err != nil {
		defaultsErr = err
		return
	}
	families, err := compileEmbedded(ctx, "defaults/families.cue")
	if err != nil {
		defaultsErr = err
		return
	}

	defaultFamilies, defaultAdjacency, err = compileFamilyDocument(families)
	if err != nil {
		defaultsErr = fmt.Errorf("built-in families: %w", err)
		return
	}
	defaultGraph, err = CompileRuleGraph(rules)
	if err != nil {
		defaultsErr = fmt.Errorf("built-in rules: %w", err)
		return
	}
	if errs := ValidateRuleGraph(defaultGraph, defaultFamilies); len(errs) > 0 {
		defaultsErr = fmt.Errorf("built-in rules: %w", ValidationErrors(errs))
	}
}

func compileEmbedded(ctx *cue.Context, name string) (cue.Value, error) {
	data, err := defaultFS.ReadFile(name)
	if err != nil {
		return cue.Value{}, fmt.Errorf("read embedded %s: %w", name, err)
	}
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// DefaultRuleGraph returns the built-in PKS/NRPS classification rules.
// The graph is shared and must not be modified.
func DefaultRuleGraph() (*ir.RuleGraph, error) {
	defaultsOnce.Do(loadDefaults)
	return defaultGraph, defaultsErr
}

// DefaultFamilies returns the built-in family table and adjacency rules.
func DefaultFamilies() (*ir.FamilyTable, []ir.AdjacencyRule, error) {
	defaultsOnce.Do(loadDefaults)
	return defaultFamilies, append([]ir.AdjacencyRule(nil), defaultAdjacency...), defaultsErr
}

// DefaultSource returns the embedded source of a built-in document,
// "rules" or "families".
func DefaultSource(name string) ([]byte, error) {
	return defaultFS.ReadFile("defaults/" + name + ".cue")
}
