package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"

	"github.com/roach88/synthase/internal/ir"
)

// LoadValue reads a rule graph or family table document into a CUE value.
//
// Supported inputs:
//   - a directory of .cue files, loaded as one CUE instance
//   - a .cue or .json file, compiled directly with source positions
//   - a .yaml or .yml file, decoded and encoded into CUE
func LoadValue(ctx *cue.Context, path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return loadDir(ctx, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue", ".json":
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return v, nil
	case ".yaml", ".yml":
		return compileYAML(ctx, data, path)
	default:
		return cue.Value{}, fmt.Errorf("%s: unsupported file extension %q (want .cue, .json, .yaml)", path, ext)
	}
}

func loadDir(ctx *cue.Context, dir string) (cue.Value, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("%s: no CUE instances", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, formatCUEError(inst.Err)
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

func compileYAML(ctx *cue.Context, data []byte, path string) (cue.Value, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cue.Value{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc == nil {
		return cue.Value{}, fmt.Errorf("%s: empty document", path)
	}
	v := ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// LoadRuleGraph loads, compiles and validates a rule graph document.
// When families is non-nil, type codes are checked against it.
func LoadRuleGraph(path string, families *ir.FamilyTable) (*ir.RuleGraph, error) {
	v, err := LoadValue(cuecontext.New(), path)
	if err != nil {
		return nil, err
	}
	g, err := CompileRuleGraph(v)
	if err != nil {
		return nil, err
	}
	if errs := ValidateRuleGraph(g, families); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return g, nil
}

// LoadFamilies loads and compiles a family table document along with any
// adjacency rules it declares. Adjacency is nil when the document has none.
func LoadFamilies(path string) (*ir.FamilyTable, []ir.AdjacencyRule, error) {
	v, err := LoadValue(cuecontext.New(), path)
	if err != nil {
		return nil, nil, err
	}
	return compileFamilyDocument(v)
}

func compileFamilyDocument(v cue.Value) (*ir.FamilyTable, []ir.AdjacencyRule, error) {
	table, err := CompileFamilies(v)
	if err != nil {
		return nil, nil, err
	}
	adjacency, err := CompileAdjacency(v)
	if err != nil {
		return nil, nil, err
	}
	if errs := ValidateFamilies(table); len(errs) > 0 {
		return nil, nil, ValidationErrors(errs)
	}
	if errs := ValidateAdjacency(adjacency); len(errs) > 0 {
		return nil, nil, ValidationErrors(errs)
	}
	return table, adjacency, nil
}
