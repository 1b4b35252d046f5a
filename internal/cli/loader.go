package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/synthase/internal/compiler"
	"github.com/roach88/synthase/internal/engine"
	"github.com/roach88/synthase/internal/ir"
)

// LoadResult contains a compiled rule graph and the family table it was
// checked against.
type LoadResult struct {
	Graph     *ir.RuleGraph
	Families  *ir.FamilyTable
	Adjacency []ir.AdjacencyRule
	Warnings  []compiler.CycleWarning
}

// LoadError represents an error that occurred while loading configuration
// or input files.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRules compiles and validates a rule graph. An empty familiesPath
// checks type codes against the built-in family table. Every validation
// problem is returned, not just the first.
func LoadRules(rulesPath, familiesPath string) (*LoadResult, []error) {
	if err := checkPath(rulesPath, "rules"); err != nil {
		return nil, []error{err}
	}

	families, adjacency, err := loadFamilies(familiesPath)
	if err != nil {
		return nil, []error{err}
	}

	v, err := compiler.LoadValue(cuecontext.New(), rulesPath)
	if err != nil {
		return nil, []error{convertCompileError(err, "rules")}
	}
	graph, err := compiler.CompileRuleGraph(v)
	if err != nil {
		return nil, []error{convertCompileError(err, "rules")}
	}

	result := &LoadResult{
		Graph:     graph,
		Families:  families,
		Adjacency: adjacency,
		Warnings:  compiler.AnalyzeRetypeCycles(adjacency),
	}

	var errs []error
	for _, ve := range compiler.ValidateRuleGraph(graph, families) {
		errs = append(errs, ve)
	}
	return result, errs
}

func loadFamilies(path string) (*ir.FamilyTable, []ir.AdjacencyRule, error) {
	if path == "" {
		families, adjacency, err := compiler.DefaultFamilies()
		if err != nil {
			return nil, nil, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
		}
		return families, adjacency, nil
	}
	if err := checkPath(path, "families"); err != nil {
		return nil, nil, err
	}
	families, adjacency, err := compiler.LoadFamilies(path)
	if err != nil {
		return nil, nil, convertCompileError(err, "families")
	}
	if adjacency == nil {
		adjacency = ir.DefaultAdjacencyRules()
	}
	return families, adjacency, nil
}

// loadEngineConfig assembles the engine configuration for commands that
// classify, mapping failures onto CLI error codes.
func loadEngineConfig(opts *RootOptions, rulesPath, familiesPath string) (engine.Config, *LoadError) {
	for _, p := range []struct{ path, what string }{
		{opts.Config, "settings"},
		{rulesPath, "rules"},
		{familiesPath, "families"},
	} {
		if p.path == "" {
			continue
		}
		if err := checkPath(p.path, p.what); err != nil {
			return engine.Config{}, err
		}
	}

	cfg, err := engine.LoadConfig(opts.Config, familiesPath, rulesPath)
	if err != nil {
		return engine.Config{}, convertCompileError(err, "config")
	}
	return cfg, nil
}

func checkPath(path, what string) *LoadError {
	if path == "" {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s path is required", what)}
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s file not found: %s", what, path)}
		}
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s file: %v", what, err)}
	}
	return nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	var verrs compiler.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &LoadError{
			Code:    verrs[0].Code,
			Message: fmt.Sprintf("%s: %v", context, verrs),
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands. Rule graph and
// family table validation codes (E2xx) come from the compiler.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoInput     = "E003" // Input has no records
	ErrCodeLoadFailed  = "E004" // Configuration load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Rule graph or family table compilation failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeParseFailed = "E008" // CD-search or FASTA input malformed
	ErrCodeStoreFailed = "E009" // Database error
	ErrCodeRunNotFound = "E010" // Run ID not in the database
)

// MapFieldToErrorCode maps a compiler error field to an error code. Syntax
// errors reported by CUE itself are load failures; anything the compiler
// rejected structurally is a build failure.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "":
		return ErrCodeGeneric
	case "cue":
		return ErrCodeLoadFailed
	default:
		return ErrCodeBuildFailed
	}
}
