package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/synthase/internal/ir"
)

// FamiliesOptions holds flags for the families command.
type FamiliesOptions struct {
	*RootOptions
	Families string   // family table (default: built-in)
	Types    []string // restrict to these type codes
}

// TypeSummary lists the families mapped to one domain type.
type TypeSummary struct {
	Type     string      `json:"type"`
	Families []ir.Family `json:"families"`
}

// FamiliesResult holds the family table summary.
type FamiliesResult struct {
	Total     int                `json:"total"`
	Types     []TypeSummary      `json:"types"`
	Adjacency []ir.AdjacencyRule `json:"adjacency"`
}

// NewFamiliesCommand creates the families command.
func NewFamiliesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FamiliesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "families",
		Short: "Show the family table grouped by domain type",
		Long: `Show which conserved-domain families map to each domain type, with
profile lengths and bit-score thresholds where known, and the adjacency
rules the table declares.

Examples:
  synthase families
  synthase families --type KS --type AT
  synthase families --families families.yaml --format json
  synthase families build --cdd ./cdd -o families.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFamilies(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Families, "families", "", "family table (default: built-in)")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "only show these domain types")
	cmd.AddCommand(NewFamiliesBuildCommand(rootOpts))

	return cmd
}

func runFamilies(opts *FamiliesOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	table, adjacency, err := loadFamilies(opts.Families)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
		}
		return outputFamiliesError(formatter, loadErr)
	}

	result := summarizeFamilies(table, opts.Types)
	result.Adjacency = adjacency
	if result.Adjacency == nil {
		result.Adjacency = []ir.AdjacencyRule{}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%d famil(ies) in %d type(s)\n\n", result.Total, len(result.Types))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, ts := range result.Types {
		fmt.Fprintf(tw, "%s\n", ts.Type)
		for _, f := range ts.Families {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.Name, dash(f.Accession), familyMetrics(f))
		}
	}
	tw.Flush()

	if len(result.Adjacency) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Adjacency:")
		for _, r := range result.Adjacency {
			cond := ""
			if r.CandidateShorter {
				cond = " (shorter)"
			}
			fmt.Fprintf(w, "  %s: %s beside %s%s -> %s\n",
				dash(r.Name), r.Representative, r.Candidate, cond, r.Target)
		}
	}
	return nil
}

// summarizeFamilies groups the table by type, sorted by type code, keeping
// declaration order within a type. An empty types list selects every type.
func summarizeFamilies(table *ir.FamilyTable, types []string) FamiliesResult {
	byType := make(map[string][]ir.Family)
	for _, f := range table.Families() {
		if len(types) > 0 && !slices.Contains(types, f.Type) {
			continue
		}
		byType[f.Type] = append(byType[f.Type], f)
	}

	result := FamiliesResult{Types: []TypeSummary{}}
	for _, typ := range table.Types() {
		fams, ok := byType[typ]
		if !ok {
			continue
		}
		result.Types = append(result.Types, TypeSummary{Type: typ, Families: fams})
		result.Total += len(fams)
	}
	return result
}

func familyMetrics(f ir.Family) string {
	var parts []string
	if f.Length > 0 {
		parts = append(parts, fmt.Sprintf("length=%d", f.Length))
	}
	if f.BitScore > 0 {
		parts = append(parts, fmt.Sprintf("bitscore=%g", f.BitScore))
	}
	return strings.Join(parts, " ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
