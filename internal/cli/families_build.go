package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/synthase/internal/cdd"
	"github.com/roach88/synthase/internal/ir"
)

// FamiliesBuildOptions holds flags for the families build command.
type FamiliesBuildOptions struct {
	*RootOptions
	CDD      string // directory of CDD metadata files
	Families string // base family table (default: built-in)
	Skeleton string // skeleton file listing families per type
	Output   string // output file path (default: stdout)
}

// FamiliesBuildResult describes a built family table.
type FamiliesBuildResult struct {
	Families  []ir.Family        `json:"families"`
	Adjacency []ir.AdjacencyRule `json:"adjacency"`
	Missing   []string           `json:"missing"`
	Output    string             `json:"output,omitempty"`
}

// WriteText prints a one-line summary and the families CDD did not know.
func (r FamiliesBuildResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "✓ Wrote %d famil(ies) to %s\n", len(r.Families), r.Output)
	if len(r.Missing) > 0 {
		fmt.Fprintf(w, "  %d not in CDD metadata: %s\n", len(r.Missing), strings.Join(r.Missing, ", "))
	}
	return nil
}

// NewFamiliesBuildCommand creates the families build subcommand.
func NewFamiliesBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FamiliesBuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fill a family table from CDD metadata",
		Long: `Build a family table with profile lengths, specific-hit bit-score
thresholds and superfamily links taken from the NCBI CDD metadata files
cddid_all.tbl, bitscore_specific.txt and family_superfamily_links
(ftp.ncbi.nih.gov/pub/mmdb/cdd).

The families come from the built-in table, a --families table or a
--skeleton file of ">TYPE" headers each followed by one family short name
or accession per line. The table is written as YAML.

Examples:
  synthase families build --cdd ./cdd > families.yaml
  synthase families build --cdd ./cdd --skeleton domains.txt -o families.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFamiliesBuild(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CDD, "cdd", "", "directory of CDD metadata files (required)")
	cmd.Flags().StringVar(&opts.Families, "families", "", "base family table (default: built-in)")
	cmd.Flags().StringVar(&opts.Skeleton, "skeleton", "", "skeleton file of families per type")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (default: stdout)")
	_ = cmd.MarkFlagRequired("cdd")
	cmd.MarkFlagsMutuallyExclusive("families", "skeleton")

	return cmd
}

func runFamiliesBuild(opts *FamiliesBuildOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if lerr := checkPath(opts.CDD, "cdd"); lerr != nil {
		return outputFamiliesError(formatter, lerr)
	}
	db, err := cdd.Open(opts.CDD)
	if err != nil {
		code := ErrCodeLoadFailed
		var lineErr *cdd.LineError
		if errors.As(err, &lineErr) {
			code = ErrCodeParseFailed
		}
		return outputFamiliesError(formatter, &LoadError{Code: code, Message: err.Error()})
	}
	formatter.VerboseLog("Read %d CDD profile(s) from %s", db.Len(), opts.CDD)

	base, adjacency, lerr := buildBase(opts, db)
	if lerr != nil {
		return outputFamiliesError(formatter, lerr)
	}
	families, missing := db.Annotate(base)
	if missing == nil {
		missing = []string{}
	}
	result := FamiliesBuildResult{
		Families:  families,
		Adjacency: adjacency,
		Missing:   missing,
		Output:    opts.Output,
	}

	var buf bytes.Buffer
	if err := cdd.WriteTable(&buf, families, adjacency); err != nil {
		return outputFamiliesError(formatter, &LoadError{Code: ErrCodeWriteFailed, Message: err.Error()})
	}

	if opts.Output == "" {
		if opts.Format == "json" {
			return formatter.Success(result)
		}
		if len(missing) > 0 {
			fmt.Fprintf(formatter.GetErrWriter(), "%d famil(ies) not in CDD metadata: %s\n",
				len(missing), strings.Join(missing, ", "))
		}
		_, err := formatter.Writer.Write(buf.Bytes())
		return err
	}

	if err := os.WriteFile(opts.Output, buf.Bytes(), 0644); err != nil {
		return outputFamiliesError(formatter, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)})
	}
	return formatter.Success(result)
}

// buildBase returns the families to annotate and the adjacency rules to
// carry into the built table.
func buildBase(opts *FamiliesBuildOptions, db *cdd.DB) ([]ir.Family, []ir.AdjacencyRule, *LoadError) {
	if opts.Skeleton == "" {
		table, adjacency, err := loadFamilies(opts.Families)
		if err != nil {
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
			}
			return nil, nil, loadErr
		}
		return table.Families(), adjacency, nil
	}

	if lerr := checkPath(opts.Skeleton, "skeleton"); lerr != nil {
		return nil, nil, lerr
	}
	f, err := os.Open(opts.Skeleton)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	defer f.Close()

	skeleton, err := cdd.ReadSkeleton(f)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("%s: %v", opts.Skeleton, err)}
	}
	return db.Resolve(skeleton), ir.DefaultAdjacencyRules(), nil
}

// outputFamiliesError reports a command error (exit code 2).
func outputFamiliesError(formatter *OutputFormatter, lerr *LoadError) error {
	_ = formatter.Error(lerr.Code, lerr.Message, posDetails(lerr))
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", lerr.Code, lerr.Message))
}
