package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/store"
)

// StoreOptions holds flags for commands that read a run database.
type StoreOptions struct {
	*RootOptions
	DB string // database path
}

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	StoreOptions
	Label string   // only results filed under this label
	Arch  string   // only results with this architecture
	Types []string // only results with hits of these domain types
}

// where builds the result filter from the flags; nil selects everything.
func (o *ReportOptions) where() store.Predicate {
	var preds []store.Predicate
	if o.Label != "" {
		preds = append(preds, store.HasLabel{Label: o.Label})
	}
	if o.Arch != "" {
		preds = append(preds, store.Equals{Field: "architecture", Value: o.Arch})
	}
	for _, t := range o.Types {
		preds = append(preds, store.HasType{Type: t})
	}
	if len(preds) == 0 {
		return nil
	}
	return store.And{Predicates: preds}
}

// ReportResult is one persisted run with its results and label groups.
type ReportResult struct {
	Run     store.Run          `json:"run"`
	Queries []QueryOutput      `json:"queries"`
	Groups  []store.ClassCount `json:"groups"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List classification runs recorded in a database",
		Long: `List every run recorded by "classify --db", oldest first, with the
number of stored results and how many were classified.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to the database")
	cmd.MarkFlagRequired("db")

	return cmd
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Show a recorded run grouped by classification",
		Long: `Show every stored result of a run and the queries filed under each
classification label at any level of their path.

Filters narrow the listed results and the groups; they combine with AND.

Examples:
  synthase report 019a... --db runs.db
  synthase report 019a... --db runs.db --label NR-PKS
  synthase report 019a... --db runs.db --type KS --type TE`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to the database")
	cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Label, "label", "", "only results filed under this label")
	cmd.Flags().StringVar(&opts.Arch, "arch", "", "only results with this architecture (e.g. KS-AT-ACP)")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "only results with a hit of this domain type")

	return cmd
}

// openStore opens an existing database. Unlike classify, reading commands
// never create one.
func openStore(path string) (*store.Store, *LoadError) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", path)}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error()}
	}
	return st, nil
}

func runRuns(opts *StoreOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, lerr := openStore(opts.DB)
	if lerr != nil {
		return outputStoreError(formatter, lerr.Code, lerr.Message)
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd))
	if err != nil {
		return outputStoreError(formatter, ErrCodeStoreFailed, err.Error())
	}

	if opts.Format == "json" {
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tQUERIES\tRESULTS\tCLASSIFIED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", r.Seq, r.ID, r.Queries, r.Results, r.Classified)
	}
	return tw.Flush()
}

func runReport(opts *ReportOptions, runID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, lerr := openStore(opts.DB)
	if lerr != nil {
		return outputStoreError(formatter, lerr.Code, lerr.Message)
	}
	defer st.Close()

	ctx := commandContext(cmd)
	run, all, err := st.ReadRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return outputStoreError(formatter, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return outputStoreError(formatter, ErrCodeStoreFailed, err.Error())
	}
	entries := all
	if where := opts.where(); where != nil {
		entries, err = st.FindResults(ctx, runID, where)
		if err != nil {
			return outputStoreError(formatter, ErrCodeStoreFailed, err.Error())
		}
		formatter.VerboseLog("Filter matched %d of %d result(s)", len(entries), len(all))
	}

	results := make([]ir.Result, len(entries))
	for i, e := range entries {
		results[i] = e.Result
	}
	result := ReportResult{
		Run:     run,
		Queries: make([]QueryOutput, len(entries)),
		Groups:  store.CountResults(results),
	}
	for i, res := range results {
		result.Queries[i] = QueryOutput{
			Header:         res.Header,
			Architecture:   res.Architecture(),
			Classification: res.Classification,
			Hits:           res.Hits,
		}
	}
	formatter.VerboseLog("Run %s: graph %s, settings %s", run.ID, run.GraphHash, run.Settings)

	return formatter.SuccessRun(run.ID, reportView{ReportResult: result, stored: len(all)})
}

// reportView is a ReportResult with the number of results stored for the
// run before filtering. It encodes to JSON as the bare result.
type reportView struct {
	ReportResult
	stored int
}

// WriteText prints the run summary, one line per result and the label
// groups.
func (v reportView) WriteText(w io.Writer) error {
	run := v.Run
	fmt.Fprintf(w, "Run #%d: %d of %d quer(ies) stored\n", run.Seq, v.stored, run.Queries)
	if len(v.Queries) != v.stored {
		fmt.Fprintf(w, "  %d result(s) match the filter\n", len(v.Queries))
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, q := range v.Queries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", q.Header, dash(q.Architecture), formatLabels(q.Classification))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(v.Groups) > 0 {
		fmt.Fprintln(w)
		writeGroups(w, v.Groups)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// outputStoreError reports a command error (exit code 2).
func outputStoreError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
