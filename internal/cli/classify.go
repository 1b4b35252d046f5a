package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/synthase/internal/cdsearch"
	"github.com/roach88/synthase/internal/engine"
	"github.com/roach88/synthase/internal/fasta"
	"github.com/roach88/synthase/internal/ir"
	"github.com/roach88/synthase/internal/store"
)

// ClassifyOptions holds flags for the classify command.
type ClassifyOptions struct {
	*RootOptions
	Rules    string   // rule graph (default: built-in)
	Families string   // family table (default: built-in)
	Fasta    string   // query sequences for domain extraction
	DB       string   // SQLite database to persist the run
	Extract  string   // directory for per-query domain FASTA files
	Types    []string // domain types to extract (default: all)
	Workers  int      // overrides [engine] workers
	Strict   bool     // fail on the first malformed hit row
}

// QueryOutput is the reported outcome of one query.
type QueryOutput struct {
	Header         string   `json:"header"`
	Architecture   string   `json:"architecture"`
	Classification []string `json:"classification"`
	Hits           []ir.Hit `json:"hits"`
	Error          string   `json:"error,omitempty"`
}

// ClassifyResult holds the outcome of a classify run.
type ClassifyResult struct {
	RunID      string             `json:"run_id"`
	Ingest     cdsearch.Stats     `json:"ingest"`
	Queries    []QueryOutput      `json:"queries"`
	Classified int                `json:"classified"`
	Failed     int                `json:"failed"`
	Groups     []store.ClassCount `json:"groups"`
	Extracted  int                `json:"extracted,omitempty"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClassifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "classify <hits.tsv>",
		Short: "Classify proteins from CD-search domain hits",
		Long: `Classify every query in an NCBI CD-search "domain hits" table.

Hits are grouped by overlap, each group is resolved to one domain,
fragments are merged, and the resulting architecture is classified
against the rule graph. Hits from families missing from the family
table are dropped with a warning.

Exit codes:
  0 - Every query processed
  1 - One or more queries failed
  2 - Command error (invalid paths, malformed input, etc.)

Examples:
  synthase classify hits.tsv
  synthase classify hits.tsv --rules rules.cue --families families.yaml
  synthase classify hits.tsv --fasta proteins.faa --extract domains/ --type KS
  synthase classify hits.tsv --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Rules, "rules", "", "rule graph (default: built-in)")
	cmd.Flags().StringVar(&opts.Families, "families", "", "family table (default: built-in)")
	cmd.Flags().StringVar(&opts.Fasta, "fasta", "", "query sequences (FASTA)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database to record the run in")
	cmd.Flags().StringVar(&opts.Extract, "extract", "", "write domain sequences to this directory (requires --fasta)")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "domain types to extract (default: all)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent queries (default: settings, then one per CPU)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on malformed hit rows instead of skipping them")

	return cmd
}

func runClassify(opts *ClassifyOptions, hitsPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	if opts.Extract != "" && opts.Fasta == "" {
		return outputClassifyError(formatter, ErrCodeGeneric, "--extract requires --fasta")
	}
	if opts.Workers < 0 {
		return outputClassifyError(formatter, ErrCodeGeneric, fmt.Sprintf("--workers must be non-negative, got %d", opts.Workers))
	}

	cfg, loadErr := loadEngineConfig(opts.RootOptions, opts.Rules, opts.Families)
	if loadErr != nil {
		return outputClassifyError(formatter, loadErr.Code, loadErr.Message)
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	formatter.VerboseLog("Loaded %d rule(s) and %d famil(ies)", len(cfg.Graph.Rules), cfg.Families.Len())

	queries, stats, lerr := readHits(hitsPath, cfg.Families, opts.Strict)
	if lerr != nil {
		return outputClassifyError(formatter, lerr.Code, lerr.Message)
	}
	formatter.VerboseLog("Read %d row(s): %d kept, %d dropped, %d malformed, %d quer(ies)",
		stats.Rows, stats.Kept, stats.Dropped, stats.Malformed, stats.Queries)

	if opts.Fasta != "" {
		var missing []string
		queries, missing, lerr = attachSequences(opts.Fasta, queries)
		if lerr != nil {
			return outputClassifyError(formatter, lerr.Code, lerr.Message)
		}
		for _, h := range missing {
			formatter.VerboseLog("No sequence for %s", h)
		}
	}

	var engineOpts []engine.Option
	if opts.DB != "" {
		st, err := store.Open(opts.DB)
		if err != nil {
			return outputClassifyError(formatter, ErrCodeStoreFailed, err.Error())
		}
		defer st.Close()
		engineOpts = append(engineOpts, engine.WithStore(st))
	}

	eng, err := engine.New(cfg, engineOpts...)
	if err != nil {
		return outputClassifyError(formatter, ErrCodeBuildFailed, err.Error())
	}

	batch, err := eng.ProcessBatch(commandContext(cmd), queries)
	if err != nil {
		return outputClassifyError(formatter, ErrCodeStoreFailed, err.Error())
	}

	result := ClassifyResult{
		RunID:   batch.RunID,
		Ingest:  stats,
		Queries: make([]QueryOutput, len(batch.Outcomes)),
		Failed:  batch.Failed(),
		Groups:  store.CountResults(batch.Results()),
	}
	for i, o := range batch.Outcomes {
		result.Queries[i] = queryOutput(o)
		if o.Err == nil && o.Result.Classified() {
			result.Classified++
		}
	}

	if opts.Extract != "" {
		n, err := extractDomains(opts.Extract, batch.Results(), opts.Types, formatter)
		if err != nil {
			return outputClassifyError(formatter, ErrCodeWriteFailed, err.Error())
		}
		result.Extracted = n
	}

	if err := formatter.SuccessRun(result.RunID, classifyReport{ClassifyResult: result, db: opts.DB}); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d quer(ies) failed", result.Failed))
	}
	return nil
}

// readHits parses a CD-search hits table against the family table.
func readHits(path string, families *ir.FamilyTable, strict bool) ([]ir.Query, cdsearch.Stats, *LoadError) {
	if err := checkPath(path, "hits"); err != nil {
		return nil, cdsearch.Stats{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, cdsearch.Stats{}, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	defer f.Close()

	queries, stats, err := cdsearch.NewParser(families, cdsearch.WithStrict(strict)).Parse(f)
	if err != nil {
		return nil, stats, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	if stats.Rows == 0 {
		return nil, stats, &LoadError{Code: ErrCodeNoInput, Message: fmt.Sprintf("%s: no CD-search hit rows", path)}
	}
	return queries, stats, nil
}

// attachSequences reads a FASTA file and attaches sequences by header.
func attachSequences(path string, queries []ir.Query) ([]ir.Query, []string, *LoadError) {
	if err := checkPath(path, "fasta"); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	defer f.Close()

	records, err := fasta.Parse(f)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	out, missing := fasta.AttachSequences(queries, records)
	return out, missing, nil
}

// extractDomains writes one FASTA file per result into dir and returns the
// number of domain records written. Results without a sequence are skipped.
func extractDomains(dir string, results []ir.Result, types []string, formatter *OutputFormatter) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create extract directory: %w", err)
	}
	total := 0
	for _, res := range results {
		if res.Sequence == "" {
			formatter.VerboseLog("Skipping %s: no sequence", res.Header)
			continue
		}
		records, err := fasta.ExtractDomains(res, types...)
		if err != nil {
			return total, err
		}
		if len(records) == 0 {
			continue
		}
		path := filepath.Join(dir, fileName(res.Header)+".fasta")
		if err := writeFasta(path, records); err != nil {
			return total, err
		}
		formatter.VerboseLog("Wrote %d domain(s) to %s", len(records), path)
		total += len(records)
	}
	return total, nil
}

func writeFasta(path string, records []fasta.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fasta.Write(f, records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// fileName makes a query header safe to use as a file name.
func fileName(header string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '|', ' ', '\t':
			return '_'
		}
		return r
	}, header)
}

func queryOutput(o engine.Outcome) QueryOutput {
	out := QueryOutput{
		Header:         o.Result.Header,
		Architecture:   o.Result.Architecture(),
		Classification: o.Result.Classification,
		Hits:           o.Result.Hits,
	}
	if out.Classification == nil {
		out.Classification = []string{}
	}
	if o.Err != nil {
		var qe *engine.QueryError
		if errors.As(o.Err, &qe) {
			out.Error = fmt.Sprintf("%s: %s", qe.Code, qe.Message)
		} else {
			out.Error = o.Err.Error()
		}
	}
	return out
}

// classifyReport is a ClassifyResult with the database it was recorded in.
// It encodes to JSON as the bare result.
type classifyReport struct {
	ClassifyResult
	db string
}

// WriteText prints one line per query followed by the label groups.
func (r classifyReport) WriteText(w io.Writer) error {
	result := r.ClassifyResult
	fmt.Fprintf(w, "✓ Classified %d of %d quer(ies)\n",
		result.Classified, len(result.Queries))
	if result.Ingest.Dropped > 0 {
		fmt.Fprintf(w, "  %d hit(s) dropped: family not in table\n", result.Ingest.Dropped)
	}
	if result.Ingest.Malformed > 0 {
		fmt.Fprintf(w, "  %d row(s) skipped: malformed\n", result.Ingest.Malformed)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, q := range result.Queries {
		if q.Error != "" {
			fmt.Fprintf(tw, "%s\t✗\t%s\n", q.Header, q.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", q.Header, dash(q.Architecture), formatLabels(q.Classification))
	}
	tw.Flush()

	if len(result.Groups) > 0 {
		fmt.Fprintln(w)
		writeGroups(w, result.Groups)
	}
	if result.Extracted > 0 {
		fmt.Fprintf(w, "\nExtracted %d domain sequence(s)\n", result.Extracted)
	}
	if r.db != "" {
		fmt.Fprintf(w, "\nRecorded in %s\n", r.db)
	}
	return nil
}

// writeGroups prints label counts; the unclassified group is shown last
// under a readable name.
func writeGroups(w io.Writer, groups []store.ClassCount) {
	fmt.Fprintln(w, "Groups:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	var unclassified *store.ClassCount
	for i, g := range groups {
		if g.Label == "" {
			unclassified = &groups[i]
			continue
		}
		fmt.Fprintf(tw, "  %s\t%d\n", g.Label, g.Count)
	}
	if unclassified != nil {
		fmt.Fprintf(tw, "  (unclassified)\t%d\n", unclassified.Count)
	}
	tw.Flush()
}

// formatLabels renders a classification path as "PKS > Type I PKS".
func formatLabels(path []string) string {
	if len(path) == 0 {
		return "(unclassified)"
	}
	return strings.Join(path, " > ")
}

// outputClassifyError reports a command error (exit code 2).
func outputClassifyError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
