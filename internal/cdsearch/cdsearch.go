// Package cdsearch reads NCBI CD-search "domain hits" tables.
//
// Only data rows are read; they start with a query tag such as
// "Q#1 - >AN6791.2" followed by tab-separated columns:
//
//	query  hit-type  pssm-id  from  to  e-value  bitscore  accession  short-name  incomplete  superfamily
//
// Preamble, column headers and blank lines are ignored.
package cdsearch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/synthase/internal/ir"
)

// ErrUnknownFamily is returned by ParseRow when neither the short name nor
// the accession of a row is in the family table.
var ErrUnknownFamily = errors.New("family not in table")

var queryTag = regexp.MustCompile(`^Q#\d+ - >?(.+?)\t`)

const minColumns = 9

// Column offsets in a data row.
const (
	colQuery = iota
	colHitType
	colPSSM
	colFrom
	colTo
	colEValue
	colBitScore
	colAccession
	colShortName
	colIncomplete
	colSuperfamily
)

// Stats summarizes one parse. Dropped counts rows of unknown families and
// Malformed counts rows skipped as unreadable.
type Stats struct {
	Rows      int `json:"rows"`
	Kept      int `json:"kept"`
	Dropped   int `json:"dropped"`
	Malformed int `json:"malformed"`
	Queries   int `json:"queries"`
}

// RowError reports a malformed data row.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Parser converts CD-search rows into queries using a family table.
type Parser struct {
	families *ir.FamilyTable
	strict   bool
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithStrict makes a malformed row fail the whole parse instead of being
// skipped.
func WithStrict(strict bool) ParserOption {
	return func(p *Parser) {
		p.strict = strict
	}
}

// NewParser returns a parser that keeps only hits whose family is in
// families.
func NewParser(families *ir.FamilyTable, opts ...ParserOption) *Parser {
	p := &Parser{families: families}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads all data rows from r. Queries are returned in first-seen
// order; a query whose rows were all dropped is still returned with no
// hits so that it reaches classification and is reported as unclassified.
//
// A malformed row is logged and skipped, or returned as a *RowError when
// the parser is strict.
func (p *Parser) Parse(r io.Reader) ([]ir.Query, Stats, error) {
	var (
		stats   Stats
		queries []ir.Query
		index   = make(map[string]int)
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		row := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(row, "Q#") {
			continue
		}
		stats.Rows++

		header, hit, err := p.ParseRow(row)
		if header == "" {
			if p.strict {
				return nil, stats, &RowError{Line: line, Err: err}
			}
			stats.Malformed++
			slog.Warn("skipping malformed row", "line", line, "error", err)
			continue
		}
		i, seen := index[header]
		if !seen {
			i = len(queries)
			index[header] = i
			queries = append(queries, ir.Query{Header: header, Hits: []ir.Hit{}})
		}
		if errors.Is(err, ErrUnknownFamily) {
			stats.Dropped++
			slog.Warn("dropping hit with unrecognized family",
				"line", line,
				"query", header,
				"error", err)
			continue
		}
		if err != nil {
			if p.strict {
				return nil, stats, &RowError{Line: line, Err: err}
			}
			stats.Malformed++
			slog.Warn("skipping malformed row",
				"line", line,
				"query", header,
				"error", err)
			continue
		}
		queries[i].Hits = append(queries[i].Hits, hit)
		stats.Kept++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("read cd-search results: %w", err)
	}

	stats.Queries = len(queries)
	slog.Debug("parsed cd-search results",
		"rows", stats.Rows,
		"kept", stats.Kept,
		"dropped", stats.Dropped,
		"malformed", stats.Malformed,
		"queries", stats.Queries)
	if queries == nil {
		queries = []ir.Query{}
	}
	return queries, stats, nil
}

// ParseRow parses one data row. The header is returned whenever the query
// tag could be read, even if the rest of the row is rejected.
func (p *Parser) ParseRow(row string) (string, ir.Hit, error) {
	m := queryTag.FindStringSubmatch(row)
	if m == nil {
		return "", ir.Hit{}, fmt.Errorf("missing query tag")
	}
	header := m[1]

	cols := strings.Split(row, "\t")
	if len(cols) < minColumns {
		return header, ir.Hit{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(cols))
	}

	name := strings.TrimSpace(cols[colShortName])
	accession := strings.TrimSpace(cols[colAccession])
	family, ok := p.families.Lookup(name)
	if !ok {
		family, ok = p.families.Lookup(accession)
	}
	if !ok {
		return header, ir.Hit{}, fmt.Errorf("%w: %s (%s)", ErrUnknownFamily, name, accession)
	}

	start, err := parseInt(cols[colFrom], "from")
	if err != nil {
		return header, ir.Hit{}, err
	}
	end, err := parseInt(cols[colTo], "to")
	if err != nil {
		return header, ir.Hit{}, err
	}
	evalue, err := parseFloat(cols[colEValue], "e-value")
	if err != nil {
		return header, ir.Hit{}, err
	}
	bitscore, err := parseFloat(cols[colBitScore], "bitscore")
	if err != nil {
		return header, ir.Hit{}, err
	}

	hit := ir.Hit{
		Type:      family.Type,
		Family:    family.Name,
		Accession: accession,
		Start:     start,
		End:       end,
		EValue:    evalue,
		BitScore:  bitscore,
	}
	if len(cols) > colIncomplete {
		hit.Truncated = incomplete(cols[colIncomplete])
	}
	return header, hit, nil
}

// incomplete reports whether the CD-search incomplete column marks a
// missing N- or C-terminus.
func incomplete(s string) bool {
	switch strings.TrimSpace(s) {
	case "N", "C", "NC", "CN":
		return true
	}
	return false
}

func parseInt(s, column string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", column, s)
	}
	return n, nil
}

func parseFloat(s, column string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", column, s)
	}
	return f, nil
}
