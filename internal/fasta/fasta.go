// Package fasta reads and writes FASTA sequence files and slices domain
// sequences out of classified queries.
package fasta

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/synthase/internal/ir"
)

// LineWidth is the sequence wrap width used by Write.
const LineWidth = 80

// Record is one FASTA entry.
type Record struct {
	Header   string
	Sequence string
}

// Parse reads all records from r. Sequence lines before the first header
// are an error; blank lines are ignored.
func Parse(r io.Reader) ([]Record, error) {
	records := []Record{}
	var seq strings.Builder
	inRecord := false

	flush := func() {
		if inRecord {
			records[len(records)-1].Sequence = seq.String()
			seq.Reset()
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if header, ok := strings.CutPrefix(text, ">"); ok {
			flush()
			records = append(records, Record{Header: strings.TrimSpace(header)})
			inRecord = true
			continue
		}
		if !inRecord {
			return nil, fmt.Errorf("line %d: sequence data before first header", line)
		}
		seq.WriteString(text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fasta: %w", err)
	}
	flush()
	return records, nil
}

// AttachSequences copies queries and fills in sequences by exact header
// match. Headers with no matching record are returned as missing.
func AttachSequences(queries []ir.Query, records []Record) ([]ir.Query, []string) {
	byHeader := make(map[string]string, len(records))
	for _, r := range records {
		byHeader[r.Header] = r.Sequence
	}
	out := make([]ir.Query, len(queries))
	missing := []string{}
	for i, q := range queries {
		out[i] = ir.Query{Header: q.Header, Sequence: q.Sequence, Hits: ir.CloneHits(q.Hits)}
		if seq, ok := byHeader[q.Header]; ok {
			out[i].Sequence = seq
		} else if q.Sequence == "" {
			missing = append(missing, q.Header)
		}
	}
	return out, missing
}

// ExtractDomains returns one record per hit whose type is in types (all
// hits when types is empty). Headers are "<query>_<type>_<n>" where n
// counts hits of that type from 0.
func ExtractDomains(res ir.Result, types ...string) ([]Record, error) {
	if res.Sequence == "" {
		return nil, fmt.Errorf("%s: no sequence to extract domains from", res.Header)
	}
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	counts := make(map[string]int)
	records := []Record{}
	for _, h := range res.Hits {
		if len(want) > 0 && !want[h.Type] {
			continue
		}
		n := counts[h.Type]
		counts[h.Type]++
		records = append(records, Record{
			Header:   fmt.Sprintf("%s_%s_%d", res.Header, h.Type, n),
			Sequence: h.Slice(res.Sequence),
		})
	}
	return records, nil
}

// Write emits records with sequences wrapped at LineWidth.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := fmt.Fprintf(bw, ">%s\n", r.Header); err != nil {
			return err
		}
		for seq := r.Sequence; len(seq) > 0; {
			n := min(LineWidth, len(seq))
			if _, err := fmt.Fprintln(bw, seq[:n]); err != nil {
				return err
			}
			seq = seq[n:]
		}
	}
	return bw.Flush()
}
