// Package cdd reads the NCBI Conserved Domain Database metadata files and
// fills profile lengths, specific-hit bit-score thresholds and superfamily
// links into a family table.
//
// Three tab-separated files from ftp.ncbi.nih.gov/pub/mmdb/cdd are read:
//
//	cddid_all.tbl             pssm-id  accession  short-name  description  length
//	bitscore_specific.txt     pssm-id  accession  threshold
//	family_superfamily_links  accession  pssm-id  superfamily  superfamily-pssm-id
//
// cddid_all.tbl is distributed gzipped; the unpacked file is expected.
package cdd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/roach88/synthase/internal/ir"
)

// File names inside a CDD metadata directory.
const (
	CDDIDFile       = "cddid_all.tbl"
	BitScoreFile    = "bitscore_specific.txt"
	SuperfamilyFile = "family_superfamily_links"
)

// Entry is the metadata of one CDD profile.
type Entry struct {
	PSSM        int     `json:"pssm"`
	Accession   string  `json:"accession"`
	Name        string  `json:"name"`
	Length      int     `json:"length"`
	BitScore    float64 `json:"bitscore,omitempty"`
	Superfamily string  `json:"superfamily,omitempty"`
}

// LineError reports a malformed line in a metadata file.
type LineError struct {
	File string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// DB indexes CDD entries by accession, short name and PSSM-ID.
type DB struct {
	entries     []Entry
	byAccession map[string]int
	byName      map[string]int
	byPSSM      map[string]int
}

// NewDB returns an empty database.
func NewDB() *DB {
	return &DB{
		byAccession: make(map[string]int),
		byName:      make(map[string]int),
		byPSSM:      make(map[string]int),
	}
}

// Len returns the number of profiles.
func (db *DB) Len() int {
	return len(db.entries)
}

// Lookup finds an entry by accession, then short name, then PSSM-ID.
func (db *DB) Lookup(key string) (Entry, bool) {
	if key == "" {
		return Entry{}, false
	}
	for _, index := range []map[string]int{db.byAccession, db.byName, db.byPSSM} {
		if i, ok := index[key]; ok {
			return db.entries[i], true
		}
	}
	return Entry{}, false
}

func (db *DB) add(e Entry) {
	if i, ok := db.byAccession[e.Accession]; ok {
		db.entries[i] = e
		return
	}
	i := len(db.entries)
	db.entries = append(db.entries, e)
	db.byAccession[e.Accession] = i
	if _, ok := db.byName[e.Name]; !ok {
		db.byName[e.Name] = i
	}
	db.byPSSM[strconv.Itoa(e.PSSM)] = i
}

// Open reads the three metadata files from dir.
func Open(dir string) (*DB, error) {
	db := NewDB()
	steps := []struct {
		name  string
		parse func(*DB, io.Reader) error
	}{
		{CDDIDFile, (*DB).ReadCDDID},
		{BitScoreFile, (*DB).ReadBitScores},
		{SuperfamilyFile, (*DB).ReadSuperfamilies},
	}
	for _, step := range steps {
		if err := db.readFile(filepath.Join(dir, step.name), step.parse); err != nil {
			return nil, err
		}
	}
	slog.Debug("loaded cdd metadata", "dir", dir, "profiles", db.Len())
	return db, nil
}

func (db *DB) readFile(path string, parse func(*DB, io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open cdd metadata: %w", err)
	}
	defer f.Close()

	err = parse(db, f)
	var lineErr *LineError
	if errors.As(err, &lineErr) {
		lineErr.File = filepath.Base(path)
	}
	return err
}

// ReadCDDID adds the profiles listed in a cddid_all.tbl stream.
func (db *DB) ReadCDDID(r io.Reader) error {
	return eachRow(r, CDDIDFile, 5, func(cols []string) error {
		pssm, err := strconv.Atoi(cols[0])
		if err != nil {
			return fmt.Errorf("invalid pssm-id %q", cols[0])
		}
		length, err := strconv.Atoi(cols[4])
		if err != nil {
			return fmt.Errorf("invalid length %q", cols[4])
		}
		db.add(Entry{PSSM: pssm, Accession: cols[1], Name: cols[2], Length: length})
		return nil
	})
}

// ReadBitScores sets specific-hit thresholds from a bitscore_specific.txt
// stream. Rows for profiles not yet read are skipped.
func (db *DB) ReadBitScores(r io.Reader) error {
	return eachRow(r, BitScoreFile, 3, func(cols []string) error {
		score, err := strconv.ParseFloat(cols[2], 64)
		if err != nil {
			return fmt.Errorf("invalid threshold %q", cols[2])
		}
		if i, ok := db.byAccession[cols[1]]; ok {
			db.entries[i].BitScore = score
		}
		return nil
	})
}

// ReadSuperfamilies sets superfamily accessions from a
// family_superfamily_links stream. Rows for profiles not yet read are
// skipped.
func (db *DB) ReadSuperfamilies(r io.Reader) error {
	return eachRow(r, SuperfamilyFile, 4, func(cols []string) error {
		if i, ok := db.byAccession[cols[0]]; ok {
			db.entries[i].Superfamily = cols[2]
		}
		return nil
	})
}

func eachRow(r io.Reader, file string, columns int, fn func([]string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) < columns {
			return &LineError{File: file, Line: line, Err: fmt.Errorf("expected %d columns, got %d", columns, len(cols))}
		}
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		if err := fn(cols); err != nil {
			return &LineError{File: file, Line: line, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	return nil
}

// Annotate returns a copy of families with accession, length, threshold and
// superfamily taken from db. Each family is looked up by accession and then
// by name. Families absent from db are kept as they are and their names
// returned in missing.
func (db *DB) Annotate(families []ir.Family) (out []ir.Family, missing []string) {
	out = make([]ir.Family, 0, len(families))
	for _, f := range families {
		e, ok := db.Lookup(f.Accession)
		if !ok {
			e, ok = db.Lookup(f.Name)
		}
		if !ok {
			slog.Warn("family not found in cdd metadata", "family", f.Name, "accession", f.Accession)
			missing = append(missing, f.Name)
			out = append(out, f)
			continue
		}
		f.Accession = e.Accession
		f.Length = e.Length
		if e.BitScore > 0 {
			f.BitScore = e.BitScore
		}
		if e.Superfamily != "" {
			f.Superfamily = e.Superfamily
		}
		out = append(out, f)
	}
	return out, missing
}
