package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/synthase/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules, Families and Settings are optional configuration paths,
	// relative to the scenario file. Empty selects the built-in default.
	Rules    string `yaml:"rules,omitempty"`
	Families string `yaml:"families,omitempty"`
	Settings string `yaml:"settings,omitempty"`

	// RunToken is a fixed run identifier for deterministic output.
	// If empty, defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`

	// Queries is the batch to classify, in order.
	Queries []QuerySpec `yaml:"queries"`

	// Expect maps query headers to their expected outcome.
	Expect map[string]Expectation `yaml:"expect,omitempty"`

	// Assertions validate the batch as a whole.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// QuerySpec is one input query.
type QuerySpec struct {
	Header   string    `yaml:"header"`
	Sequence string    `yaml:"sequence,omitempty"`
	Hits     []HitSpec `yaml:"hits"`
}

// HitSpec is one raw domain hit.
type HitSpec struct {
	Type      string  `yaml:"type"`
	Family    string  `yaml:"family,omitempty"`
	Accession string  `yaml:"accession,omitempty"`
	Start     int     `yaml:"start"`
	End       int     `yaml:"end"`
	EValue    float64 `yaml:"evalue,omitempty"`
	BitScore  float64 `yaml:"bitscore,omitempty"`
	Truncated bool    `yaml:"truncated,omitempty"`
}

// Expectation is the expected outcome of one query. Unset fields are not
// checked.
type Expectation struct {
	// Classification is the exact expected label path.
	Classification []string `yaml:"classification,omitempty"`

	// Unclassified requires an empty label path.
	Unclassified bool `yaml:"unclassified,omitempty"`

	// Architecture is the expected hyphen-joined type string.
	Architecture *string `yaml:"architecture,omitempty"`

	// Error is the expected query error code (e.g. "INVALID_HIT").
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the batch.
type Assertion struct {
	// Type specifies the assertion type:
	// - "classified_count": number of classified queries equals Count
	// - "group": queries filed under Label are exactly Headers
	// - "type_count": hits of Domain in Header's result equal Count
	// - "truncated_count": truncated hits in Header's result equal Count
	Type string `yaml:"type"`

	Header  string   `yaml:"header,omitempty"`
	Label   string   `yaml:"label,omitempty"`
	Headers []string `yaml:"headers,omitempty"`
	Domain  string   `yaml:"domain,omitempty"`
	Count   int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertClassifiedCount = "classified_count"
	AssertGroup           = "group"
	AssertTypeCount       = "type_count"
	AssertTruncatedCount  = "truncated_count"
)

// LoadScenario reads and parses a scenario YAML file. Configuration paths
// are resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving configuration paths
// against baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for _, p := range []*string{&scenario.Rules, &scenario.Families, &scenario.Settings} {
		if *p != "" && !filepath.IsAbs(*p) && baseDir != "" {
			*p = filepath.Join(baseDir, *p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	if len(s.Expect) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("at least one expect entry or assertion is required")
	}

	for _, p := range []string{s.Rules, s.Families, s.Settings} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", p)
		}
	}

	headers := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if q.Header == "" {
			return fmt.Errorf("queries[%d]: header is required", i)
		}
		if headers[q.Header] {
			return fmt.Errorf("queries[%d]: duplicate header %q", i, q.Header)
		}
		headers[q.Header] = true
		for j, h := range q.Hits {
			if h.Type == "" {
				return fmt.Errorf("queries[%d].hits[%d]: type is required", i, j)
			}
		}
	}

	for header, e := range s.Expect {
		if !headers[header] {
			return fmt.Errorf("expect[%s]: no query with this header", header)
		}
		if e.Unclassified && len(e.Classification) > 0 {
			return fmt.Errorf("expect[%s]: unclassified conflicts with classification", header)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, headers); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, headers map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertClassifiedCount:
	case AssertGroup:
		if a.Label == "" {
			return fmt.Errorf("assertions[%d]: label is required for group", index)
		}
	case AssertTypeCount, AssertTruncatedCount:
		if !headers[a.Header] {
			return fmt.Errorf("assertions[%d]: header %q is not a query", index, a.Header)
		}
		if a.Type == AssertTypeCount && a.Domain == "" {
			return fmt.Errorf("assertions[%d]: domain is required for type_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// Query converts q to a pipeline query.
func (q QuerySpec) Query() ir.Query {
	hits := make([]ir.Hit, len(q.Hits))
	for i, h := range q.Hits {
		family := h.Family
		if family == "" {
			family = h.Type
		}
		hits[i] = ir.Hit{
			Type:      h.Type,
			Family:    family,
			Accession: h.Accession,
			Start:     h.Start,
			End:       h.End,
			EValue:    h.EValue,
			BitScore:  h.BitScore,
			Truncated: h.Truncated,
		}
	}
	return ir.Query{Header: q.Header, Sequence: q.Sequence, Hits: hits}
}
