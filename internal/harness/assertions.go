package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/synthase/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Queries  []QueryResult // All query results for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nResults:\n")
	for i, q := range e.Queries {
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", i+1, q.Header, q.Architecture, formatPath(q.Classification))
	}

	return buf.String()
}

// AssertionContext provides what store-backed assertions need.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

// EvaluateAssertions runs every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertClassifiedCount:
			err = assertClassifiedCount(result.Queries, a)
		case AssertGroup:
			err = assertGroup(actx, result.Queries, a)
		case AssertTypeCount:
			err = assertTypeCount(result.Queries, a)
		case AssertTruncatedCount:
			err = assertTruncatedCount(result.Queries, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertClassifiedCount checks how many queries received a label path.
func assertClassifiedCount(queries []QueryResult, a Assertion) error {
	count := 0
	for _, q := range queries {
		if q.Error == "" && len(q.Classification) > 0 {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertClassifiedCount,
			Expected: fmt.Sprintf("%d classified queries", a.Count),
			Actual:   fmt.Sprintf("%d classified queries", count),
			Queries:  queries,
		}
	}
	return nil
}

// assertGroup reads the persisted run and checks which queries are filed
// under a label at any level of their path.
func assertGroup(actx *AssertionContext, queries []QueryResult, a Assertion) error {
	if actx == nil || actx.Store == nil {
		return fmt.Errorf("group assertion requires a store")
	}
	counts, err := actx.Store.CountByClassification(actx.Ctx, actx.RunID)
	if err != nil {
		return fmt.Errorf("group assertion: %w", err)
	}
	got := []string{}
	for _, c := range counts {
		if c.Label == a.Label {
			got = c.Headers
		}
	}
	want := a.Headers
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertGroup,
			Expected: fmt.Sprintf("%q contains %v", a.Label, want),
			Actual:   fmt.Sprintf("%q contains %v", a.Label, got),
			Queries:  queries,
		}
	}
	return nil
}

// assertTypeCount checks how many hits of one type a query ended with.
func assertTypeCount(queries []QueryResult, a Assertion) error {
	q, _ := find(queries, a.Header)
	count := 0
	for _, h := range q.Hits {
		if h.Type == a.Domain {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTypeCount,
			Expected: fmt.Sprintf("%d %s hits in %s", a.Count, a.Domain, a.Header),
			Actual:   fmt.Sprintf("%d hits", count),
			Queries:  queries,
		}
	}
	return nil
}

// assertTruncatedCount checks how many of a query's hits are flagged.
func assertTruncatedCount(queries []QueryResult, a Assertion) error {
	q, _ := find(queries, a.Header)
	count := 0
	for _, h := range q.Hits {
		if h.Truncated {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTruncatedCount,
			Expected: fmt.Sprintf("%d truncated hits in %s", a.Count, a.Header),
			Actual:   fmt.Sprintf("%d truncated hits", count),
			Queries:  queries,
		}
	}
	return nil
}

func find(queries []QueryResult, header string) (QueryResult, bool) {
	for _, q := range queries {
		if q.Header == header {
			return q, true
		}
	}
	return QueryResult{}, false
}
