package harness

import (
	"github.com/roach88/synthase/internal/ir"
)

// QueryResult is the observed outcome of one query.
type QueryResult struct {
	Header         string   `json:"header"`
	Classification []string `json:"classification"`
	Architecture   string   `json:"architecture"`
	Hits           []ir.Hit `json:"hits"`
	// Error is the query error code, empty on success.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expectations and assertions hold.
	Pass bool `json:"pass"`

	// RunID is the batch run token.
	RunID string `json:"run_id"`

	// Queries holds one entry per scenario query, in order.
	Queries []QueryResult `json:"queries"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Queries: []QueryResult{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Query returns the result for header.
func (r *Result) Query(header string) (QueryResult, bool) {
	return find(r.Queries, header)
}
