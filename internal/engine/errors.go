package engine

import (
	"errors"
	"fmt"
)

// QueryError reports why one query in a batch produced no result.
type QueryError struct {
	// Code identifies the error category.
	Code QueryErrorCode

	// Header identifies the affected query.
	Header string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// QueryErrorCode categorizes query errors.
type QueryErrorCode string

const (
	// ErrCodeInvalidHit indicates a hit whose end precedes its start.
	ErrCodeInvalidHit QueryErrorCode = "INVALID_HIT"

	// ErrCodePanic indicates a stage panicked while processing the query.
	ErrCodePanic QueryErrorCode = "PANIC"

	// ErrCodeCancelled indicates the batch context ended before the query
	// was dispatched.
	ErrCodeCancelled QueryErrorCode = "CANCELLED"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Header != "" {
		return fmt.Sprintf("%s: %s (query=%s)", e.Code, e.Message, e.Header)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsInvalidHit reports whether err is an invalid hit error.
// Uses errors.As to handle wrapped errors.
func IsInvalidHit(err error) bool {
	return hasCode(err, ErrCodeInvalidHit)
}

// IsPanic reports whether err is a recovered panic.
func IsPanic(err error) bool {
	return hasCode(err, ErrCodePanic)
}

// IsCancelled reports whether err is a cancellation error.
func IsCancelled(err error) bool {
	return hasCode(err, ErrCodeCancelled)
}

func hasCode(err error, code QueryErrorCode) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

// NewInvalidHitError creates a QueryError for a malformed hit.
func NewInvalidHitError(header string, index, start, end int) *QueryError {
	return &QueryError{
		Code:    ErrCodeInvalidHit,
		Header:  header,
		Message: fmt.Sprintf("hit %d ends before it starts (%d-%d)", index, start, end),
	}
}

// NewPanicError creates a QueryError for a recovered panic.
func NewPanicError(header string, recovered any) *QueryError {
	return &QueryError{
		Code:    ErrCodePanic,
		Header:  header,
		Message: fmt.Sprintf("panic: %v", recovered),
	}
}

// NewCancelledError creates a QueryError for a query that was never run.
func NewCancelledError(header string, cause error) *QueryError {
	return &QueryError{
		Code:    ErrCodeCancelled,
		Header:  header,
		Message: "batch cancelled before query was processed",
		Err:     cause,
	}
}
