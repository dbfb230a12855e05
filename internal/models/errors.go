package models

import "fmt"

// ParseError reports plan input that cannot be decoded or is in an
// unsupported format. It is always returned to the caller.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse plan: %s: %v", e.Reason, e.Err)
	}
	return "parse plan: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a missing or invalid required field on a plan,
// request or finding. Index is the element position for list members and
// -1 otherwise.
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

// NewValidationError returns a ValidationError for a top-level field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Index: -1, Reason: reason}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Path() + ": " + e.Reason
}

// Path renders the field location, e.g. resource_changes[3].address.
func (e *ValidationError) Path() string {
	if e.Index < 0 {
		return e.Field
	}
	return fmt.Sprintf("resource_changes[%d].%s", e.Index, e.Field)
}

// RuleEvaluationError records a predicate that panicked for one resource.
// It is logged and counted but never aborts a run.
type RuleEvaluationError struct {
	Engine  string
	RuleID  string
	Address string
	Cause   any
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("%s rule %s on %s: %v", e.Engine, e.RuleID, e.Address, e.Cause)
}

// AnalysisFailure wraps any other error raised while orchestrating a run.
type AnalysisFailure struct {
	Stage string
	Err   error
}

func (e *AnalysisFailure) Error() string {
	return fmt.Sprintf("analysis failed during %s: %v", e.Stage, e.Err)
}

func (e *AnalysisFailure) Unwrap() error { return e.Err }
