package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an execution does not exist
var ErrNotFound = errors.New("execution not found")

// ErrLeaseHeld is returned when another worker owns the execution's lease
var ErrLeaseHeld = errors.New("lease held by another worker")

// ErrCorrectionExhausted marks a failure caused by spending the whole
// correction budget
var ErrCorrectionExhausted = errors.New("correction budget exhausted")

// ErrTerminalState is returned by state stores when a write would move
// an execution out of a terminal state. Terminal states are immutable.
var ErrTerminalState = errors.New("execution is in a terminal state")

// PlanningError is fatal and surfaced at creation time; no execution
// record is persisted when planning fails.
type PlanningError struct {
	InputType string
	Cause     error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed for input type %q: %v", e.InputType, e.Cause)
}

func (e *PlanningError) Unwrap() error { return e.Cause }

// NewPlanningError wraps a plan generation failure
func NewPlanningError(inputType string, cause error) *PlanningError {
	return &PlanningError{InputType: inputType, Cause: cause}
}

// StepExecutionError is raised by an operation handler. Transient
// errors are retried through the correction loop; permanent errors
// fail the execution immediately.
type StepExecutionError struct {
	Operation string
	Transient bool
	Cause     error
}

func (e *StepExecutionError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("operation %s failed (%s): %v", e.Operation, kind, e.Cause)
}

func (e *StepExecutionError) Unwrap() error { return e.Cause }

// NewTransientError builds a retryable step execution error
func NewTransientError(operation string, cause error) *StepExecutionError {
	return &StepExecutionError{Operation: operation, Transient: true, Cause: cause}
}

// NewPermanentError builds a non-retryable step execution error
func NewPermanentError(operation string, cause error) *StepExecutionError {
	return &StepExecutionError{Operation: operation, Transient: false, Cause: cause}
}

// IsTransient reports whether err carries a retryable classification
func IsTransient(err error) bool {
	var stepErr *StepExecutionError
	if errors.As(err, &stepErr) {
		return stepErr.Transient
	}
	return false
}
