package domain

import "time"

// ExecutionStatus represents the lifecycle state of an execution
type ExecutionStatus string

const (
	ExecutionStatusPlanned    ExecutionStatus = "planned"
	ExecutionStatusRunning    ExecutionStatus = "running"
	ExecutionStatusValidating ExecutionStatus = "validating"
	ExecutionStatusCorrecting ExecutionStatus = "correcting"
	ExecutionStatusCompleted  ExecutionStatus = "completed"
	ExecutionStatusFailed     ExecutionStatus = "failed"
	ExecutionStatusCancelled  ExecutionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are permitted
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted ||
		s == ExecutionStatusFailed ||
		s == ExecutionStatusCancelled
}

// StepStatus represents the state of a single plan step
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusRunning    StepStatus = "running"
	StepStatusValidating StepStatus = "validating"
	StepStatusCorrected  StepStatus = "corrected"
	StepStatusSucceeded  StepStatus = "succeeded"
	StepStatusFailed     StepStatus = "failed"
)

// InputDescriptor identifies the input an execution operates on
type InputDescriptor struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Step is one unit of work within a plan, backed by a named operation
type Step struct {
	Index       int                    `json:"index"`
	Operation   string                 `json:"operation"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Expect      OutputShape            `json:"expect"`
	Status      StepStatus             `json:"status"`
	Attempts    int                    `json:"attempts"`
	Output      interface{}            `json:"output,omitempty"`
	Error       string                 `json:"error,omitempty"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	DurationMS  int64                  `json:"duration_ms"`
}

// Plan is the ordered step sequence attached to exactly one execution.
// Immutable once attached; only step runtime fields are mutated.
type Plan struct {
	Version string `json:"version"`
	Steps   []Step `json:"steps"`
}

// Execution is one run of a plan against one input, owned by one principal
type Execution struct {
	ID          string          `json:"id"`
	Principal   string          `json:"principal"`
	Input       InputDescriptor `json:"input"`
	Plan        *Plan           `json:"plan"`
	CurrentStep int             `json:"current_step"`
	Status      ExecutionStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`

	// Correction budget
	AutoCorrect bool `json:"auto_correct"`
	MaxRetries  int  `json:"max_retries"`
	Corrections int  `json:"corrections"`

	ErrorMessage string `json:"error_message,omitempty"`

	// Set when state-store writes kept failing after bounded retries.
	// The state machine still progressed; operators must reconcile.
	PersistenceError bool `json:"persistence_error,omitempty"`
}

// CorrectionBudgetRemaining returns how many corrections are still allowed
func (e *Execution) CorrectionBudgetRemaining() int {
	remaining := e.MaxRetries - e.Corrections
	if remaining < 0 {
		return 0
	}
	return remaining
}
