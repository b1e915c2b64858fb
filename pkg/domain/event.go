package domain

import "time"

// LogLevel is the severity of a log event
type LogLevel string

const (
	LogLevelDebug    LogLevel = "debug"
	LogLevelInfo     LogLevel = "info"
	LogLevelWarning  LogLevel = "warning"
	LogLevelError    LogLevel = "error"
	LogLevelCritical LogLevel = "critical"
)

// LogEvent is one append-only log entry for an execution. Ordering
// within one execution is the emission order.
type LogEvent struct {
	ID          string                 `json:"id"`
	ExecutionID string                 `json:"execution_id"`
	Timestamp   time.Time              `json:"timestamp"`
	Level       LogLevel               `json:"level"`
	Message     string                 `json:"message"`
	StepIndex   *int                   `json:"step_index,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`

	// Terminal marks the last event of an execution's stream;
	// consumers close their streams after it.
	Terminal bool `json:"terminal,omitempty"`
}
