// Package metrics provides metrics collector adapters.
package metrics

import "time"

// Noop is a metrics collector that discards everything. Used in tests
// and when metrics are disabled.
type Noop struct{}

// NewNoop creates a no-op metrics collector
func NewNoop() *Noop {
	return &Noop{}
}

func (*Noop) RecordExecutionCreated(inputType string)                       {}
func (*Noop) RecordExecutionFinished(status string, duration time.Duration) {}
func (*Noop) RecordStepExecuted(operation, status string, d time.Duration)  {}
func (*Noop) RecordCorrection(reason string)                                {}
func (*Noop) RecordPersistenceFailure()                                     {}
func (*Noop) SetActiveExecutions(n int)                                     {}
