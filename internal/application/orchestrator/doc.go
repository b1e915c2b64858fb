// Package orchestrator implements the execution state machine.
//
// The engine drives one execution through its plan:
//   - Executing each step against the handler registry
//   - Validating each step's raw output against its declared shape
//   - Correcting failures through a bounded Retry/Abort decision
//   - Persisting every transition and emitting ordered log events
//
// Steps run strictly sequentially; a lease guarantees exactly one
// worker advances an execution at a time.
package orchestrator
