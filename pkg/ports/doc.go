// Package ports defines the interfaces between the orchestration core
// and its external collaborators: state storage, the event log sink,
// lease management, plan generation, operation handlers and metrics.
// Adapters live under pkg/adapters.
package ports
