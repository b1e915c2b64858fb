package ports

import (
	"context"
	"time"

	"github.com/mrwa-ai/mrwa/pkg/domain"
)

// StateStore is the durable record of execution state. All writes for
// one execution id are sequenced by the single owning worker; readers
// never observe interleaved partial updates.
type StateStore interface {
	// Create persists a new execution record
	Create(ctx context.Context, exec *domain.Execution) error

	// UpdateStatus updates the execution status plus any changed
	// top-level fields carried on exec
	UpdateStatus(ctx context.Context, exec *domain.Execution) error

	// AppendStepHistory records the latest state of one step
	AppendStepHistory(ctx context.Context, executionID string, step *domain.Step) error

	// Get returns the execution or domain.ErrNotFound
	Get(ctx context.Context, executionID string) (*domain.Execution, error)

	// ListByPrincipal returns executions owned by a principal,
	// optionally filtered by status
	ListByPrincipal(ctx context.Context, principal string, filter ListFilter) ([]*domain.Execution, error)
}

// ListFilter narrows ListByPrincipal results
type ListFilter struct {
	Status domain.ExecutionStatus
	Limit  int
}

// EventSink is the append-only per-execution log stream
type EventSink interface {
	// Publish appends one event to the execution's stream
	Publish(ctx context.Context, event domain.LogEvent) error

	// Subscribe returns a channel delivering the execution's events
	// in emission order. The channel is closed after a terminal
	// event or when ctx is cancelled.
	Subscribe(ctx context.Context, executionID string) (<-chan domain.LogEvent, error)

	// Close releases sink resources
	Close() error
}

// LeaseManager grants time-bounded single-writer ownership of an
// execution id. Exactly one worker may hold a lease at a time.
type LeaseManager interface {
	// Acquire obtains the lease or returns domain.ErrLeaseHeld
	Acquire(ctx context.Context, executionID, owner string, ttl time.Duration) error

	// Renew extends a held lease; fails if owner no longer holds it
	Renew(ctx context.Context, executionID, owner string, ttl time.Duration) error

	// Release drops the lease if owner still holds it
	Release(ctx context.Context, executionID, owner string) error
}

// PlanGenerator produces an ordered step list for an input descriptor.
// Implementations must be deterministic for identical input within a
// bounded window so tests can rely on fixture plans.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, input domain.InputDescriptor) ([]domain.Step, error)
}

// Handler executes one named operation. Prior step outputs are
// available in execContext keyed by ordinal.
type Handler func(ctx context.Context, params map[string]interface{}, execContext map[int]interface{}) (interface{}, error)

// HandlerRegistry resolves operation names to handlers. Read-only
// after startup; safe for concurrent use.
type HandlerRegistry interface {
	// Invoke runs the named operation
	Invoke(ctx context.Context, operation string, params map[string]interface{}, execContext map[int]interface{}) (interface{}, error)

	// IsTransient classifies an error returned by Invoke
	IsTransient(err error) bool
}

// MetricsCollector records orchestration metrics
type MetricsCollector interface {
	RecordExecutionCreated(inputType string)
	RecordExecutionFinished(status string, duration time.Duration)
	RecordStepExecuted(operation, status string, duration time.Duration)
	RecordCorrection(reason string)
	RecordPersistenceFailure()
	SetActiveExecutions(n int)
}
