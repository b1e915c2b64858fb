package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mrwa-ai/mrwa/pkg/domain"
	"github.com/mrwa-ai/mrwa/pkg/ports"
)

// Store implements ports.StateStore with an in-memory map. Used for
// tests and single-node deployments. Records are stored serialized so
// readers never share memory with the orchestrator's working copy.
type Store struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewStore creates a new in-memory state store
func NewStore() *Store {
	return &Store{
		records: make(map[string][]byte),
	}
}

// Create persists a new execution record
func (s *Store) Create(ctx context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[exec.ID]; exists {
		return fmt.Errorf("execution already exists: %s", exec.ID)
	}
	return s.put(exec)
}

// UpdateStatus persists the execution's current state. Writes that
// would move a terminal execution to a different status are rejected:
// a cancel acknowledged by another node must not be overwritten.
func (s *Store) UpdateStatus(ctx context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.get(exec.ID)
	if err != nil {
		return err
	}
	if current.Status.IsTerminal() && current.Status != exec.Status {
		return domain.ErrTerminalState
	}
	return s.put(exec)
}

// AppendStepHistory records the latest state of one step
func (s *Store) AppendStepHistory(ctx context.Context, executionID string, step *domain.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, err := s.get(executionID)
	if err != nil {
		return err
	}
	if step.Index < 0 || step.Index >= len(exec.Plan.Steps) {
		return fmt.Errorf("step index %d out of range", step.Index)
	}
	exec.Plan.Steps[step.Index] = *step
	return s.put(exec)
}

// Get returns the execution or domain.ErrNotFound
func (s *Store) Get(ctx context.Context, executionID string) (*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(executionID)
}

// ListByPrincipal returns executions owned by a principal
func (s *Store) ListByPrincipal(ctx context.Context, principal string, filter ports.ListFilter) ([]*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Execution
	for id := range s.records {
		exec, err := s.get(id)
		if err != nil {
			continue
		}
		if exec.Principal != principal {
			continue
		}
		if filter.Status != "" && exec.Status != filter.Status {
			continue
		}
		out = append(out, exec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) put(exec *domain.Execution) error {
	data, err := json.Marshal(exec)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}
	s.records[exec.ID] = data
	return nil
}

func (s *Store) get(executionID string) (*domain.Execution, error) {
	data, ok := s.records[executionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var exec domain.Execution
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
	}
	return &exec, nil
}
