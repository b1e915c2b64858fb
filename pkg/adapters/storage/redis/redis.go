package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mrwa-ai/mrwa/pkg/domain"
	"github.com/mrwa-ai/mrwa/pkg/ports"
)

// Store implements ports.StateStore using Redis. Each execution is a
// JSON value under mrwa:exec:<id>; a per-principal set indexes ids for
// listing.
type Store struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewStore creates a new Redis state store
func NewStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Create persists a new execution record and indexes it
func (s *Store) Create(ctx context.Context, exec *domain.Execution) error {
	data, err := json.Marshal(exec)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	key := execKey(exec.ID)

	ok, err := s.client.SetNX(ctx, key, data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	if !ok {
		return fmt.Errorf("execution already exists: %s", exec.ID)
	}

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, principalKey(exec.Principal), exec.ID)
	pipe.Expire(ctx, principalKey(exec.Principal), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index execution: %w", err)
	}

	s.logger.Debug("execution created",
		zap.String("execution_id", exec.ID),
		zap.String("principal", exec.Principal))

	return nil
}

// UpdateStatus persists the execution's current state. Writes that
// would move a terminal execution to a different status are rejected:
// a cancel acknowledged by another node must not be overwritten.
func (s *Store) UpdateStatus(ctx context.Context, exec *domain.Execution) error {
	current, err := s.Get(ctx, exec.ID)
	if err == nil && current.Status.IsTerminal() && current.Status != exec.Status {
		return domain.ErrTerminalState
	}

	data, err := json.Marshal(exec)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	if err := s.client.Set(ctx, execKey(exec.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	s.logger.Debug("execution state saved",
		zap.String("execution_id", exec.ID),
		zap.String("status", string(exec.Status)))

	return nil
}

// AppendStepHistory records the latest state of one step. The write
// is read-modify-write; safe because exactly one worker holds the
// execution's lease.
func (s *Store) AppendStepHistory(ctx context.Context, executionID string, step *domain.Step) error {
	exec, err := s.Get(ctx, executionID)
	if err != nil {
		return err
	}
	if step.Index < 0 || step.Index >= len(exec.Plan.Steps) {
		return fmt.Errorf("step index %d out of range", step.Index)
	}
	exec.Plan.Steps[step.Index] = *step
	return s.UpdateStatus(ctx, exec)
}

// Get returns the execution or domain.ErrNotFound
func (s *Store) Get(ctx context.Context, executionID string) (*domain.Execution, error) {
	data, err := s.client.Get(ctx, execKey(executionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	var exec domain.Execution
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
	}

	return &exec, nil
}

// ListByPrincipal returns executions owned by a principal
func (s *Store) ListByPrincipal(ctx context.Context, principal string, filter ports.ListFilter) ([]*domain.Execution, error) {
	ids, err := s.client.SMembers(ctx, principalKey(principal)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	out := make([]*domain.Execution, 0, len(ids))
	for _, id := range ids {
		exec, err := s.Get(ctx, id)
		if err != nil {
			// Expired records are skipped, not surfaced
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

func execKey(executionID string) string {
	return fmt.Sprintf("mrwa:exec:%s", executionID)
}

func principalKey(principal string) string {
	return fmt.Sprintf("mrwa:principal:%s", principal)
}
